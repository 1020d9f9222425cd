package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/tutorfinder/tutorfinder-api/api/swagger"
	"github.com/tutorfinder/tutorfinder-api/internal/handler"
	"github.com/tutorfinder/tutorfinder-api/internal/repository"
	"github.com/tutorfinder/tutorfinder-api/internal/server"
	"github.com/tutorfinder/tutorfinder-api/internal/service"
	"github.com/tutorfinder/tutorfinder-api/pkg/cache"
	"github.com/tutorfinder/tutorfinder-api/pkg/config"
	"github.com/tutorfinder/tutorfinder-api/pkg/database"
	"github.com/tutorfinder/tutorfinder-api/pkg/export"
	"github.com/tutorfinder/tutorfinder-api/pkg/jobs"
	"github.com/tutorfinder/tutorfinder-api/pkg/logger"
	"github.com/tutorfinder/tutorfinder-api/pkg/mailer"
	"github.com/tutorfinder/tutorfinder-api/pkg/storage"
)

// @title TutorFinder API
// @version 1.0.0
// @description Tutor discovery, session booking and role-guarded pages
// @BasePath /api/v1
// @schemes http https

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
			redisClient = nil
		}
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	tutorRepo := repository.NewTutorRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	applicationRepo := repository.NewSubjectApplicationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Discovery.SnapshotTTL, logr, redisClient != nil)

	directory := service.NewTutorDirectoryService(tutorRepo, cacheSvc, metrics, service.DirectoryConfig{
		SnapshotTTL:     cfg.Discovery.SnapshotTTL,
		DefaultPageSize: cfg.Discovery.DefaultPageSize,
		MaxPageSize:     cfg.Discovery.MaxPageSize,
	}, logr)

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	sessions := service.NewSessionService(authSvc, users, cacheSvc, service.SessionConfig{
		RoleCacheTTL:  cfg.Session.RoleCacheTTL,
		LookupTimeout: cfg.Session.LookupTimeout,
	}, logr)
	authSvc.WithOnboarding(sessions, directory)

	sender := mailer.New(mailer.Config{
		APIKey:    cfg.Notifications.SendGridAPIKey,
		FromEmail: cfg.Notifications.SenderEmail,
		FromName:  cfg.Notifications.SenderName,
	}, logr)
	notifications := service.NewNotificationService(notificationRepo, users, sender, metrics, logr)
	if cfg.Notifications.Enabled {
		queue := notifications.NewQueue(jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			MaxRetries: cfg.Notifications.MaxRetries,
			RetryDelay: cfg.Notifications.RetryDelay,
		})
		queue.Start(ctx)
		defer queue.Stop()
	}

	profiles := service.NewProfileService(users, tutorRepo, directory, validate, logr)
	bookings := service.NewBookingService(bookingRepo, directory, notifications, validate, service.BookingConfig{
		MinDurationMinutes: cfg.Bookings.MinDurationMinutes,
		MaxDurationMinutes: cfg.Bookings.MaxDurationMinutes,
	}, logr)
	applications := service.NewSubjectApplicationService(applicationRepo, tutorRepo, directory, notifications, validate, logr)

	fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("export storage unavailable", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exports := service.NewExportService(bookings, fileStore, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr, export.NewCSVExporter(), export.NewPDFExporter())
	go runExportCleanup(ctx, exports, cfg.Exports.CleanupInterval, cfg.Exports.SignedURLTTL, logr)

	if _, err := directory.Refresh(ctx); err != nil {
		logr.Warn("initial tutor snapshot failed", zap.Error(err))
	}

	router := server.NewRouter(server.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		CookieName:     cfg.Session.CookieName,
		EnableDocs:     cfg.EnableDocs && cfg.Env != config.EnvProduction,
	}, server.Dependencies{
		Sessions: sessions,
		Metrics:  metrics,
		Audit:    users,
		Logger:   logr,

		Auth: handler.NewAuthHandler(authSvc, handler.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Env == config.EnvProduction,
		}),
		Tutors:        handler.NewTutorHandler(directory),
		Profile:       handler.NewProfileHandler(profiles),
		Bookings:      handler.NewBookingHandler(bookings, exports),
		Exports:       handler.NewExportHandler(exports),
		Applications:  handler.NewSubjectApplicationHandler(applications),
		Notifications: handler.NewNotificationHandler(notifications),
		Pages:         handler.NewPageHandler(profiles, directory, bookings, applications),
		System: handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
			"database": db.PingContext,
			"redis":    cacheRepo.Ping,
		}),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type exportCleaner interface {
	Cleanup(ttl time.Duration) ([]string, error)
}

func runExportCleanup(ctx context.Context, exports exportCleaner, interval, ttl time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := exports.Cleanup(ttl)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}
