// Package server assembles the HTTP router: global middleware, API routes
// under the configured prefix and the role-guarded page routes.
package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/tutorfinder/tutorfinder-api/internal/access"
	"github.com/tutorfinder/tutorfinder-api/internal/handler"
	"github.com/tutorfinder/tutorfinder-api/internal/middleware"
	"github.com/tutorfinder/tutorfinder-api/internal/models"
	"github.com/tutorfinder/tutorfinder-api/internal/service"
	"github.com/tutorfinder/tutorfinder-api/pkg/logger"
	corsmiddleware "github.com/tutorfinder/tutorfinder-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tutorfinder/tutorfinder-api/pkg/middleware/requestid"
)

// Options configures the router.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	CookieName     string
	EnableDocs     bool
}

// Dependencies are the handlers and collaborators the routes are bound to.
type Dependencies struct {
	Sessions middleware.SessionResolver
	Metrics  *service.MetricsService
	Audit    middleware.AuditWriter
	Logger   *zap.Logger

	Auth          *handler.AuthHandler
	Tutors        *handler.TutorHandler
	Profile       *handler.ProfileHandler
	Bookings      *handler.BookingHandler
	Exports       *handler.ExportHandler
	Applications  *handler.SubjectApplicationHandler
	Notifications *handler.NotificationHandler
	Pages         *handler.PageHandler
	System        *handler.MetricsHandler
}

// NewRouter builds the gin engine.
func NewRouter(opts Options, deps Dependencies) *gin.Engine {
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics, "/metrics", "/health", "/ready"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", deps.System.Health)
	r.GET("/ready", deps.System.Ready)
	r.GET("/metrics", deps.System.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	sessions := middleware.Session(deps.Sessions, opts.CookieName)
	registerPages(r.Group("", sessions), deps)
	registerAPI(r.Group(opts.APIPrefix, sessions), deps, log)
	return r
}

func registerPages(pages *gin.RouterGroup, deps Dependencies) {
	guard := func(roles ...access.Role) gin.HandlerFunc {
		return middleware.PageGuard(deps.Metrics, roles...)
	}
	pages.GET(access.PathSignIn, deps.Pages.Login)
	pages.GET(access.PathStudentHome, guard(access.RoleStudent), deps.Pages.StudentDashboard)
	pages.GET(access.PathTutorHome, guard(access.RoleTutor), deps.Pages.TutorDashboard)
	pages.GET(access.PathTutorProfile, guard(access.RoleTutor), deps.Pages.TutorProfile)
	pages.GET(access.PathAdminHome, guard(access.RoleAdmin), deps.Pages.AdminApplications)
	pages.GET(access.PathRoleSelection, guard(), deps.Pages.RoleSelection)
}

func registerAPI(api *gin.RouterGroup, deps Dependencies, log *zap.Logger) {
	signedIn := middleware.RequireSession(deps.Metrics)
	anyRole := middleware.RequireRoles(deps.Metrics, access.RoleStudent, access.RoleTutor, access.RoleAdmin)
	students := middleware.RequireRoles(deps.Metrics, access.RoleStudent)
	tutors := middleware.RequireRoles(deps.Metrics, access.RoleTutor)
	participants := middleware.RequireRoles(deps.Metrics, access.RoleStudent, access.RoleTutor)
	admins := middleware.RequireRoles(deps.Metrics, access.RoleAdmin)
	audit := func(action, resource, idParam string) gin.HandlerFunc {
		return middleware.Audit(deps.Audit, log, action, resource, idParam)
	}

	auth := api.Group("/auth")
	auth.POST("/register", deps.Auth.Register)
	auth.POST("/login", deps.Auth.Login)
	auth.POST("/refresh", deps.Auth.Refresh)
	auth.GET("/session", deps.Auth.Session)
	auth.POST("/logout", signedIn, deps.Auth.Logout)
	auth.POST("/change-password", signedIn, deps.Auth.ChangePassword)
	auth.POST("/role", signedIn, deps.Auth.SelectRole)

	api.GET("/tutors", deps.Tutors.Search)
	api.GET("/tutors/facets", deps.Tutors.Facets)
	api.GET("/tutors/:id", deps.Tutors.Get)
	api.GET("/subjects", deps.Applications.Catalog)
	api.GET("/exports/:token", deps.Exports.Download)

	api.GET("/profile", signedIn, deps.Profile.Get)
	api.PUT("/profile", anyRole, audit(models.AuditActionProfileUpdate, "user", ""), deps.Profile.Update)
	api.PUT("/tutor/profile", tutors, audit(models.AuditActionProfileUpdate, "tutor_profile", ""), deps.Profile.UpdateTutor)

	bookings := api.Group("/bookings")
	bookings.GET("", participants, deps.Bookings.List)
	bookings.POST("", students, audit(models.AuditActionBookingCreate, "booking", ""), deps.Bookings.Create)
	bookings.PATCH("/:id/status", participants, audit(models.AuditActionBookingTransition, "booking", "id"), deps.Bookings.UpdateStatus)
	bookings.POST("/export", tutors, deps.Bookings.Export)

	applications := api.Group("/subject-applications", tutors)
	applications.GET("", deps.Applications.ListOwn)
	applications.POST("", deps.Applications.Apply)
	applications.DELETE("/:id", deps.Applications.Withdraw)

	notifications := api.Group("/notifications", signedIn)
	notifications.GET("", deps.Notifications.List)
	notifications.POST("/:id/read", deps.Notifications.MarkRead)

	admin := api.Group("/admin", admins)
	admin.GET("/subject-applications", deps.Applications.AdminList)
	admin.POST("/subject-applications/:id/review", audit(models.AuditActionApplicationReview, "subject_application", "id"), deps.Applications.Review)
	admin.GET("/system", deps.System.System)
}
