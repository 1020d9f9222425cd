package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tutorfinder/tutorfinder-api/internal/models"
	appErrors "github.com/tutorfinder/tutorfinder-api/pkg/errors"
	"github.com/tutorfinder/tutorfinder-api/pkg/jobs"
	"github.com/tutorfinder/tutorfinder-api/pkg/mailer"
)

const jobTypeNotification = "notification"

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) (bool, error)
}

type notificationRecipients interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// Notifier is implemented by services that emit notifications.
type Notifier interface {
	Notify(ctx context.Context, req models.NotificationRequest)
}

// notificationJob is shared across retries so a stored row is not duplicated
// when only the email failed.
type notificationJob struct {
	Request models.NotificationRequest
	stored  bool
}

// NotificationService persists in-app notifications and mirrors them by email.
type NotificationService struct {
	store   notificationStore
	users   notificationRecipients
	sender  mailer.Sender
	metrics *MetricsService
	logger  *zap.Logger
	queue   jobEnqueuer
}

// NewNotificationService constructs a NotificationService. Until a queue is
// attached notifications are delivered inline.
func NewNotificationService(store notificationStore, users notificationRecipients, sender mailer.Sender, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = mailer.NewLogSender(logger)
	}
	return &NotificationService{store: store, users: users, sender: sender, metrics: metrics, logger: logger}
}

// NewQueue builds the worker pool that delivers notifications and attaches it
// to the service. The caller owns Start and Stop.
func (s *NotificationService) NewQueue(cfg jobs.QueueConfig) *jobs.Queue {
	if cfg.Logger == nil {
		cfg.Logger = s.logger
	}
	cfg.OnResult = func(job jobs.Job, err error) {
		s.metrics.RecordJob(job.Type, err)
	}
	q := jobs.NewQueue("notifications", s.Handle, cfg)
	s.queue = q
	return q
}

// Notify schedules delivery of req. Failures are logged, never returned, so a
// notification problem cannot fail the write that triggered it.
func (s *NotificationService) Notify(ctx context.Context, req models.NotificationRequest) {
	if s == nil || req.UserID == "" {
		return
	}
	job := jobs.Job{Type: jobTypeNotification, Payload: &notificationJob{Request: req}}
	if s.queue != nil {
		err := s.queue.Enqueue(job)
		if err == nil {
			return
		}
		s.logger.Warn("notification enqueue failed, delivering inline", zap.String("user_id", req.UserID), zap.Error(err))
	}
	err := s.Handle(ctx, job)
	s.metrics.RecordJob(job.Type, err)
	if err != nil {
		s.logger.Error("notification delivery failed", zap.String("user_id", req.UserID), zap.Error(err))
	}
}

// Handle is the queue handler: it stores the notification once and emails
// the recipient when they have an address.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(*notificationJob)
	if !ok {
		return fmt.Errorf("unexpected notification payload %T", job.Payload)
	}
	req := payload.Request

	if !payload.stored {
		n := &models.Notification{UserID: req.UserID, Kind: req.Kind, Title: req.Title, Body: req.Body}
		if err := s.store.Create(ctx, n); err != nil {
			return err
		}
		payload.stored = true
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("load notification recipient: %w", err)
	}
	if user.Email == "" {
		return nil
	}
	return s.sender.Send(ctx, mailer.Message{
		ToName:   user.FullName(),
		ToEmail:  user.Email,
		Subject:  req.Title,
		TextBody: req.Body,
	})
}

// List returns the notifications of userID.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	items, err := s.store.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, nil
}

// MarkRead flags one of userID's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	ok, err := s.store.MarkRead(ctx, id, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notification")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}
