package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorfinder/tutorfinder-api/internal/discovery"
	"github.com/tutorfinder/tutorfinder-api/internal/models"
	appErrors "github.com/tutorfinder/tutorfinder-api/pkg/errors"
)

type bookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id string) (*models.BookingView, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.BookingView, int, error)
	UpdateStatus(ctx context.Context, id string, next models.BookingStatus, expected ...models.BookingStatus) (bool, error)
}

type tutorLookup interface {
	Get(ctx context.Context, id string) (*discovery.TutorRecord, error)
}

// BookingConfig bounds booking requests.
type BookingConfig struct {
	MinDurationMinutes int
	MaxDurationMinutes int
}

// BookingService handles session requests between students and tutors.
type BookingService struct {
	store     bookingStore
	tutors    tutorLookup
	notifier  Notifier
	validator *validator.Validate
	cfg       BookingConfig
	logger    *zap.Logger
}

// NewBookingService constructs a BookingService.
func NewBookingService(store bookingStore, tutors tutorLookup, notifier Notifier, validate *validator.Validate, cfg BookingConfig, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinDurationMinutes <= 0 {
		cfg.MinDurationMinutes = 30
	}
	if cfg.MaxDurationMinutes < cfg.MinDurationMinutes {
		cfg.MaxDurationMinutes = 180
	}
	return &BookingService{store: store, tutors: tutors, notifier: notifier, validator: validate, cfg: cfg, logger: logger}
}

// Create records a pending booking from studentID with the tutor's current
// hourly rate.
func (s *BookingService) Create(ctx context.Context, studentID string, role models.UserRole, req models.CreateBookingRequest) (*models.BookingView, error) {
	if role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can request sessions")
	}
	req.TutorID = strings.TrimSpace(req.TutorID)
	req.Subject = strings.TrimSpace(req.Subject)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if req.DurationMinutes < s.cfg.MinDurationMinutes || req.DurationMinutes > s.cfg.MaxDurationMinutes {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("duration must be between %d and %d minutes", s.cfg.MinDurationMinutes, s.cfg.MaxDurationMinutes))
	}
	if req.TutorID == studentID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot book a session with yourself")
	}

	tutor, err := s.tutors.Get(ctx, req.TutorID)
	if err != nil {
		return nil, err
	}
	subject, ok := matchSubject(tutor.Subjects, req.Subject)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tutor does not teach "+req.Subject)
	}

	booking := &models.Booking{
		StudentID:       studentID,
		TutorID:         tutor.ID,
		Subject:         subject,
		SessionDate:     req.SessionDate,
		SessionTime:     req.SessionTime,
		DurationMinutes: req.DurationMinutes,
		Message:         optionalText(&req.Message, nil),
		Status:          models.BookingStatusPending,
		HourlyRate:      tutor.HourlyRate,
	}
	if err := s.store.Create(ctx, booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}

	view, err := s.store.FindByID(ctx, booking.ID)
	if err != nil {
		s.logger.Warn("failed to reload booking", zap.String("booking_id", booking.ID), zap.Error(err))
		view = &models.BookingView{Booking: *booking, TutorName: tutor.FullName()}
	}
	view.EstimatedCost = view.Booking.EstimatedCost()

	s.notify(ctx, models.NotificationRequest{
		UserID: tutor.ID,
		Kind:   models.NotificationBookingRequested,
		Title:  "New session request",
		Body:   fmt.Sprintf("%s requested a %d minute %s session on %s at %s.", displayName(view.StudentName, "A student"), booking.DurationMinutes, booking.Subject, booking.SessionDate, booking.SessionTime),
	})
	return view, nil
}

// List returns the caller's bookings: students see their own requests, tutors
// their incoming ones and admins everything.
func (s *BookingService) List(ctx context.Context, userID string, role models.UserRole, status *models.BookingStatus, page, pageSize int) ([]models.BookingView, *models.Pagination, error) {
	filter := models.BookingFilter{Status: status, Page: page, PageSize: pageSize}
	switch role {
	case models.RoleStudent:
		filter.StudentID = userID
	case models.RoleTutor:
		filter.TutorID = userID
	case models.RoleAdmin:
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "choose a role first")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	views, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
	}
	if views == nil {
		views = []models.BookingView{}
	}
	for i := range views {
		views[i].EstimatedCost = views[i].Booking.EstimatedCost()
	}
	return views, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// AllForTutor returns every booking addressed to tutorID.
func (s *BookingService) AllForTutor(ctx context.Context, tutorID string) ([]models.BookingView, error) {
	var all []models.BookingView
	for page := 1; ; page++ {
		views, pagination, err := s.List(ctx, tutorID, models.RoleTutor, nil, page, 100)
		if err != nil {
			return nil, err
		}
		all = append(all, views...)
		if len(views) == 0 || len(all) >= pagination.TotalCount {
			return all, nil
		}
	}
}

// Transition moves a booking to req.Status. Tutors accept or decline pending
// requests; students cancel pending or accepted ones.
func (s *BookingService) Transition(ctx context.Context, bookingID, userID string, role models.UserRole, req models.UpdateBookingStatusRequest) (*models.BookingView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	view, err := s.store.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}

	var expected []models.BookingStatus
	var recipient string
	switch {
	case role == models.RoleTutor && view.TutorID == userID:
		if req.Status == models.BookingStatusCancelled {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "tutors accept or decline requests")
		}
		expected = []models.BookingStatus{models.BookingStatusPending}
		recipient = view.StudentID
	case role == models.RoleStudent && view.StudentID == userID:
		if req.Status != models.BookingStatusCancelled {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "students can only cancel requests")
		}
		expected = []models.BookingStatus{models.BookingStatusPending, models.BookingStatusAccepted}
		recipient = view.TutorID
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "booking belongs to another user")
	}

	if !statusIn(view.Status, expected) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move a %s booking to %s", view.Status, req.Status))
	}
	updated, err := s.store.UpdateStatus(ctx, bookingID, req.Status, expected...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "booking changed while updating")
	}

	view.Status = req.Status
	view.EstimatedCost = view.Booking.EstimatedCost()
	s.notify(ctx, models.NotificationRequest{
		UserID: recipient,
		Kind:   models.NotificationBookingUpdated,
		Title:  "Session request " + string(req.Status),
		Body:   fmt.Sprintf("Your %s session on %s at %s was %s.", view.Subject, view.SessionDate, view.SessionTime, req.Status),
	})
	return view, nil
}

func (s *BookingService) notify(ctx context.Context, req models.NotificationRequest) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, req)
}

func matchSubject(subjects []string, wanted string) (string, bool) {
	for _, subject := range subjects {
		if strings.EqualFold(strings.TrimSpace(subject), wanted) {
			return subject, true
		}
	}
	return "", false
}

func statusIn(status models.BookingStatus, set []models.BookingStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

func displayName(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}
