package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorfinder/tutorfinder-api/internal/models"
	appErrors "github.com/tutorfinder/tutorfinder-api/pkg/errors"
)

var subjectCatalog = []models.SubjectCategory{
	{Name: "Mathematics", Subjects: []string{"Algebra", "Calculus", "Geometry", "Statistics", "Trigonometry", "Linear Algebra"}},
	{Name: "Sciences", Subjects: []string{"Physics", "Chemistry", "Biology", "Earth Science", "Environmental Science"}},
	{Name: "Languages", Subjects: []string{"English", "Spanish", "French", "German", "Mandarin", "Japanese"}},
	{Name: "Computer Science", Subjects: []string{"Programming", "Web Development", "Data Science", "Machine Learning", "Database Design"}},
	{Name: "Social Studies", Subjects: []string{"History", "Geography", "Political Science", "Economics", "Psychology"}},
	{Name: "Arts", Subjects: []string{"Drawing", "Painting", "Music Theory", "Photography", "Creative Writing"}},
	{Name: "Business", Subjects: []string{"Accounting", "Marketing", "Finance", "Business Management", "Entrepreneurship"}},
}

type applicationStore interface {
	Create(ctx context.Context, app *models.SubjectApplication) error
	FindByID(ctx context.Context, id string) (*models.SubjectApplication, error)
	List(ctx context.Context, filter models.SubjectApplicationFilter) ([]models.SubjectApplication, error)
	ExistsOpen(ctx context.Context, tutorID, subject string) (bool, error)
	Review(ctx context.Context, id string, status models.ApplicationStatus, reviewerID string) (bool, error)
	DeletePending(ctx context.Context, id, tutorID string) (bool, error)
}

type tutorProfileReader interface {
	FindProfile(ctx context.Context, userID string) (*models.TutorProfile, error)
}

// SubjectApplicationService manages tutors' requests to teach new subjects.
type SubjectApplicationService struct {
	store     applicationStore
	tutors    tutorProfileReader
	directory directoryInvalidator
	notifier  Notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectApplicationService constructs the service.
func NewSubjectApplicationService(store applicationStore, tutors tutorProfileReader, directory directoryInvalidator, notifier Notifier, validate *validator.Validate, logger *zap.Logger) *SubjectApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectApplicationService{store: store, tutors: tutors, directory: directory, notifier: notifier, validator: validate, logger: logger}
}

// Catalog returns the subjects tutors may apply for, grouped by category.
func (s *SubjectApplicationService) Catalog() []models.SubjectCategory {
	out := make([]models.SubjectCategory, len(subjectCatalog))
	for i, category := range subjectCatalog {
		out[i] = models.SubjectCategory{Name: category.Name, Subjects: append([]string(nil), category.Subjects...)}
	}
	return out
}

// Apply files a pending application for a catalog subject.
func (s *SubjectApplicationService) Apply(ctx context.Context, tutorID string, role models.UserRole, req models.ApplySubjectRequest) (*models.SubjectApplication, error) {
	if role != models.RoleTutor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only tutors can apply for subjects")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	subject, ok := catalogSubject(req.Subject)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject "+strings.TrimSpace(req.Subject))
	}

	profile, err := s.tutors.FindProfile(ctx, tutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor profile")
	}
	if _, taught := matchSubject(profile.Subjects, subject); taught {
		return nil, appErrors.Clone(appErrors.ErrConflict, "you already teach "+subject)
	}
	open, err := s.store.ExistsOpen(ctx, tutorID, subject)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check applications")
	}
	if open {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an application for "+subject+" already exists")
	}

	app := &models.SubjectApplication{
		TutorID: tutorID,
		Subject: subject,
		Status:  models.ApplicationStatusPending,
		Message: optionalText(&req.Message, nil),
	}
	if err := s.store.Create(ctx, app); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}
	return app, nil
}

// ListOwn returns the applications filed by tutorID.
func (s *SubjectApplicationService) ListOwn(ctx context.Context, tutorID string) ([]models.SubjectApplication, error) {
	return s.list(ctx, models.SubjectApplicationFilter{TutorID: tutorID})
}

// ListAll returns every application, optionally narrowed by status.
func (s *SubjectApplicationService) ListAll(ctx context.Context, status *models.ApplicationStatus) ([]models.SubjectApplication, error) {
	return s.list(ctx, models.SubjectApplicationFilter{Status: status})
}

func (s *SubjectApplicationService) list(ctx context.Context, filter models.SubjectApplicationFilter) ([]models.SubjectApplication, error) {
	apps, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applications")
	}
	if apps == nil {
		apps = []models.SubjectApplication{}
	}
	return apps, nil
}

// Withdraw deletes one of tutorID's pending applications.
func (s *SubjectApplicationService) Withdraw(ctx context.Context, id, tutorID string) error {
	deleted, err := s.store.DeletePending(ctx, id, tutorID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw application")
	}
	if deleted {
		return nil
	}
	app, err := s.store.FindByID(ctx, id)
	if err != nil || app.TutorID != tutorID {
		return appErrors.Clone(appErrors.ErrNotFound, "application not found")
	}
	return appErrors.Clone(appErrors.ErrInvalidTransition, "only pending applications can be withdrawn")
}

// Review records an admin decision. The store grants the subject together
// with the approval, so a failed approval leaves the application pending.
func (s *SubjectApplicationService) Review(ctx context.Context, id, reviewerID string, req models.ReviewApplicationRequest) (*models.SubjectApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	app, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if app.Status != models.ApplicationStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("application already %s", app.Status))
	}
	reviewed, err := s.store.Review(ctx, id, req.Status, reviewerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review application")
	}
	if !reviewed {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "application was reviewed concurrently")
	}

	if req.Status == models.ApplicationStatusApproved && s.directory != nil {
		s.directory.Invalidate(ctx)
	}

	app.Status = req.Status
	app.ReviewedBy = &reviewerID
	if s.notifier != nil {
		s.notifier.Notify(ctx, models.NotificationRequest{
			UserID: app.TutorID,
			Kind:   models.NotificationApplicationDone,
			Title:  "Subject application " + string(req.Status),
			Body:   fmt.Sprintf("Your application to teach %s was %s.", app.Subject, req.Status),
		})
	}
	s.logger.Info("subject application reviewed",
		zap.String("application_id", id),
		zap.String("status", string(req.Status)),
		zap.String("reviewer_id", reviewerID))
	return app, nil
}

func catalogSubject(raw string) (string, bool) {
	wanted := strings.TrimSpace(raw)
	for _, category := range subjectCatalog {
		if subject, ok := matchSubject(category.Subjects, wanted); ok {
			return subject, true
		}
	}
	return "", false
}
