package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorfinder/tutorfinder-api/internal/models"
	appErrors "github.com/tutorfinder/tutorfinder-api/pkg/errors"
)

type profileUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
}

type tutorProfileRepository interface {
	FindProfile(ctx context.Context, userID string) (*models.TutorProfile, error)
	UpdateProfile(ctx context.Context, profile *models.TutorProfile) error
}

// ProfileView is the caller's own account plus, for tutors, the tutor profile.
type ProfileView struct {
	User  *models.User         `json:"user"`
	Tutor *models.TutorProfile `json:"tutor,omitempty"`
}

// ProfileService manages the caller's own profile.
type ProfileService struct {
	users     profileUserRepository
	tutors    tutorProfileRepository
	directory directoryInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(users profileUserRepository, tutors tutorProfileRepository, directory directoryInvalidator, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{users: users, tutors: tutors, directory: directory, validator: validate, logger: logger}
}

// Get returns the profile of userID.
func (s *ProfileService) Get(ctx context.Context, userID string) (*ProfileView, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := &ProfileView{User: user}
	if user.Role == models.RoleTutor {
		profile, err := s.loadTutorProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		view.Tutor = profile
	}
	return view, nil
}

// Update applies account field changes.
func (s *ProfileService) Update(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		name := strings.TrimSpace(*req.FirstName)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "first name is required")
		}
		user.FirstName = name
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	user.Phone = optionalText(req.Phone, user.Phone)
	user.Location = optionalText(req.Location, user.Location)
	user.Bio = optionalText(req.Bio, user.Bio)
	user.ProfileImage = optionalText(req.ProfileImage, user.ProfileImage)

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	if user.Role == models.RoleTutor && s.directory != nil {
		s.directory.Invalidate(ctx)
	}
	return user, nil
}

// UpdateTutor applies tutor attribute changes. Subjects may only be narrowed
// to ones the tutor already teaches; new subjects go through applications.
func (s *ProfileService) UpdateTutor(ctx context.Context, userID string, req models.UpdateTutorProfileRequest) (*models.TutorProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tutor profile payload")
	}
	profile, err := s.loadTutorProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.HourlyRate != nil {
		rate := *req.HourlyRate
		profile.HourlyRate = &rate
	}
	profile.Experience = optionalText(req.Experience, profile.Experience)
	profile.Education = optionalText(req.Education, profile.Education)
	if req.Languages != nil {
		profile.Languages = cleanList(*req.Languages)
	}
	if req.Availability != nil {
		profile.Availability = cleanList(*req.Availability)
	}
	if req.Subjects != nil {
		subjects := cleanList(*req.Subjects)
		for _, subject := range subjects {
			if !containsString(profile.Subjects, subject) {
				return nil, appErrors.Clone(appErrors.ErrForbidden, "subject "+subject+" has not been approved")
			}
		}
		profile.Subjects = subjects
	}

	if err := s.tutors.UpdateProfile(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update tutor profile")
	}
	if s.directory != nil {
		s.directory.Invalidate(ctx)
	}
	return profile, nil
}

func (s *ProfileService) loadUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

func (s *ProfileService) loadTutorProfile(ctx context.Context, userID string) (*models.TutorProfile, error) {
	profile, err := s.tutors.FindProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor profile")
	}
	return profile, nil
}

// optionalText returns current when next is nil, nil when next is blank and
// the trimmed value otherwise.
func optionalText(next, current *string) *string {
	if next == nil {
		return current
	}
	trimmed := strings.TrimSpace(*next)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
