package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorfinder/tutorfinder-api/internal/models"
	appErrors "github.com/tutorfinder/tutorfinder-api/pkg/errors"
)

type memoryApplications struct {
	items    map[string]*models.SubjectApplication
	order    []string
	profiles *memoryProfiles
	grantErr error
}

func newMemoryApplications(profiles *memoryProfiles) *memoryApplications {
	return &memoryApplications{items: map[string]*models.SubjectApplication{}, profiles: profiles}
}

func (m *memoryApplications) Create(ctx context.Context, app *models.SubjectApplication) error {
	app.ID = fmt.Sprintf("app-%d", len(m.order)+1)
	copied := *app
	m.items[app.ID] = &copied
	m.order = append(m.order, app.ID)
	return nil
}

func (m *memoryApplications) FindByID(ctx context.Context, id string) (*models.SubjectApplication, error) {
	app, ok := m.items[id]
	if !ok {
		return nil, errNoRows
	}
	copied := *app
	return &copied, nil
}

func (m *memoryApplications) List(ctx context.Context, filter models.SubjectApplicationFilter) ([]models.SubjectApplication, error) {
	var out []models.SubjectApplication
	for _, id := range m.order {
		app, ok := m.items[id]
		if !ok {
			continue
		}
		if filter.TutorID != "" && app.TutorID != filter.TutorID {
			continue
		}
		if filter.Status != nil && app.Status != *filter.Status {
			continue
		}
		out = append(out, *app)
	}
	return out, nil
}

func (m *memoryApplications) ExistsOpen(ctx context.Context, tutorID, subject string) (bool, error) {
	for _, app := range m.items {
		if app.TutorID == tutorID && app.Subject == subject && app.Status != models.ApplicationStatusRejected {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryApplications) Review(ctx context.Context, id string, status models.ApplicationStatus, reviewerID string) (bool, error) {
	app, ok := m.items[id]
	if !ok || app.Status != models.ApplicationStatusPending {
		return false, nil
	}
	if status == models.ApplicationStatusApproved {
		if m.grantErr != nil {
			return false, m.grantErr
		}
		m.profiles.addSubject(app.TutorID, app.Subject)
	}
	app.Status = status
	app.ReviewedBy = &reviewerID
	return true, nil
}

func (m *memoryApplications) DeletePending(ctx context.Context, id, tutorID string) (bool, error) {
	app, ok := m.items[id]
	if !ok || app.TutorID != tutorID || app.Status != models.ApplicationStatusPending {
		return false, nil
	}
	delete(m.items, id)
	return true, nil
}

type memoryProfiles struct {
	profiles map[string]*models.TutorProfile
}

func (m *memoryProfiles) FindProfile(ctx context.Context, userID string) (*models.TutorProfile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, errNoRows
	}
	copied := *p
	return &copied, nil
}

func (m *memoryProfiles) addSubject(userID, subject string) {
	p := m.profiles[userID]
	for _, s := range p.Subjects {
		if s == subject {
			return
		}
	}
	p.Subjects = append(p.Subjects, subject)
}

func newApplicationFixture() (*SubjectApplicationService, *memoryApplications, *memoryProfiles, *recordingDirectory, *recordingNotifier) {
	profiles := &memoryProfiles{profiles: map[string]*models.TutorProfile{
		"tutor-1": {UserID: "tutor-1", Subjects: pq.StringArray{"Physics"}},
	}}
	store := newMemoryApplications(profiles)
	directory := &recordingDirectory{}
	notifier := &recordingNotifier{}
	svc := NewSubjectApplicationService(store, profiles, directory, notifier, nil, nil)
	return svc, store, profiles, directory, notifier
}

func TestCatalogIsACopy(t *testing.T) {
	svc, _, _, _, _ := newApplicationFixture()
	catalog := svc.Catalog()
	require.Len(t, catalog, 7)
	assert.Equal(t, "Mathematics", catalog[0].Name)
	catalog[0].Subjects[0] = "Alchemy"
	assert.Equal(t, "Algebra", svc.Catalog()[0].Subjects[0])
}

func TestApplyCanonicalisesSubject(t *testing.T) {
	svc, _, _, _, _ := newApplicationFixture()
	app, err := svc.Apply(context.Background(), "tutor-1", models.RoleTutor, models.ApplySubjectRequest{Subject: " calculus "})
	require.NoError(t, err)
	assert.Equal(t, "Calculus", app.Subject)
	assert.Equal(t, models.ApplicationStatusPending, app.Status)
	assert.Nil(t, app.Message)
}

func TestApplyRejections(t *testing.T) {
	svc, _, _, _, _ := newApplicationFixture()
	ctx := context.Background()

	_, err := svc.Apply(ctx, "student-1", models.RoleStudent, models.ApplySubjectRequest{Subject: "Calculus"})
	assertAppError(t, err, appErrors.ErrForbidden)

	_, err = svc.Apply(ctx, "tutor-1", models.RoleTutor, models.ApplySubjectRequest{Subject: "Astrology"})
	assertAppError(t, err, appErrors.ErrValidation)

	_, err = svc.Apply(ctx, "tutor-1", models.RoleTutor, models.ApplySubjectRequest{Subject: "physics"})
	assertAppError(t, err, appErrors.ErrConflict)

	_, err = svc.Apply(ctx, "tutor-1", models.RoleTutor, models.ApplySubjectRequest{Subject: "Calculus"})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, "tutor-1", models.RoleTutor, models.ApplySubjectRequest{Subject: "Calculus"})
	assertAppError(t, err, appErrors.ErrConflict)

	_, err = svc.Apply(ctx, "tutor-9", models.RoleTutor, models.ApplySubjectRequest{Subject: "Calculus"})
	assertAppError(t, err, appErrors.ErrNotFound)
}

func TestApproveGrantsSubjectOnce(t *testing.T) {
	svc, _, profiles, directory, notifier := newApplicationFixture()
	ctx := context.Background()
	app, err := svc.Apply(ctx, "tutor-1", models.RoleTutor, models.ApplySubjectRequest{Subject: "Calculus"})
	require.NoError(t, err)

	reviewed, err := svc.Review(ctx, app.ID, "admin-1", models.ReviewApplicationRequest{Status: models.ApplicationStatusApproved})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApproved, reviewed.Status)
	assert.Equal(t, []string{"Physics", "Calculus"}, []string(profiles.profiles["tutor-1"].Subjects))
	assert.Equal(t, 1, directory.invalidations)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, models.NotificationApplicationDone, notifier.sent[0].Kind)

	_, err = svc.Review(ctx, app.ID, "admin-1", models.ReviewApplicationRequest{Status: models.ApplicationStatusApproved})
	assertAppError(t, err, appErrors.ErrInvalidTransition)
	assert.Len(t, profiles.profiles["tutor-1"].Subjects, 2)
}

func TestFailedApprovalCanBeRetried(t *testing.T) {
	svc, store, profiles, directory, notifier := newApplicationFixture()
	ctx := context.Background()
	app, err := svc.Apply(ctx, "tutor-1", models.RoleTutor, models.ApplySubjectRequest{Subject: "Calculus"})
	require.NoError(t, err)

	store.grantErr = errors.New("connection reset")
	_, err = svc.Review(ctx, app.ID, "admin-1", models.ReviewApplicationRequest{Status: models.ApplicationStatusApproved})
	assertAppError(t, err, appErrors.ErrInternal)
	assert.Equal(t, models.ApplicationStatusPending, store.items[app.ID].Status)
	assert.Equal(t, []string{"Physics"}, []string(profiles.profiles["tutor-1"].Subjects))
	assert.Zero(t, directory.invalidations)
	assert.Empty(t, notifier.sent)

	store.grantErr = nil
	reviewed, err := svc.Review(ctx, app.ID, "admin-1", models.ReviewApplicationRequest{Status: models.ApplicationStatusApproved})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApproved, reviewed.Status)
	assert.Equal(t, []string{"Physics", "Calculus"}, []string(profiles.profiles["tutor-1"].Subjects))
}

func TestRejectLeavesProfileUntouched(t *testing.T) {
	svc, _, profiles, directory, _ := newApplicationFixture()
	ctx := context.Background()
	app, err := svc.Apply(ctx, "tutor-1", models.RoleTutor, models.ApplySubjectRequest{Subject: "Biology"})
	require.NoError(t, err)

	_, err = svc.Review(ctx, app.ID, "admin-1", models.ReviewApplicationRequest{Status: models.ApplicationStatusRejected})
	require.NoError(t, err)
	assert.Equal(t, []string{"Physics"}, []string(profiles.profiles["tutor-1"].Subjects))
	assert.Zero(t, directory.invalidations)

	// a rejected subject may be applied for again
	_, err = svc.Apply(ctx, "tutor-1", models.RoleTutor, models.ApplySubjectRequest{Subject: "Biology"})
	assert.NoError(t, err)

	_, err = svc.Review(ctx, "missing", "admin-1", models.ReviewApplicationRequest{Status: models.ApplicationStatusRejected})
	assertAppError(t, err, appErrors.ErrNotFound)
	_, err = svc.Review(ctx, app.ID, "admin-1", models.ReviewApplicationRequest{Status: "pending"})
	assertAppError(t, err, appErrors.ErrValidation)
}

func TestWithdraw(t *testing.T) {
	svc, _, _, _, _ := newApplicationFixture()
	ctx := context.Background()
	first, err := svc.Apply(ctx, "tutor-1", models.RoleTutor, models.ApplySubjectRequest{Subject: "Algebra"})
	require.NoError(t, err)
	second, err := svc.Apply(ctx, "tutor-1", models.RoleTutor, models.ApplySubjectRequest{Subject: "Geometry"})
	require.NoError(t, err)

	assertAppError(t, svc.Withdraw(ctx, first.ID, "tutor-2"), appErrors.ErrNotFound)
	require.NoError(t, svc.Withdraw(ctx, first.ID, "tutor-1"))
	assertAppError(t, svc.Withdraw(ctx, first.ID, "tutor-1"), appErrors.ErrNotFound)

	_, err = svc.Review(ctx, second.ID, "admin-1", models.ReviewApplicationRequest{Status: models.ApplicationStatusRejected})
	require.NoError(t, err)
	assertAppError(t, svc.Withdraw(ctx, second.ID, "tutor-1"), appErrors.ErrInvalidTransition)

	own, err := svc.ListOwn(ctx, "tutor-1")
	require.NoError(t, err)
	assert.Len(t, own, 1)

	pending := models.ApplicationStatusPending
	all, err := svc.ListAll(ctx, &pending)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}
