package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tutorfinder/tutorfinder-api/internal/models"
)

const tutorDocumentSelect = `SELECT u.id, u.first_name, u.last_name, u.email, u.location, u.bio, u.profile_image,
	COALESCE(p.subjects, '{}') AS subjects, p.hourly_rate, p.rating, p.experience, p.education,
	COALESCE(p.languages, '{}') AS languages, COALESCE(p.availability, '{}') AS availability,
	COALESCE(p.total_sessions, 0) AS total_sessions, COALESCE(p.total_students, 0) AS total_students,
	GREATEST(u.updated_at, COALESCE(p.updated_at, u.updated_at)) AS updated_at
	FROM users u LEFT JOIN tutor_profiles p ON p.user_id = u.id
	WHERE u.role = 'tutor' AND u.active = TRUE`

const tutorProfileColumns = `user_id, subjects, hourly_rate, rating, experience, education, languages, availability, total_sessions, total_students, created_at, updated_at`

// TutorRepository reads discoverable tutors and manages tutor profiles.
type TutorRepository struct {
	db *sqlx.DB
}

// NewTutorRepository constructs a TutorRepository.
func NewTutorRepository(db *sqlx.DB) *TutorRepository {
	return &TutorRepository{db: db}
}

// ListDocuments returns every active tutor joined with its profile, oldest
// account first so snapshots keep a stable order.
func (r *TutorRepository) ListDocuments(ctx context.Context) ([]models.TutorDocument, error) {
	query := tutorDocumentSelect + ` ORDER BY u.created_at ASC, u.id ASC`
	var docs []models.TutorDocument
	if err := r.db.SelectContext(ctx, &docs, query); err != nil {
		return nil, fmt.Errorf("list tutor documents: %w", err)
	}
	return docs, nil
}

// FindDocument returns a single active tutor.
func (r *TutorRepository) FindDocument(ctx context.Context, id string) (*models.TutorDocument, error) {
	query := tutorDocumentSelect + ` AND u.id = $1 LIMIT 1`
	var doc models.TutorDocument
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find tutor document: %w", err)
	}
	return &doc, nil
}

// FindProfile returns the tutor profile of userID.
func (r *TutorRepository) FindProfile(ctx context.Context, userID string) (*models.TutorProfile, error) {
	query := `SELECT ` + tutorProfileColumns + ` FROM tutor_profiles WHERE user_id = $1`
	var profile models.TutorProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find tutor profile: %w", err)
	}
	return &profile, nil
}

// insertEmptyProfile creates the profile row of a new tutor inside tx.
// Existing profiles are left untouched.
func insertEmptyProfile(ctx context.Context, tx *sqlx.Tx, userID string) error {
	now := time.Now().UTC()
	profile := &models.TutorProfile{
		UserID:       userID,
		Subjects:     []string{},
		Languages:    []string{},
		Availability: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	const query = `INSERT INTO tutor_profiles (` + tutorProfileColumns + `)
		VALUES (:user_id, :subjects, :hourly_rate, :rating, :experience, :education, :languages, :availability, :total_sessions, :total_students, :created_at, :updated_at)
		ON CONFLICT (user_id) DO NOTHING`
	if _, err := tx.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create tutor profile: %w", err)
	}
	return nil
}

// UpdateProfile writes the editable tutor attributes.
func (r *TutorRepository) UpdateProfile(ctx context.Context, profile *models.TutorProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tutor_profiles SET subjects = :subjects, hourly_rate = :hourly_rate, experience = :experience, education = :education, languages = :languages, availability = :availability, updated_at = :updated_at WHERE user_id = :user_id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update tutor profile: %w", err)
	}
	return nil
}

// addSubject appends subject to the tutor's subject list inside tx unless it
// is already present. It reports whether the list changed.
func addSubject(ctx context.Context, tx *sqlx.Tx, userID, subject string) (bool, error) {
	const query = `UPDATE tutor_profiles SET subjects = array_append(subjects, $2), updated_at = $3 WHERE user_id = $1 AND NOT ($2 = ANY(subjects))`
	res, err := tx.ExecContext(ctx, query, userID, subject, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("add tutor subject: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add tutor subject rows: %w", err)
	}
	return affected > 0, nil
}
