package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorfinder/tutorfinder-api/internal/models"
)

const applicationSelect = `SELECT a.id, a.tutor_id, TRIM(u.first_name || ' ' || u.last_name) AS tutor_name, u.email AS tutor_email, a.subject, a.status, a.message, a.applied_at, a.reviewed_at, a.reviewed_by
	FROM subject_applications a JOIN users u ON u.id = a.tutor_id`

// SubjectApplicationRepository persists tutor subject applications.
type SubjectApplicationRepository struct {
	db *sqlx.DB
}

// NewSubjectApplicationRepository constructs the repository.
func NewSubjectApplicationRepository(db *sqlx.DB) *SubjectApplicationRepository {
	return &SubjectApplicationRepository{db: db}
}

// Create inserts a pending application.
func (r *SubjectApplicationRepository) Create(ctx context.Context, app *models.SubjectApplication) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.AppliedAt.IsZero() {
		app.AppliedAt = time.Now().UTC()
	}
	if app.Status == "" {
		app.Status = models.ApplicationStatusPending
	}
	const query = `INSERT INTO subject_applications (id, tutor_id, subject, status, message, applied_at) VALUES (:id, :tutor_id, :subject, :status, :message, :applied_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create subject application: %w", err)
	}
	return nil
}

// FindByID returns one application.
func (r *SubjectApplicationRepository) FindByID(ctx context.Context, id string) (*models.SubjectApplication, error) {
	query := applicationSelect + ` WHERE a.id = $1 LIMIT 1`
	var app models.SubjectApplication
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find subject application: %w", err)
	}
	return &app, nil
}

// List returns applications matching filter, newest first.
func (r *SubjectApplicationRepository) List(ctx context.Context, filter models.SubjectApplicationFilter) ([]models.SubjectApplication, error) {
	query := applicationSelect + ` WHERE 1=1`
	var args []interface{}
	if filter.TutorID != "" {
		args = append(args, filter.TutorID)
		query += fmt.Sprintf(" AND a.tutor_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += fmt.Sprintf(" AND a.status = $%d", len(args))
	}
	query += " ORDER BY a.applied_at DESC"

	var apps []models.SubjectApplication
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, fmt.Errorf("list subject applications: %w", err)
	}
	return apps, nil
}

// ExistsOpen reports whether the tutor already has a pending or approved
// application for subject.
func (r *SubjectApplicationRepository) ExistsOpen(ctx context.Context, tutorID, subject string) (bool, error) {
	const query = `SELECT 1 FROM subject_applications WHERE tutor_id = $1 AND subject = $2 AND status IN ('pending', 'approved') LIMIT 1`
	var marker int
	if err := r.db.GetContext(ctx, &marker, query, tutorID, subject); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check subject application: %w", err)
	}
	return true, nil
}

// Review records an admin decision on a pending application. It returns false
// when the application was no longer pending. Approval adds the subject to
// the tutor's profile in the same transaction.
func (r *SubjectApplicationRepository) Review(ctx context.Context, id string, status models.ApplicationStatus, reviewerID string) (bool, error) {
	if status == models.ApplicationStatusApproved {
		return r.approve(ctx, id, reviewerID)
	}
	const query = `UPDATE subject_applications SET status = $2, reviewed_at = $3, reviewed_by = $4 WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, string(status), time.Now().UTC(), reviewerID)
	if err != nil {
		return false, fmt.Errorf("review subject application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("review subject application rows: %w", err)
	}
	return affected > 0, nil
}

func (r *SubjectApplicationRepository) approve(ctx context.Context, id, reviewerID string) (bool, error) {
	approved := false
	err := withTx(ctx, r.db, "approve subject application", func(tx *sqlx.Tx) error {
		const query = `UPDATE subject_applications SET status = 'approved', reviewed_at = $2, reviewed_by = $3 WHERE id = $1 AND status = 'pending' RETURNING tutor_id, subject`
		var target struct {
			TutorID string `db:"tutor_id"`
			Subject string `db:"subject"`
		}
		if err := tx.GetContext(ctx, &target, query, id, time.Now().UTC(), reviewerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("approve subject application: %w", err)
		}
		if _, err := addSubject(ctx, tx, target.TutorID, target.Subject); err != nil {
			return err
		}
		approved = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return approved, nil
}

// DeletePending removes a tutor's own pending application.
func (r *SubjectApplicationRepository) DeletePending(ctx context.Context, id, tutorID string) (bool, error) {
	const query = `DELETE FROM subject_applications WHERE id = $1 AND tutor_id = $2 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, tutorID)
	if err != nil {
		return false, fmt.Errorf("delete subject application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete subject application rows: %w", err)
	}
	return affected > 0, nil
}
