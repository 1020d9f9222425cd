package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorfinder/tutorfinder-api/internal/models"
)

const bookingViewSelect = `SELECT b.id, b.student_id, b.tutor_id, b.subject, b.session_date, b.session_time, b.duration_minutes, b.message, b.status, b.hourly_rate, b.created_at, b.updated_at,
	TRIM(s.first_name || ' ' || s.last_name) AS student_name, TRIM(t.first_name || ' ' || t.last_name) AS tutor_name
	FROM bookings b
	JOIN users s ON s.id = b.student_id
	JOIN users t ON t.id = b.tutor_id`

// BookingRepository persists booking requests.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts a booking.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now
	const query = `INSERT INTO bookings (id, student_id, tutor_id, subject, session_date, session_time, duration_minutes, message, status, hourly_rate, created_at, updated_at)
		VALUES (:id, :student_id, :tutor_id, :subject, :session_date, :session_time, :duration_minutes, :message, :status, :hourly_rate, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// FindByID returns a booking with both party names.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.BookingView, error) {
	query := bookingViewSelect + ` WHERE b.id = $1 LIMIT 1`
	var view models.BookingView
	if err := r.db.GetContext(ctx, &view, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return &view, nil
}

// List returns bookings matching filter, newest first, with the total count.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.BookingView, int, error) {
	where := " WHERE 1=1"
	var args []interface{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		where += fmt.Sprintf(" AND b.student_id = $%d", len(args))
	}
	if filter.TutorID != "" {
		args = append(args, filter.TutorID)
		where += fmt.Sprintf(" AND b.tutor_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where += fmt.Sprintf(" AND b.status = $%d", len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s%s ORDER BY b.created_at DESC LIMIT %d OFFSET %d", bookingViewSelect, where, size, offset)
	var views []models.BookingView
	if err := r.db.SelectContext(ctx, &views, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM bookings b" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}
	return views, total, nil
}

// UpdateStatus moves a booking from one of the expected statuses to next. It
// returns false when the booking was no longer in an expected status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, next models.BookingStatus, expected ...models.BookingStatus) (bool, error) {
	args := []interface{}{id, string(next), time.Now().UTC()}
	query := `UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1`
	if len(expected) > 0 {
		placeholders := make([]string, 0, len(expected))
		for _, status := range expected {
			args = append(args, string(status))
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		query += " AND status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update booking status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update booking status rows: %w", err)
	}
	return affected > 0, nil
}
