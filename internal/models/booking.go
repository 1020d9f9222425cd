package models

import "time"

// BookingStatus captures the lifecycle of a booking request.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusAccepted  BookingStatus = "accepted"
	BookingStatusDeclined  BookingStatus = "declined"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is a session request from a student to a tutor.
type Booking struct {
	ID              string        `db:"id" json:"id"`
	StudentID       string        `db:"student_id" json:"student_id"`
	TutorID         string        `db:"tutor_id" json:"tutor_id"`
	Subject         string        `db:"subject" json:"subject"`
	SessionDate     string        `db:"session_date" json:"session_date"`
	SessionTime     string        `db:"session_time" json:"session_time"`
	DurationMinutes int           `db:"duration_minutes" json:"duration_minutes"`
	Message         *string       `db:"message" json:"message,omitempty"`
	Status          BookingStatus `db:"status" json:"status"`
	HourlyRate      *float64      `db:"hourly_rate" json:"hourly_rate,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// EstimatedCost is the snapshotted rate applied to the session length.
func (b Booking) EstimatedCost() float64 {
	if b.HourlyRate == nil {
		return 0
	}
	return *b.HourlyRate * float64(b.DurationMinutes) / 60
}

// BookingView joins a booking with the display names of both parties.
type BookingView struct {
	Booking
	StudentName   string  `db:"student_name" json:"student_name"`
	TutorName     string  `db:"tutor_name" json:"tutor_name"`
	EstimatedCost float64 `db:"-" json:"estimated_cost"`
}

// BookingFilter narrows booking listings.
type BookingFilter struct {
	StudentID string
	TutorID   string
	Status    *BookingStatus
	Page      int
	PageSize  int
}

// CreateBookingRequest is submitted by a student from a tutor's profile.
type CreateBookingRequest struct {
	TutorID         string `json:"tutor_id" validate:"required"`
	Subject         string `json:"subject" validate:"required"`
	SessionDate     string `json:"session_date" validate:"required,datetime=2006-01-02"`
	SessionTime     string `json:"session_time" validate:"required,datetime=15:04"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,gt=0"`
	Message         string `json:"message" validate:"max=2000"`
}

// UpdateBookingStatusRequest moves a booking to a new status.
type UpdateBookingStatusRequest struct {
	Status BookingStatus `json:"status" validate:"required,oneof=accepted declined cancelled"`
}

// ExportFormat enumerates supported export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)
