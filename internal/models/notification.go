package models

import "time"

// NotificationKind labels what triggered a notification.
type NotificationKind string

const (
	NotificationBookingRequested NotificationKind = "booking_requested"
	NotificationBookingUpdated   NotificationKind = "booking_updated"
	NotificationApplicationDone  NotificationKind = "application_reviewed"
)

// Notification is an in-app message, optionally mirrored by email.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Kind      NotificationKind `db:"kind" json:"kind"`
	Title     string           `db:"title" json:"title"`
	Body      string           `db:"body" json:"body"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// NotificationRequest is the queued payload handed to the notification worker.
type NotificationRequest struct {
	UserID string
	Kind   NotificationKind
	Title  string
	Body   string
}
