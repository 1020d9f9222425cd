package models

import "time"

// ApplicationStatus tracks an admin review.
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusApproved ApplicationStatus = "approved"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// SubjectApplication is a tutor's request to teach a catalog subject.
type SubjectApplication struct {
	ID         string            `db:"id" json:"id"`
	TutorID    string            `db:"tutor_id" json:"tutor_id"`
	TutorName  string            `db:"tutor_name" json:"tutor_name,omitempty"`
	TutorEmail string            `db:"tutor_email" json:"tutor_email,omitempty"`
	Subject    string            `db:"subject" json:"subject"`
	Status     ApplicationStatus `db:"status" json:"status"`
	Message    *string           `db:"message" json:"message,omitempty"`
	AppliedAt  time.Time         `db:"applied_at" json:"applied_at"`
	ReviewedAt *time.Time        `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewedBy *string           `db:"reviewed_by" json:"reviewed_by,omitempty"`
}

// SubjectCategory groups catalog subjects for display.
type SubjectCategory struct {
	Name     string   `json:"name"`
	Subjects []string `json:"subjects"`
}

// SubjectApplicationFilter narrows application listings.
type SubjectApplicationFilter struct {
	TutorID string
	Status  *ApplicationStatus
}

// ApplySubjectRequest is submitted by a tutor.
type ApplySubjectRequest struct {
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"max=1000"`
}

// ReviewApplicationRequest is submitted by an admin.
type ReviewApplicationRequest struct {
	Status ApplicationStatus `json:"status" validate:"required,oneof=approved rejected"`
}
