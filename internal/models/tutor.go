package models

import (
	"time"

	"github.com/lib/pq"
)

// TutorProfile holds the tutor-specific attributes stored next to a user row.
type TutorProfile struct {
	UserID        string         `db:"user_id" json:"user_id"`
	Subjects      pq.StringArray `db:"subjects" json:"subjects"`
	HourlyRate    *float64       `db:"hourly_rate" json:"hourly_rate,omitempty"`
	Rating        *float64       `db:"rating" json:"rating,omitempty"`
	Experience    *string        `db:"experience" json:"experience,omitempty"`
	Education     *string        `db:"education" json:"education,omitempty"`
	Languages     pq.StringArray `db:"languages" json:"languages"`
	Availability  pq.StringArray `db:"availability" json:"availability"`
	TotalSessions int            `db:"total_sessions" json:"total_sessions"`
	TotalStudents int            `db:"total_students" json:"total_students"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// TutorDocument is the loosely shaped row produced by joining users with
// tutor_profiles. Every optional column stays nullable until it is ingested
// into a discovery record.
type TutorDocument struct {
	ID            string         `db:"id" json:"id"`
	FirstName     string         `db:"first_name" json:"first_name"`
	LastName      string         `db:"last_name" json:"last_name"`
	Email         string         `db:"email" json:"email"`
	Location      *string        `db:"location" json:"location,omitempty"`
	Bio           *string        `db:"bio" json:"bio,omitempty"`
	ProfileImage  *string        `db:"profile_image" json:"profile_image,omitempty"`
	Subjects      pq.StringArray `db:"subjects" json:"subjects"`
	HourlyRate    *float64       `db:"hourly_rate" json:"hourly_rate,omitempty"`
	Rating        *float64       `db:"rating" json:"rating,omitempty"`
	Experience    *string        `db:"experience" json:"experience,omitempty"`
	Education     *string        `db:"education" json:"education,omitempty"`
	Languages     pq.StringArray `db:"languages" json:"languages"`
	Availability  pq.StringArray `db:"availability" json:"availability"`
	TotalSessions int            `db:"total_sessions" json:"total_sessions"`
	TotalStudents int            `db:"total_students" json:"total_students"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// UpdateTutorProfileRequest carries editable tutor attributes. Subjects are
// not editable here; they change through approved subject applications.
type UpdateTutorProfileRequest struct {
	HourlyRate   *float64  `json:"hourly_rate" validate:"omitempty,gte=0,lte=10000"`
	Experience   *string   `json:"experience" validate:"omitempty,max=200"`
	Education    *string   `json:"education" validate:"omitempty,max=500"`
	Languages    *[]string `json:"languages" validate:"omitempty,dive,min=1,max=60"`
	Availability *[]string `json:"availability" validate:"omitempty,dive,min=1,max=60"`
	Subjects     *[]string `json:"subjects" validate:"omitempty,dive,min=1,max=100"`
}
