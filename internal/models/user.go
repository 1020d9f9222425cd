package models

import "time"

// UserRole is the role column of the users table. An empty value means the
// user has not picked a role yet.
type UserRole string

const (
	RoleUnassigned UserRole = ""
	RoleStudent    UserRole = "student"
	RoleTutor      UserRole = "tutor"
	RoleAdmin      UserRole = "admin"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	Location     *string    `db:"location" json:"location,omitempty"`
	Bio          *string    `db:"bio" json:"bio,omitempty"`
	ProfileImage *string    `db:"profile_image" json:"profile_image,omitempty"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// UpdateProfileRequest carries the editable account fields. Nil fields are
// left untouched.
type UpdateProfileRequest struct {
	FirstName    *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName     *string `json:"last_name" validate:"omitempty,max=100"`
	Phone        *string `json:"phone" validate:"omitempty,max=32"`
	Location     *string `json:"location" validate:"omitempty,max=120"`
	Bio          *string `json:"bio" validate:"omitempty,max=2000"`
	ProfileImage *string `json:"profile_image" validate:"omitempty,url"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
