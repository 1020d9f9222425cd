// Package access decides whether a session may see a role-gated view and,
// when it may not, where it should be sent instead.
package access

import "strings"

// Role is the closed set of account roles.
type Role string

const (
	RoleUnassigned Role = ""
	RoleStudent    Role = "student"
	RoleTutor      Role = "tutor"
	RoleAdmin      Role = "admin"
)

// ParseRole maps a stored role string onto a Role. Anything unrecognised is
// treated as not yet chosen.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleStudent:
		return RoleStudent
	case RoleTutor:
		return RoleTutor
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUnassigned
	}
}

// Assigned reports whether the role has been chosen.
func (r Role) Assigned() bool {
	return ParseRole(string(r)) != RoleUnassigned
}

// Navigation targets produced by the guard.
const (
	PathSignIn        = "/login"
	PathStudentHome   = "/student/dashboard"
	PathTutorHome     = "/tutor/dashboard"
	PathAdminHome     = "/admin/applications"
	PathRoleSelection = "/onboarding/role"
	PathTutorProfile  = "/tutor/profile"
)

// LandingPath returns the default view for role.
func LandingPath(role Role) string {
	switch ParseRole(string(role)) {
	case RoleStudent:
		return PathStudentHome
	case RoleTutor:
		return PathTutorHome
	case RoleAdmin:
		return PathAdminHome
	case RoleUnassigned:
		return PathRoleSelection
	}
	return PathRoleSelection
}

// Session is the caller's authentication state as seen by the guard.
type Session struct {
	Loading       bool   `json:"loading"`
	Authenticated bool   `json:"authenticated"`
	Role          Role   `json:"role"`
	UserID        string `json:"user_id,omitempty"`
}

// Anonymous is the session of a caller without credentials.
func Anonymous() Session { return Session{} }

// Pending is the session of a caller whose state could not be resolved yet.
func Pending() Session { return Session{Loading: true} }

// Outcome enumerates the guard's terminal results.
type Outcome string

const (
	OutcomePlaceholder Outcome = "placeholder"
	OutcomeRender      Outcome = "render"
	OutcomeRedirect    Outcome = "redirect"
)

// Decision is the result of one guard evaluation. Path is set only for
// redirects.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Path    string  `json:"path,omitempty"`
}

// Allows reports whether the decision lets protected content through.
func (d Decision) Allows() bool {
	return d.Outcome == OutcomeRender
}

// Evaluate gates a view behind allowed. A loading session always yields a
// placeholder so no content or redirect is produced before the state settles.
func Evaluate(session Session, allowed ...Role) Decision {
	if session.Loading {
		return Decision{Outcome: OutcomePlaceholder}
	}
	if !session.Authenticated {
		return Decision{Outcome: OutcomeRedirect, Path: PathSignIn}
	}
	role := ParseRole(string(session.Role))
	if role.Assigned() && contains(allowed, role) {
		return Decision{Outcome: OutcomeRender}
	}
	return Decision{Outcome: OutcomeRedirect, Path: LandingPath(role)}
}

// EvaluateAuthenticated is Evaluate for views open to any signed-in caller,
// including one that has not chosen a role yet.
func EvaluateAuthenticated(session Session) Decision {
	if session.Loading {
		return Decision{Outcome: OutcomePlaceholder}
	}
	if !session.Authenticated {
		return Decision{Outcome: OutcomeRedirect, Path: PathSignIn}
	}
	return Decision{Outcome: OutcomeRender}
}

func contains(allowed []Role, role Role) bool {
	for _, r := range allowed {
		if ParseRole(string(r)) == role {
			return true
		}
	}
	return false
}
