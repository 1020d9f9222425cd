package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorfinder/tutorfinder-api/internal/access"
	appErrors "github.com/tutorfinder/tutorfinder-api/pkg/errors"
	"github.com/tutorfinder/tutorfinder-api/pkg/response"
)

// retryAfterSeconds is advertised while a session is still being resolved.
const retryAfterSeconds = "1"

// GuardRecorder counts guard outcomes.
type GuardRecorder interface {
	RecordGuardDecision(outcome string)
}

// RequireRoles guards API routes. It applies the same decision as page
// routes but answers with status codes instead of redirects: 503 while the
// session is pending, 401 without a session and 403 for any other role.
func RequireRoles(recorder GuardRecorder, roles ...access.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := access.Evaluate(SessionFromContext(c), roles...)
		apiGuard(c, recorder, decision)
	}
}

// RequireSession guards API routes open to any signed-in caller, including
// one that has not chosen a role yet.
func RequireSession(recorder GuardRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiGuard(c, recorder, access.EvaluateAuthenticated(SessionFromContext(c)))
	}
}

func apiGuard(c *gin.Context, recorder GuardRecorder, decision access.Decision) {
	record(recorder, decision)
	switch {
	case decision.Allows():
		c.Next()
		return
	case decision.Outcome == access.OutcomePlaceholder:
		c.Header("Retry-After", retryAfterSeconds)
		response.Error(c, appErrors.ErrSessionPending)
	case decision.Path == access.PathSignIn:
		response.Error(c, appErrors.ErrUnauthorized)
	case decision.Path == access.PathRoleSelection:
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "choose a role first"))
	default:
		response.Error(c, appErrors.ErrForbidden)
	}
	c.Abort()
}

// PageGuard gates a role-specific page. A pending session gets a loading
// placeholder, any mismatch a redirect to the guard's target.
func PageGuard(recorder GuardRecorder, roles ...access.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := SessionFromContext(c)
		var decision access.Decision
		if len(roles) == 0 {
			decision = access.EvaluateAuthenticated(session)
		} else {
			decision = access.Evaluate(session, roles...)
		}
		record(recorder, decision)

		switch decision.Outcome {
		case access.OutcomeRender:
			c.Next()
		case access.OutcomePlaceholder:
			c.Header("Retry-After", retryAfterSeconds)
			c.Header("Cache-Control", "no-store")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
		default:
			c.Header("Cache-Control", "no-store")
			c.Redirect(http.StatusFound, decision.Path)
			c.Abort()
		}
	}
}

func record(recorder GuardRecorder, decision access.Decision) {
	if recorder != nil {
		recorder.RecordGuardDecision(string(decision.Outcome))
	}
}
