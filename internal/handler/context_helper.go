package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tutorfinder/tutorfinder-api/internal/access"
	"github.com/tutorfinder/tutorfinder-api/internal/middleware"
	"github.com/tutorfinder/tutorfinder-api/internal/models"
	appErrors "github.com/tutorfinder/tutorfinder-api/pkg/errors"
	"github.com/tutorfinder/tutorfinder-api/pkg/response"
)

// caller returns the resolved session of a signed-in caller. It writes a 401
// and reports false when there is none; routes are guarded, so this only
// triggers when a handler is mounted without its guard.
func caller(c *gin.Context) (access.Session, bool) {
	session := middleware.SessionFromContext(c)
	if !session.Authenticated || session.UserID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return session, false
	}
	return session, true
}

func userRole(session access.Session) models.UserRole {
	return models.UserRole(access.ParseRole(string(session.Role)))
}

func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("page_size", "0"))
	if err != nil || size < 0 {
		size = 0
	}
	return page, size
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}
