package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorfinder/tutorfinder-api/internal/models"
	"github.com/tutorfinder/tutorfinder-api/internal/service"
	"github.com/tutorfinder/tutorfinder-api/pkg/response"
)

type profileAPI interface {
	Get(ctx context.Context, userID string) (*service.ProfileView, error)
	Update(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error)
	UpdateTutor(ctx context.Context, userID string, req models.UpdateTutorProfileRequest) (*models.TutorProfile, error)
}

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	service profileAPI
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(svc profileAPI) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// Get godoc
// @Summary Own profile
// @Tags Profile
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /profile [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	session, ok := caller(c)
	if !ok {
		return
	}
	view, err := h.service.Get(c.Request.Context(), session.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Update godoc
// @Summary Update own profile
// @Tags Profile
// @Accept json
// @Produce json
// @Param payload body models.UpdateProfileRequest true "Profile changes"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /profile [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	session, ok := caller(c)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if !bindJSON(c, &req, "invalid profile payload") {
		return
	}
	user, err := h.service.Update(c.Request.Context(), session.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// UpdateTutor godoc
// @Summary Update own tutor profile
// @Description Subjects may only be removed here; new subjects go through subject applications.
// @Tags Profile
// @Accept json
// @Produce json
// @Param payload body models.UpdateTutorProfileRequest true "Tutor profile changes"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /tutor/profile [put]
func (h *ProfileHandler) UpdateTutor(c *gin.Context) {
	session, ok := caller(c)
	if !ok {
		return
	}
	var req models.UpdateTutorProfileRequest
	if !bindJSON(c, &req, "invalid tutor profile payload") {
		return
	}
	profile, err := h.service.UpdateTutor(c.Request.Context(), session.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}
