package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorfinder/tutorfinder-api/internal/models"
	"github.com/tutorfinder/tutorfinder-api/pkg/response"
)

type subjectApplicationAPI interface {
	Catalog() []models.SubjectCategory
	Apply(ctx context.Context, tutorID string, role models.UserRole, req models.ApplySubjectRequest) (*models.SubjectApplication, error)
	ListOwn(ctx context.Context, tutorID string) ([]models.SubjectApplication, error)
	ListAll(ctx context.Context, status *models.ApplicationStatus) ([]models.SubjectApplication, error)
	Withdraw(ctx context.Context, id, tutorID string) error
	Review(ctx context.Context, id, reviewerID string, req models.ReviewApplicationRequest) (*models.SubjectApplication, error)
}

// SubjectApplicationHandler serves the subject catalog and applications.
type SubjectApplicationHandler struct {
	service subjectApplicationAPI
}

// NewSubjectApplicationHandler constructs the handler.
func NewSubjectApplicationHandler(svc subjectApplicationAPI) *SubjectApplicationHandler {
	return &SubjectApplicationHandler{service: svc}
}

// Catalog godoc
// @Summary Subject catalog
// @Tags Subjects
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *SubjectApplicationHandler) Catalog(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Catalog(), nil)
}

// Apply godoc
// @Summary Apply to teach a subject
// @Tags Subjects
// @Accept json
// @Produce json
// @Param payload body models.ApplySubjectRequest true "Application"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /subject-applications [post]
func (h *SubjectApplicationHandler) Apply(c *gin.Context) {
	session, ok := caller(c)
	if !ok {
		return
	}
	var req models.ApplySubjectRequest
	if !bindJSON(c, &req, "invalid application payload") {
		return
	}
	app, err := h.service.Apply(c.Request.Context(), session.UserID, userRole(session), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, app)
}

// ListOwn godoc
// @Summary Own subject applications
// @Tags Subjects
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subject-applications [get]
func (h *SubjectApplicationHandler) ListOwn(c *gin.Context) {
	session, ok := caller(c)
	if !ok {
		return
	}
	apps, err := h.service.ListOwn(c.Request.Context(), session.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, nil)
}

// Withdraw godoc
// @Summary Withdraw a pending application
// @Tags Subjects
// @Param id path string true "Application ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /subject-applications/{id} [delete]
func (h *SubjectApplicationHandler) Withdraw(c *gin.Context) {
	session, ok := caller(c)
	if !ok {
		return
	}
	if err := h.service.Withdraw(c.Request.Context(), c.Param("id"), session.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AdminList godoc
// @Summary All subject applications
// @Tags Admin
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Success 200 {object} response.Envelope
// @Router /admin/subject-applications [get]
func (h *SubjectApplicationHandler) AdminList(c *gin.Context) {
	var status *models.ApplicationStatus
	if raw := c.Query("status"); raw != "" {
		s := models.ApplicationStatus(raw)
		status = &s
	}
	apps, err := h.service.ListAll(c.Request.Context(), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, nil)
}

// Review godoc
// @Summary Review a subject application
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body models.ReviewApplicationRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/subject-applications/{id}/review [post]
func (h *SubjectApplicationHandler) Review(c *gin.Context) {
	session, ok := caller(c)
	if !ok {
		return
	}
	var req models.ReviewApplicationRequest
	if !bindJSON(c, &req, "invalid review payload") {
		return
	}
	app, err := h.service.Review(c.Request.Context(), c.Param("id"), session.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}
