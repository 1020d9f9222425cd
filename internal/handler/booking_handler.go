package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorfinder/tutorfinder-api/internal/models"
	"github.com/tutorfinder/tutorfinder-api/internal/service"
	"github.com/tutorfinder/tutorfinder-api/pkg/response"
)

type bookingAPI interface {
	Create(ctx context.Context, studentID string, role models.UserRole, req models.CreateBookingRequest) (*models.BookingView, error)
	List(ctx context.Context, userID string, role models.UserRole, status *models.BookingStatus, page, pageSize int) ([]models.BookingView, *models.Pagination, error)
	Transition(ctx context.Context, bookingID, userID string, role models.UserRole, req models.UpdateBookingStatusRequest) (*models.BookingView, error)
}

type bookingExporter interface {
	ExportBookings(ctx context.Context, tutorID string, role models.UserRole, format models.ExportFormat) (*service.ExportResult, error)
}

// BookingHandler serves session requests.
type BookingHandler struct {
	bookings bookingAPI
	exports  bookingExporter
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(bookings bookingAPI, exports bookingExporter) *BookingHandler {
	return &BookingHandler{bookings: bookings, exports: exports}
}

// Create godoc
// @Summary Request a session
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	session, ok := caller(c)
	if !ok {
		return
	}
	var req models.CreateBookingRequest
	if !bindJSON(c, &req, "invalid booking payload") {
		return
	}
	view, err := h.bookings.Create(c.Request.Context(), session.UserID, userRole(session), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// List godoc
// @Summary List own bookings
// @Description Students see their requests, tutors the requests addressed to them.
// @Tags Bookings
// @Produce json
// @Param status query string false "pending, accepted, declined or cancelled"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	session, ok := caller(c)
	if !ok {
		return
	}
	var status *models.BookingStatus
	if raw := c.Query("status"); raw != "" {
		s := models.BookingStatus(raw)
		status = &s
	}
	page, size := pageParams(c)
	views, pagination, err := h.bookings.List(c.Request.Context(), session.UserID, userRole(session), status, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, pagination)
}

// UpdateStatus godoc
// @Summary Change booking status
// @Description Tutors accept or decline pending requests; students cancel pending or accepted ones.
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body models.UpdateBookingStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/status [patch]
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	session, ok := caller(c)
	if !ok {
		return
	}
	var req models.UpdateBookingStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	view, err := h.bookings.Transition(c.Request.Context(), c.Param("id"), session.UserID, userRole(session), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Export godoc
// @Summary Export incoming bookings
// @Description Renders the tutor's bookings and returns a signed download link.
// @Tags Bookings
// @Produce json
// @Param format query string false "csv (default) or pdf"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /bookings/export [post]
func (h *BookingHandler) Export(c *gin.Context) {
	session, ok := caller(c)
	if !ok {
		return
	}
	result, err := h.exports.ExportBookings(c.Request.Context(), session.UserID, userRole(session), models.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
