package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorfinder/tutorfinder-api/internal/access"
	"github.com/tutorfinder/tutorfinder-api/internal/discovery"
	"github.com/tutorfinder/tutorfinder-api/internal/middleware"
	"github.com/tutorfinder/tutorfinder-api/internal/models"
	"github.com/tutorfinder/tutorfinder-api/internal/service"
	"github.com/tutorfinder/tutorfinder-api/pkg/response"
)

const (
	recommendedTutors   = 6
	dashboardBookings   = 10
	pendingApplications = 50
)

type pageProfiles interface {
	Get(ctx context.Context, userID string) (*service.ProfileView, error)
}

type pageRecommendations interface {
	Recommended(ctx context.Context, limit int) ([]discovery.TutorRecord, error)
}

type pageBookings interface {
	List(ctx context.Context, userID string, role models.UserRole, status *models.BookingStatus, page, pageSize int) ([]models.BookingView, *models.Pagination, error)
}

type pageApplications interface {
	Catalog() []models.SubjectCategory
	ListOwn(ctx context.Context, tutorID string) ([]models.SubjectApplication, error)
	ListAll(ctx context.Context, status *models.ApplicationStatus) ([]models.SubjectApplication, error)
}

// PageHandler renders the view models of role-gated pages. Each route is
// mounted behind middleware.PageGuard.
type PageHandler struct {
	profiles     pageProfiles
	directory    pageRecommendations
	bookings     pageBookings
	applications pageApplications
}

// NewPageHandler constructs a PageHandler.
func NewPageHandler(profiles pageProfiles, directory pageRecommendations, bookings pageBookings, applications pageApplications) *PageHandler {
	return &PageHandler{profiles: profiles, directory: directory, bookings: bookings, applications: applications}
}

// Login godoc
// @Summary Sign-in page
// @Description Public. Reports where an existing session would land.
// @Tags Pages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /login [get]
func (h *PageHandler) Login(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	payload := gin.H{"authenticated": session.Authenticated}
	if session.Authenticated {
		payload["landing_path"] = access.LandingPath(session.Role)
	}
	response.JSON(c, http.StatusOK, payload, nil)
}

// StudentDashboard godoc
// @Summary Student dashboard
// @Tags Pages
// @Produce json
// @Success 200 {object} response.Envelope
// @Success 302 {string} string "redirect"
// @Failure 503 {object} map[string]string
// @Router /student/dashboard [get]
func (h *PageHandler) StudentDashboard(c *gin.Context) {
	session, ok := caller(c)
	if !ok {
		return
	}
	profile, err := h.profiles.Get(c.Request.Context(), session.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	tutors, err := h.directory.Recommended(c.Request.Context(), recommendedTutors)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"student":            profile.User,
		"recommended_tutors": tutors,
	}, nil)
}

// TutorDashboard godoc
// @Summary Tutor dashboard
// @Tags Pages
// @Produce json
// @Success 200 {object} response.Envelope
// @Success 302 {string} string "redirect"
// @Router /tutor/dashboard [get]
func (h *PageHandler) TutorDashboard(c *gin.Context) {
	session, ok := caller(c)
	if !ok {
		return
	}
	profile, err := h.profiles.Get(c.Request.Context(), session.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	pending := models.BookingStatusPending
	incoming, pagination, err := h.bookings.List(c.Request.Context(), session.UserID, userRole(session), &pending, 1, dashboardBookings)
	if err != nil {
		response.Error(c, err)
		return
	}
	total := len(incoming)
	if pagination != nil {
		total = pagination.TotalCount
	}
	response.JSON(c, http.StatusOK, gin.H{
		"profile":           profile,
		"incoming_bookings": incoming,
		"pending_total":     total,
	}, nil)
}

// TutorProfile godoc
// @Summary Tutor profile editor
// @Tags Pages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tutor/profile [get]
func (h *PageHandler) TutorProfile(c *gin.Context) {
	session, ok := caller(c)
	if !ok {
		return
	}
	profile, err := h.profiles.Get(c.Request.Context(), session.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	apps, err := h.applications.ListOwn(c.Request.Context(), session.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"profile":      profile,
		"catalog":      h.applications.Catalog(),
		"applications": apps,
	}, nil)
}

// AdminApplications godoc
// @Summary Subject application queue
// @Tags Pages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/applications [get]
func (h *PageHandler) AdminApplications(c *gin.Context) {
	pending := models.ApplicationStatusPending
	apps, err := h.applications.ListAll(c.Request.Context(), &pending)
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(apps) > pendingApplications {
		apps = apps[:pendingApplications]
	}
	response.JSON(c, http.StatusOK, gin.H{"pending": apps}, nil)
}

// RoleSelection godoc
// @Summary Role onboarding
// @Description Open to any signed-in caller. Lists the roles that can be chosen.
// @Tags Pages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /onboarding/role [get]
func (h *PageHandler) RoleSelection(c *gin.Context) {
	session, ok := caller(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"current_role": session.Role,
		"options":      []access.Role{access.RoleStudent, access.RoleTutor},
	}, nil)
}
