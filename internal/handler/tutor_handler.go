package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorfinder/tutorfinder-api/internal/discovery"
	"github.com/tutorfinder/tutorfinder-api/internal/middleware"
	"github.com/tutorfinder/tutorfinder-api/internal/service"
	"github.com/tutorfinder/tutorfinder-api/pkg/response"
)

type tutorDirectory interface {
	Search(ctx context.Context, state discovery.FilterState, page, pageSize int) (*service.SearchResult, error)
	Facets(ctx context.Context) (discovery.Facets, error)
	Get(ctx context.Context, id string) (*discovery.TutorRecord, error)
}

// TutorHandler serves tutor discovery.
type TutorHandler struct {
	directory tutorDirectory
}

// NewTutorHandler constructs a TutorHandler.
func NewTutorHandler(directory tutorDirectory) *TutorHandler {
	return &TutorHandler{directory: directory}
}

// Search godoc
// @Summary Search tutors
// @Description Filters and sorts the tutor directory. Without any query the default state (rating, highest first) applies.
// @Tags Tutors
// @Produce json
// @Param search query string false "Case-insensitive name search"
// @Param subjects query string false "Comma separated subjects, any match"
// @Param min_price query number false "Minimum hourly rate"
// @Param max_price query number false "Maximum hourly rate"
// @Param min_rating query number false "Minimum rating"
// @Param location query string false "Exact location"
// @Param sort query string false "rating, price-low, price-high, experience or name"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /tutors [get]
func (h *TutorHandler) Search(c *gin.Context) {
	state := discovery.ParseFilterState(c.Request.URL.Query())
	page, size := pageParams(c)

	result, err := h.directory.Search(c.Request.Context(), state, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "active_filters", result.ActiveFilters)
	response.JSON(c, http.StatusOK, result.Result, result.Pagination, middleware.ExtractMeta(c))
}

// Facets godoc
// @Summary Tutor facets
// @Description Distinct subjects and locations across all tutors
// @Tags Tutors
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tutors/facets [get]
func (h *TutorHandler) Facets(c *gin.Context) {
	facets, err := h.directory.Facets(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, facets, nil)
}

// Get godoc
// @Summary Tutor profile
// @Description Public profile of one tutor
// @Tags Tutors
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tutors/{id} [get]
func (h *TutorHandler) Get(c *gin.Context) {
	tutor, err := h.directory.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"tutor":          tutor,
		"display_rating": tutor.DisplayRating(),
	}, nil)
}
