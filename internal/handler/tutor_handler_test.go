package handler

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorfinder/tutorfinder-api/internal/discovery"
	"github.com/tutorfinder/tutorfinder-api/internal/models"
	"github.com/tutorfinder/tutorfinder-api/internal/service"
	appErrors "github.com/tutorfinder/tutorfinder-api/pkg/errors"
)

type fakeDirectory struct {
	lastState discovery.FilterState
	lastPage  int
	lastSize  int
	tutors    []discovery.TutorRecord
	getErr    error
}

func (f *fakeDirectory) Search(_ context.Context, state discovery.FilterState, page, pageSize int) (*service.SearchResult, error) {
	f.lastState = state
	f.lastPage = page
	f.lastSize = pageSize
	result := discovery.Evaluate(f.tutors, state)
	return &service.SearchResult{
		Result:     result,
		Pagination: &models.Pagination{Page: page, PageSize: 20, TotalCount: result.Total},
	}, nil
}

func (f *fakeDirectory) Facets(context.Context) (discovery.Facets, error) {
	return discovery.ComputeFacets(f.tutors), nil
}

func (f *fakeDirectory) Get(_ context.Context, id string) (*discovery.TutorRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for i := range f.tutors {
		if f.tutors[i].ID == id {
			return &f.tutors[i], nil
		}
	}
	return nil, appErrors.Wrap(sql.ErrNoRows, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "tutor not found")
}

func sampleTutors() []discovery.TutorRecord {
	low, high := 20.0, 60.0
	return []discovery.TutorRecord{
		{ID: "t1", FirstName: "Ada", LastName: "Lovelace", Subjects: []string{"Mathematics"}, HourlyRate: &low, Location: "London"},
		{ID: "t2", FirstName: "Alan", LastName: "Turing", Subjects: []string{"Computer Science", "Mathematics"}, HourlyRate: &high, Location: "Manchester"},
	}
}

func TestTutorHandlerSearchParsesQuery(t *testing.T) {
	directory := &fakeDirectory{tutors: sampleTutors()}
	handler := NewTutorHandler(directory)

	c, rec := newTestContext(http.MethodGet, "/tutors?subjects=Mathematics&max_price=30&sort=price-low&page=2", nil, nil)
	handler.Search(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Mathematics"}, directory.lastState.Subjects)
	require.NotNil(t, directory.lastState.PriceRange.Max)
	assert.Equal(t, 30.0, *directory.lastState.PriceRange.Max)
	assert.Equal(t, discovery.SortPriceAsc, directory.lastState.SortBy)
	assert.Equal(t, 2, directory.lastPage)

	var result discovery.Result
	decodeData(t, rec, &result)
	require.Len(t, result.Tutors, 1)
	assert.Equal(t, "t1", result.Tutors[0].ID)
	assert.Equal(t, 2, result.ActiveFilters)

	envelope := decodeEnvelope(t, rec)
	assert.EqualValues(t, 2, envelope.Meta["active_filters"])
	assert.EqualValues(t, 2, envelope.Pagination["page"])
}

func TestTutorHandlerSearchDefaultState(t *testing.T) {
	directory := &fakeDirectory{tutors: sampleTutors()}
	handler := NewTutorHandler(directory)

	c, rec := newTestContext(http.MethodGet, "/tutors", nil, nil)
	handler.Search(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, discovery.DefaultSort, directory.lastState.SortBy)
	assert.Equal(t, 1, directory.lastPage)
}

func TestTutorHandlerFacets(t *testing.T) {
	handler := NewTutorHandler(&fakeDirectory{tutors: sampleTutors()})

	c, rec := newTestContext(http.MethodGet, "/tutors/facets", nil, nil)
	handler.Facets(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var facets discovery.Facets
	decodeData(t, rec, &facets)
	assert.Equal(t, []string{"Computer Science", "Mathematics"}, facets.Subjects)
	assert.Equal(t, []string{"London", "Manchester"}, facets.Locations)
}

func TestTutorHandlerGet(t *testing.T) {
	handler := NewTutorHandler(&fakeDirectory{tutors: sampleTutors()})

	c, rec := newTestContext(http.MethodGet, "/tutors/t2", nil, nil)
	c.AddParam("id", "t2")
	handler.Get(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Tutor         discovery.TutorRecord `json:"tutor"`
		DisplayRating float64               `json:"display_rating"`
	}
	decodeData(t, rec, &body)
	assert.Equal(t, "Turing", body.Tutor.LastName)
	assert.Equal(t, discovery.DefaultDisplayRating, body.DisplayRating)
}

func TestTutorHandlerGetNotFound(t *testing.T) {
	handler := NewTutorHandler(&fakeDirectory{})

	c, rec := newTestContext(http.MethodGet, "/tutors/missing", nil, nil)
	c.AddParam("id", "missing")
	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, appErrors.ErrNotFound.Code, envelope.Error["code"])
}
