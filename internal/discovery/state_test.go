package discovery

import (
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorfinder/tutorfinder-api/internal/models"
)

func TestParseSortKey(t *testing.T) {
	cases := map[string]SortKey{
		"rating-desc":     SortRatingDesc,
		"PRICE-ASC":       SortPriceAsc,
		"price-high":      SortPriceDesc,
		"name":            SortNameAsc,
		"experience":      SortExperienceDesc,
		"":                DefaultSort,
		"most-expensive?": DefaultSort,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseSortKey(raw), raw)
	}
}

func TestDefaultFilterState(t *testing.T) {
	state := DefaultFilterState()
	assert.Equal(t, SortRatingDesc, state.SortBy)
	assert.Empty(t, state.Subjects)
	assert.False(t, state.PriceRange.Active())
	assert.Nil(t, state.MinRating)
}

func TestNormalizeDropsNonFiniteBoundsAndBlankSubjects(t *testing.T) {
	state := FilterState{
		Search:     "  ada ",
		Subjects:   []string{"Math", " ", "Math", "Art"},
		PriceRange: PriceRange{Min: rate(math.NaN()), Max: rate(math.Inf(1))},
		MinRating:  rate(4),
		Location:   " Oslo ",
		SortBy:     "unknown",
	}

	normalized := state.Normalize()

	assert.Equal(t, "  ada ", normalized.Search)
	assert.Equal(t, "", FilterState{Search: " \t "}.Normalize().Search)
	assert.Equal(t, []string{"Math", "Art"}, normalized.Subjects)
	assert.False(t, normalized.PriceRange.Active())
	assert.Equal(t, "Oslo", normalized.Location)
	assert.Equal(t, DefaultSort, normalized.SortBy)
	assert.Equal(t, "  ada ", state.Search)
}

func TestWithMaxPriceAndToggleSubjectReturnNewStates(t *testing.T) {
	base := DefaultFilterState()
	base.PriceRange.Min = rate(5)
	base.Subjects = []string{"Math"}

	preset := base.WithMaxPrice(PricePresets[1])
	require.NotNil(t, preset.PriceRange.Max)
	assert.Nil(t, preset.PriceRange.Min)
	assert.Equal(t, 25.0, *preset.PriceRange.Max)
	assert.NotNil(t, base.PriceRange.Min)

	added := base.ToggleSubject("Art")
	assert.Equal(t, []string{"Math", "Art"}, added.Subjects)
	removed := added.ToggleSubject("Math")
	assert.Equal(t, []string{"Art"}, removed.Subjects)
	assert.Equal(t, []string{"Math"}, base.Subjects)

	assert.Equal(t, DefaultFilterState(), removed.Clear())
}

func TestParseFilterState(t *testing.T) {
	state := ParseFilterState(url.Values{
		"search":     {"ada"},
		"subjects":   {"Math,Art", "Physics"},
		"subject":    {"Art"},
		"min_price":  {"10"},
		"max_price":  {"abc"},
		"min_rating": {"4.5"},
		"location":   {"Oslo"},
		"sort":       {"price-low"},
	})

	assert.Equal(t, "ada", state.Search)
	assert.Equal(t, []string{"Math", "Art", "Physics"}, state.Subjects)
	require.NotNil(t, state.PriceRange.Min)
	assert.Equal(t, 10.0, *state.PriceRange.Min)
	assert.Nil(t, state.PriceRange.Max)
	require.NotNil(t, state.MinRating)
	assert.Equal(t, 4.5, *state.MinRating)
	assert.Equal(t, "Oslo", state.Location)
	assert.Equal(t, SortPriceAsc, state.SortBy)
}

func TestParseFilterStateEmptyQueryIsDefault(t *testing.T) {
	state := ParseFilterState(url.Values{})
	assert.Equal(t, 0, ActiveFilterCount(state))
	assert.Equal(t, DefaultSort, state.SortBy)
}

func TestFromDocumentAppliesDefaults(t *testing.T) {
	location := "  Oslo "
	experience := "5 years"
	doc := models.TutorDocument{
		ID:         "t1",
		FirstName:  " Ada ",
		LastName:   "Lovelace",
		Subjects:   []string{"Math", "", "Math", " Art "},
		HourlyRate: rate(-3),
		Rating:     rate(7),
		Location:   &location,
		Experience: &experience,
	}

	record := FromDocument(doc)

	assert.Equal(t, "Ada", record.FirstName)
	assert.Equal(t, []string{"Math", "Art"}, record.Subjects)
	assert.Nil(t, record.HourlyRate)
	require.NotNil(t, record.Rating)
	assert.Equal(t, MaxRating, *record.Rating)
	assert.Equal(t, "Oslo", record.Location)
	require.NotNil(t, record.Experience)
	assert.Equal(t, 5.0, *record.Experience)
	assert.Empty(t, record.Bio)
}

func TestFromDocumentUnratedTutorDisplaysDefault(t *testing.T) {
	record := FromDocument(models.TutorDocument{ID: "t2", Rating: rate(math.NaN())})

	assert.Nil(t, record.Rating)
	assert.Equal(t, DefaultDisplayRating, record.DisplayRating())
	assert.Equal(t, 0.0, record.RatingOrZero())
}

func TestParseExperience(t *testing.T) {
	cases := map[string]*float64{
		"5 years":   rate(5),
		"10+":       rate(10),
		"2.5 yrs":   rate(2.5),
		"about 3":   nil,
		"":          nil,
		"   7   ":   rate(7),
		"many":      nil,
		".5 years":  nil,
		"12 months": rate(12),
	}
	for raw, want := range cases {
		got := ParseExperience(raw)
		if want == nil {
			assert.Nil(t, got, raw)
			continue
		}
		require.NotNil(t, got, raw)
		assert.Equal(t, *want, *got, raw)
	}
}
