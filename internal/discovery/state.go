package discovery

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// SortKey selects the ordering applied after filtering.
type SortKey string

const (
	// SortNone keeps the snapshot order. Only the zero FilterState carries it;
	// the filter view itself starts from DefaultSort.
	SortNone           SortKey = ""
	SortRatingDesc     SortKey = "rating-desc"
	SortPriceAsc       SortKey = "price-asc"
	SortPriceDesc      SortKey = "price-desc"
	SortNameAsc        SortKey = "name-asc"
	SortExperienceDesc SortKey = "experience-desc"
)

// DefaultSort is used whenever no or an unknown sort key is supplied.
const DefaultSort = SortRatingDesc

// PricePresets are the "Under $N" shortcuts offered next to the price inputs.
var PricePresets = []float64{10, 25, 50, 100}

var sortAliases = map[string]SortKey{
	"rating":     SortRatingDesc,
	"price-low":  SortPriceAsc,
	"price-high": SortPriceDesc,
	"name":       SortNameAsc,
	"experience": SortExperienceDesc,
}

// ParseSortKey maps a raw sort value, including the legacy short names, onto a
// SortKey. Unknown values fall back to DefaultSort.
func ParseSortKey(raw string) SortKey {
	key := strings.ToLower(strings.TrimSpace(raw))
	switch SortKey(key) {
	case SortRatingDesc, SortPriceAsc, SortPriceDesc, SortNameAsc, SortExperienceDesc:
		return SortKey(key)
	}
	if alias, ok := sortAliases[key]; ok {
		return alias
	}
	return DefaultSort
}

// PriceRange bounds the hourly rate. A nil bound does not restrict.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Active reports whether either bound is set.
func (p PriceRange) Active() bool {
	return p.Min != nil || p.Max != nil
}

// FilterState is the complete set of search, filter and sort choices at a
// point in time. It is a value: every edit produces a new state.
type FilterState struct {
	Search     string     `json:"search"`
	Subjects   []string   `json:"subjects"`
	PriceRange PriceRange `json:"price_range"`
	MinRating  *float64   `json:"min_rating,omitempty"`
	Location   string     `json:"location"`
	SortBy     SortKey    `json:"sort_by"`
}

// DefaultFilterState returns the state a fresh filter view starts with.
func DefaultFilterState() FilterState {
	return FilterState{Subjects: []string{}, SortBy: DefaultSort}
}

// Normalize returns a cleaned copy: blank search cleared, trimmed location,
// unique non-blank subjects, non-finite bounds dropped and a known sort key.
// Non-blank search text is kept as typed.
func (s FilterState) Normalize() FilterState {
	sortBy := SortNone
	if strings.TrimSpace(string(s.SortBy)) != "" {
		sortBy = ParseSortKey(string(s.SortBy))
	}
	return FilterState{
		Search:   nonBlank(s.Search),
		Subjects: uniqueNonBlank(s.Subjects),
		PriceRange: PriceRange{
			Min: finiteOrNil(s.PriceRange.Min),
			Max: finiteOrNil(s.PriceRange.Max),
		},
		MinRating: finiteOrNil(s.MinRating),
		Location:  strings.TrimSpace(s.Location),
		SortBy:    sortBy,
	}
}

func nonBlank(v string) string {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	return v
}

// Clear resets every restriction and the sort order.
func (s FilterState) Clear() FilterState {
	return DefaultFilterState()
}

// WithMaxPrice applies an "Under $N" preset: the minimum is cleared and the
// maximum set to limit.
func (s FilterState) WithMaxPrice(limit float64) FilterState {
	next := s.clone()
	next.PriceRange = PriceRange{Max: floatPtr(limit)}
	return next
}

// ToggleSubject adds subject when absent and removes it otherwise.
func (s FilterState) ToggleSubject(subject string) FilterState {
	next := s.clone()
	subjects := make([]string, 0, len(s.Subjects)+1)
	removed := false
	for _, existing := range s.Subjects {
		if existing == subject {
			removed = true
			continue
		}
		subjects = append(subjects, existing)
	}
	if !removed {
		subjects = append(subjects, subject)
	}
	next.Subjects = subjects
	return next
}

func (s FilterState) clone() FilterState {
	next := s
	next.Subjects = append([]string(nil), s.Subjects...)
	return next
}

// ParseFilterState reads a FilterState from query parameters. Empty or
// malformed values mean "no restriction" for that dimension.
//
// Recognised keys: search, subjects (comma separated and/or repeated),
// subject (alias), min_price, max_price, min_rating, location, sort.
func ParseFilterState(values url.Values) FilterState {
	state := DefaultFilterState()
	state.Search = values.Get("search")

	var subjects []string
	for _, key := range []string{"subjects", "subject"} {
		for _, raw := range values[key] {
			subjects = append(subjects, strings.Split(raw, ",")...)
		}
	}
	state.Subjects = subjects

	state.PriceRange = PriceRange{
		Min: parseOptionalFloat(values.Get("min_price")),
		Max: parseOptionalFloat(values.Get("max_price")),
	}
	state.MinRating = parseOptionalFloat(values.Get("min_rating"))
	state.Location = values.Get("location")
	state.SortBy = ParseSortKey(values.Get("sort"))

	return state.Normalize()
}

func parseOptionalFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return finiteOrNil(&value)
}

func finiteOrNil(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return floatPtr(*v)
}

func floatPtr(v float64) *float64 {
	return &v
}
