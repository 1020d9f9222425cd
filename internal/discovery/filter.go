package discovery

import (
	"sort"
	"strings"
)

// ApplyFilters returns the tutors that satisfy every active constraint in
// state, ordered by state.SortBy. The input slice is never modified and the
// result is always a fresh slice.
//
// A tutor without an hourly rate never matches while a price bound is active:
// an unknown price can be neither above a minimum nor below a maximum.
func ApplyFilters(tutors []TutorRecord, state FilterState) []TutorRecord {
	state = state.Normalize()
	m := newMatcher(state)

	result := make([]TutorRecord, 0, len(tutors))
	for _, tutor := range tutors {
		if m.matches(tutor) {
			result = append(result, tutor)
		}
	}

	sortTutors(result, state.SortBy)
	return result
}

type matcher struct {
	search   string
	subjects map[string]struct{}
	price    PriceRange
	rating   *float64
	location string
}

func newMatcher(state FilterState) matcher {
	m := matcher{
		search:   strings.ToLower(state.Search),
		price:    state.PriceRange,
		rating:   state.MinRating,
		location: state.Location,
	}
	if len(state.Subjects) > 0 {
		m.subjects = make(map[string]struct{}, len(state.Subjects))
		for _, s := range state.Subjects {
			m.subjects[s] = struct{}{}
		}
	}
	return m
}

func (m matcher) matches(t TutorRecord) bool {
	return m.matchName(t) &&
		m.matchSubjects(t) &&
		m.matchPrice(t) &&
		m.matchRating(t) &&
		m.matchLocation(t)
}

func (m matcher) matchName(t TutorRecord) bool {
	if m.search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.FirstName+" "+t.LastName), m.search)
}

// OR semantics: one shared subject is enough.
func (m matcher) matchSubjects(t TutorRecord) bool {
	if m.subjects == nil {
		return true
	}
	for _, s := range t.Subjects {
		if _, ok := m.subjects[s]; ok {
			return true
		}
	}
	return false
}

func (m matcher) matchPrice(t TutorRecord) bool {
	if !m.price.Active() {
		return true
	}
	if t.HourlyRate == nil {
		return false
	}
	rate := *t.HourlyRate
	if m.price.Min != nil && rate < *m.price.Min {
		return false
	}
	if m.price.Max != nil && rate > *m.price.Max {
		return false
	}
	return true
}

func (m matcher) matchRating(t TutorRecord) bool {
	if m.rating == nil {
		return true
	}
	return t.RatingOrZero() >= *m.rating
}

func (m matcher) matchLocation(t TutorRecord) bool {
	if m.location == "" {
		return true
	}
	return t.Location == m.location
}

func sortTutors(tutors []TutorRecord, key SortKey) {
	if key == SortNone {
		return
	}
	var less func(a, b TutorRecord) bool
	switch key {
	case SortPriceAsc:
		less = func(a, b TutorRecord) bool { return a.RateOrZero() < b.RateOrZero() }
	case SortPriceDesc:
		less = func(a, b TutorRecord) bool { return a.RateOrZero() > b.RateOrZero() }
	case SortNameAsc:
		less = func(a, b TutorRecord) bool {
			af, bf := strings.ToLower(a.FirstName), strings.ToLower(b.FirstName)
			if af != bf {
				return af < bf
			}
			return strings.ToLower(a.LastName) < strings.ToLower(b.LastName)
		}
	case SortExperienceDesc:
		less = func(a, b TutorRecord) bool { return a.ExperienceOrZero() > b.ExperienceOrZero() }
	default:
		less = func(a, b TutorRecord) bool { return a.RatingOrZero() > b.RatingOrZero() }
	}
	sort.SliceStable(tutors, func(i, j int) bool { return less(tutors[i], tutors[j]) })
}
