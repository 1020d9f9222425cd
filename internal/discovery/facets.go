package discovery

import "sort"

// Facets lists the selectable values for the subject and location controls.
type Facets struct {
	Subjects  []string `json:"subjects"`
	Locations []string `json:"locations"`
}

// ComputeFacets returns the sorted, duplicate-free subjects and non-empty
// locations found across tutors.
func ComputeFacets(tutors []TutorRecord) Facets {
	subjects := make(map[string]struct{})
	locations := make(map[string]struct{})
	for _, t := range tutors {
		for _, s := range t.Subjects {
			if s != "" {
				subjects[s] = struct{}{}
			}
		}
		if t.Location != "" {
			locations[t.Location] = struct{}{}
		}
	}
	return Facets{Subjects: sortedKeys(subjects), Locations: sortedKeys(locations)}
}

// ActiveFilterCount counts the dimensions currently restricting results. The
// subject selection counts once no matter how many subjects it holds.
func ActiveFilterCount(state FilterState) int {
	state = state.Normalize()
	count := 0
	if state.Search != "" {
		count++
	}
	if len(state.Subjects) > 0 {
		count++
	}
	if state.PriceRange.Active() {
		count++
	}
	if state.MinRating != nil {
		count++
	}
	if state.Location != "" {
		count++
	}
	return count
}

// Result bundles everything the discovery view renders for one state.
type Result struct {
	State         FilterState   `json:"state"`
	Tutors        []TutorRecord `json:"tutors"`
	Facets        Facets        `json:"facets"`
	ActiveFilters int           `json:"active_filters"`
	Total         int           `json:"total"`
}

// Evaluate filters tutors and derives facets and the active-filter count from
// the same normalized state so the list and the badge always agree.
func Evaluate(tutors []TutorRecord, state FilterState) Result {
	state = state.Normalize()
	matched := ApplyFilters(tutors, state)
	return Result{
		State:         state,
		Tutors:        matched,
		Facets:        ComputeFacets(tutors),
		ActiveFilters: ActiveFilterCount(state),
		Total:         len(matched),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
