// Package discovery implements tutor search: ingestion of stored tutor rows,
// filter evaluation, ordering and the facets used to render filter controls.
// Everything here is pure and safe to call from any goroutine.
package discovery

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/tutorfinder/tutorfinder-api/internal/models"
)

// DefaultDisplayRating is shown for tutors that have not been rated yet.
const DefaultDisplayRating = 4.5

// MaxRating is the upper bound of the rating scale.
const MaxRating = 5.0

// TutorRecord is the read-only view of a discoverable tutor.
type TutorRecord struct {
	ID            string   `json:"id"`
	FirstName     string   `json:"first_name"`
	LastName      string   `json:"last_name"`
	Subjects      []string `json:"subjects"`
	HourlyRate    *float64 `json:"hourly_rate,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	Location      string   `json:"location,omitempty"`
	Experience    *float64 `json:"experience_years,omitempty"`
	Bio           string   `json:"bio,omitempty"`
	Education     string   `json:"education,omitempty"`
	ProfileImage  string   `json:"profile_image,omitempty"`
	Languages     []string `json:"languages,omitempty"`
	Availability  []string `json:"availability,omitempty"`
	TotalSessions int      `json:"total_sessions"`
	TotalStudents int      `json:"total_students"`
}

// FullName joins first and last name the way search matches against it.
func (t TutorRecord) FullName() string {
	return strings.TrimSpace(t.FirstName + " " + t.LastName)
}

// RateOrZero returns the hourly rate, treating an unset rate as zero.
func (t TutorRecord) RateOrZero() float64 {
	if t.HourlyRate == nil {
		return 0
	}
	return *t.HourlyRate
}

// RatingOrZero returns the rating, treating an unset rating as zero.
func (t TutorRecord) RatingOrZero() float64 {
	if t.Rating == nil {
		return 0
	}
	return *t.Rating
}

// ExperienceOrZero returns the experience indicator, zero when absent.
func (t TutorRecord) ExperienceOrZero() float64 {
	if t.Experience == nil {
		return 0
	}
	return *t.Experience
}

// DisplayRating is the rating shown on profile cards.
func (t TutorRecord) DisplayRating() float64 {
	if t.Rating == nil {
		return DefaultDisplayRating
	}
	return *t.Rating
}

// HasSubject reports whether the tutor teaches subject.
func (t TutorRecord) HasSubject(subject string) bool {
	for _, s := range t.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}

// FromDocument converts a stored tutor row into a TutorRecord. All default
// substitution happens here so filter code can trust the record's shape.
func FromDocument(doc models.TutorDocument) TutorRecord {
	return TutorRecord{
		ID:            doc.ID,
		FirstName:     strings.TrimSpace(doc.FirstName),
		LastName:      strings.TrimSpace(doc.LastName),
		Subjects:      uniqueNonBlank(doc.Subjects),
		HourlyRate:    sanitizeRate(doc.HourlyRate),
		Rating:        sanitizeRating(doc.Rating),
		Location:      deref(doc.Location),
		Experience:    ParseExperience(deref(doc.Experience)),
		Bio:           deref(doc.Bio),
		Education:     deref(doc.Education),
		ProfileImage:  deref(doc.ProfileImage),
		Languages:     uniqueNonBlank(doc.Languages),
		Availability:  uniqueNonBlank(doc.Availability),
		TotalSessions: doc.TotalSessions,
		TotalStudents: doc.TotalStudents,
	}
}

// FromDocuments ingests a batch of stored rows preserving their order.
func FromDocuments(docs []models.TutorDocument) []TutorRecord {
	records := make([]TutorRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, FromDocument(doc))
	}
	return records
}

// ParseExperience extracts the leading number from free-text experience such
// as "5 years" or "10+". It returns nil when no number leads the text.
func ParseExperience(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	end := 0
	seenDot := false
	for i, r := range raw {
		if unicode.IsDigit(r) {
			end = i + 1
			continue
		}
		if r == '.' && !seenDot && i > 0 {
			seenDot = true
			continue
		}
		break
	}
	if end == 0 {
		return nil
	}
	value, err := strconv.ParseFloat(raw[:end], 64)
	if err != nil || value < 0 {
		return nil
	}
	return &value
}

func sanitizeRate(rate *float64) *float64 {
	if rate == nil || math.IsNaN(*rate) || math.IsInf(*rate, 0) || *rate < 0 {
		return nil
	}
	v := *rate
	return &v
}

func sanitizeRating(rating *float64) *float64 {
	if rating == nil || math.IsNaN(*rating) {
		return nil
	}
	v := math.Max(0, math.Min(MaxRating, *rating))
	return &v
}

func uniqueNonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
