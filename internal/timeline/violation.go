package timeline

import (
	"fmt"
	"time"
)

// Category identifies which rule a violation came from.
type Category string

const (
	CategoryDurationRange         Category = "duration_range"
	CategoryEntriesRequired       Category = "entries_required"
	CategoryTooManyEntries        Category = "entries_too_many"
	CategoryNegativeTime          Category = "negative_time"
	CategoryTooShort              Category = "too_short"
	CategoryTooLong               Category = "too_long"
	CategoryExceedsEpisode        Category = "exceeds_episode"
	CategoryInvalidURL            Category = "invalid_url"
	CategoryUnsupportedFormat     Category = "unsupported_format"
	CategoryUntrustedDomain       Category = "untrusted_domain"
	CategoryOverlap               Category = "overlap"
	CategoryLowCoverage           Category = "low_coverage"
	CategoryTooManyImages         Category = "too_many_images"
	CategoryMustStartAtZero       Category = "must_start_at_zero"
	CategoryMustCoverFullDuration Category = "must_cover_full_duration"
	CategoryGapTooLarge           Category = "gap_too_large"
)

// Field paths used by the admin client to attach messages to form inputs.
const (
	FieldEpisodeDuration = "episode_duration"
	FieldTimeline        = "image_timeline"
	FieldStartTime       = "start_time"
	FieldEndTime         = "end_time"
	FieldImageURL        = "image_url"
)

// EntryField returns the path of a field on one submitted entry,
// e.g. image_timeline.3.end_time.
func EntryField(index int, field string) string {
	return fmt.Sprintf("%s.%d.%s", FieldTimeline, index, field)
}

// Violation is one broken rule. Index is the submitted position of the
// offending entry, or nil for timeline-wide problems. Params carries the
// numbers the message was rendered from so callers can localize it.
type Violation struct {
	Index    *int           `json:"index"`
	Field    string         `json:"field"`
	Category Category       `json:"category"`
	Params   map[string]any `json:"params,omitempty"`
	Message  string         `json:"message"`
}

// ValidationResult is the complete outcome of one Validate call.
type ValidationResult struct {
	Valid           bool        `json:"is_valid"`
	Violations      []Violation `json:"violations"`
	CoveragePercent float64     `json:"coverage_percent"`
	CheckedAt       time.Time   `json:"checked_at"`
}

// ByField groups messages by field path, keeping rule order within a field.
func (r ValidationResult) ByField() map[string][]string {
	out := make(map[string][]string, len(r.Violations))
	for _, v := range r.Violations {
		out[v.Field] = append(out[v.Field], v.Message)
	}
	return out
}

// Count returns how many violations belong to category.
func (r ValidationResult) Count(category Category) int {
	n := 0
	for _, v := range r.Violations {
		if v.Category == category {
			n++
		}
	}
	return n
}

func indexPtr(i int) *int {
	return &i
}
