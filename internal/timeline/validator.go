package timeline

import (
	"fmt"
	"math"
	"time"
)

// Limits are the numeric thresholds the validator enforces.
type Limits struct {
	MinEpisodeSeconds  int
	MaxEpisodeSeconds  int
	MaxEntries         int
	MinEntrySeconds    int
	MaxEntrySeconds    int
	MinCoveragePercent float64
	MaxUniqueImages    int
	MaxGapSeconds      int
}

// DefaultLimits returns the production thresholds.
func DefaultLimits() Limits {
	return Limits{
		MinEpisodeSeconds:  1,
		MaxEpisodeSeconds:  7200,
		MaxEntries:         100,
		MinEntrySeconds:    2,
		MaxEntrySeconds:    60,
		MinCoveragePercent: 50,
		MaxUniqueImages:    20,
		MaxGapSeconds:      30,
	}
}

// Validator checks a candidate timeline against an episode duration. It holds
// only configuration and is safe for concurrent use.
type Validator struct {
	Policy ImagePolicy
	Limits Limits
}

// NewValidator returns a validator using policy and the default limits.
func NewValidator(policy ImagePolicy) Validator {
	return Validator{Policy: policy, Limits: DefaultLimits()}
}

// Validate evaluates every rule and returns all violations found. It never
// fails: degenerate input, including ranges with End <= Start, is reported
// through the regular rules. Entries are identified by their slice position.
func (v Validator) Validate(durationSeconds int, entries []Entry, now time.Time) ValidationResult {
	var out []Violation
	out = append(out, v.checkTopLevel(durationSeconds, entries)...)
	for i, e := range entries {
		out = append(out, v.checkEntry(i, e, durationSeconds)...)
	}

	coverage := 0.0
	if len(entries) > 0 {
		var wide []Violation
		wide, coverage = v.checkTimeline(durationSeconds, entries)
		out = append(out, wide...)
	}

	if out == nil {
		out = []Violation{}
	}
	return ValidationResult{
		Valid:           len(out) == 0,
		Violations:      out,
		CoveragePercent: coverage,
		CheckedAt:       now,
	}
}

func (v Validator) checkTopLevel(durationSeconds int, entries []Entry) []Violation {
	var out []Violation
	lim := v.Limits
	if durationSeconds < lim.MinEpisodeSeconds || durationSeconds > lim.MaxEpisodeSeconds {
		out = append(out, Violation{
			Field:    FieldEpisodeDuration,
			Category: CategoryDurationRange,
			Params:   map[string]any{"min": lim.MinEpisodeSeconds, "max": lim.MaxEpisodeSeconds, "actual": durationSeconds},
			Message: fmt.Sprintf("episode duration must be between %d and %d seconds, got %d",
				lim.MinEpisodeSeconds, lim.MaxEpisodeSeconds, durationSeconds),
		})
	}
	switch {
	case len(entries) == 0:
		out = append(out, Violation{
			Field:    FieldTimeline,
			Category: CategoryEntriesRequired,
			Message:  "image timeline must contain at least one entry",
		})
	case len(entries) > lim.MaxEntries:
		out = append(out, Violation{
			Field:    FieldTimeline,
			Category: CategoryTooManyEntries,
			Params:   map[string]any{"max": lim.MaxEntries, "actual": len(entries)},
			Message:  fmt.Sprintf("image timeline may contain at most %d entries, got %d", lim.MaxEntries, len(entries)),
		})
	}
	return out
}

func (v Validator) checkEntry(i int, e Entry, durationSeconds int) []Violation {
	var out []Violation
	lim := v.Limits
	add := func(field string, cat Category, params map[string]any, msg string) {
		out = append(out, Violation{Index: indexPtr(i), Field: EntryField(i, field), Category: cat, Params: params, Message: msg})
	}

	if e.Range.Start < 0 {
		add(FieldStartTime, CategoryNegativeTime, map[string]any{"actual": e.Range.Start},
			fmt.Sprintf("entry %d start time must not be negative", i))
	}
	if e.Range.End < 0 {
		add(FieldEndTime, CategoryNegativeTime, map[string]any{"actual": e.Range.End},
			fmt.Sprintf("entry %d end time must not be negative", i))
	}

	d := e.Range.Duration()
	switch {
	case d < lim.MinEntrySeconds:
		add(FieldEndTime, CategoryTooShort, map[string]any{"min": lim.MinEntrySeconds, "actual": d},
			fmt.Sprintf("entry %d is too short: %d seconds, minimum is %d", i, d, lim.MinEntrySeconds))
	case d > lim.MaxEntrySeconds:
		add(FieldEndTime, CategoryTooLong, map[string]any{"max": lim.MaxEntrySeconds, "actual": d},
			fmt.Sprintf("entry %d is too long: %d seconds, maximum is %d", i, d, lim.MaxEntrySeconds))
	}

	if e.Range.End > durationSeconds {
		add(FieldEndTime, CategoryExceedsEpisode, map[string]any{"max": durationSeconds, "actual": e.Range.End},
			fmt.Sprintf("entry %d end exceeds episode duration (%d > %d)", i, e.Range.End, durationSeconds))
	}

	u, ok := ParseURL(e.ImageURL)
	if !ok {
		add(FieldImageURL, CategoryInvalidURL, nil, fmt.Sprintf("entry %d has an invalid URL", i))
		return out
	}
	if !v.Policy.ExtensionAllowed(u) {
		add(FieldImageURL, CategoryUnsupportedFormat, map[string]any{"actual": Extension(u)},
			fmt.Sprintf("entry %d has an unsupported image format %q", i, Extension(u)))
	}
	if !v.Policy.DomainTrusted(u) {
		add(FieldImageURL, CategoryUntrustedDomain, map[string]any{"actual": u.Hostname()},
			fmt.Sprintf("entry %d image is hosted on an untrusted domain %q", i, u.Hostname()))
	}
	return out
}

// checkTimeline runs the rules that look at the entries in time order.
// entries must be non-empty.
func (v Validator) checkTimeline(durationSeconds int, entries []Entry) ([]Violation, float64) {
	var out []Violation
	lim := v.Limits
	order := sortedPositions(entries)

	for k := 0; k+1 < len(order); k++ {
		cur, next := entries[order[k]], entries[order[k+1]]
		if cur.Range.End > next.Range.Start {
			out = append(out, Violation{
				Field:    FieldTimeline,
				Category: CategoryOverlap,
				Params:   map[string]any{"first": order[k], "second": order[k+1], "seconds": cur.Range.End - next.Range.Start},
				Message:  fmt.Sprintf("overlap between entry %d and %d", order[k], order[k+1]),
			})
		}
	}

	total := 0
	for _, e := range entries {
		total += e.Range.Duration()
	}
	coverage := 0.0
	if durationSeconds > 0 {
		raw := float64(total) / float64(durationSeconds) * 100
		coverage = math.Round(raw*10) / 10
		// The threshold applies to the unrounded share.
		if raw < lim.MinCoveragePercent {
			out = append(out, Violation{
				Field:    FieldTimeline,
				Category: CategoryLowCoverage,
				Params:   map[string]any{"min": lim.MinCoveragePercent, "actual": coverage},
				Message:  fmt.Sprintf("timeline covers %.1f%% of the episode, at least %.0f%% is required", coverage, lim.MinCoveragePercent),
			})
		}
	}

	unique := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		unique[e.ImageURL] = struct{}{}
	}
	if len(unique) > lim.MaxUniqueImages {
		out = append(out, Violation{
			Field:    FieldTimeline,
			Category: CategoryTooManyImages,
			Params:   map[string]any{"max": lim.MaxUniqueImages, "actual": len(unique)},
			Message:  fmt.Sprintf("more than %d unique images (%d)", lim.MaxUniqueImages, len(unique)),
		})
	}

	first := order[0]
	if s := entries[first].Range.Start; s != 0 {
		out = append(out, Violation{
			Index:    indexPtr(first),
			Field:    EntryField(first, FieldStartTime),
			Category: CategoryMustStartAtZero,
			Params:   map[string]any{"actual": s},
			Message:  fmt.Sprintf("timeline must start at second 0, first entry starts at %d", s),
		})
	}

	last := order[0]
	for _, p := range order[1:] {
		if entries[p].Range.End >= entries[last].Range.End {
			last = p
		}
	}
	if e := entries[last].Range.End; e != durationSeconds {
		out = append(out, Violation{
			Index:    indexPtr(last),
			Field:    EntryField(last, FieldEndTime),
			Category: CategoryMustCoverFullDuration,
			Params:   map[string]any{"expected": durationSeconds, "actual": e},
			Message:  fmt.Sprintf("timeline must end at the episode duration %d, last entry ends at %d", durationSeconds, e),
		})
	}

	for k := 0; k+1 < len(order); k++ {
		cur, next := entries[order[k]], entries[order[k+1]]
		if gap := next.Range.Start - cur.Range.End; gap > lim.MaxGapSeconds {
			out = append(out, Violation{
				Index:    indexPtr(order[k+1]),
				Field:    EntryField(order[k+1], FieldStartTime),
				Category: CategoryGapTooLarge,
				Params:   map[string]any{"max": lim.MaxGapSeconds, "actual": gap},
				Message:  fmt.Sprintf("gap of %d seconds between entry %d and %d exceeds %d seconds", gap, order[k], order[k+1], lim.MaxGapSeconds),
			})
		}
	}

	return out, coverage
}
