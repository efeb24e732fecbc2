// Package timeline holds the episode image-timeline rules: the value types,
// the validator that reports every rule violation in one pass, and the
// optimizer that merges near-contiguous runs of the same image.
package timeline

import (
	"cmp"
	"slices"
)

// TimeRange is a half-open [Start, End) span in whole seconds. A range with
// End <= Start is representable on purpose so it can be reported.
type TimeRange struct {
	Start int
	End   int
}

// Duration returns End - Start, which is zero or negative for malformed ranges.
func (r TimeRange) Duration() int {
	return r.End - r.Start
}

// Overlaps reports whether the two ranges share at least one second.
// Ranges that only touch (r.End == o.Start) do not overlap.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start < o.End && o.Start < r.End
}

// Contains reports whether second falls inside the range.
func (r TimeRange) Contains(second int) bool {
	return r.Start <= second && second < r.End
}

// Entry shows one image for a sub-range of an episode.
type Entry struct {
	Order    int
	Range    TimeRange
	ImageURL string
}

// NewEntry builds an entry from the submitted field values.
func NewEntry(order, start, end int, imageURL string) Entry {
	return Entry{Order: order, Range: TimeRange{Start: start, End: end}, ImageURL: imageURL}
}

// Renumber returns a copy of entries with Order set to the slice position.
func Renumber(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		e.Order = i
		out[i] = e
	}
	return out
}

// sortedPositions returns the input positions of entries ordered by start
// time. Ties keep their submitted relative order.
func sortedPositions(entries []Entry) []int {
	positions := make([]int, len(entries))
	for i := range positions {
		positions[i] = i
	}
	slices.SortStableFunc(positions, func(a, b int) int {
		return cmp.Compare(entries[a].Range.Start, entries[b].Range.Start)
	})
	return positions
}
