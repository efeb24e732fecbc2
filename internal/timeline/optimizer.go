package timeline

// MergeGapSeconds is the largest gap between two entries showing the same
// image that still counts as one visual segment.
const MergeGapSeconds = 2

// OptimizedTimeline is the result of Optimize.
type OptimizedTimeline struct {
	Entries        []Entry
	OriginalCount  int
	OptimizedCount int
}

// Merged returns how many entries were folded into a neighbour.
func (o OptimizedTimeline) Merged() int {
	return o.OriginalCount - o.OptimizedCount
}

// ReductionPercent returns the share of entries removed, rounded to one decimal.
func (o OptimizedTimeline) ReductionPercent() float64 {
	if o.OriginalCount == 0 {
		return 0
	}
	p := float64(o.Merged()) / float64(o.OriginalCount) * 100
	return float64(int(p*10+0.5)) / 10
}

// Optimize sorts entries by start time and merges each entry into the
// previous one when both show the same image and the gap between them is at
// most MergeGapSeconds. The input is not modified; any input is accepted.
// Running Optimize on its own output returns the same entries.
func Optimize(entries []Entry) OptimizedTimeline {
	result := make([]Entry, 0, len(entries))
	for _, p := range sortedPositions(entries) {
		cur := entries[p]
		if n := len(result); n > 0 {
			prev := &result[n-1]
			if prev.ImageURL == cur.ImageURL && cur.Range.Start-prev.Range.End <= MergeGapSeconds {
				prev.Range.End = max(prev.Range.End, cur.Range.End)
				continue
			}
		}
		result = append(result, cur)
	}
	for i := range result {
		result[i].Order = i
	}
	return OptimizedTimeline{
		Entries:        result,
		OriginalCount:  len(entries),
		OptimizedCount: len(result),
	}
}
