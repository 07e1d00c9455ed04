package timeline

import (
	"sort"
	"time"
)

// Build derives the timeline for the enabled segments. It is a pure function
// of its inputs: segments are ordered by Order regardless of input order and
// each entry starts where the previous enabled entry ends.
func Build(segments []Segment, enabled map[string]bool) Timeline {
	ordered := make([]Segment, 0, len(segments))
	for _, s := range segments {
		if enabled[s.ID] {
			ordered = append(ordered, s)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	tl := Timeline{Entries: make([]Entry, 0, len(ordered))}
	var cursor time.Duration
	for _, s := range ordered {
		d := s.SpokenDuration()
		tl.Entries = append(tl.Entries, Entry{
			SegmentID: s.ID,
			Start:     cursor,
			End:       cursor + d,
			Duration:  d,
			Segment:   s,
		})
		tl.Tokens = groupTokens(tl.Tokens, s, cursor)
		cursor += d
	}
	if tl.Tokens == nil {
		tl.Tokens = []Token{}
	}
	return tl
}
