package timeline

import "time"

// WordTimestamp is a single spoken word with segment-local offsets.
type WordTimestamp struct {
	Word  string
	Start time.Duration
	End   time.Duration
}

// Segment is one independently generated unit of narrated audio.
// Segments are treated as immutable once handed to a Store.
type Segment struct {
	ID              string
	Order           int    // segment_number, defines sequence
	SectionTitle    string // optional
	AudioRef        string // opaque handle resolved by the assembler
	NominalDuration time.Duration
	Words           []WordTimestamp
}

// SpokenDuration returns the best estimate of the segment's length:
// the larger of the last word's end offset and the declared duration.
func (s Segment) SpokenDuration() time.Duration {
	if len(s.Words) == 0 {
		return s.NominalDuration
	}
	last := s.Words[len(s.Words)-1].End
	if last > s.NominalDuration {
		return last
	}
	return s.NominalDuration
}

// Entry places one enabled segment on the unified timeline.
type Entry struct {
	SegmentID string
	Start     time.Duration
	End       time.Duration
	Duration  time.Duration
	Segment   Segment
}

// Contains reports whether t falls inside [Start, End).
func (e Entry) Contains(t time.Duration) bool {
	return t >= e.Start && t < e.End
}

// Token is a punctuation-grouped display unit on the unified timeline.
type Token struct {
	Text         string
	Start        time.Duration
	End          time.Duration
	SegmentID    string
	SegmentTitle string
}

// Timeline is the derived view of the enabled segments.
type Timeline struct {
	Entries []Entry
	Tokens  []Token
}

// Duration is the nominal total duration of the timeline.
func (tl Timeline) Duration() time.Duration {
	if len(tl.Entries) == 0 {
		return 0
	}
	return tl.Entries[len(tl.Entries)-1].End
}

// Segments returns the enabled segments in playback order.
func (tl Timeline) Segments() []Segment {
	out := make([]Segment, len(tl.Entries))
	for i, e := range tl.Entries {
		out[i] = e.Segment
	}
	return out
}

// EntryAt returns the index of the entry containing t, or -1.
// The final instant of the timeline belongs to the last entry.
func (tl Timeline) EntryAt(t time.Duration) int {
	for i, e := range tl.Entries {
		if e.Contains(t) {
			return i
		}
	}
	if n := len(tl.Entries); n > 0 && t == tl.Entries[n-1].End {
		return n - 1
	}
	return -1
}
