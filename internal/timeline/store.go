package timeline

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknownSegment is returned when a toggle names a segment the store
	// does not hold.
	ErrUnknownSegment = errors.New("unknown segment")

	// ErrLastEnabled is returned when a toggle would leave no segment enabled.
	ErrLastEnabled = errors.New("at least one segment must remain enabled")

	// ErrNoSegments is returned when a store is created without segments.
	ErrNoSegments = errors.New("no segments")
)

// Store holds the raw segments and the set of enabled segment IDs.
// It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	segments []Segment
	enabled  map[string]bool
}

// NewStore creates a store with every segment enabled.
func NewStore(segments []Segment) (*Store, error) {
	s := &Store{}
	if err := s.Replace(segments); err != nil {
		return nil, err
	}
	return s, nil
}

// Replace swaps in a new segment list. Segments that survive the swap keep
// their enabled state; new segments start enabled.
func (s *Store) Replace(segments []Segment) error {
	if len(segments) == 0 {
		return ErrNoSegments
	}
	seen := make(map[string]bool, len(segments))
	for _, seg := range segments {
		if seg.ID == "" {
			return fmt.Errorf("segment %d: missing id", seg.Order)
		}
		if seen[seg.ID] {
			return fmt.Errorf("segment %q: duplicate id", seg.ID)
		}
		seen[seg.ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	enabled := make(map[string]bool, len(segments))
	for _, seg := range segments {
		on, known := s.enabled[seg.ID]
		enabled[seg.ID] = on || !known
	}
	s.segments = append([]Segment(nil), segments...)
	s.enabled = enabled
	if s.enabledCountLocked() == 0 {
		s.enabled[s.firstLocked()] = true
	}
	return nil
}

// Segments returns a copy of the segments in Order.
func (s *Store) Segments() []Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]Segment(nil), s.segments...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Enabled returns a copy of the enabled set.
func (s *Store) Enabled() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool, len(s.enabled))
	for id, on := range s.enabled {
		if on {
			out[id] = true
		}
	}
	return out
}

// IsEnabled reports whether the segment is enabled.
func (s *Store) IsEnabled(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled[id]
}

// Toggle enables or disables one segment. Disabling the last enabled
// segment fails with ErrLastEnabled. It reports whether the set changed.
func (s *Store) Toggle(id string, enabled bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	on, ok := s.enabled[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownSegment, id)
	}
	if on == enabled {
		return false, nil
	}
	if !enabled && s.enabledCountLocked() == 1 {
		return false, ErrLastEnabled
	}
	s.enabled[id] = enabled
	return true, nil
}

// ToggleAll enables every segment, or disables all but the first segment in
// Order. It reports whether the set changed.
func (s *Store) ToggleAll(enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := s.firstLocked()
	changed := false
	for id, on := range s.enabled {
		want := enabled || id == keep
		if on != want {
			s.enabled[id] = want
			changed = true
		}
	}
	return changed
}

func (s *Store) enabledCountLocked() int {
	n := 0
	for _, on := range s.enabled {
		if on {
			n++
		}
	}
	return n
}

func (s *Store) firstLocked() string {
	first := s.segments[0]
	for _, seg := range s.segments[1:] {
		if seg.Order < first.Order {
			first = seg
		}
	}
	return first.ID
}
