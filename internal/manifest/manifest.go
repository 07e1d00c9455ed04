// Package manifest reads segment manifests. A manifest is YAML or JSON:
//
//	segments:
//	  - id: intro
//	    segment_number: 1
//	    section_title: Introduction
//	    audio: audio/intro.wav
//	    duration: 4.2
//	    word_timestamps:
//	      - {word: Hello, start: 0.0, end: 0.4}
//
// Times are seconds. A bare list of segments is accepted too.
package manifest

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/narrator/internal/timeline"
)

var (
	ErrEmpty       = errors.New("manifest has no segments")
	ErrDuplicateID = errors.New("duplicate segment id")
	ErrInvalid     = errors.New("invalid segment")
)

// Manifest is a decoded segment manifest.
type Manifest struct {
	Title    string    `yaml:"title"`
	BaseURL  string    `yaml:"base_url"`
	Segments []Segment `yaml:"segments"`
}

// Segment is one segment as written in a manifest.
type Segment struct {
	ID             string  `yaml:"id"`
	SegmentNumber  int     `yaml:"segment_number"`
	SectionTitle   string  `yaml:"section_title"`
	Audio          string  `yaml:"audio"`
	Duration       float64 `yaml:"duration"`
	WordTimestamps []Word  `yaml:"word_timestamps"`
}

// Word is one word timestamp in seconds.
type Word struct {
	Word  string  `yaml:"word"`
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return m, nil
}

// Parse decodes a manifest document.
func Parse(data []byte) (*Manifest, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	var m Manifest
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		if err := node.Content[0].Decode(&m.Segments); err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
	} else if err := node.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks ids and times. Word timestamps must be ordered by start
// and end no earlier than they start. Missing ids and segment numbers are
// filled from the segment's position.
func (m *Manifest) Validate() error {
	if len(m.Segments) == 0 {
		return ErrEmpty
	}
	seen := make(map[string]bool, len(m.Segments))
	for i := range m.Segments {
		s := &m.Segments[i]
		if s.ID == "" {
			s.ID = fmt.Sprintf("segment-%d", i+1)
		}
		if s.SegmentNumber == 0 {
			s.SegmentNumber = i + 1
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, s.ID)
		}
		seen[s.ID] = true
		if s.Audio == "" {
			return fmt.Errorf("%w: %s: no audio", ErrInvalid, s.ID)
		}
		if !validSeconds(s.Duration) {
			return fmt.Errorf("%w: %s: duration %v", ErrInvalid, s.ID, s.Duration)
		}
		for j, w := range s.WordTimestamps {
			if !validSeconds(w.Start) || !validSeconds(w.End) {
				return fmt.Errorf("%w: %s: word %d has bad times", ErrInvalid, s.ID, j)
			}
			if w.End < w.Start {
				return fmt.Errorf("%w: %s: word %d ends before it starts", ErrInvalid, s.ID, j)
			}
			if j > 0 && w.Start < s.WordTimestamps[j-1].Start {
				return fmt.Errorf("%w: %s: word %d starts before word %d", ErrInvalid, s.ID, j, j-1)
			}
		}
	}
	return nil
}

func validSeconds(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// TimelineSegments converts the manifest into timeline segments.
func (m *Manifest) TimelineSegments() []timeline.Segment {
	out := make([]timeline.Segment, len(m.Segments))
	for i, s := range m.Segments {
		words := make([]timeline.WordTimestamp, len(s.WordTimestamps))
		for j, w := range s.WordTimestamps {
			words[j] = timeline.WordTimestamp{
				Word:  w.Word,
				Start: Seconds(w.Start),
				End:   Seconds(w.End),
			}
		}
		out[i] = timeline.Segment{
			ID:              s.ID,
			Order:           s.SegmentNumber,
			SectionTitle:    s.SectionTitle,
			AudioRef:        s.Audio,
			NominalDuration: Seconds(s.Duration),
			Words:           words,
		}
	}
	return out
}

// Seconds converts fractional seconds to a Duration, rounded to the
// microsecond.
func Seconds(v float64) time.Duration {
	return time.Duration(math.Round(v*1e6)) * time.Microsecond
}
