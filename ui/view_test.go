package ui

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/narrator/internal/assemble"
	"github.com/dgnsrekt/narrator/internal/playback"
	"github.com/dgnsrekt/narrator/internal/timeline"
)

func tokens(texts ...string) []timeline.Token {
	out := make([]timeline.Token, len(texts))
	for i, s := range texts {
		seg := "a"
		if i >= 3 {
			seg = "b"
		}
		out[i] = timeline.Token{
			Text:         s,
			Start:        time.Duration(i) * time.Second,
			End:          time.Duration(i+1) * time.Second,
			SegmentID:    seg,
			SegmentTitle: strings.ToUpper(seg),
		}
	}
	return out
}

func TestTranscriptLayout(t *testing.T) {
	var tr transcript
	tr.setSize(10, 4)
	tr.setTokens(tokens("hello", "big", "world", "second", "part"))

	// A header, "hello big", "world", blank, B header, "second", "part".
	want := []string{"A", "hello big", "world", "", "B", "second", "part"}
	if len(tr.lines) != len(want) {
		t.Fatalf("lines = %d, want %d", len(tr.lines), len(want))
	}
	for i, l := range tr.lines {
		var parts []string
		if l.header != "" {
			parts = append(parts, l.header)
		}
		for _, s := range l.spans {
			parts = append(parts, s.text)
		}
		if got := strings.Join(parts, " "); got != want[i] {
			t.Errorf("line %d = %q, want %q", i, got, want[i])
		}
	}

	if i, ok := tr.tokenAt(7, 1); !ok || i != 1 {
		t.Errorf("tokenAt(7,1) = %d, %v", i, ok)
	}
	if _, ok := tr.tokenAt(5, 1); ok {
		t.Error("space between words hit a token")
	}

	tr.follow(4)
	if tr.offset == 0 || tr.lineOf[4]-tr.offset >= tr.height {
		t.Errorf("offset = %d after follow", tr.offset)
	}
	if got := strings.Count(tr.view(-1, nil), "\n"); got != tr.height-1 {
		t.Errorf("view has %d line breaks, want %d", got, tr.height-1)
	}
}

func TestTranscriptTruncatesLongWords(t *testing.T) {
	var tr transcript
	tr.setSize(5, 3)
	tr.setTokens([]timeline.Token{{Text: "extraordinary", SegmentID: "a"}})
	if got := tr.lines[0].spans[0].width; got > 5 {
		t.Errorf("width = %d", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{1499 * time.Millisecond, "0:01"},
		{75 * time.Second, "1:15"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScrubBar(t *testing.T) {
	var s scrubBar
	s.row = 5
	snap := playback.Snapshot{NominalDuration: 10 * time.Second, CurrentTime: 5 * time.Second, Progress: 0.5}
	entries := []timeline.Entry{{Start: 0}, {Start: 5 * time.Second}}
	s.layout(40, snap.EffectiveDuration())
	out := s.view(snap, entries)
	if !strings.HasPrefix(out, " 0:05 ") || !strings.HasSuffix(out, " 0:10 ") {
		t.Errorf("view = %q", out)
	}
	if s.rect.X != 6 || s.rect.Width != 28 {
		t.Errorf("rect = %+v", s.rect)
	}
	if !s.contains(6, 5) || s.contains(5, 5) || s.contains(10, 4) {
		t.Error("contains is wrong")
	}
}

func TestSectionListView(t *testing.T) {
	var l sectionList
	l.set([]timeline.Segment{
		{ID: "a", Order: 1, SectionTitle: "A very long section title", NominalDuration: 65 * time.Second},
		{ID: "b", Order: 2, NominalDuration: time.Second},
	}, map[string]bool{"a": true})
	out := l.view(30, 5)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.Contains(lines[0], "[x]") || !strings.Contains(lines[0], "1:05") || !strings.Contains(lines[0], ellipsis) {
		t.Errorf("first = %q", lines[0])
	}
	if !strings.Contains(lines[1], "[ ]") || !strings.Contains(lines[1], "b") {
		t.Errorf("second = %q", lines[1])
	}
	l.move(5)
	if seg, _ := l.selected(); seg.ID != "b" {
		t.Errorf("selected = %q", seg.ID)
	}
}

func TestErrorText(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("run: %w", assemble.ErrNoPlayableAudio), "no audio available"},
		{fmt.Errorf("%w: device busy", playback.ErrPlaybackRejected), "playback was blocked by the audio device"},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		if got := errorText(tt.err); got != tt.want {
			t.Errorf("errorText(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestStatusLine(t *testing.T) {
	s := statusLine{
		snapshot: playback.Snapshot{State: playback.StatePlaying, Rate: 1.5},
		size:     2048,
		skipped:  1,
	}
	out := s.view(80)
	for _, want := range []string{"playing", "1.5x", "2.0 kB", "1 segment(s) unavailable"} {
		if !strings.Contains(out, want) {
			t.Errorf("status %q lacks %q", out, want)
		}
	}
}
