package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/narrator/internal/assemble"
	"github.com/dgnsrekt/narrator/internal/playback"
)

// statusIcon returns the glyph and label for a playback state.
func statusIcon(s playback.Snapshot) (string, string) {
	switch {
	case s.IsAssembling:
		return "", "assembling"
	case s.Err != nil:
		return "■", "stopped"
	}
	switch s.State {
	case playback.StatePlaying:
		return "▶", "playing"
	case playback.StatePaused:
		return "⏸", "paused"
	case playback.StateReady:
		return "●", "ready"
	case playback.StateEnded:
		return "■", "ended"
	default:
		return "○", "idle"
	}
}

// errorText is the user facing text for a playback error.
func errorText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, assemble.ErrNoPlayableAudio):
		return "no audio available"
	case playback.IsRejected(err):
		return "playback was blocked by the audio device"
	default:
		return err.Error()
	}
}

type statusLine struct {
	snapshot playback.Snapshot
	spinner  string
	size     int
	skipped  int
	message  string
	search   string
}

func (s statusLine) view(width int) string {
	icon, label := statusIcon(s.snapshot)
	if s.snapshot.IsAssembling {
		icon = s.spinner
	}
	logo := logoStyle.Render(" " + icon + " ")

	right := fmt.Sprintf(" %gx ", s.snapshot.Rate)
	if s.size > 0 {
		right = " " + humanize.Bytes(uint64(s.size)) + right //nolint:gosec
	}
	right = statusBarTimeStyle.Render(right)

	note := " " + label
	style := statusBarNoteStyle
	switch {
	case s.search != "":
		note = " " + s.search
	case s.message != "":
		note = " " + s.message
		style = statusBarMessageStyle
	case s.snapshot.Err != nil:
		note = " " + errorText(s.snapshot.Err)
		style = statusBarErrorStyle
	case s.skipped > 0:
		note += fmt.Sprintf(" · %d segment(s) unavailable", s.skipped)
	}
	room := max(0, width-ansi.PrintableRuneWidth(logo)-ansi.PrintableRuneWidth(right))
	note = truncate.StringWithTail(note, uint(room), ellipsis) //nolint:gosec
	note += strings.Repeat(" ", max(0, room-ansi.PrintableRuneWidth(note)))
	return logo + style.Render(note) + right
}
