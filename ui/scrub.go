package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dgnsrekt/narrator/internal/playback"
	"github.com/dgnsrekt/narrator/internal/timeline"
)

// scrubBar renders playback progress with a tick at each section boundary.
// rect is the clickable area in screen columns.
type scrubBar struct {
	rect playback.Rect
	row  int
}

// layout sizes the bar so both time labels fit the width of total.
func (s *scrubBar) layout(width int, total time.Duration) {
	label := len(formatDuration(total)) + 2
	s.rect = playback.Rect{X: float64(label), Width: float64(max(0, width-2*label))}
}

func (s scrubBar) contains(x, y int) bool {
	return y == s.row && float64(x) >= s.rect.X && float64(x) < s.rect.X+s.rect.Width
}

func (s scrubBar) view(snap playback.Snapshot, entries []timeline.Entry) string {
	label := int(s.rect.X) - 2
	left := fmt.Sprintf(" %*s ", label, formatDuration(snap.CurrentTime))
	right := fmt.Sprintf(" %*s ", label, formatDuration(snap.EffectiveDuration()))
	barWidth := int(s.rect.Width)
	if barWidth == 0 {
		return left + right
	}

	cells := make([]rune, barWidth)
	for i := range cells {
		cells[i] = '─'
	}
	if eff := snap.EffectiveDuration(); eff > 0 {
		for _, e := range entries[min(1, len(entries)):] {
			col := int(float64(e.Start) / float64(eff) * float64(barWidth))
			if col > 0 && col < barWidth {
				cells[col] = '┼'
			}
		}
	}
	knob := int(math.Round(snap.Progress * float64(barWidth-1)))
	knob = max(0, min(knob, barWidth-1))

	var b strings.Builder
	b.WriteString(left)
	b.WriteString(scrubFillStyle.Render(string(cells[:knob])))
	b.WriteString(scrubKnobStyle.Render("●"))
	b.WriteString(scrubEmptyStyle.Render(string(cells[knob+1:])))
	b.WriteString(right)
	return b.String()
}

// formatDuration renders d as m:ss, or h:mm:ss past an hour.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	sec := (d % time.Minute) / time.Second
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
