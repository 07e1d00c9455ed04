package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/dgnsrekt/narrator/internal/timeline"
)

// sectionList is the segment toggle panel.
type sectionList struct {
	segments []timeline.Segment
	enabled  map[string]bool
	cursor   int
}

func (l *sectionList) set(segments []timeline.Segment, enabled map[string]bool) {
	l.segments = segments
	l.enabled = enabled
	l.cursor = max(0, min(l.cursor, len(segments)-1))
}

func (l *sectionList) move(n int) {
	if len(l.segments) == 0 {
		return
	}
	l.cursor = max(0, min(l.cursor+n, len(l.segments)-1))
}

func (l *sectionList) selected() (timeline.Segment, bool) {
	if l.cursor >= len(l.segments) {
		return timeline.Segment{}, false
	}
	return l.segments[l.cursor], true
}

func (l *sectionList) view(width, height int) string {
	if height <= 0 {
		return ""
	}
	start := 0
	if l.cursor >= height {
		start = l.cursor - height + 1
	}
	end := min(start+height, len(l.segments))

	var b strings.Builder
	for i := start; i < end; i++ {
		s := l.segments[i]
		title := s.SectionTitle
		if title == "" {
			title = s.ID
		}
		mark := "[x]"
		if !l.enabled[s.ID] {
			mark = "[ ]"
		}
		dur := formatDuration(s.SpokenDuration())
		prefix := fmt.Sprintf("  %s %2d ", mark, s.Order)
		titleWidth := max(0, width-runewidth.StringWidth(prefix)-runewidth.StringWidth(dur)-1)
		row := prefix + runewidth.FillRight(runewidth.Truncate(title, titleWidth, ellipsis), titleWidth) + " " + dur

		switch {
		case i == l.cursor:
			row = cursorStyle.Render("│" + row[1:])
		case !l.enabled[s.ID]:
			row = disabledStyle.Render(row)
		}
		b.WriteString(row)
		if i < end-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
