package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/narrator/internal/timeline"
)

// span is one token placed on a line.
type span struct {
	index int
	x     int
	width int
	text  string
}

// line is either a section header or a run of tokens.
type line struct {
	header string
	spans  []span
}

// transcript lays tokens out into wrapped lines and keeps a scroll offset.
type transcript struct {
	tokens []timeline.Token
	lines  []line
	lineOf []int
	width  int
	height int
	offset int
}

func (t *transcript) setTokens(tokens []timeline.Token) {
	t.tokens = tokens
	t.layout()
}

func (t *transcript) setSize(w, h int) {
	t.width, t.height = max(w, 1), max(h, 0)
	t.layout()
}

func (t *transcript) layout() {
	t.lines = t.lines[:0]
	t.lineOf = make([]int, len(t.tokens))
	if t.width <= 0 {
		return
	}

	var (
		cur     line
		x       int
		segment string
	)
	flush := func() {
		if len(cur.spans) > 0 {
			t.lines = append(t.lines, cur)
		}
		cur, x = line{}, 0
	}
	for i, tok := range t.tokens {
		if tok.SegmentID != segment {
			flush()
			if len(t.lines) > 0 {
				t.lines = append(t.lines, line{})
			}
			if tok.SegmentTitle != "" {
				t.lines = append(t.lines, line{header: truncate.StringWithTail(tok.SegmentTitle, uint(t.width), ellipsis)}) //nolint:gosec
			}
			segment = tok.SegmentID
		}
		text := tok.Text
		w := runewidth.StringWidth(text)
		if w > t.width {
			text = truncate.StringWithTail(text, uint(t.width), ellipsis) //nolint:gosec
			w = runewidth.StringWidth(text)
		}
		if x > 0 && x+1+w > t.width {
			flush()
		}
		if x > 0 {
			x++
		}
		cur.spans = append(cur.spans, span{index: i, x: x, width: w, text: text})
		t.lineOf[i] = len(t.lines)
		x += w
	}
	flush()
	t.clamp()
}

func (t *transcript) clamp() {
	t.offset = max(0, min(t.offset, len(t.lines)-t.height))
}

func (t *transcript) scroll(n int) {
	t.offset += n
	t.clamp()
}

// follow brings token i into view, placing it a third of the way down when
// it is off screen.
func (t *transcript) follow(i int) {
	if i < 0 || i >= len(t.lineOf) || t.height == 0 {
		return
	}
	l := t.lineOf[i]
	if l >= t.offset && l < t.offset+t.height {
		return
	}
	t.offset = l - t.height/3
	t.clamp()
}

// tokenAt returns the token under cell (x, y) of the transcript area.
func (t *transcript) tokenAt(x, y int) (int, bool) {
	l := t.offset + y
	if y < 0 || l >= len(t.lines) {
		return 0, false
	}
	for _, s := range t.lines[l].spans {
		if x >= s.x && x < s.x+s.width {
			return s.index, true
		}
	}
	return 0, false
}

func (t *transcript) view(active int, matches map[int]bool) string {
	var b strings.Builder
	hl := activeStyle()
	end := min(t.offset+t.height, len(t.lines))
	for n := t.offset; n < end; n++ {
		l := t.lines[n]
		if l.header != "" {
			b.WriteString(sectionHeaderStyle.Render(l.header))
		}
		for j, s := range l.spans {
			if j > 0 {
				b.WriteString(strings.Repeat(" ", s.x-(l.spans[j-1].x+l.spans[j-1].width)))
			}
			style := spokenStyle
			switch {
			case s.index == active:
				style = hl
			case active >= 0 && s.index > active:
				style = unspokenStyle
			}
			if matches[s.index] {
				style = style.Inherit(matchStyle)
			}
			b.WriteString(style.Render(s.text))
		}
		if n < end-1 {
			b.WriteByte('\n')
		}
	}
	for n := max(end-t.offset, 1); n < t.height; n++ {
		b.WriteByte('\n')
	}
	return b.String()
}
