package timeline

import (
	"strings"
	"time"
)

type wordClass int

const (
	classWord wordClass = iota
	classOpening
	classClosing
)

// Latin punctuation only. Straight quotes are ambiguous and are resolved by
// quoteState.
const (
	openingRunes = "([{“‘«¿¡"
	closingRunes = ".,!?;:)]}”’»…—–-"
)

// quoteState alternates straight quotes between opening and closing within
// one segment.
type quoteState struct {
	double, single int
}

// Quotes are counted in every word, including ones with letters attached,
// so a later bare quote pairs with the right partner.
func (q *quoteState) classify(text string) wordClass {
	defer func() {
		q.double += strings.Count(text, `"`)
		q.single += strings.Count(text, "'")
	}()
	allOpening, allClosing := true, true
	for _, r := range text {
		switch {
		case r == '"':
			if q.double%2 == 0 {
				allClosing = false
			} else {
				allOpening = false
			}
		case r == '\'':
			if q.single%2 == 0 {
				allClosing = false
			} else {
				allOpening = false
			}
		case strings.ContainsRune(openingRunes, r):
			allClosing = false
		case strings.ContainsRune(closingRunes, r):
			allOpening = false
		default:
			return classWord
		}
	}
	switch {
	case allOpening:
		return classOpening
	case allClosing:
		return classClosing
	default:
		// Mixed punctuation such as ")(" reads as closing the previous word.
		return classClosing
	}
}

// groupTokens appends the display tokens of one segment to out, translating
// segment-local offsets by base.
func groupTokens(out []Token, s Segment, base time.Duration) []Token {
	var (
		quotes      quoteState
		cur         *Token
		pendingOpen bool
	)
	newToken := func(w WordTimestamp, text string) *Token {
		return &Token{
			Text:         text,
			Start:        base + w.Start,
			End:          base + w.End,
			SegmentID:    s.ID,
			SegmentTitle: s.SectionTitle,
		}
	}
	push := func() {
		if cur == nil {
			return
		}
		if cur.End < cur.Start {
			cur.End = cur.Start
		}
		if n := len(out); n > 0 && out[n-1].End > cur.Start {
			out[n-1].End = max(cur.Start, out[n-1].Start)
		}
		out = append(out, *cur)
		cur = nil
		pendingOpen = false
	}
	extend := func(w WordTimestamp, text string) {
		cur.Text += text
		if end := base + w.End; end > cur.End {
			cur.End = end
		}
	}

	for _, w := range s.Words {
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		switch quotes.classify(text) {
		case classOpening:
			push()
			cur = newToken(w, text)
			pendingOpen = true
		case classClosing:
			switch {
			case cur == nil:
				cur = newToken(w, text)
			case pendingOpen:
				// Opening directly followed by closing: keep both.
				push()
				cur = newToken(w, text)
			default:
				extend(w, text)
			}
		default:
			if cur != nil && pendingOpen {
				extend(w, text)
				pendingOpen = false
				continue
			}
			push()
			cur = newToken(w, text)
		}
	}
	push()
	return out
}

// IsPunctuation reports whether text consists only of punctuation that the
// grouping rules would attach to a neighbouring word.
func IsPunctuation(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	for _, r := range text {
		if r == '"' || r == '\'' {
			continue
		}
		if !strings.ContainsRune(openingRunes, r) && !strings.ContainsRune(closingRunes, r) {
			return false
		}
	}
	return true
}
