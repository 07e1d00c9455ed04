// Package highlight finds the word token under the playhead and decides
// when the view should scroll to it.
package highlight

import (
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dgnsrekt/narrator/internal/timeline"
)

// DefaultScrollInterval bounds how often scroll requests are issued.
const DefaultScrollInterval = 150 * time.Millisecond

// ActiveTokenIndex returns the index of the first token whose range
// contains t, or -1 when t falls in a gap. Tokens must be sorted by Start
// and must not overlap.
func ActiveTokenIndex(t time.Duration, tokens []timeline.Token) int {
	i := sort.Search(len(tokens), func(i int) bool { return tokens[i].Start > t }) - 1
	found := -1
	for ; i >= 0 && tokens[i].End >= t; i-- {
		found = i
	}
	return found
}

// Tracker remembers the active token and issues scroll requests when it
// changes, at most once per interval. A request suppressed by the limit is
// kept and sent by a later Update or Flush.
type Tracker struct {
	mu         sync.Mutex
	tokens     []timeline.Token
	active     int
	pending    int
	hasPending bool
	limiter    *rate.Limiter
	onScroll   func(index int)
	now        func() time.Time
}

// NewTracker returns a tracker calling onScroll with the index to bring
// into view. onScroll may be nil.
func NewTracker(interval time.Duration, onScroll func(index int)) *Tracker {
	if interval <= 0 {
		interval = DefaultScrollInterval
	}
	return &Tracker{
		active:   -1,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		onScroll: onScroll,
		now:      time.Now,
	}
}

// SetTokens replaces the token list after a rebuild.
func (tr *Tracker) SetTokens(tokens []timeline.Token) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.tokens = tokens
	tr.active = -1
	tr.hasPending = false
}

// Update moves the tracker to time t. It reports the active index and
// whether it changed.
func (tr *Tracker) Update(t time.Duration) (int, bool) {
	tr.mu.Lock()
	idx := ActiveTokenIndex(t, tr.tokens)
	changed := idx != tr.active
	if changed {
		tr.active = idx
		if idx >= 0 {
			tr.pending, tr.hasPending = idx, true
		}
	}
	scroll, ok := tr.takePendingLocked()
	tr.mu.Unlock()

	if ok && tr.onScroll != nil {
		tr.onScroll(scroll)
	}
	return idx, changed
}

// Flush sends a pending scroll request if the limiter allows it.
func (tr *Tracker) Flush() {
	tr.mu.Lock()
	scroll, ok := tr.takePendingLocked()
	tr.mu.Unlock()
	if ok && tr.onScroll != nil {
		tr.onScroll(scroll)
	}
}

func (tr *Tracker) takePendingLocked() (int, bool) {
	if !tr.hasPending || !tr.limiter.AllowN(tr.now(), 1) {
		return 0, false
	}
	tr.hasPending = false
	return tr.pending, true
}

// Active returns the active token index, or -1.
func (tr *Tracker) Active() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.active
}

// Token returns the active token.
func (tr *Tracker) Token() (timeline.Token, bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.active < 0 || tr.active >= len(tr.tokens) {
		return timeline.Token{}, false
	}
	return tr.tokens[tr.active], true
}
