package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dgnsrekt/narrator/internal/engine"
	"github.com/dgnsrekt/narrator/internal/timeline"
)

type (
	updateMsg  engine.Update
	scrollMsg  int
	rebuildMsg timeline.Timeline
	flushMsg   struct{}
)

// bridge moves engine callbacks onto the Bubble Tea loop. Each channel holds
// only the latest value so a slow frame never blocks the engine.
type bridge struct {
	updates  chan engine.Update
	scrolls  chan int
	rebuilds chan timeline.Timeline
	done     chan struct{}
}

func newBridge(e *engine.Engine) *bridge {
	b := &bridge{
		updates:  make(chan engine.Update, 1),
		scrolls:  make(chan int, 1),
		rebuilds: make(chan timeline.Timeline, 1),
		done:     make(chan struct{}),
	}
	e.OnUpdate(func(u engine.Update) { offer(b.updates, u) })
	e.OnScroll(func(i int) { offer(b.scrolls, i) })
	e.OnRebuild(func(tl timeline.Timeline) { offer(b.rebuilds, tl) })
	return b
}

// offer replaces any unread value in ch with v.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (b *bridge) close() {
	select {
	case <-b.done:
	default:
		close(b.done)
	}
}

func (b *bridge) waitUpdate() tea.Msg {
	select {
	case u := <-b.updates:
		return updateMsg(u)
	case <-b.done:
		return nil
	}
}

func (b *bridge) waitScroll() tea.Msg {
	select {
	case i := <-b.scrolls:
		return scrollMsg(i)
	case <-b.done:
		return nil
	}
}

func (b *bridge) waitRebuild() tea.Msg {
	select {
	case tl := <-b.rebuilds:
		return rebuildMsg(tl)
	case <-b.done:
		return nil
	}
}
