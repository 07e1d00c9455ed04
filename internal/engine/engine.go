// Package engine ties the segment store, timeline builder, assembler,
// playback controller and highlight tracker together. Every change to the
// enabled set rebuilds the timeline synchronously and starts a new
// assembly; the controller attaches whichever run is still current when it
// finishes.
package engine

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/internal/assemble"
	"github.com/dgnsrekt/narrator/internal/highlight"
	"github.com/dgnsrekt/narrator/internal/playback"
	"github.com/dgnsrekt/narrator/internal/timeline"
)

// Update is sent to listeners after every playback change.
type Update struct {
	Playback playback.Snapshot
	// Active is the highlighted token index, or -1.
	Active        int
	ActiveChanged bool
}

// Options tunes an Engine.
type Options struct {
	ScrollInterval time.Duration
	Logger         *log.Logger
}

// Engine is the single owner of the timeline and the playback state.
type Engine struct {
	mu         sync.Mutex
	store      *timeline.Store
	tl         timeline.Timeline
	assembler  *assemble.Assembler
	controller *playback.Controller
	tracker    *highlight.Tracker
	logger     *log.Logger
	size       int
	skipped    []*assemble.SegmentError

	ctx    context.Context
	cancel context.CancelFunc
	runs   sync.WaitGroup
	closed bool

	lmu       sync.Mutex
	onUpdate  []func(Update)
	onScroll  []func(int)
	onRebuild []func(timeline.Timeline)
}

// New returns an engine. Call Start to build the first timeline.
func New(store *timeline.Store, assembler *assemble.Assembler, controller *playback.Controller, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:      store,
		assembler:  assembler,
		controller: controller,
		logger:     logger.WithPrefix("engine"),
		ctx:        ctx,
		cancel:     cancel,
	}
	e.tracker = highlight.NewTracker(opts.ScrollInterval, e.emitScroll)
	controller.OnChange(e.onSnapshot)
	return e
}

// OnUpdate registers a listener for playback updates. Listeners must not
// block or call back into the engine synchronously.
func (e *Engine) OnUpdate(fn func(Update)) {
	e.lmu.Lock()
	defer e.lmu.Unlock()
	e.onUpdate = append(e.onUpdate, fn)
}

// OnScroll registers a listener for rate-limited scroll requests.
func (e *Engine) OnScroll(fn func(index int)) {
	e.lmu.Lock()
	defer e.lmu.Unlock()
	e.onScroll = append(e.onScroll, fn)
}

// OnRebuild registers a listener called with every new timeline.
func (e *Engine) OnRebuild(fn func(timeline.Timeline)) {
	e.lmu.Lock()
	defer e.lmu.Unlock()
	e.onRebuild = append(e.onRebuild, fn)
}

// Start builds the initial timeline and begins assembling it.
func (e *Engine) Start() {
	e.rebuild()
}

// Toggle enables or disables one segment.
func (e *Engine) Toggle(id string, enabled bool) error {
	changed, err := e.store.Toggle(id, enabled)
	if err != nil {
		return err
	}
	if changed {
		e.rebuild()
	}
	return nil
}

// ToggleAll enables every segment, or disables all but the first.
func (e *Engine) ToggleAll(enabled bool) {
	if e.store.ToggleAll(enabled) {
		e.rebuild()
	}
}

// ReplaceSegments swaps in a new segment list, keeping the enabled state of
// surviving IDs.
func (e *Engine) ReplaceSegments(segments []timeline.Segment) error {
	if err := e.store.Replace(segments); err != nil {
		return err
	}
	e.rebuild()
	return nil
}

// Segments returns the segments in order with their enabled state.
func (e *Engine) Segments() ([]timeline.Segment, map[string]bool) {
	return e.store.Segments(), e.store.Enabled()
}

// Timeline returns a copy of the current timeline.
func (e *Engine) Timeline() timeline.Timeline {
	e.mu.Lock()
	defer e.mu.Unlock()
	return timeline.Timeline{
		Entries: append([]timeline.Entry(nil), e.tl.Entries...),
		Tokens:  append([]timeline.Token(nil), e.tl.Tokens...),
	}
}

// Snapshot returns the playback state.
func (e *Engine) Snapshot() playback.Snapshot {
	return e.controller.Snapshot()
}

// Controller exposes the playback operations.
func (e *Engine) Controller() *playback.Controller {
	return e.controller
}

// ActiveToken returns the highlighted token.
func (e *Engine) ActiveToken() (timeline.Token, bool) {
	return e.tracker.Token()
}

// ActiveIndex returns the highlighted token index, or -1.
func (e *Engine) ActiveIndex() int {
	return e.tracker.Active()
}

// AssemblyInfo describes the attached resource: its size in bytes and the
// segments that were left out of it.
func (e *Engine) AssemblyInfo() (int, []*assemble.SegmentError) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.size, append([]*assemble.SegmentError(nil), e.skipped...)
}

// FlushScroll delivers a scroll request held back by the rate limit.
func (e *Engine) FlushScroll() {
	e.tracker.Flush()
}

// Wait blocks until every started assembly has been attached or
// discarded.
func (e *Engine) Wait() {
	e.runs.Wait()
}

// Close cancels in-flight assemblies and releases the playback resource.
// Edits made after Close no longer start assemblies.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()
	e.cancel()
	e.runs.Wait()
	return e.controller.Close()
}

func (e *Engine) rebuild() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	tl := timeline.Build(e.store.Segments(), e.store.Enabled())
	e.tl = tl
	e.tracker.SetTokens(tl.Tokens)
	e.controller.BeginAssembly(tl.Duration())
	run := e.assembler.Start(e.ctx, tl.Segments())
	e.runs.Add(1)
	e.mu.Unlock()

	e.logger.Debug("timeline rebuilt",
		"segments", len(tl.Entries),
		"tokens", len(tl.Tokens),
		"duration", tl.Duration(),
		"generation", run.Generation)

	e.lmu.Lock()
	listeners := slices.Clone(e.onRebuild)
	e.lmu.Unlock()
	for _, fn := range listeners {
		fn(tl)
	}

	go e.finish(run)
}

func (e *Engine) finish(run *assemble.Run) {
	defer e.runs.Done()
	res, err := run.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	if errors.Is(err, assemble.ErrStale) || !e.assembler.IsCurrent(run.Generation) {
		res.Release()
		return
	}
	if e.ctx.Err() != nil {
		res.Release()
		return
	}
	if err != nil {
		e.size, e.skipped = 0, nil
		e.logger.Error("assembly failed", "generation", run.Generation, "err", err)
		e.controller.Fail(err)
		return
	}
	for _, s := range res.Skipped {
		e.logger.Warn("segment left out", "segment", s.SegmentID, "err", s.Err)
	}
	size := res.Size()
	if err := e.controller.Attach(e.ctx, res); err != nil {
		e.logger.Error("attach failed", "err", err)
		e.size, e.skipped = 0, nil
		return
	}
	e.size, e.skipped = size, res.Skipped
}

func (e *Engine) onSnapshot(s playback.Snapshot) {
	idx, changed := e.tracker.Update(s.CurrentTime)
	e.lmu.Lock()
	listeners := slices.Clone(e.onUpdate)
	e.lmu.Unlock()
	u := Update{Playback: s, Active: idx, ActiveChanged: changed}
	for _, fn := range listeners {
		fn(u)
	}
}

func (e *Engine) emitScroll(idx int) {
	e.lmu.Lock()
	listeners := slices.Clone(e.onScroll)
	e.lmu.Unlock()
	for _, fn := range listeners {
		fn(idx)
	}
}
