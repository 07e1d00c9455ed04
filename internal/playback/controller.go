package playback

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/internal/assemble"
	"github.com/dgnsrekt/narrator/internal/reconcile"
	"github.com/dgnsrekt/narrator/internal/timeline"
)

const (
	DefaultSkipInterval  = 10 * time.Second
	DefaultFrameInterval = 16 * time.Millisecond
)

// Options tunes a Controller. Zero values select defaults.
type Options struct {
	SkipInterval  time.Duration
	FrameInterval time.Duration
	Threshold     time.Duration
	Rate          float64
}

// Snapshot is a read-only copy of the playback state.
type Snapshot struct {
	State           State
	IsAssembling    bool
	IsSeekable      bool
	IsPlaying       bool
	IsDragging      bool
	CurrentTime     time.Duration
	NominalDuration time.Duration
	ActualDuration  time.Duration
	Rate            float64
	// Progress is CurrentTime as a percentage of the effective duration.
	Progress   float64
	ResourceID string
	Err        error
}

// EffectiveDuration is the nominal duration, or the decoded duration when
// no nominal duration is known.
func (s Snapshot) EffectiveDuration() time.Duration {
	return effective(s.NominalDuration, s.ActualDuration)
}

func effective(nominal, actual time.Duration) time.Duration {
	if nominal > 0 {
		return nominal
	}
	return actual
}

// Controller owns the current resource and drives the transport.
type Controller struct {
	mu        sync.Mutex
	transport Transport
	opts      Options
	sm        *stateMachine
	logger    *log.Logger

	resource *assemble.Resource
	rec      reconcile.Reconciler
	nominal  time.Duration
	actual   time.Duration
	current  time.Duration
	rate     float64
	dragging bool
	err      error
	closed   bool

	listeners []func(Snapshot)

	loopStop    chan struct{}
	activeLoops atomic.Int32
}

// NewController returns an idle controller driving transport.
func NewController(transport Transport, opts Options, logger *log.Logger) *Controller {
	if opts.SkipInterval <= 0 {
		opts.SkipInterval = DefaultSkipInterval
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.Threshold <= 0 {
		opts.Threshold = reconcile.DefaultThreshold
	}
	if logger == nil {
		logger = log.Default()
	}
	c := &Controller{
		transport: transport,
		opts:      opts,
		sm:        newStateMachine(),
		logger:    logger.WithPrefix("playback"),
		rate:      ClampRate(opts.Rate),
	}
	c.sm.onEnter[StatePlaying] = c.startLoop
	c.sm.onExit[StatePlaying] = c.stopLoop
	return c
}

// OnChange registers fn to receive a snapshot after every change. Listeners
// run outside the controller lock and must not block.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// update runs fn under the lock and then notifies listeners.
func (c *Controller) update(fn func() error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	err := fn()
	snap := c.snapshotLocked()
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
	return err
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	state := c.sm.current
	s := Snapshot{
		State:           state,
		IsAssembling:    state == StateAssembling,
		IsSeekable:      state.Seekable(),
		IsPlaying:       state == StatePlaying,
		IsDragging:      c.dragging,
		CurrentTime:     c.current,
		NominalDuration: c.nominal,
		ActualDuration:  c.actual,
		Rate:            c.rate,
		Err:             c.err,
	}
	if eff := s.EffectiveDuration(); eff > 0 {
		s.Progress = float64(c.current) / float64(eff) * 100
	}
	if c.resource != nil {
		s.ResourceID = c.resource.ID
	}
	return s
}

// BeginAssembly discards the transport position and marks the controller
// not ready until the next Attach or Fail. The current resource stays
// loaded until its replacement is attached.
func (c *Controller) BeginAssembly(nominal time.Duration) {
	_ = c.update(func() error {
		c.sm.transition(StateAssembling)
		if c.resource != nil {
			if err := c.transport.Pause(); err != nil {
				c.logger.Debug("pause before reassembly", "err", err)
			}
		}
		c.nominal = nominal
		c.actual = 0
		c.current = 0
		c.dragging = false
		c.err = nil
		c.rec = reconcile.New(nominal, 0, c.opts.Threshold)
		return nil
	})
}

// Attach loads res into the transport and takes ownership of it. The
// previously attached resource is released once the new one is loaded.
func (c *Controller) Attach(ctx context.Context, res *assemble.Resource) error {
	return c.update(func() error {
		c.sm.transition(StateAssembling)
		actual, err := c.transport.Load(ctx, res.Data())
		if err != nil {
			res.Release()
			c.failLocked(fmt.Errorf("%w: load: %w", assemble.ErrNoPlayableAudio, err))
			return err
		}
		prev := c.resource
		c.resource = res
		prev.Release()

		c.actual = actual
		c.rec = reconcile.New(c.nominal, actual, c.opts.Threshold)
		c.current = 0
		c.err = nil
		if err := c.transport.SetRate(c.rate); err != nil {
			c.logger.Warn("restore playback rate", "rate", c.rate, "err", err)
		}
		if c.rec.Scaled() {
			c.logger.Debug("reconciling durations", "nominal", c.nominal, "actual", actual, "drift", c.rec.Drift())
		}
		c.sm.transition(StateReady)
		return nil
	})
}

// Fail settles an assembly that produced nothing playable.
func (c *Controller) Fail(err error) {
	_ = c.update(func() error {
		c.failLocked(err)
		return nil
	})
}

func (c *Controller) failLocked(err error) {
	if c.resource != nil {
		_ = c.transport.Pause()
		c.resource.Release()
		c.resource = nil
	}
	c.actual = 0
	c.current = 0
	c.err = err
	c.sm.transition(StateIdle)
}

// TogglePlayback starts or pauses playback. It does nothing until a
// resource is attached.
func (c *Controller) TogglePlayback() error {
	return c.update(func() error {
		switch c.sm.current {
		case StatePlaying:
			return c.pauseLocked()
		case StateReady, StatePaused, StateEnded:
			return c.playLocked()
		}
		return nil
	})
}

// Play starts playback if a resource is attached.
func (c *Controller) Play() error {
	return c.update(func() error {
		if c.sm.current == StatePlaying || !c.sm.current.Seekable() {
			return nil
		}
		return c.playLocked()
	})
}

// Pause pauses playback if playing.
func (c *Controller) Pause() error {
	return c.update(func() error {
		if c.sm.current != StatePlaying {
			return nil
		}
		return c.pauseLocked()
	})
}

func (c *Controller) playLocked() error {
	if err := c.transport.Play(); err != nil {
		c.err = fmt.Errorf("%w: %w", ErrPlaybackRejected, err)
		c.sm.transition(StatePaused)
		return c.err
	}
	c.err = nil
	c.sm.transition(StatePlaying)
	return nil
}

func (c *Controller) pauseLocked() error {
	err := c.transport.Pause()
	if !c.dragging {
		c.current = c.sampleLocked()
	}
	c.sm.transition(StatePaused)
	return err
}

// SeekToUnifiedTime moves playback to t, clamped to the effective
// duration. CurrentTime is updated before the transport confirms.
func (c *Controller) SeekToUnifiedTime(t time.Duration) error {
	return c.update(func() error {
		return c.seekLocked(t)
	})
}

func (c *Controller) seekLocked(t time.Duration) error {
	if !c.sm.current.Seekable() {
		return nil
	}
	eff := effective(c.nominal, c.actual)
	t = max(0, min(t, eff))
	c.current = t
	if c.sm.current == StateEnded {
		c.sm.transition(StatePaused)
	}
	return c.transport.Seek(c.rec.ToTransport(t))
}

// SkipForward moves forward by the skip interval.
func (c *Controller) SkipForward() error {
	return c.update(func() error {
		return c.seekLocked(c.current + c.opts.SkipInterval)
	})
}

// SkipBackward moves back by the skip interval.
func (c *Controller) SkipBackward() error {
	return c.update(func() error {
		return c.seekLocked(c.current - c.opts.SkipInterval)
	})
}

// SeekToFraction seeks to the position of x across r.
func (c *Controller) SeekToFraction(x float64, r Rect) error {
	return c.update(func() error {
		return c.seekFractionLocked(x, r)
	})
}

func (c *Controller) seekFractionLocked(x float64, r Rect) error {
	if r.Width <= 0 {
		return nil
	}
	eff := effective(c.nominal, c.actual)
	return c.seekLocked(time.Duration(r.Fraction(x) * float64(eff)))
}

// BeginDrag starts a scrub at x. Until EndDrag, sampling the transport no
// longer moves CurrentTime.
func (c *Controller) BeginDrag(x float64, r Rect) error {
	return c.update(func() error {
		if !c.sm.current.Seekable() {
			return nil
		}
		c.dragging = true
		return c.seekFractionLocked(x, r)
	})
}

// DragTo seeks to x while a drag is active.
func (c *Controller) DragTo(x float64, r Rect) error {
	return c.update(func() error {
		if !c.dragging {
			return nil
		}
		return c.seekFractionLocked(x, r)
	})
}

// EndDrag seeks to x and ends the drag.
func (c *Controller) EndDrag(x float64, r Rect) error {
	return c.update(func() error {
		if !c.dragging {
			return nil
		}
		err := c.seekFractionLocked(x, r)
		c.dragging = false
		return err
	})
}

// SeekToToken seeks to the start of tok.
func (c *Controller) SeekToToken(tok timeline.Token) error {
	return c.SeekToUnifiedTime(tok.Start)
}

// SetPlaybackRate changes the wall-clock speed. Timeline positions are not
// affected.
func (c *Controller) SetPlaybackRate(rate float64) error {
	return c.update(func() error {
		rate = ClampRate(rate)
		if c.resource != nil {
			if err := c.transport.SetRate(rate); err != nil {
				return err
			}
		}
		c.rate = rate
		return nil
	})
}

// Close stops playback, closes the transport and releases the resource.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.sm.transition(StateIdle)
	c.resource.Release()
	c.resource = nil
	return c.transport.Close()
}

// ActiveLoops returns the number of sampling goroutines still running.
func (c *Controller) ActiveLoops() int {
	return int(c.activeLoops.Load())
}

func (c *Controller) sampleLocked() time.Duration {
	eff := effective(c.nominal, c.actual)
	return max(0, min(c.rec.ToUnified(c.transport.Position()), eff))
}

// startLoop runs on entering StatePlaying, with the lock held.
func (c *Controller) startLoop() {
	stop := make(chan struct{})
	c.loopStop = stop
	c.activeLoops.Add(1)
	go func() {
		defer c.activeLoops.Add(-1)
		ticker := time.NewTicker(c.opts.FrameInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.tick(stop)
			}
		}
	}()
}

// stopLoop runs on leaving StatePlaying, with the lock held. It does not
// wait for the goroutine; a tick already waiting on the lock sees the
// closed channel and returns.
func (c *Controller) stopLoop() {
	if c.loopStop != nil {
		close(c.loopStop)
		c.loopStop = nil
	}
}

func (c *Controller) tick(stop chan struct{}) {
	_ = c.update(func() error {
		select {
		case <-stop:
			return nil
		default:
		}
		if c.transport.Ended() {
			c.handleEndedLocked()
			return nil
		}
		if !c.dragging {
			c.current = c.sampleLocked()
		}
		return nil
	})
}

func (c *Controller) handleEndedLocked() {
	c.sm.transition(StateEnded)
	if err := c.transport.Pause(); err != nil {
		c.logger.Debug("pause at end", "err", err)
	}
	if err := c.transport.Seek(0); err != nil {
		c.logger.Warn("rewind at end", "err", err)
	}
	c.current = 0
	c.sm.transition(StatePaused)
}

// IsRejected reports whether err came from a refused play request.
func IsRejected(err error) bool {
	return errors.Is(err, ErrPlaybackRejected)
}
