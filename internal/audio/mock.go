package audio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/narrator/internal/wav"
)

// MockCallbacks are hooks fired by the mock transport.
type MockCallbacks struct {
	OnLoad  func(data []byte)
	OnPlay  func()
	OnPause func()
	OnSeek  func(pos time.Duration)
}

// MockOptions configures a Mock.
type MockOptions struct {
	// ReportedDuration overrides the duration derived from the WAV header,
	// simulating a decoder that disagrees with the timestamps.
	ReportedDuration time.Duration
	// PlayErr is returned by Play, simulating a refused start.
	PlayErr error
	// LoadErr is returned by Load.
	LoadErr error
	// Speed multiplies simulated playback speed. Zero means 1.
	Speed float64
	// Now replaces the wall clock.
	Now func() time.Time
	// Callbacks are invoked after each operation.
	Callbacks MockCallbacks
}

// Mock is a Transport that advances position on the clock without any
// audio device.
type Mock struct {
	mu        sync.Mutex
	opts      MockOptions
	loaded    bool
	duration  time.Duration
	playing   bool
	base      time.Duration
	startedAt time.Time
	rate      float64
	closed    bool

	playCount  atomic.Int64
	pauseCount atomic.Int64
	seekCount  atomic.Int64
	lastSeek   atomic.Int64
}

// NewMock returns a mock transport.
func NewMock(opts MockOptions) *Mock {
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Mock{opts: opts, rate: 1}
}

// Load implements playback.Transport.
func (m *Mock) Load(_ context.Context, data []byte) (time.Duration, error) {
	if m.opts.LoadErr != nil {
		return 0, m.opts.LoadErr
	}
	h, err := wav.ParseHeader(data)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	m.loaded = true
	m.duration = h.Duration()
	if m.opts.ReportedDuration > 0 {
		m.duration = m.opts.ReportedDuration
	}
	m.playing = false
	m.base = 0
	d := m.duration
	m.mu.Unlock()

	if m.opts.Callbacks.OnLoad != nil {
		m.opts.Callbacks.OnLoad(data)
	}
	return d, nil
}

// Play implements playback.Transport.
func (m *Mock) Play() error {
	m.mu.Lock()
	if !m.loaded {
		m.mu.Unlock()
		return errors.New("nothing loaded")
	}
	if m.opts.PlayErr != nil {
		m.mu.Unlock()
		return m.opts.PlayErr
	}
	if !m.playing {
		m.playing = true
		m.startedAt = m.opts.Now()
	}
	m.mu.Unlock()

	m.playCount.Add(1)
	if m.opts.Callbacks.OnPlay != nil {
		m.opts.Callbacks.OnPlay()
	}
	return nil
}

// Pause implements playback.Transport.
func (m *Mock) Pause() error {
	m.mu.Lock()
	if m.playing {
		m.base = m.positionLocked()
		m.playing = false
	}
	m.mu.Unlock()

	m.pauseCount.Add(1)
	if m.opts.Callbacks.OnPause != nil {
		m.opts.Callbacks.OnPause()
	}
	return nil
}

// Seek implements playback.Transport.
func (m *Mock) Seek(pos time.Duration) error {
	m.SetPosition(pos)
	m.seekCount.Add(1)
	m.lastSeek.Store(int64(pos))
	if m.opts.Callbacks.OnSeek != nil {
		m.opts.Callbacks.OnSeek(pos)
	}
	return nil
}

// SetPosition moves the simulated position without counting as a seek.
func (m *Mock) SetPosition(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.base = max(0, min(pos, m.duration))
	m.startedAt = m.opts.Now()
}

// Position implements playback.Transport.
func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positionLocked()
}

func (m *Mock) positionLocked() time.Duration {
	if !m.playing {
		return m.base
	}
	elapsed := m.opts.Now().Sub(m.startedAt)
	pos := m.base + time.Duration(float64(elapsed)*m.rate*m.opts.Speed)
	return min(pos, m.duration)
}

// SetRate implements playback.Transport.
func (m *Mock) SetRate(rate float64) error {
	if rate <= 0 {
		return errors.New("rate must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playing {
		m.base = m.positionLocked()
		m.startedAt = m.opts.Now()
	}
	m.rate = rate
	return nil
}

// Rate returns the current rate.
func (m *Mock) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate
}

// Ended implements playback.Transport.
func (m *Mock) Ended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing && m.positionLocked() >= m.duration
}

// IsPlaying reports whether Play was called without a later Pause.
func (m *Mock) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Duration returns the reported duration of the loaded stream.
func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

// Close implements playback.Transport.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.playing = false
	m.loaded = false
	return nil
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// LastSeek returns the position passed to the most recent Seek.
func (m *Mock) LastSeek() time.Duration { return time.Duration(m.lastSeek.Load()) }

// SeekCount returns the number of Seek calls.
func (m *Mock) SeekCount() int64 { return m.seekCount.Load() }

// PlayCount returns the number of successful Play calls.
func (m *Mock) PlayCount() int64 { return m.playCount.Load() }

// PauseCount returns the number of Pause calls.
func (m *Mock) PauseCount() int64 { return m.pauseCount.Load() }
