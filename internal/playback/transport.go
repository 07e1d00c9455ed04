package playback

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPlaybackRejected is returned when the transport refuses to start.
	// The controller stays paused and the caller may retry.
	ErrPlaybackRejected = errors.New("playback rejected")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("controller closed")
)

// Transport plays one WAV stream at a time. Positions are transport time,
// the time axis of the decoded audio.
type Transport interface {
	// Load replaces the current stream and returns its decoded duration.
	Load(ctx context.Context, wav []byte) (time.Duration, error)
	Play() error
	Pause() error
	Seek(pos time.Duration) error
	Position() time.Duration
	// SetRate changes wall-clock speed only.
	SetRate(rate float64) error
	// Ended reports whether the stream ran out while playing.
	Ended() bool
	Close() error
}

// Rect is the horizontal extent of a scrub surface, in any unit shared with
// the pointer position.
type Rect struct {
	X     float64
	Width float64
}

// Fraction maps x into [0, 1] across the rect.
func (r Rect) Fraction(x float64) float64 {
	if r.Width <= 0 {
		return 0
	}
	f := (x - r.X) / r.Width
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
