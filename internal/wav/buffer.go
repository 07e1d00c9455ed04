package wav

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrUnsupported is returned for audio bytes that are neither WAV nor MP3.
	ErrUnsupported = errors.New("unsupported audio container")
	// ErrDecode wraps decoder failures.
	ErrDecode = errors.New("audio decode failed")
	// ErrFormatMismatch is returned when buffers of different formats are
	// concatenated.
	ErrFormatMismatch = errors.New("audio format mismatch")
	// ErrInvalidFormat is returned for non-positive rates or channel counts
	// outside 1..2.
	ErrInvalidFormat = errors.New("invalid audio format")
	// ErrInvalidHeader is returned by ParseHeader for malformed headers.
	ErrInvalidHeader = errors.New("invalid wav header")
)

// Format describes decoded audio.
type Format struct {
	SampleRate int
	Channels   int
}

// Validate checks that the format can be encoded.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, f.SampleRate)
	}
	if f.Channels < 1 || f.Channels > 2 {
		return fmt.Errorf("%w: %d channels", ErrInvalidFormat, f.Channels)
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}

// Buffer holds decoded frames. Mono audio carries the same value in both
// slots of a frame.
type Buffer struct {
	Format  Format
	Samples [][2]float64
}

// Frames returns the number of frames in the buffer.
func (b *Buffer) Frames() int {
	if b == nil {
		return 0
	}
	return len(b.Samples)
}

// Duration returns the playing time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil {
		return 0
	}
	return FramesDuration(len(b.Samples), b.Format.SampleRate)
}

// FramesDuration converts a frame count to a duration at the given rate.
func FramesDuration(frames, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

// DurationFrames converts a duration to the nearest whole frame count at
// the given rate.
func DurationFrames(d time.Duration, sampleRate int) int {
	if d <= 0 || sampleRate <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * float64(sampleRate)))
}

// Silence returns d of zero samples in format.
func Silence(format Format, d time.Duration) *Buffer {
	return &Buffer{Format: format, Samples: make([][2]float64, DurationFrames(d, format.SampleRate))}
}

// Concat joins buffers of identical format in order. The output is
// allocated once at the summed length.
func Concat(bufs []*Buffer) (*Buffer, error) {
	if len(bufs) == 0 {
		return nil, errors.New("nothing to concatenate")
	}
	format := bufs[0].Format
	total := 0
	for i, b := range bufs {
		if b.Format != format {
			return nil, fmt.Errorf("%w: buffer %d is %s, want %s", ErrFormatMismatch, i, b.Format, format)
		}
		total += len(b.Samples)
	}

	out := &Buffer{Format: format, Samples: make([][2]float64, total)}
	offset := 0
	for _, b := range bufs {
		offset += copy(out.Samples[offset:], b.Samples)
	}
	return out, nil
}
