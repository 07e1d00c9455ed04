package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/dgnsrekt/narrator/internal/wav"
)

// ErrDeviceFormat is returned when a stream does not match the format the
// audio device was opened with.
var ErrDeviceFormat = errors.New("stream format does not match audio device")

// oto allows one context per process.
var (
	deviceOnce   sync.Once
	deviceCtx    *oto.Context
	deviceFormat wav.Format
	deviceErr    error
)

func openDevice(format wav.Format, buffer time.Duration) (*oto.Context, error) {
	deviceOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   buffer,
		})
		if err != nil {
			deviceErr = fmt.Errorf("open audio device: %w", err)
			return
		}
		<-ready
		deviceCtx, deviceFormat = ctx, format
	})
	if deviceErr != nil {
		return nil, deviceErr
	}
	if format != deviceFormat {
		return nil, fmt.Errorf("%w: device is %s, want %s", ErrDeviceFormat, deviceFormat, format)
	}
	return deviceCtx, nil
}

// SpeakerOptions tunes the device buffer and volume.
type SpeakerOptions struct {
	Buffer time.Duration
	Volume float64
}

// Speaker plays WAV streams through the system audio device. Streams must
// already be in the device format; the assembler is configured to produce
// it.
type Speaker struct {
	mu      sync.Mutex
	ctx     *oto.Context
	format  wav.Format
	volume  float64
	player  *oto.Player
	stream  *pcmStream
	playing bool
}

// NewSpeaker opens the audio device at format.
func NewSpeaker(format wav.Format, opts SpeakerOptions) (*Speaker, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 100 * time.Millisecond
	}
	if opts.Volume <= 0 || opts.Volume > 1 {
		opts.Volume = 1
	}
	ctx, err := openDevice(format, opts.Buffer)
	if err != nil {
		return nil, err
	}
	return &Speaker{ctx: ctx, format: format, volume: opts.Volume}, nil
}

// Load implements playback.Transport. The PCM payload is copied so the
// caller may release its buffer.
func (s *Speaker) Load(_ context.Context, data []byte) (time.Duration, error) {
	h, err := wav.ParseHeader(data)
	if err != nil {
		return 0, err
	}
	if h.Format != s.format {
		return 0, fmt.Errorf("%w: stream is %s, device is %s", ErrDeviceFormat, h.Format, s.format)
	}
	pcm := make([]byte, h.DataSize)
	copy(pcm, data[wav.HeaderSize:])

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closePlayer()

	rate := 1.0
	if s.stream != nil {
		_, rate = s.stream.position()
	}
	s.stream = newPCMStream(pcm, h.Format.Channels)
	s.stream.setRate(rate)
	s.player = s.ctx.NewPlayer(s.stream)
	s.player.SetVolume(s.volume)
	return h.Duration(), nil
}

// Play implements playback.Transport.
func (s *Speaker) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return errors.New("nothing loaded")
	}
	s.player.Play()
	s.playing = true
	return nil
}

// Pause implements playback.Transport.
func (s *Speaker) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.Pause()
	}
	s.playing = false
	return nil
}

// Seek implements playback.Transport.
func (s *Speaker) Seek(pos time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return nil
	}
	frame := int64(pos.Seconds() * float64(s.format.SampleRate))
	_, err := s.player.Seek(frame*int64(s.stream.blockAlign()), io.SeekStart)
	return err
}

// Position implements playback.Transport. Audio queued in the device
// buffer has not been heard yet and is subtracted.
func (s *Speaker) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return 0
	}
	buffered := s.player.BufferedSize()
	pos, rate := s.stream.position()
	frames := pos - float64(buffered)/float64(s.stream.blockAlign())*rate
	if frames < 0 {
		frames = 0
	}
	return time.Duration(frames / float64(s.format.SampleRate) * float64(time.Second))
}

// SetRate implements playback.Transport.
func (s *Speaker) SetRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("invalid rate %v", rate)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		s.stream.setRate(rate)
	}
	return nil
}

// Ended implements playback.Transport.
func (s *Speaker) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing && s.player != nil && s.stream.atEnd() && !s.player.IsPlaying()
}

// SetVolume sets the volume in [0, 1].
func (s *Speaker) SetVolume(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("volume must be between 0 and 1, got %v", v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
	if s.player != nil {
		s.player.SetVolume(v)
	}
	return nil
}

// Close implements playback.Transport. The device itself stays open for
// the life of the process.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closePlayer()
}

func (s *Speaker) closePlayer() error {
	s.playing = false
	if s.player == nil {
		return nil
	}
	s.player.Pause()
	err := s.player.Close()
	s.player = nil
	return err
}
