package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"
)

// pcmStream reads 16-bit little-endian PCM at a variable rate, linearly
// interpolating between frames. Seek offsets are in source bytes.
type pcmStream struct {
	mu       sync.Mutex
	pcm      []byte
	channels int
	frames   int
	pos      float64
	rate     float64
}

func newPCMStream(pcm []byte, channels int) *pcmStream {
	return &pcmStream{
		pcm:      pcm,
		channels: channels,
		frames:   len(pcm) / (channels * 2),
		rate:     1,
	}
}

func (s *pcmStream) blockAlign() int { return s.channels * 2 }

func (s *pcmStream) sample(frame, ch int) float64 {
	off := (frame*s.channels + ch) * 2
	return float64(int16(binary.LittleEndian.Uint16(s.pcm[off:])))
}

// Read implements io.Reader.
func (s *pcmStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	block := s.blockAlign()
	n := 0
	for n+block <= len(p) {
		i := int(s.pos)
		if i >= s.frames {
			break
		}
		frac := s.pos - float64(i)
		for c := 0; c < s.channels; c++ {
			v := s.sample(i, c)
			if frac > 0 && i+1 < s.frames {
				v += (s.sample(i+1, c) - v) * frac
			}
			binary.LittleEndian.PutUint16(p[n+2*c:], uint16(int16(math.Round(v))))
		}
		n += block
		s.pos += s.rate
	}
	if n == 0 && int(s.pos) >= s.frames {
		return 0, io.EOF
	}
	return n, nil
}

// Seek implements io.Seeker.
func (s *pcmStream) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	block := int64(s.blockAlign())
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(s.pos)*block + offset
	case io.SeekEnd:
		abs = int64(s.frames)*block + offset
	default:
		return 0, errors.New("pcm stream: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("pcm stream: negative position")
	}
	frame := min(abs/block, int64(s.frames))
	s.pos = float64(frame)
	return frame * block, nil
}

func (s *pcmStream) setRate(r float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = r
}

// position returns the read position in frames and the current rate.
func (s *pcmStream) position() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos, s.rate
}

func (s *pcmStream) atEnd() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.pos) >= s.frames
}
