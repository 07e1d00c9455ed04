package wav

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	beepwav "github.com/gopxl/beep/wav"
)

const chunkFrames = 4096

type container int

const (
	containerUnknown container = iota
	containerWAV
	containerMP3
)

func sniff(data []byte) container {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return containerWAV
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return containerMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return containerMP3
	}
	return containerUnknown
}

// Decode decodes WAV or MP3 bytes into a Buffer.
func Decode(data []byte) (*Buffer, error) {
	var (
		s      beep.StreamSeekCloser
		format beep.Format
		err    error
	)
	kind := sniff(data)
	switch kind {
	case containerWAV:
		s, format, err = beepwav.Decode(bytes.NewReader(data))
	case containerMP3:
		s, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	default:
		return nil, ErrUnsupported
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer s.Close()

	buf := &Buffer{Format: Format{SampleRate: int(format.SampleRate), Channels: format.NumChannels}}
	if err := buf.Format.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if n := s.Len(); n > 0 {
		buf.Samples = make([][2]float64, 0, n)
	}
	if err := drain(s, &buf.Samples); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if kind == containerWAV {
		if gain, ok := wavGain[format.Precision]; ok {
			rescale(buf.Samples, gain)
		}
	}
	return buf, nil
}

// wavGain corrects beep's WAV decoder, which divides signed samples by
// 2^n-1 instead of 2^(n-1). 8-bit audio is already full scale.
var wavGain = map[int]float64{
	2: float64(1<<16-1) / (1 << 15),
	3: float64(1<<24-1) / (1 << 23),
}

func rescale(samples [][2]float64, gain float64) {
	for i := range samples {
		samples[i][0] *= gain
		samples[i][1] *= gain
	}
}

func drain(s beep.Streamer, dst *[][2]float64) error {
	chunk := make([][2]float64, chunkFrames)
	for {
		n, ok := s.Stream(chunk)
		*dst = append(*dst, chunk[:n]...)
		if !ok {
			break
		}
	}
	return s.Err()
}
