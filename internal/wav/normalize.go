package wav

import (
	"math"

	"github.com/gopxl/beep"
)

// ResampleQuality is the beep resampler quality used by Normalize.
const ResampleQuality = 4

// sliceStreamer streams a fixed slice of frames.
type sliceStreamer struct {
	samples [][2]float64
	pos     int
}

func (s *sliceStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	n := copy(samples, s.samples[s.pos:])
	s.pos += n
	return n, true
}

func (s *sliceStreamer) Err() error { return nil }

// Normalize converts b to the target format. The buffer is returned as is
// when it already matches.
func Normalize(b *Buffer, target Format) (*Buffer, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	out := b
	if out.Format.SampleRate != target.SampleRate {
		r, err := Resample(out, target.SampleRate)
		if err != nil {
			return nil, err
		}
		out = r
	}
	if out.Format.Channels != target.Channels {
		out = Remix(out, target.Channels)
	}
	return out, nil
}

// Resample converts b to rate. The result holds exactly
// round(frames * rate / oldRate) frames.
func Resample(b *Buffer, rate int) (*Buffer, error) {
	if err := (Format{SampleRate: rate, Channels: b.Format.Channels}).Validate(); err != nil {
		return nil, err
	}
	if err := b.Format.Validate(); err != nil {
		return nil, err
	}
	want := int(math.Round(float64(len(b.Samples)) * float64(rate) / float64(b.Format.SampleRate)))
	out := &Buffer{Format: Format{SampleRate: rate, Channels: b.Format.Channels}}
	if want == 0 {
		return out, nil
	}

	src := &sliceStreamer{samples: b.Samples}
	r := beep.Resample(ResampleQuality, beep.SampleRate(b.Format.SampleRate), beep.SampleRate(rate), src)
	out.Samples = make([][2]float64, 0, want+chunkFrames)
	if err := drain(r, &out.Samples); err != nil {
		return nil, err
	}

	// the resampler may stop a few frames short of the tail
	switch {
	case len(out.Samples) > want:
		out.Samples = out.Samples[:want]
	case len(out.Samples) < want:
		var last [2]float64
		if len(out.Samples) > 0 {
			last = out.Samples[len(out.Samples)-1]
		}
		for len(out.Samples) < want {
			out.Samples = append(out.Samples, last)
		}
	}
	return out, nil
}

// Remix changes the channel count. Down-mixing averages both channels,
// up-mixing duplicates the first.
func Remix(b *Buffer, channels int) *Buffer {
	out := &Buffer{
		Format:  Format{SampleRate: b.Format.SampleRate, Channels: channels},
		Samples: make([][2]float64, len(b.Samples)),
	}
	for i, f := range b.Samples {
		switch {
		case channels == 1 && b.Format.Channels == 2:
			v := (f[0] + f[1]) / 2
			out.Samples[i] = [2]float64{v, v}
		case channels == 2 && b.Format.Channels == 1:
			out.Samples[i] = [2]float64{f[0], f[0]}
		default:
			out.Samples[i] = f
		}
	}
	return out
}
