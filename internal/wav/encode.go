package wav

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// HeaderSize is the size of the canonical RIFF/WAVE header written by
// Encode.
const HeaderSize = 44

const bitsPerSample = 16

// pcm16Scale maps full-scale float samples onto int16.
const pcm16Scale = 1 << 15

// Header is the parsed form of a canonical 44-byte header.
type Header struct {
	Format     Format
	ByteRate   int
	BlockAlign int
	DataSize   int
}

// Frames returns the number of frames described by the header.
func (h Header) Frames() int {
	if h.BlockAlign == 0 {
		return 0
	}
	return h.DataSize / h.BlockAlign
}

// Duration returns the playing time described by the header.
func (h Header) Duration() time.Duration {
	return FramesDuration(h.Frames(), h.Format.SampleRate)
}

// Encode serializes b as a 16-bit little-endian PCM WAV stream.
func Encode(b *Buffer) ([]byte, error) {
	if err := b.Format.Validate(); err != nil {
		return nil, err
	}
	ch := b.Format.Channels
	blockAlign := ch * 2
	dataSize := len(b.Samples) * blockAlign

	out := make([]byte, HeaderSize+dataSize)
	le := binary.LittleEndian
	copy(out[0:4], "RIFF")
	le.PutUint32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	le.PutUint32(out[16:20], 16)
	le.PutUint16(out[20:22], 1)
	le.PutUint16(out[22:24], uint16(ch))
	le.PutUint32(out[24:28], uint32(b.Format.SampleRate))
	le.PutUint32(out[28:32], uint32(b.Format.SampleRate*blockAlign))
	le.PutUint16(out[32:34], uint16(blockAlign))
	le.PutUint16(out[34:36], bitsPerSample)
	copy(out[36:40], "data")
	le.PutUint32(out[40:44], uint32(dataSize))

	p := out[HeaderSize:]
	for _, f := range b.Samples {
		for c := 0; c < ch; c++ {
			le.PutUint16(p, uint16(Quantize(f[c])))
			p = p[2:]
		}
	}
	return out, nil
}

// Quantize converts v to a signed 16-bit sample on the same 1/32768 scale
// Decode uses, so decoded PCM16 re-encodes to identical bytes. Values
// outside the range clip.
func Quantize(v float64) int16 {
	if math.IsNaN(v) {
		return 0
	}
	return int16(max(math.MinInt16, min(math.MaxInt16, math.Round(v*pcm16Scale))))
}

// ParseHeader reads the header written by Encode.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrInvalidHeader, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" ||
		string(data[12:16]) != "fmt " || string(data[36:40]) != "data" {
		return Header{}, fmt.Errorf("%w: missing chunk ids", ErrInvalidHeader)
	}
	le := binary.LittleEndian
	if le.Uint16(data[20:22]) != 1 || le.Uint16(data[34:36]) != bitsPerSample {
		return Header{}, fmt.Errorf("%w: not 16-bit PCM", ErrInvalidHeader)
	}
	h := Header{
		Format: Format{
			SampleRate: int(le.Uint32(data[24:28])),
			Channels:   int(le.Uint16(data[22:24])),
		},
		ByteRate:   int(le.Uint32(data[28:32])),
		BlockAlign: int(le.Uint16(data[32:34])),
		DataSize:   int(le.Uint32(data[40:44])),
	}
	if err := h.Format.Validate(); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	if h.DataSize > len(data)-HeaderSize {
		h.DataSize = len(data) - HeaderSize
	}
	return h, nil
}
