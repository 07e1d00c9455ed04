package wav

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"
)

func sine(format Format, frames int, freq float64) *Buffer {
	b := &Buffer{Format: format, Samples: make([][2]float64, frames)}
	for i := range b.Samples {
		v := 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(format.SampleRate))
		b.Samples[i] = [2]float64{v, v}
	}
	return b
}

func TestEncodeHeader(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		frames int
	}{
		{"mono", Format{SampleRate: 22050, Channels: 1}, 100},
		{"stereo", Format{SampleRate: 44100, Channels: 2}, 37},
		{"empty", Format{SampleRate: 8000, Channels: 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(sine(tt.format, tt.frames, 440))
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			dataSize := tt.frames * tt.format.Channels * 2
			if len(data) != HeaderSize+dataSize {
				t.Fatalf("len = %d, want %d", len(data), HeaderSize+dataSize)
			}
			le := binary.LittleEndian
			checks := []struct {
				field string
				got   uint32
				want  uint32
			}{
				{"riff size", le.Uint32(data[4:8]), uint32(36 + dataSize)},
				{"fmt size", le.Uint32(data[16:20]), 16},
				{"audio format", uint32(le.Uint16(data[20:22])), 1},
				{"channels", uint32(le.Uint16(data[22:24])), uint32(tt.format.Channels)},
				{"sample rate", le.Uint32(data[24:28]), uint32(tt.format.SampleRate)},
				{"byte rate", le.Uint32(data[28:32]), uint32(tt.format.SampleRate * tt.format.Channels * 2)},
				{"block align", uint32(le.Uint16(data[32:34])), uint32(tt.format.Channels * 2)},
				{"bits", uint32(le.Uint16(data[34:36])), 16},
				{"data size", le.Uint32(data[40:44]), uint32(dataSize)},
			}
			for _, c := range checks {
				if c.got != c.want {
					t.Errorf("%s = %d, want %d", c.field, c.got, c.want)
				}
			}
			for _, id := range []struct {
				off int
				tag string
			}{{0, "RIFF"}, {8, "WAVE"}, {12, "fmt "}, {36, "data"}} {
				if got := string(data[id.off : id.off+4]); got != id.tag {
					t.Errorf("chunk at %d = %q, want %q", id.off, got, id.tag)
				}
			}

			h, err := ParseHeader(data)
			if err != nil {
				t.Fatalf("ParseHeader: %v", err)
			}
			if h.Format != tt.format || h.Frames() != tt.frames {
				t.Errorf("ParseHeader = %+v, frames %d", h, h.Frames())
			}
		})
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		in   float64
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32768},
		{2.5, 32767},
		{-7, -32768},
		{0.5, 16384},
		{0.25, 8192},
		{-0.5, -16384},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := Quantize(tt.in); got != tt.want {
			t.Errorf("Quantize(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEncodeInterleaves(t *testing.T) {
	b := &Buffer{
		Format:  Format{SampleRate: 8000, Channels: 2},
		Samples: [][2]float64{{1, -1}, {0, 0.5}},
	}
	data, err := Encode(b)
	if err != nil {
		t.Fatal(err)
	}
	le := binary.LittleEndian
	want := []int16{32767, -32768, 0, 16384}
	for i, w := range want {
		got := int16(le.Uint16(data[HeaderSize+2*i:]))
		if got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func TestEncodeRejectsInvalidFormat(t *testing.T) {
	for _, f := range []Format{{0, 1}, {8000, 0}, {8000, 3}} {
		if _, err := Encode(&Buffer{Format: f}); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("Encode(%v) err = %v, want ErrInvalidFormat", f, err)
		}
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	for _, format := range []Format{{16000, 1}, {22050, 2}} {
		t.Run(format.String(), func(t *testing.T) {
			src := sine(format, 1600, 300)
			data, err := Encode(src)
			if err != nil {
				t.Fatal(err)
			}
			got, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got.Format != format {
				t.Errorf("format = %v, want %v", got.Format, format)
			}
			if got.Frames() != src.Frames() {
				t.Fatalf("frames = %d, want %d", got.Frames(), src.Frames())
			}
			for i := range src.Samples {
				if d := math.Abs(got.Samples[i][0] - src.Samples[i][0]); d > 1e-3 {
					t.Fatalf("frame %d = %v, want %v", i, got.Samples[i][0], src.Samples[i][0])
				}
			}
		})
	}
}

func TestDecodeFullScale(t *testing.T) {
	src := &Buffer{
		Format:  Format{SampleRate: 8000, Channels: 1},
		Samples: [][2]float64{{-1, -1}, {-0.5, -0.5}, {0.25, 0.25}, {0.5, 0.5}, {0, 0}},
	}
	data, err := Encode(src)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i, f := range src.Samples {
		if d := math.Abs(got.Samples[i][0] - f[0]); d > 1e-9 {
			t.Errorf("frame %d = %v, want %v", i, got.Samples[i][0], f[0])
		}
	}
}

func TestDecode24BitFullScale(t *testing.T) {
	pcm := []byte{0x00, 0x00, 0x40, 0x00, 0x00, 0xC0}
	le := binary.LittleEndian
	data := make([]byte, 44, 44+len(pcm))
	copy(data[0:], "RIFF")
	le.PutUint32(data[4:], uint32(36+len(pcm)))
	copy(data[8:], "WAVEfmt ")
	le.PutUint32(data[16:], 16)
	le.PutUint16(data[20:], 1)
	le.PutUint16(data[22:], 1)
	le.PutUint32(data[24:], 8000)
	le.PutUint32(data[28:], 8000*3)
	le.PutUint16(data[32:], 3)
	le.PutUint16(data[34:], 24)
	copy(data[36:], "data")
	le.PutUint32(data[40:], uint32(len(pcm)))
	data = append(data, pcm...)

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []float64{0.5, -0.5}
	if got.Frames() != len(want) {
		t.Fatalf("frames = %d, want %d", got.Frames(), len(want))
	}
	for i, w := range want {
		if d := math.Abs(got.Samples[i][0] - w); d > 1e-6 {
			t.Errorf("frame %d = %v, want %v", i, got.Samples[i][0], w)
		}
	}
}

func TestReencodeIsLossless(t *testing.T) {
	for _, format := range []Format{{16000, 1}, {22050, 2}} {
		t.Run(format.String(), func(t *testing.T) {
			first, err := Encode(sine(format, 800, 440))
			if err != nil {
				t.Fatal(err)
			}
			data := first
			for round := range 3 {
				buf, err := Decode(data)
				if err != nil {
					t.Fatalf("round %d decode: %v", round, err)
				}
				if data, err = Encode(buf); err != nil {
					t.Fatalf("round %d encode: %v", round, err)
				}
				if string(data) != string(first) {
					t.Fatalf("round %d changed the encoded bytes", round)
				}
			}
		})
	}
}

func TestDecodeUnsupported(t *testing.T) {
	tests := map[string][]byte{
		"empty":   nil,
		"text":    []byte("hello world, not audio"),
		"ogg":     []byte("OggS\x00\x02\x00\x00"),
		"riff no": []byte("RIFF\x00\x00\x00\x00AVI "),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(data); !errors.Is(err, ErrUnsupported) {
				t.Errorf("err = %v, want ErrUnsupported", err)
			}
		})
	}
}

func TestDecodeTruncatedWAV(t *testing.T) {
	data := []byte("RIFF\x24\x00\x00\x00WAVEfmt ")
	if _, err := Decode(data); !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestConcat(t *testing.T) {
	f := Format{SampleRate: 8000, Channels: 1}
	a := &Buffer{Format: f, Samples: [][2]float64{{0.1, 0.1}, {0.2, 0.2}}}
	b := &Buffer{Format: f, Samples: [][2]float64{{0.3, 0.3}}}
	out, err := Concat([]*Buffer{a, b})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0.1, 0.2, 0.3}
	if out.Frames() != len(want) {
		t.Fatalf("frames = %d", out.Frames())
	}
	for i, w := range want {
		if out.Samples[i][0] != w {
			t.Errorf("frame %d = %v, want %v", i, out.Samples[i][0], w)
		}
	}

	c := &Buffer{Format: Format{SampleRate: 16000, Channels: 1}}
	if _, err := Concat([]*Buffer{a, c}); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("mismatch err = %v", err)
	}
}

func TestResampleLength(t *testing.T) {
	tests := []struct {
		from, to, frames, want int
	}{
		{8000, 16000, 800, 1600},
		{44100, 22050, 4410, 2205},
		{24000, 44100, 2400, 4410},
		{16000, 8000, 0, 0},
	}
	for _, tt := range tests {
		src := sine(Format{SampleRate: tt.from, Channels: 1}, tt.frames, 200)
		got, err := Resample(src, tt.to)
		if err != nil {
			t.Fatalf("Resample(%d->%d): %v", tt.from, tt.to, err)
		}
		if got.Frames() != tt.want || got.Format.SampleRate != tt.to {
			t.Errorf("Resample(%d->%d) = %d frames at %d, want %d", tt.from, tt.to, got.Frames(), got.Format.SampleRate, tt.want)
		}
		if d := got.Duration() - src.Duration(); d > time.Millisecond || d < -time.Millisecond {
			t.Errorf("duration drift %v", d)
		}
	}
}

func TestRemix(t *testing.T) {
	stereo := &Buffer{Format: Format{SampleRate: 8000, Channels: 2}, Samples: [][2]float64{{1, 0}}}
	mono := Remix(stereo, 1)
	if mono.Format.Channels != 1 || mono.Samples[0] != [2]float64{0.5, 0.5} {
		t.Errorf("downmix = %+v", mono)
	}
	up := Remix(&Buffer{Format: Format{SampleRate: 8000, Channels: 1}, Samples: [][2]float64{{0.25, 0.9}}}, 2)
	if up.Samples[0] != [2]float64{0.25, 0.25} {
		t.Errorf("upmix = %v", up.Samples[0])
	}
}

func TestNormalize(t *testing.T) {
	src := sine(Format{SampleRate: 22050, Channels: 2}, 2205, 100)
	target := Format{SampleRate: 44100, Channels: 1}
	out, err := Normalize(src, target)
	if err != nil {
		t.Fatal(err)
	}
	if out.Format != target || out.Frames() != 4410 {
		t.Errorf("Normalize = %v, %d frames", out.Format, out.Frames())
	}
	same, _ := Normalize(out, target)
	if same != out {
		t.Error("matching buffer should be returned unchanged")
	}
}
