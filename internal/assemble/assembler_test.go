package assemble

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/internal/timeline"
	"github.com/dgnsrekt/narrator/internal/wav"
)

var quiet = log.New(io.Discard)

// tone encodes frames of a constant value.
func tone(t *testing.T, format wav.Format, frames int, v float64) []byte {
	t.Helper()
	b := &wav.Buffer{Format: format, Samples: make([][2]float64, frames)}
	for i := range b.Samples {
		b.Samples[i] = [2]float64{v, v}
	}
	data, err := wav.Encode(b)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

var memResolver = ResolverFunc(func(ref string) (*url.URL, error) {
	return &url.URL{Scheme: "mem", Opaque: ref}, nil
})

type memFetcher struct {
	blobs map[string][]byte
	delay map[string]time.Duration
	fail  map[string]error
	calls atomic.Int32
}

func (m *memFetcher) Fetch(ctx context.Context, u *url.URL) ([]byte, error) {
	m.calls.Add(1)
	ref := u.Opaque
	if d := m.delay[ref]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := m.fail[ref]; err != nil {
		return nil, err
	}
	data, ok := m.blobs[ref]
	if !ok {
		return nil, fmt.Errorf("no blob %q", ref)
	}
	return data, nil
}

func seg(id string, order int) timeline.Segment {
	return timeline.Segment{ID: id, Order: order, AudioRef: id}
}

var mono8k = wav.Format{SampleRate: 8000, Channels: 1}

func decodeResource(t *testing.T, res *Resource) *wav.Buffer {
	t.Helper()
	buf, err := wav.Decode(res.Data())
	if err != nil {
		t.Fatalf("decode resource: %v", err)
	}
	return buf
}

func TestAssembleOrdersBySegmentNotCompletion(t *testing.T) {
	f := &memFetcher{
		blobs: map[string][]byte{
			"a": tone(t, mono8k, 800, 0.25),
			"b": tone(t, mono8k, 400, 0.5),
			"c": tone(t, mono8k, 200, -0.5),
		},
		delay: map[string]time.Duration{"a": 30 * time.Millisecond, "b": 15 * time.Millisecond},
	}
	a := New(memResolver, f, Options{}, quiet)

	res, err := a.Assemble(context.Background(), []timeline.Segment{seg("c", 3), seg("a", 1), seg("b", 2)})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if got := fmt.Sprint(res.Included); got != "[a b c]" {
		t.Errorf("Included = %s", got)
	}
	if res.Frames != 1400 || res.Format != mono8k {
		t.Errorf("frames %d format %v", res.Frames, res.Format)
	}
	if res.Duration() != 175*time.Millisecond {
		t.Errorf("duration = %v", res.Duration())
	}
	buf := decodeResource(t, res)
	checks := []struct {
		frame int
		want  float64
	}{{0, 0.25}, {799, 0.25}, {800, 0.5}, {1199, 0.5}, {1200, -0.5}, {1399, -0.5}}
	for _, c := range checks {
		if d := buf.Samples[c.frame][0] - c.want; d > 1e-3 || d < -1e-3 {
			t.Errorf("frame %d = %v, want %v", c.frame, buf.Samples[c.frame][0], c.want)
		}
	}
	if res.ID == "" || res.Generation != 1 {
		t.Errorf("id %q generation %d", res.ID, res.Generation)
	}
}

func TestAssembleSkipsFailedSegments(t *testing.T) {
	f := &memFetcher{
		blobs: map[string][]byte{
			"ok":      tone(t, mono8k, 80, 0.1),
			"garbage": []byte("definitely not audio"),
		},
		fail: map[string]error{"down": errors.New("connection refused")},
	}
	a := New(memResolver, f, Options{}, quiet)
	res, err := a.Assemble(context.Background(), []timeline.Segment{seg("down", 1), seg("ok", 2), seg("garbage", 3)})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(res.Included) != 1 || res.Included[0] != "ok" {
		t.Errorf("Included = %v", res.Included)
	}
	if len(res.Skipped) != 2 {
		t.Fatalf("Skipped = %v", res.Skipped)
	}
	if res.Skipped[0].SegmentID != "down" || !errors.Is(res.Skipped[0], ErrFetchFailed) {
		t.Errorf("first skip = %v", res.Skipped[0])
	}
	if res.Skipped[1].SegmentID != "garbage" || !errors.Is(res.Skipped[1], ErrDecodeFailed) {
		t.Errorf("second skip = %v", res.Skipped[1])
	}
}

func TestSkippedSegmentBecomesSilence(t *testing.T) {
	f := &memFetcher{
		blobs: map[string][]byte{
			"a": tone(t, mono8k, 800, 0.5),
			"c": tone(t, mono8k, 400, -0.5),
		},
		fail: map[string]error{"b": errors.New("connection refused")},
	}
	gap := seg("b", 2)
	gap.NominalDuration = 50 * time.Millisecond
	a := New(memResolver, f, Options{}, quiet)
	res, err := a.Assemble(context.Background(), []timeline.Segment{seg("a", 1), gap, seg("c", 3)})
	if err != nil {
		t.Fatal(err)
	}
	if res.Frames != 800+400+400 {
		t.Fatalf("frames = %d, want 1600", res.Frames)
	}
	buf := decodeResource(t, res)
	checks := []struct {
		frame int
		want  float64
	}{{799, 0.5}, {800, 0}, {1199, 0}, {1200, -0.5}}
	for _, c := range checks {
		if d := buf.Samples[c.frame][0] - c.want; d > 1e-3 || d < -1e-3 {
			t.Errorf("frame %d = %v, want %v", c.frame, buf.Samples[c.frame][0], c.want)
		}
	}
}

func TestAssembleAllFail(t *testing.T) {
	f := &memFetcher{fail: map[string]error{"a": errors.New("boom"), "b": errors.New("boom")}}
	a := New(memResolver, f, Options{}, quiet)
	res, err := a.Assemble(context.Background(), []timeline.Segment{seg("a", 1), seg("b", 2)})
	if !errors.Is(err, ErrNoPlayableAudio) || res != nil {
		t.Fatalf("got %v, %v; want ErrNoPlayableAudio", res, err)
	}
	if _, err := a.Assemble(context.Background(), nil); !errors.Is(err, ErrNoPlayableAudio) {
		t.Errorf("empty input err = %v", err)
	}
}

func TestAssembleFormatMismatch(t *testing.T) {
	f := &memFetcher{blobs: map[string][]byte{
		"a": tone(t, mono8k, 800, 0.2),
		"b": tone(t, wav.Format{SampleRate: 16000, Channels: 2}, 1600, 0.2),
	}}
	segs := []timeline.Segment{seg("a", 1), seg("b", 2)}

	t.Run("reject", func(t *testing.T) {
		a := New(memResolver, f, Options{OnMismatch: PolicyReject}, quiet)
		_, err := a.Assemble(context.Background(), segs)
		var fm *FormatMismatchError
		if !errors.As(err, &fm) {
			t.Fatalf("err = %v, want FormatMismatchError", err)
		}
		if fm.SegmentID != "b" || fm.Want != mono8k {
			t.Errorf("mismatch = %+v", fm)
		}
		if !errors.Is(err, ErrNoPlayableAudio) || !errors.Is(err, ErrFormatMismatch) {
			t.Error("mismatch should match ErrNoPlayableAudio and ErrFormatMismatch")
		}
	})

	t.Run("resample", func(t *testing.T) {
		target := wav.Format{SampleRate: 22050, Channels: 1}
		a := New(memResolver, f, Options{Format: target}, quiet)
		res, err := a.Assemble(context.Background(), segs)
		if err != nil {
			t.Fatal(err)
		}
		if res.Format != target || res.Frames != 2205+2205 {
			t.Errorf("format %v frames %d", res.Format, res.Frames)
		}
		h, err := wav.ParseHeader(res.Data())
		if err != nil || h.Frames() != res.Frames {
			t.Errorf("header %+v err %v", h, err)
		}
	})
}

func TestStaleRunIsDiscarded(t *testing.T) {
	f := &memFetcher{
		blobs: map[string][]byte{"slow": tone(t, mono8k, 80, 0.1), "fast": tone(t, mono8k, 40, 0.1)},
		delay: map[string]time.Duration{"slow": 50 * time.Millisecond},
	}
	a := New(memResolver, f, Options{}, quiet)

	first := a.Start(context.Background(), []timeline.Segment{seg("slow", 1)})
	second := a.Start(context.Background(), []timeline.Segment{seg("fast", 1)})
	if a.IsCurrent(first.Generation) || !a.IsCurrent(second.Generation) {
		t.Fatal("second run should own the current generation")
	}

	res, err := second.Wait()
	if err != nil || res.Frames != 40 {
		t.Fatalf("second = %v, %v", res, err)
	}
	if res, err := first.Wait(); !errors.Is(err, ErrStale) || res != nil {
		t.Fatalf("first = %v, %v; want ErrStale", res, err)
	}
}

func TestSegmentTimeoutSkips(t *testing.T) {
	f := &memFetcher{
		blobs: map[string][]byte{"stuck": tone(t, mono8k, 8, 0), "ok": tone(t, mono8k, 8, 0)},
		delay: map[string]time.Duration{"stuck": time.Minute},
	}
	a := New(memResolver, f, Options{SegmentTimeout: 20 * time.Millisecond}, quiet)
	res, err := a.Assemble(context.Background(), []timeline.Segment{seg("stuck", 1), seg("ok", 2)})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Skipped) != 1 || !errors.Is(res.Skipped[0], context.DeadlineExceeded) {
		t.Errorf("Skipped = %v", res.Skipped)
	}
}

func TestCanceledContext(t *testing.T) {
	f := &memFetcher{blobs: map[string][]byte{"a": tone(t, mono8k, 8, 0)}}
	a := New(memResolver, f, Options{}, quiet)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Assemble(ctx, []timeline.Segment{seg("a", 1)}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestResourceRelease(t *testing.T) {
	res, err := NewResource(tone(t, mono8k, 8000, 0))
	if err != nil {
		t.Fatal(err)
	}
	if res.Duration() != time.Second || res.Size() != wav.HeaderSize+16000 {
		t.Errorf("duration %v size %d", res.Duration(), res.Size())
	}
	res.Release()
	res.Release()
	if !res.Released() || res.Data() != nil {
		t.Error("Release should drop the bytes")
	}
	var nilRes *Resource
	nilRes.Release()
}
