package assemble

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dgnsrekt/narrator/internal/timeline"
	"github.com/dgnsrekt/narrator/internal/wav"
)

// MismatchPolicy decides what happens when segments decode to different
// formats.
type MismatchPolicy string

const (
	// PolicyResample converts every segment to the target format.
	PolicyResample MismatchPolicy = "resample"
	// PolicyReject fails the run with a FormatMismatchError.
	PolicyReject MismatchPolicy = "reject"
)

const (
	DefaultConcurrency    = 4
	DefaultSegmentTimeout = 30 * time.Second
)

// Options tunes an Assembler. A zero Format adopts the format of the first
// playable segment.
type Options struct {
	Format         wav.Format
	Concurrency    int
	SegmentTimeout time.Duration
	OnMismatch     MismatchPolicy
}

// Assembler builds Resources from segments.
type Assembler struct {
	resolver Resolver
	fetcher  Fetcher
	opts     Options
	logger   *log.Logger
	gen      atomic.Uint64
}

// New returns an Assembler.
func New(resolver Resolver, fetcher Fetcher, opts Options, logger *log.Logger) *Assembler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.SegmentTimeout <= 0 {
		opts.SegmentTimeout = DefaultSegmentTimeout
	}
	if opts.OnMismatch == "" {
		opts.OnMismatch = PolicyResample
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Assembler{
		resolver: resolver,
		fetcher:  fetcher,
		opts:     opts,
		logger:   logger.WithPrefix("assemble"),
	}
}

// Generation returns the generation of the most recently started run.
func (a *Assembler) Generation() uint64 {
	return a.gen.Load()
}

// IsCurrent reports whether gen belongs to the most recently started run.
func (a *Assembler) IsCurrent(gen uint64) bool {
	return a.gen.Load() == gen
}

// Run is an assembly in progress.
type Run struct {
	Generation uint64

	done chan struct{}
	res  *Resource
	err  error
}

// Done is closed when the run has finished.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run finishes.
func (r *Run) Wait() (*Resource, error) {
	<-r.done
	return r.res, r.err
}

// Start begins assembling segments in the background. The new generation is
// claimed before Start returns, so any earlier run still in flight is stale
// from this point on.
func (a *Assembler) Start(ctx context.Context, segments []timeline.Segment) *Run {
	gen := a.gen.Add(1)
	run := &Run{Generation: gen, done: make(chan struct{})}
	go func() {
		defer close(run.done)
		res, err := a.assemble(ctx, gen, segments)
		if !a.IsCurrent(gen) {
			res.Release()
			a.logger.Debug("discarding stale run", "generation", gen)
			res, err = nil, ErrStale
		}
		run.res, run.err = res, err
	}()
	return run
}

// Assemble runs an assembly to completion.
func (a *Assembler) Assemble(ctx context.Context, segments []timeline.Segment) (*Resource, error) {
	return a.Start(ctx, segments).Wait()
}

type decoded struct {
	segment timeline.Segment
	buf     *wav.Buffer
	err     error
}

func (a *Assembler) assemble(ctx context.Context, gen uint64, segments []timeline.Segment) (*Resource, error) {
	started := time.Now()
	ordered := make([]timeline.Segment, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	results := make([]decoded, len(ordered))
	var g errgroup.Group
	g.SetLimit(a.opts.Concurrency)
	for i, s := range ordered {
		g.Go(func() error {
			buf, err := a.load(ctx, s)
			results[i] = decoded{segment: s, buf: buf, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		bufs     []*wav.Buffer
		included []string
		skipped  []*SegmentError
	)
	for _, r := range results {
		if r.err != nil {
			se := &SegmentError{SegmentID: r.segment.ID, Err: r.err}
			a.logger.Warn("skipping segment", "segment", r.segment.ID, "err", r.err)
			skipped = append(skipped, se)
			continue
		}
		bufs = append(bufs, r.buf)
		included = append(included, r.segment.ID)
	}
	if len(bufs) == 0 {
		return nil, fmt.Errorf("%w: %d of %d segments failed", ErrNoPlayableAudio, len(skipped), len(ordered))
	}

	bufs, err := a.normalize(bufs, included)
	if err != nil {
		return nil, err
	}

	// skipped segments keep their place on the timeline as silence so the
	// audio after them stays aligned with its words
	parts := make([]*wav.Buffer, 0, len(results))
	next := 0
	for _, r := range results {
		if r.err != nil {
			parts = append(parts, wav.Silence(bufs[0].Format, r.segment.SpokenDuration()))
			continue
		}
		parts = append(parts, bufs[next])
		next++
	}
	joined, err := wav.Concat(parts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoPlayableAudio, err)
	}
	data, err := wav.Encode(joined)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoPlayableAudio, err)
	}

	res := &Resource{
		ID:         uuid.NewString(),
		Generation: gen,
		Format:     joined.Format,
		Frames:     joined.Frames(),
		Included:   included,
		Skipped:    skipped,
		data:       data,
	}
	a.logger.Debug("assembled",
		"generation", gen,
		"segments", len(included),
		"skipped", len(skipped),
		"duration", res.Duration(),
		"took", time.Since(started))
	return res, nil
}

func (a *Assembler) load(ctx context.Context, s timeline.Segment) (*wav.Buffer, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.SegmentTimeout)
	defer cancel()

	u, err := a.resolver.Resolve(s.AudioRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	data, err := a.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	buf, err := wav.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	return buf, nil
}

func (a *Assembler) normalize(bufs []*wav.Buffer, ids []string) ([]*wav.Buffer, error) {
	target := a.opts.Format
	if target == (wav.Format{}) {
		target = bufs[0].Format
	}
	out := make([]*wav.Buffer, len(bufs))
	for i, b := range bufs {
		if b.Format == target {
			out[i] = b
			continue
		}
		if a.opts.OnMismatch == PolicyReject {
			return nil, &FormatMismatchError{SegmentID: ids[i], Want: target, Got: b.Format}
		}
		n, err := wav.Normalize(b, target)
		if err != nil {
			if errors.Is(err, wav.ErrInvalidFormat) {
				return nil, &FormatMismatchError{SegmentID: ids[i], Want: target, Got: b.Format}
			}
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
