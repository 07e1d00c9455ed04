package assemble

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgnsrekt/narrator/internal/wav"
)

// Resource is one assembled, playable WAV stream.
type Resource struct {
	ID         string
	Generation uint64
	Format     wav.Format
	Frames     int
	Included   []string
	// Skipped segments are present as silence of their timeline duration.
	Skipped []*SegmentError

	mu       sync.Mutex
	data     []byte
	released bool
}

// Data returns the encoded WAV bytes, or nil once released.
func (r *Resource) Data() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data
}

// Size returns the encoded size in bytes.
func (r *Resource) Size() int {
	return len(r.Data())
}

// Duration returns the decoded playing time.
func (r *Resource) Duration() time.Duration {
	return wav.FramesDuration(r.Frames, r.Format.SampleRate)
}

// Release drops the encoded bytes. It is safe to call more than once.
func (r *Resource) Release() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = nil
	r.released = true
}

// Released reports whether Release has been called.
func (r *Resource) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

// NewResource wraps already encoded WAV bytes. The header is trusted for
// format and length.
func NewResource(data []byte) (*Resource, error) {
	h, err := wav.ParseHeader(data)
	if err != nil {
		return nil, err
	}
	return &Resource{
		ID:     uuid.NewString(),
		Format: h.Format,
		Frames: h.Frames(),
		data:   data,
	}, nil
}
