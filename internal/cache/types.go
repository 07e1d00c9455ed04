package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrTooLarge is returned when a value exceeds a tier's capacity.
var ErrTooLarge = errors.New("value too large for cache")

// Tier identifies where a value was found.
type Tier int

const (
	TierNone Tier = iota
	TierMemory
	TierDisk
)

func (t Tier) String() string {
	switch t {
	case TierMemory:
		return "memory"
	case TierDisk:
		return "disk"
	default:
		return "none"
	}
}

// Stats holds counters for one tier.
type Stats struct {
	Capacity  int64
	Size      int64
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// Store is a byte cache keyed by string.
type Store interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Delete(key string)
	Stats() Stats
}

// Config sizes the two tiers.
type Config struct {
	MemoryBytes      int64
	DiskBytes        int64
	Dir              string
	CompressionLevel int
	MaxAge           time.Duration
}

// DefaultConfig returns 64MB of memory and 512MB of disk. Dir must still be
// set to enable the disk tier.
func DefaultConfig() Config {
	return Config{
		MemoryBytes:      64 << 20,
		DiskBytes:        512 << 20,
		CompressionLevel: 3,
		MaxAge:           7 * 24 * time.Hour,
	}
}

// Key derives a cache key for segment audio from its resolved location and
// any validators (modification time, size, etag) that change with content.
func Key(location string, validators ...any) string {
	h := sha256.New()
	fmt.Fprint(h, location)
	for _, v := range validators {
		fmt.Fprintf(h, "|%v", v)
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}
