package cache

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

// Tiered checks memory first, then disk, and promotes disk hits into
// memory. The disk tier is optional.
type Tiered struct {
	memory *Memory
	disk   *Disk
	logger *log.Logger
}

// New builds the tiers described by cfg. An empty Dir disables the disk
// tier.
func New(cfg Config, logger *log.Logger) (*Tiered, error) {
	if logger == nil {
		logger = log.Default()
	}
	t := &Tiered{
		memory: NewMemory(cfg.MemoryBytes),
		logger: logger.WithPrefix("cache"),
	}
	if cfg.Dir != "" && cfg.DiskBytes > 0 {
		d, err := NewDisk(cfg.Dir, cfg.DiskBytes, cfg.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("disk cache: %w", err)
		}
		if cfg.MaxAge > 0 {
			if n := d.Prune(cfg.MaxAge); n > 0 {
				t.logger.Debug("pruned expired entries", "count", n)
			}
		}
		t.disk = d
	}
	return t, nil
}

// Get implements Store.
func (t *Tiered) Get(key string) ([]byte, bool) {
	v, _ := t.Lookup(key)
	return v, v != nil
}

// Lookup returns the value and the tier that served it.
func (t *Tiered) Lookup(key string) ([]byte, Tier) {
	if v, ok := t.memory.Get(key); ok {
		return v, TierMemory
	}
	if t.disk == nil {
		return nil, TierNone
	}
	v, ok := t.disk.Get(key)
	if !ok {
		return nil, TierNone
	}
	if err := t.memory.Put(key, v); err != nil && !errors.Is(err, ErrTooLarge) {
		t.logger.Warn("promote failed", "key", key, "err", err)
	}
	return v, TierDisk
}

// Put stores value in every tier that can hold it.
func (t *Tiered) Put(key string, value []byte) error {
	memErr := t.memory.Put(key, value)
	if t.disk == nil {
		return memErr
	}
	if err := t.disk.Put(key, value); err != nil {
		if errors.Is(err, ErrTooLarge) && memErr == nil {
			return nil
		}
		return err
	}
	return nil
}

// Delete implements Store.
func (t *Tiered) Delete(key string) {
	t.memory.Delete(key)
	if t.disk != nil {
		t.disk.Delete(key)
	}
}

// Stats returns the combined hit and miss counts. A disk hit counts once.
func (t *Tiered) Stats() Stats {
	m := t.memory.Stats()
	if t.disk == nil {
		return m
	}
	d := t.disk.Stats()
	return Stats{
		Capacity:  m.Capacity + d.Capacity,
		Size:      m.Size + d.Size,
		Entries:   d.Entries,
		Hits:      m.Hits + d.Hits,
		Misses:    d.Misses,
		Evictions: m.Evictions + d.Evictions,
	}
}

// TierStats returns the counters of each tier separately.
func (t *Tiered) TierStats() (memory, disk Stats) {
	memory = t.memory.Stats()
	if t.disk != nil {
		disk = t.disk.Stats()
	}
	return memory, disk
}

// Close persists the disk index.
func (t *Tiered) Close() error {
	if t.disk == nil {
		return nil
	}
	return t.disk.Close()
}
