package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	indexFile     = "index.gob"
	compressAbove = 1024
)

// Disk is a persistent tier storing one file per key, zstd-compressed when
// that saves space. An index of entries is kept in the directory and
// rewritten on Close.
type Disk struct {
	mu       sync.Mutex
	dir      string
	capacity int64
	size     int64
	index    map[string]*diskEntry
	stats    Stats

	enc *zstd.Encoder
	dec *zstd.Decoder
}

type diskEntry struct {
	Key        string
	File       string
	Stored     int64
	Compressed bool
	Created    time.Time
	LastAccess time.Time
}

// NewDisk opens (or creates) a disk tier in dir. A compression level of 0
// stores values uncompressed.
func NewDisk(dir string, capacity int64, level int) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	d := &Disk{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
	}
	if level > 0 {
		var err error
		d.enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	d.dec = dec

	// a missing or unreadable index starts the tier empty
	if err := d.loadIndex(); err != nil {
		d.index = make(map[string]*diskEntry)
	}
	for _, e := range d.index {
		d.size += e.Stored
	}
	return d, nil
}

// Get reads and decompresses the value for key.
func (d *Disk) Get(key string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.index[key]
	if !ok {
		d.stats.Misses++
		return nil, false
	}
	data, err := os.ReadFile(filepath.Join(d.dir, e.File))
	if err == nil && e.Compressed {
		data, err = d.dec.DecodeAll(data, nil)
	}
	if err != nil {
		d.drop(e)
		d.stats.Misses++
		return nil, false
	}
	e.LastAccess = time.Now()
	d.stats.Hits++
	return data, true
}

// Put writes value to disk, evicting the least recently accessed entries
// to stay under capacity.
func (d *Disk) Put(key string, value []byte) error {
	stored, compressed := value, false
	if d.enc != nil && len(value) > compressAbove {
		if c := d.enc.EncodeAll(value, nil); len(c) < len(value) {
			stored, compressed = c, true
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	n := int64(len(stored))
	if n > d.capacity {
		return ErrTooLarge
	}
	if e, ok := d.index[key]; ok {
		d.drop(e)
	}
	for d.size+n > d.capacity && len(d.index) > 0 {
		d.evictOldest()
	}

	e := &diskEntry{
		Key:        key,
		File:       key + ".seg",
		Stored:     n,
		Compressed: compressed,
		Created:    time.Now(),
		LastAccess: time.Now(),
	}
	if err := writeAtomic(filepath.Join(d.dir, e.File), stored); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	d.index[key] = e
	d.size += n
	return nil
}

// Delete removes key and its file.
func (d *Disk) Delete(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.index[key]; ok {
		d.drop(e)
	}
}

// Prune removes entries created before maxAge ago and returns how many were
// removed.
func (d *Disk) Prune(maxAge time.Duration) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range d.index {
		if e.Created.Before(cutoff) {
			d.drop(e)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of the tier's counters. Size is the stored
// (compressed) size.
func (d *Disk) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.stats
	s.Capacity = d.capacity
	s.Size = d.size
	s.Entries = len(d.index)
	return s
}

// Close persists the index.
func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.enc != nil {
		d.enc.Close()
	}
	d.dec.Close()
	return d.saveIndex()
}

func (d *Disk) evictOldest() {
	entries := make([]*diskEntry, 0, len(d.index))
	for _, e := range d.index {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastAccess.Before(entries[j].LastAccess)
	})
	d.drop(entries[0])
	d.stats.Evictions++
}

func (d *Disk) drop(e *diskEntry) {
	_ = os.Remove(filepath.Join(d.dir, e.File))
	delete(d.index, e.Key)
	d.size -= e.Stored
}

func (d *Disk) loadIndex() error {
	f, err := os.Open(filepath.Join(d.dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(&d.index)
}

func (d *Disk) saveIndex() error {
	path := filepath.Join(d.dir, indexFile)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(f).Encode(d.index)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
