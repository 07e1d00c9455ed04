package cache

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestMemory_PutGetDelete(t *testing.T) {
	m := NewMemory(1024)
	if err := m.Put("seg-1", []byte("audio")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := m.Get("seg-1")
	if !ok || string(got) != "audio" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if s := m.Stats(); s.Size != 5 || s.Entries != 1 || s.Hits != 1 {
		t.Errorf("stats = %+v", s)
	}
	m.Delete("seg-1")
	if m.Contains("seg-1") {
		t.Error("entry still present after Delete")
	}
	if _, ok := m.Get("seg-1"); ok {
		t.Error("Get hit after Delete")
	}
	if s := m.Stats(); s.Size != 0 || s.Misses != 1 {
		t.Errorf("stats after delete = %+v", s)
	}
}

func TestMemory_LRUEviction(t *testing.T) {
	m := NewMemory(100)
	for i := 0; i < 5; i++ {
		if err := m.Put(fmt.Sprintf("k%d", i), make([]byte, 20)); err != nil {
			t.Fatal(err)
		}
	}
	m.Get("k0")
	m.Get("k1")

	if err := m.Put("new", make([]byte, 30)); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"k0", "k1", "k4", "new"} {
		if !m.Contains(k) {
			t.Errorf("%s should survive eviction", k)
		}
	}
	for _, k := range []string{"k2", "k3"} {
		if m.Contains(k) {
			t.Errorf("%s should have been evicted", k)
		}
	}
	if s := m.Stats(); s.Evictions != 2 || s.Size != 90 {
		t.Errorf("stats = %+v", s)
	}
}

func TestMemory_Replace(t *testing.T) {
	m := NewMemory(100)
	_ = m.Put("k", make([]byte, 40))
	_ = m.Put("k", make([]byte, 10))
	if s := m.Stats(); s.Size != 10 || s.Entries != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestMemory_TooLarge(t *testing.T) {
	m := NewMemory(10)
	if err := m.Put("k", make([]byte, 11)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestMemory_Concurrent(t *testing.T) {
	m := NewMemory(1 << 20)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("g%d-%d", g, i%10)
				_ = m.Put(key, bytes.Repeat([]byte{byte(i)}, 64))
				m.Get(key)
			}
		}(g)
	}
	wg.Wait()
	if s := m.Stats(); s.Entries != 80 {
		t.Errorf("entries = %d, want 80", s.Entries)
	}
}

func TestKey(t *testing.T) {
	a := Key("file:///a.wav", 100, "2024")
	if a != Key("file:///a.wav", 100, "2024") {
		t.Error("Key is not deterministic")
	}
	if a == Key("file:///a.wav", 101, "2024") {
		t.Error("validators should change the key")
	}
	if len(a) != 32 {
		t.Errorf("key length = %d", len(a))
	}
}
