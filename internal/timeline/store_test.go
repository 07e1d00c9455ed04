package timeline

import (
	"errors"
	"testing"
)

func TestStoreToggle(t *testing.T) {
	store, err := NewStore(threeSegments())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if len(store.Enabled()) != 3 {
		t.Fatalf("all segments should start enabled")
	}

	changed, err := store.Toggle("b", false)
	if err != nil || !changed {
		t.Fatalf("Toggle(b, false) = %v, %v", changed, err)
	}
	changed, err = store.Toggle("b", false)
	if err != nil || changed {
		t.Errorf("repeated toggle should be a no-op, got %v, %v", changed, err)
	}
	if _, err := store.Toggle("zzz", true); !errors.Is(err, ErrUnknownSegment) {
		t.Errorf("expected ErrUnknownSegment, got %v", err)
	}

	if _, err := store.Toggle("a", false); err != nil {
		t.Fatalf("Toggle(a, false): %v", err)
	}
	if _, err := store.Toggle("c", false); !errors.Is(err, ErrLastEnabled) {
		t.Errorf("disabling the last segment: expected ErrLastEnabled, got %v", err)
	}
	if !store.IsEnabled("c") {
		t.Error("last segment must remain enabled")
	}
}

func TestStoreToggleAll(t *testing.T) {
	store, _ := NewStore(threeSegments())

	if !store.ToggleAll(false) {
		t.Fatal("ToggleAll(false) should change the set")
	}
	got := store.Enabled()
	if len(got) != 1 || !got["a"] {
		t.Errorf("ToggleAll(false) left %v, want only a", got)
	}
	if !store.ToggleAll(true) {
		t.Fatal("ToggleAll(true) should change the set")
	}
	if len(store.Enabled()) != 3 {
		t.Errorf("ToggleAll(true) left %v", store.Enabled())
	}
	if store.ToggleAll(true) {
		t.Error("second ToggleAll(true) should be a no-op")
	}
}

func TestStoreReplace(t *testing.T) {
	store, _ := NewStore(threeSegments())
	if _, err := store.Toggle("b", false); err != nil {
		t.Fatal(err)
	}

	next := append(threeSegments(), Segment{ID: "d", Order: 4})
	if err := store.Replace(next); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if store.IsEnabled("b") {
		t.Error("b should stay disabled across replace")
	}
	if !store.IsEnabled("d") {
		t.Error("new segment d should start enabled")
	}

	tests := []struct {
		name string
		segs []Segment
	}{
		{"empty", nil},
		{"missing id", []Segment{{Order: 1}}},
		{"duplicate id", []Segment{{ID: "x"}, {ID: "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Replace(tt.segs); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStoreReplaceKeepsOneEnabled(t *testing.T) {
	store, _ := NewStore(threeSegments())
	store.ToggleAll(false) // only a enabled

	if err := store.Replace([]Segment{{ID: "b", Order: 2}, {ID: "c", Order: 3}}); err != nil {
		t.Fatal(err)
	}
	// b and c were disabled before, so the first in order is re-enabled.
	got := store.Enabled()
	if len(got) != 1 || !got["b"] {
		t.Errorf("enabled = %v, want only b", got)
	}
}

func TestStoreSegmentsOrdered(t *testing.T) {
	segs := threeSegments()
	store, _ := NewStore([]Segment{segs[2], segs[0], segs[1]})
	got := store.Segments()
	for i, id := range []string{"a", "b", "c"} {
		if got[i].ID != id {
			t.Fatalf("Segments()[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
}
