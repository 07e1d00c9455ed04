package main

import (
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/narrator/internal/timeline"
)

func testStore(t *testing.T) *timeline.Store {
	t.Helper()
	store, err := timeline.NewStore([]timeline.Segment{
		{ID: "intro", Order: 1, SectionTitle: "Intro", NominalDuration: time.Second,
			Words: []timeline.WordTimestamp{{Word: "Hello", End: 400 * time.Millisecond}, {Word: ",", Start: 400 * time.Millisecond, End: 450 * time.Millisecond}}},
		{ID: "body", Order: 2, SectionTitle: "A | B", NominalDuration: 2 * time.Second},
		{ID: "outro", Order: 3, NominalDuration: time.Second},
	})
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestApplySelection(t *testing.T) {
	tests := []struct {
		name       string
		only, skip []string
		want       []string
		wantErr    bool
	}{
		{"all", nil, nil, []string{"intro", "body", "outro"}, false},
		{"only", []string{"body"}, nil, []string{"body"}, false},
		{"skip", nil, []string{"intro", "outro"}, []string{"body"}, false},
		{"only and skip", []string{"intro", "body"}, []string{"intro"}, []string{"body"}, false},
		{"skip everything", nil, []string{"intro", "body", "outro"}, nil, true},
		{"unknown", []string{"nope"}, nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testStore(t)
			err := applySelection(store, tt.only, tt.skip)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			tl := timeline.Build(store.Segments(), store.Enabled())
			var got []string
			for _, e := range tl.Entries {
				got = append(got, e.SegmentID)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("enabled = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimelineMarkdown(t *testing.T) {
	store := testStore(t)
	tl := timeline.Build(store.Segments(), store.Enabled())

	md := timelineMarkdown("", tl, false)
	for _, want := range []string{"# Timeline", "3 segments, 4s", "| 2 | body | A \\| B | 1s | 3s | 2s |"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown lacks %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "## ") {
		t.Error("words listed without --words")
	}

	md = timelineMarkdown("Talk", tl, true)
	if !strings.Contains(md, "## Intro") || !strings.Contains(md, "- `0s` Hello,") {
		t.Errorf("word listing:\n%s", md)
	}
}
