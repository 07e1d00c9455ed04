package timeline

import (
	"strings"
	"testing"
)

func words(ws ...string) []WordTimestamp {
	out := make([]WordTimestamp, len(ws))
	for i, w := range ws {
		out[i] = WordTimestamp{Word: w, Start: sec(float64(i)), End: sec(float64(i) + 0.5)}
	}
	return out
}

func tokenTexts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}

// An opening paren binds to the next word.
func TestGroupOpeningParenBindsForward(t *testing.T) {
	seg := Segment{ID: "s", Order: 1, NominalDuration: sec(2), Words: []WordTimestamp{
		{Word: "(", Start: sec(1), End: sec(1.1)},
		{Word: "Hello", Start: sec(1.1), End: sec(1.5)},
	}}
	tl := Build([]Segment{seg}, map[string]bool{"s": true})
	if len(tl.Tokens) != 1 {
		t.Fatalf("expected 1 token, got %v", tokenTexts(tl.Tokens))
	}
	tok := tl.Tokens[0]
	if tok.Text != "(Hello" || tok.Start != sec(1) || tok.End != sec(1.5) {
		t.Errorf("token = %+v, want (Hello [1s,1.5s]", tok)
	}
}

func TestGroupPunctuation(t *testing.T) {
	tests := []struct {
		name  string
		words []string
		want  []string
	}{
		{"plain words", []string{"one", "two"}, []string{"one", "two"}},
		{"closing binds back", []string{"Hello", ",", "world", "."}, []string{"Hello,", "world."}},
		{"straight quotes", []string{`"`, "Hello", `"`, "she", "said"}, []string{`"Hello"`, "she", "said"}},
		{"curly quotes", []string{"“", "Hi", "”"}, []string{"“Hi”"}},
		{"open then close keeps both", []string{"(", ")", "x"}, []string{"(", ")", "x"}},
		{"leading closing stands alone", []string{".", "word"}, []string{".", "word"}},
		{"two openings", []string{"(", "[", "a"}, []string{"(", "[a"}},
		{"terminal run", []string{"Really", "?", "!"}, []string{"Really?!"}},
		{"blank words skipped", []string{"a", " ", "", "b"}, []string{"a", "b"}},
		{"already attached", []string{"(inline)", "text"}, []string{"(inline)", "text"}},
		{"trailing opening", []string{"a", "("}, []string{"a", "("}},
		{"quote attached to word", []string{`"`, `Hi."`, `"`, "Bye", `"`}, []string{`"Hi."`, `"Bye"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := Segment{ID: "s", Words: words(tt.words...)}
			got := tokenTexts(groupTokens(nil, seg, 0))
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("tokens = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestGroupCoverage checks that every word lands in exactly one token and
// tokens never overlap.
func TestGroupCoverage(t *testing.T) {
	raw := []string{"“", "The", "quick", "(", "brown", ")", "fox", ",", "jumps", "…", "over", "[", "the", "]", "dog", "."}
	segs := []Segment{
		{ID: "a", Order: 1, Words: words(raw...)},
		{ID: "b", Order: 2, Words: words(raw...)},
	}
	tl := Build(segs, allEnabled(segs))

	count := 0
	for _, w := range raw {
		if !IsPunctuation(w) {
			count++
		}
	}
	found := 0
	for _, tok := range tl.Tokens {
		for _, w := range raw {
			if !IsPunctuation(w) && strings.Trim(tok.Text, openingRunes+closingRunes+`"'`) == w {
				found++
			}
		}
	}
	if found != 2*count {
		t.Errorf("found %d words in tokens, want %d: %q", found, 2*count, tokenTexts(tl.Tokens))
	}
	for i := 0; i+1 < len(tl.Tokens); i++ {
		if tl.Tokens[i].End > tl.Tokens[i+1].Start {
			t.Errorf("tokens %d and %d overlap: %+v %+v", i, i+1, tl.Tokens[i], tl.Tokens[i+1])
		}
	}
}

func TestGroupClipsOverlappingWords(t *testing.T) {
	seg := Segment{ID: "s", Words: []WordTimestamp{
		{Word: "a", Start: 0, End: sec(2)},
		{Word: "b", Start: sec(1), End: sec(3)},
	}}
	got := groupTokens(nil, seg, 0)
	if got[0].End != sec(1) {
		t.Errorf("first token end = %v, want 1s", got[0].End)
	}
}

func TestGroupTranslatesOffsets(t *testing.T) {
	segs := []Segment{
		{ID: "a", Order: 1, SectionTitle: "One", NominalDuration: sec(5), Words: words("x")},
		{ID: "b", Order: 2, SectionTitle: "Two", NominalDuration: sec(5), Words: words("y")},
	}
	tl := Build(segs, allEnabled(segs))
	if tl.Tokens[1].Start != sec(5) || tl.Tokens[1].End != sec(5.5) {
		t.Errorf("second token = %+v, want start 5s", tl.Tokens[1])
	}
	if tl.Tokens[1].SegmentTitle != "Two" || tl.Tokens[1].SegmentID != "b" {
		t.Errorf("second token owner = %s/%s", tl.Tokens[1].SegmentID, tl.Tokens[1].SegmentTitle)
	}
}
