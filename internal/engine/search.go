package engine

import (
	"github.com/sahilm/fuzzy"

	"github.com/dgnsrekt/narrator/internal/timeline"
)

// Match is a token found by Search.
type Match struct {
	Index   int
	Token   timeline.Token
	Score   int
	Matched []int
}

type tokenSource []timeline.Token

func (s tokenSource) String(i int) string { return s[i].Text }
func (s tokenSource) Len() int            { return len(s) }

// SearchTokens fuzzy-matches query against token text, best match first.
// Equal scores keep timeline order.
func SearchTokens(query string, tokens []timeline.Token) []Match {
	if query == "" {
		return nil
	}
	found := fuzzy.FindFrom(query, tokenSource(tokens))
	out := make([]Match, len(found))
	for i, m := range found {
		out[i] = Match{Index: m.Index, Token: tokens[m.Index], Score: m.Score, Matched: m.MatchedIndexes}
	}
	return out
}

// Search runs SearchTokens over the current timeline.
func (e *Engine) Search(query string) []Match {
	e.mu.Lock()
	tokens := e.tl.Tokens
	e.mu.Unlock()
	return SearchTokens(query, tokens)
}

// SeekToMatch seeks playback to the start of a search result.
func (e *Engine) SeekToMatch(m Match) error {
	return e.controller.SeekToToken(m.Token)
}
