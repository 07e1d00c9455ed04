package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dgnsrekt/narrator/internal/engine"
)

// wordSearch is the "/" prompt. Results are ordered by score; n and N step
// through them.
type wordSearch struct {
	input   textinput.Model
	active  bool
	matches []engine.Match
	hits    map[int]bool
	pos     int
}

func newWordSearch() wordSearch {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.CharLimit = 64
	return wordSearch{input: ti}
}

func (s *wordSearch) open() tea.Cmd {
	s.active = true
	s.input.SetValue("")
	return s.input.Focus()
}

func (s *wordSearch) close() {
	s.active = false
	s.input.Blur()
}

func (s *wordSearch) clear() {
	s.close()
	s.matches, s.hits, s.pos = nil, nil, 0
}

func (s *wordSearch) update(msg tea.Msg, e *engine.Engine) tea.Cmd {
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	s.run(e)
	return cmd
}

func (s *wordSearch) run(e *engine.Engine) {
	s.matches = e.Search(s.input.Value())
	s.hits = make(map[int]bool, len(s.matches))
	for _, m := range s.matches {
		s.hits[m.Index] = true
	}
	s.pos = 0
}

func (s *wordSearch) current() (engine.Match, bool) {
	if len(s.matches) == 0 {
		return engine.Match{}, false
	}
	return s.matches[s.pos], true
}

func (s *wordSearch) step(n int) (engine.Match, bool) {
	if len(s.matches) == 0 {
		return engine.Match{}, false
	}
	s.pos = (s.pos + n + len(s.matches)) % len(s.matches)
	return s.matches[s.pos], true
}
