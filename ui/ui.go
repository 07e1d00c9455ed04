// Package ui provides the terminal player.
package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/dgnsrekt/narrator/internal/engine"
	"github.com/dgnsrekt/narrator/internal/playback"
	"github.com/dgnsrekt/narrator/internal/timeline"
)

const (
	statusMessageTimeout = 3 * time.Second
	statusBarHeight      = 1
	scrubBarHeight       = 1
	maxSectionRows       = 8
)

// NewProgram returns a new Tea program playing e.
func NewProgram(cfg Config, e *engine.Engine) *tea.Program {
	log.Debug("starting narrator", "mouse", cfg.EnableMouse, "alt_screen", cfg.AltScreen)
	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, e), opts...)
}

type (
	errMsg                  struct{ err error }
	statusMessageTimeoutMsg int
)

func (e errMsg) Error() string { return e.err.Error() }

type focus int

const (
	focusTranscript focus = iota
	focusSections
)

type model struct {
	cfg    Config
	engine *engine.Engine
	bridge *bridge

	width  int
	height int

	transcript transcript
	scrub      scrubBar
	sections   sectionList
	search     wordSearch
	spinner    spinner.Model

	snapshot playback.Snapshot
	entries  []timeline.Entry
	active   int
	follow   bool
	focus    focus
	showHelp bool
	dragging bool

	statusMessage string
	statusID      int
}

func newModel(cfg Config, e *engine.Engine) model {
	if cfg.ScrollInterval <= 0 {
		cfg.ScrollInterval = 150 * time.Millisecond
	}
	m := model{
		cfg:     cfg,
		engine:  e,
		bridge:  newBridge(e),
		search:  newWordSearch(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		active:  -1,
		follow:  true,
	}
	m.applyTimeline(e.Timeline())
	m.snapshot = e.Snapshot()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.bridge.waitUpdate,
		m.bridge.waitScroll,
		m.bridge.waitRebuild,
		m.spinner.Tick,
		m.flushTick(),
	)
}

func (m model) flushTick() tea.Cmd {
	return tea.Tick(m.cfg.ScrollInterval, func(time.Time) tea.Msg { return flushMsg{} })
}

func (m *model) applyTimeline(tl timeline.Timeline) {
	m.entries = tl.Entries
	m.transcript.setTokens(tl.Tokens)
	m.sections.set(m.engine.Segments())
	m.active = -1
	if m.search.hits != nil {
		m.search.run(m.engine)
	}
}

func (m *model) setSize(w, h int) {
	m.width, m.height = w, h
	m.transcript.setSize(w, m.transcriptHeight())
	m.scrub.row = m.transcriptHeight() + m.sectionHeight()
	m.scrub.layout(w, m.snapshot.EffectiveDuration())
}

func (m model) sectionHeight() int {
	if m.focus != focusSections {
		return 0
	}
	return min(len(m.sections.segments), maxSectionRows)
}

func (m model) helpHeight() int {
	if !m.showHelp {
		return 0
	}
	return strings.Count(m.helpView(), "\n") + 1
}

func (m model) transcriptHeight() int {
	return max(0, m.height-statusBarHeight-scrubBarHeight-m.sectionHeight()-m.helpHeight())
}

// run performs a playback operation off the event loop.
func run(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m *model) showStatusMessage(msg string) tea.Cmd {
	m.statusMessage = msg
	m.statusID++
	id := m.statusID
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg(id)
	})
}

func (m model) quit() (tea.Model, tea.Cmd) {
	m.bridge.close()
	return m, tea.Quit
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case updateMsg:
		m.snapshot = msg.Playback
		m.active = msg.Active
		m.scrub.layout(m.width, m.snapshot.EffectiveDuration())
		return m, m.bridge.waitUpdate

	case scrollMsg:
		if m.follow {
			m.transcript.follow(int(msg))
		}
		return m, m.bridge.waitScroll

	case rebuildMsg:
		m.applyTimeline(timeline.Timeline(msg))
		m.setSize(m.width, m.height)
		return m, m.bridge.waitRebuild

	case flushMsg:
		m.engine.FlushScroll()
		return m, m.flushTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusMessageTimeoutMsg:
		if int(msg) == m.statusID {
			m.statusMessage = ""
		}
		return m, nil

	case errMsg:
		log.Debug("operation failed", "err", msg.err)
		if errors.Is(msg.err, timeline.ErrLastEnabled) {
			cmd := m.showStatusMessage("at least one section must stay enabled")
			return m, cmd
		}
		cmd := m.showStatusMessage(errorText(msg.err))
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if m.search.active {
			return m.handleSearchKey(msg)
		}
		if m.focus == focusSections {
			return m.handleSectionKey(msg)
		}
		return m.handleKey(msg)
	}

	if m.search.active {
		cmd := m.search.update(msg, m.engine)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.engine.Controller()
	switch msg.String() {
	case "q":
		return m.quit()
	case keyEsc:
		m.search.clear()
	case " ", "p":
		return m, run(c.TogglePlayback)
	case "left", "h":
		return m, run(c.SkipBackward)
	case "right", "l":
		return m, run(c.SkipForward)
	case "+", "=", ">":
		rate := playback.FasterRate(m.snapshot.Rate)
		cmd := tea.Batch(run(func() error { return c.SetPlaybackRate(rate) }), m.showStatusMessage(fmt.Sprintf("speed %gx", rate)))
		return m, cmd
	case "-", "<":
		rate := playback.SlowerRate(m.snapshot.Rate)
		cmd := tea.Batch(run(func() error { return c.SetPlaybackRate(rate) }), m.showStatusMessage(fmt.Sprintf("speed %gx", rate)))
		return m, cmd
	case "home", "g":
		return m, run(func() error { return c.SeekToUnifiedTime(0) })
	case "end", "G":
		end := m.snapshot.EffectiveDuration()
		return m, run(func() error { return c.SeekToUnifiedTime(end) })
	case "down", "j":
		m.follow = false
		m.transcript.scroll(1)
	case "up", "k":
		m.follow = false
		m.transcript.scroll(-1)
	case "pgdown", "f":
		m.follow = false
		m.transcript.scroll(max(1, m.transcript.height-1))
	case "pgup", "b":
		m.follow = false
		m.transcript.scroll(-max(1, m.transcript.height-1))
	case ".":
		m.follow = true
		m.transcript.follow(m.active)
	case "tab", "s":
		m.focus = focusSections
		m.setSize(m.width, m.height)
	case "/":
		cmd := m.search.open()
		return m, cmd
	case "n", "N":
		step := 1
		if msg.String() == "N" {
			step = -1
		}
		if match, ok := m.search.step(step); ok {
			m.follow = true
			return m, run(func() error { return m.engine.SeekToMatch(match) })
		}
	case "y":
		cmd := m.copyPosition()
		return m, cmd
	case "?":
		m.showHelp = !m.showHelp
		m.setSize(m.width, m.height)
	}
	return m, nil
}

func (m model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyEsc:
		m.search.clear()
		return m, nil
	case "enter":
		m.search.close()
		if match, ok := m.search.current(); ok {
			m.follow = true
			return m, run(func() error { return m.engine.SeekToMatch(match) })
		}
		cmd := m.showStatusMessage("no matches")
		return m, cmd
	}
	cmd := m.search.update(msg, m.engine)
	return m, cmd
}

func (m model) handleSectionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.quit()
	case "tab", "s", keyEsc:
		m.focus = focusTranscript
		m.setSize(m.width, m.height)
	case "down", "j":
		m.sections.move(1)
	case "up", "k":
		m.sections.move(-1)
	case " ", "x":
		if seg, ok := m.sections.selected(); ok {
			enable := !m.sections.enabled[seg.ID]
			return m, run(func() error { return m.engine.Toggle(seg.ID, enable) })
		}
	case "a":
		return m, run(func() error { m.engine.ToggleAll(true); return nil })
	case "A":
		return m, run(func() error { m.engine.ToggleAll(false); return nil })
	case "enter":
		seg, ok := m.sections.selected()
		if !ok {
			break
		}
		for _, e := range m.entries {
			if e.SegmentID == seg.ID {
				start := e.Start
				m.follow = true
				return m, run(func() error { return m.engine.Controller().SeekToUnifiedTime(start) })
			}
		}
		cmd := m.showStatusMessage("section is disabled")
		return m, cmd
	}
	return m, nil
}

func (m model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	c := m.engine.Controller()
	x := float64(msg.X)
	switch {
	case msg.Button == tea.MouseButtonWheelDown:
		m.follow = false
		m.transcript.scroll(3)
	case msg.Button == tea.MouseButtonWheelUp:
		m.follow = false
		m.transcript.scroll(-3)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && m.scrub.contains(msg.X, msg.Y):
		m.dragging = true
		rect := m.scrub.rect
		return m, run(func() error { return c.BeginDrag(x, rect) })
	case msg.Action == tea.MouseActionMotion && m.dragging:
		rect := m.scrub.rect
		return m, run(func() error { return c.DragTo(x, rect) })
	case msg.Action == tea.MouseActionRelease && m.dragging:
		m.dragging = false
		rect := m.scrub.rect
		return m, run(func() error { return c.EndDrag(x, rect) })
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && msg.Y < m.transcript.height:
		if i, ok := m.transcript.tokenAt(msg.X, msg.Y); ok {
			tok := m.transcript.tokens[i]
			m.follow = true
			return m, run(func() error { return c.SeekToToken(tok) })
		}
	}
	return m, nil
}

func (m *model) copyPosition() tea.Cmd {
	text := formatDuration(m.snapshot.CurrentTime)
	if m.active >= 0 && m.active < len(m.transcript.tokens) {
		tok := m.transcript.tokens[m.active]
		text = fmt.Sprintf("[%s] %s", text, tok.Text)
		if tok.SegmentTitle != "" {
			text += " (" + tok.SegmentTitle + ")"
		}
	}
	// Copy using OSC 52
	termenv.Copy(text)
	// Copy using native system clipboard
	_ = clipboard.WriteAll(text)
	return m.showStatusMessage("copied " + text)
}

func (m model) View() string {
	if m.width == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.transcript.view(m.active, m.search.hits))
	b.WriteByte('\n')
	if h := m.sectionHeight(); h > 0 {
		b.WriteString(m.sections.view(m.width, h))
		b.WriteByte('\n')
	}
	b.WriteString(m.scrub.view(m.snapshot, m.entries))
	b.WriteByte('\n')

	size, skipped := m.engine.AssemblyInfo()
	status := statusLine{
		snapshot: m.snapshot,
		spinner:  m.spinner.View(),
		size:     size,
		skipped:  len(skipped),
		message:  m.statusMessage,
	}
	if m.search.active {
		status.search = fmt.Sprintf("%s  %d match(es)", m.search.input.View(), len(m.search.matches))
	}
	b.WriteString(status.view(m.width))
	if m.showHelp {
		b.WriteByte('\n')
		b.WriteString(m.helpView())
	}
	return b.String()
}

func (m model) helpView() string {
	s := "\n" +
		"space/p  play/pause            /        search words\n" +
		"←/h      back                  n/N      next/prev match\n" +
		"→/l      forward               y        copy position\n" +
		"+/-      speed                 s/tab    sections\n" +
		"g/G      start/end             .        follow speech\n" +
		"j/k      scroll                q        quit\n"
	if m.focus == focusSections {
		s += "\n" +
			"space/x  enable/disable        a/A      enable all/disable all\n" +
			"enter    jump to section       esc      back\n"
	}
	if m.cfg.Path != "" {
		s += "\n" + m.cfg.Path + "\n"
	}
	return helpViewStyle.Render(fillLines(indentBlock(s, 2), m.width))
}
