package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/termenv"
)

const (
	keyEsc   = "esc"
	ellipsis = "…"
)

var (
	green     = lipgloss.Color("#04B575")
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}
	faint     = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}
	red       = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ECFD65")).
			Background(lipgloss.Color("#FF5F87")).
			Bold(true)

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg)

	statusBarTimeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#949494", Dark: "#5A5A5A"}).
				Background(statusBarBg)

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen)

	statusBarErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFDF5")).
				Background(red)

	helpViewStyle = lipgloss.NewStyle().
			Foreground(statusBarNoteFg).
			Background(lipgloss.AdaptiveColor{Light: "#f2f2f2", Dark: "#1B1B1B"})

	sectionHeaderStyle = lipgloss.NewStyle().Foreground(green).Bold(true)
	spokenStyle        = lipgloss.NewStyle()
	unspokenStyle      = lipgloss.NewStyle().Foreground(faint)
	matchStyle         = lipgloss.NewStyle().Underline(true)

	scrubFillStyle  = lipgloss.NewStyle().Foreground(green)
	scrubEmptyStyle = lipgloss.NewStyle().Foreground(faint)
	scrubKnobStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true)

	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EE6FF8"))
	disabledStyle = lipgloss.NewStyle().Foreground(faint).Strikethrough(true)
)

// activeStyle is the style of the word being spoken. Light terminals get a
// darker background.
func activeStyle() lipgloss.Style {
	bg := lipgloss.Color("226")
	if !termenv.HasDarkBackground() {
		bg = lipgloss.Color("214")
	}
	return lipgloss.NewStyle().Background(bg).Foreground(lipgloss.Color("0")).Bold(true)
}

// indentBlock indents every line of s by n spaces.
func indentBlock(s string, n uint) string {
	return indent.String(s, n)
}

// fillLines pads every line of s to width so background colors reach the
// edge.
func fillLines(s string, width int) string {
	if width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = runewidth.FillRight(l, width)
	}
	return strings.Join(lines, "\n")
}
