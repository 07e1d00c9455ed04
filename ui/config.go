package ui

import "time"

// Config contains TUI-specific configuration.
type Config struct {
	Title          string
	EnableMouse    bool
	AltScreen      bool
	ScrollInterval time.Duration

	// Manifest being played, shown in the help view.
	Path string
}
