package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Config is what the CLI layer resolves before handing over to the TUI.
type Config struct {
	BaseURL string
	// Token is the persisted session token, empty when unauthenticated.
	Token string
}

func Run(cfg Config) error {
	applyColorProfilePreference()
	m := newAppModel(cfg)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
