package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	sbBaseStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("235")).Padding(0, 1)
	sbTripStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	sbInfoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	sbGreenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	sbYellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	sbRedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// StatusBarModel is the one-line footer of the progress view.
type StatusBarModel struct {
	Destination string
	Provider    string
	RunID       string
	Done        int
	Total       int
	Failed      bool
	Elapsed     time.Duration
	width       int
}

func NewStatusBarModel(destination, provider string, total int) *StatusBarModel {
	return &StatusBarModel{Destination: destination, Provider: provider, Total: total}
}

func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

func (m *StatusBarModel) View() string {
	run := m.RunID
	if len(run) > 8 {
		run = run[:8]
	}
	if run == "" {
		run = "pending"
	}

	stepStyle := sbYellowStyle
	switch {
	case m.Failed:
		stepStyle = sbRedStyle
	case m.Total > 0 && m.Done >= m.Total:
		stepStyle = sbGreenStyle
	}

	s := fmt.Sprintf("%s | %s | %s | %s | %s",
		sbTripStyle.Render(fmt.Sprintf("[TRIP: %s]", m.Destination)),
		sbInfoStyle.Render(fmt.Sprintf("[MODEL: %s]", m.Provider)),
		sbInfoStyle.Render(fmt.Sprintf("[RUN: %s]", run)),
		stepStyle.Render(fmt.Sprintf("[STEP: %d/%d]", m.Done, m.Total)),
		sbInfoStyle.Render(fmt.Sprintf("[%s]", m.Elapsed.Truncate(time.Second))),
	)
	return sbBaseStyle.Width(m.width).Render(s)
}
