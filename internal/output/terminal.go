// Package output renders session progress for the human referee.
package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	turnLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	nameStyle      = lipgloss.NewStyle().Bold(true)
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	faintStyle     = lipgloss.NewStyle().Faint(true)
	frameStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Banner renders a bold section banner.
func Banner(s string) string { return bannerStyle.Render("=== " + s + " ===") }

// TurnLabel renders the "Turn N/M" progress marker.
func TurnLabel(turn, maxTurns int) string {
	return turnLabelStyle.Render(fmt.Sprintf("[Turn %d/%d]", turn, maxTurns))
}

// Name renders a participant's display name.
func Name(s string) string { return nameStyle.Render(s) }

// Error renders a failure line.
func Error(s string) string { return errorStyle.Render(s) }

// Success renders a confirmation line.
func Success(s string) string { return successStyle.Render(s) }

// Faint renders secondary detail.
func Faint(s string) string { return faintStyle.Render(s) }

// Frame boxes multi-line content, used for check-in and error panels.
func Frame(lines ...string) string {
	return frameStyle.Render(strings.Join(lines, "\n"))
}
