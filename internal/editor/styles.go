package editor

import "github.com/charmbracelet/lipgloss"

// Theme contains the editor styles.
type Theme struct {
	Header  lipgloss.Style
	Footer  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Label   lipgloss.Style
	Focus   lipgloss.Style
}

// NewTheme creates the default editor theme.
func NewTheme() *Theme {
	primary := lipgloss.Color("#66CC66")
	secondary := lipgloss.Color("#AAAAAA")
	muted := lipgloss.Color("#666666")

	return &Theme{
		Header: lipgloss.NewStyle().
			Foreground(primary).
			Bold(true).
			Padding(0, 1),
		Footer: lipgloss.NewStyle().
			Foreground(secondary).
			Padding(0, 1),
		Success: lipgloss.NewStyle().Foreground(primary),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444")),
		Muted:   lipgloss.NewStyle().Foreground(muted),
		Label:   lipgloss.NewStyle().Foreground(secondary).Width(12),
		Focus:   lipgloss.NewStyle().Foreground(lipgloss.Color("#99FF99")),
	}
}
