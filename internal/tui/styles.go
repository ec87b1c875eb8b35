package tui

import "github.com/charmbracelet/lipgloss"

type theme struct {
	header    lipgloss.Style
	connected lipgloss.Style
	waiting   lipgloss.Style
	closed    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	notice    lipgloss.Style
	help      lipgloss.Style
	tag       lipgloss.Style
	cell      lipgloss.Style
	headerRow lipgloss.Style
	selected  lipgloss.Style
	cursor    lipgloss.Style
	muted     lipgloss.Style
}

func newTheme() theme {
	mint := lipgloss.Color("#87d068")
	peach := lipgloss.Color("#fde3cf")
	blue := lipgloss.Color("#1677ff")
	muted := lipgloss.Color("#8a8a8a")
	return theme{
		header:    lipgloss.NewStyle().Bold(true),
		connected: lipgloss.NewStyle().Foreground(mint),
		waiting:   lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd166")),
		closed:    lipgloss.NewStyle().Foreground(lipgloss.Color("#ff6b6b")),
		user:      lipgloss.NewStyle().Foreground(mint).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(peach).Bold(true),
		notice:    lipgloss.NewStyle().Foreground(lipgloss.Color("#ff6b6b")).Italic(true),
		help:      lipgloss.NewStyle().Foreground(muted),
		tag:       lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Background(blue).Padding(0, 1),
		cell:      lipgloss.NewStyle().Padding(0, 1),
		headerRow: lipgloss.NewStyle().Bold(true).Padding(0, 1),
		selected:  lipgloss.NewStyle().Foreground(blue).Bold(true).Padding(0, 1),
		cursor:    lipgloss.NewStyle().Reverse(true).Padding(0, 1),
		muted:     lipgloss.NewStyle().Foreground(muted),
	}
}
