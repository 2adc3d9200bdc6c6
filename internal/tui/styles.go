package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Palette.
const (
	ColorHeader    = lipgloss.Color("39")
	ColorLabel     = lipgloss.Color("245")
	ColorMuted     = lipgloss.Color("240")
	ColorHighlight = lipgloss.Color("212")
	ColorError     = lipgloss.Color("196")
	ColorSelected  = lipgloss.Color("42")
)

var (
	TitleStyle = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true).MarginBottom(1)

	TableHeaderStyle = lipgloss.NewStyle().
				Foreground(ColorHeader).
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(ColorMuted)

	TableSelectedStyle = lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)

	CurrentPageStyle   = lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)
	PageStyle          = lipgloss.NewStyle().Foreground(ColorLabel)
	DisabledStyle      = lipgloss.NewStyle().Foreground(ColorMuted)
	StatusStyle        = lipgloss.NewStyle().Foreground(ColorLabel)
	SelectedCountStyle = lipgloss.NewStyle().Foreground(ColorSelected).Bold(true)
	ErrorStyle         = lipgloss.NewStyle().Foreground(ColorError)
	HelpStyle          = lipgloss.NewStyle().Foreground(ColorMuted).Italic(true)
)

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = TableHeaderStyle
	s.Selected = TableSelectedStyle
	return s
}
