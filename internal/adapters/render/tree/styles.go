package tree

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	workspace  lipgloss.Style
	session    lipgloss.Style
	tab        lipgloss.Style
	url        lipgloss.Style
	marker     lipgloss.Style
	warning    lipgloss.Style
	section    lipgloss.Style
	empty      lipgloss.Style
	barBracket lipgloss.Style
	barFill    lipgloss.Style
	barEmpty   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		workspace:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		session:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		tab:        lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		url:        lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		marker:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("159")),
		warning:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:    lipgloss.NewStyle().MarginTop(1),
		empty:      lipgloss.NewStyle().Faint(true),
		barBracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}
