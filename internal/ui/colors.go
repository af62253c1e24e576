package ui

import "github.com/charmbracelet/lipgloss"

// Palette groups the named [lipgloss.Style] values used by the sync view.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

// The sync view keeps a small fixed palette; the output is ephemeral
// progress, not themed chrome.
var styles = Palette{
	title: bold("#7D56F4").MarginBottom(1),
	ok:    bold("#04B575"),
	err:   bold("#FF5F87"),
	warn:  fg("#FFA500"),
	help:  fg("#626262").Italic(true),
}

func fg(c string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
}

func bold(c string) lipgloss.Style {
	return fg(c).Bold(true)
}
