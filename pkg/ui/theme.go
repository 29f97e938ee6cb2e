// Package ui provides the terminal user interface for treegrid.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the colors and styles used by every view. Styles are created
// from Renderer so tests can render without a terminal.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor

	Base     lipgloss.Style
	Header   lipgloss.Style
	Selected lipgloss.Style
	Cursor   lipgloss.Style
	Status   lipgloss.Style
}

// DefaultTheme builds the default palette for r.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer:  r,
		Primary:   lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D79F6"},
		Secondary: lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#F1C40F"},
		Highlight: lipgloss.AdaptiveColor{Light: "#0E7C86", Dark: "#48D1CC"},
		Muted:     lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#6C6C6C"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#555555", Dark: "#B0B0B0"},
		Error:     lipgloss.AdaptiveColor{Light: "#C0392B", Dark: "#FF6B6B"},
	}
	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#DDDDDD"})
	t.Header = r.NewStyle().Bold(true).Foreground(t.Primary)
	t.Selected = r.NewStyle().Background(lipgloss.AdaptiveColor{Light: "#E4E2FF", Dark: "#2E2B55"})
	t.Cursor = r.NewStyle().Reverse(true)
	t.Status = r.NewStyle().Foreground(t.Subtext)
	return t
}
