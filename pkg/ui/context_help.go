package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Context identifies which part of the UI has focus.
type Context int

const (
	ContextGrid Context = iota
	ContextFilter
	ContextEdit
	ContextSortPicker
	ContextHelp
)

// ContextHelpContent holds the extra notes shown under the key list for
// contexts that need them.
var ContextHelpContent = map[Context]string{
	ContextFilter: `Rows whose cells contain the query stay visible
along with their ancestors. Enter keeps the filter,
esc clears it.`,
	ContextEdit: `Numbers and booleans keep their type when the
typed text parses. Enter commits, esc cancels.`,
	ContextSortPicker: `Sorting cycles ascending, descending, off.
A sorted view is flat; indentation still shows depth.`,
}

// GetContextHelp returns the notes for a context, or "" when there are none.
func GetContextHelp(ctx Context) string {
	return ContextHelpContent[ctx]
}

// formatBindings lays out key groups as aligned "keys  description" lines.
func formatBindings(groups [][]key.Binding) string {
	keyWidth := 0
	for _, group := range groups {
		for _, b := range group {
			keyWidth = max(keyWidth, runewidth.StringWidth(b.Help().Key))
		}
	}
	var sections []string
	for _, group := range groups {
		var lines []string
		for _, b := range group {
			if !b.Enabled() {
				continue
			}
			h := b.Help()
			lines = append(lines, "  "+runewidth.FillRight(h.Key, keyWidth)+"  "+h.Desc)
		}
		if len(lines) > 0 {
			sections = append(sections, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(sections, "\n\n")
}

// RenderContextHelp renders the help modal for ctx.
func RenderContextHelp(ctx Context, keys KeyMap, theme Theme, width, height int) string {
	r := theme.Renderer

	modalWidth := 60
	if modalWidth > width-4 {
		modalWidth = width - 4
	}
	modalWidth = max(modalWidth, 30)

	titleStyle := r.NewStyle().
		Bold(true).
		Foreground(theme.Primary)
	contentStyle := r.NewStyle().
		Foreground(theme.Subtext)
	footerStyle := r.NewStyle().
		Foreground(theme.Muted).
		Italic(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Quick Reference"))
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(theme.Muted).Render(strings.Repeat("─", modalWidth-6)))
	b.WriteString("\n\n")
	b.WriteString(contentStyle.Render(formatBindings(keys.FullHelp())))
	if notes := GetContextHelp(ctx); notes != "" {
		b.WriteString("\n\n")
		b.WriteString(contentStyle.Render(notes))
	}
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("Esc or ? to close"))

	modalStyle := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(1, 2).
		Width(modalWidth)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modalStyle.Render(b.String()))
}

// shortHelpLine renders the footer hints.
func shortHelpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
