package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ColumnPickerModel is the modal that chooses the sort column.
type ColumnPickerModel struct {
	columns       []string
	currentColumn int  // column the view is sorted by, -1 if none
	descending    bool // direction of currentColumn
	selectedIndex int
	width         int
	height        int
	theme         Theme
}

// NewColumnPickerModel creates a picker over the column names. The current
// sort column, if any, starts highlighted.
func NewColumnPickerModel(columns []string, current int, descending bool, theme Theme) ColumnPickerModel {
	selected := 0
	if current >= 0 && current < len(columns) {
		selected = current
	}
	return ColumnPickerModel{
		columns:       columns,
		currentColumn: current,
		descending:    descending,
		selectedIndex: selected,
		theme:         theme,
	}
}

// SetSize updates the picker dimensions
func (m *ColumnPickerModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// MoveUp moves selection up
func (m *ColumnPickerModel) MoveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	}
}

// MoveDown moves selection down
func (m *ColumnPickerModel) MoveDown() {
	if m.selectedIndex < len(m.columns)-1 {
		m.selectedIndex++
	}
}

// SelectedColumn returns the highlighted column index, or -1 without columns.
func (m *ColumnPickerModel) SelectedColumn() int {
	if m.selectedIndex >= 0 && m.selectedIndex < len(m.columns) {
		return m.selectedIndex
	}
	return -1
}

// View renders the picker overlay
func (m *ColumnPickerModel) View() string {
	if m.width == 0 {
		m.width = 60
	}
	if m.height == 0 {
		m.height = 20
	}

	t := m.theme

	boxWidth := 35
	if m.width < 45 {
		boxWidth = m.width - 10
	}
	if boxWidth < 25 {
		boxWidth = 25
	}

	var lines []string

	titleStyle := t.Renderer.NewStyle().
		Foreground(t.Primary).
		Bold(true).
		MarginBottom(1)
	lines = append(lines, titleStyle.Render("Sort By"))
	lines = append(lines, "")

	for i, name := range m.columns {
		isSelected := i == m.selectedIndex

		itemStyle := t.Renderer.NewStyle()
		if isSelected {
			itemStyle = itemStyle.Foreground(t.Primary).Bold(true)
		} else {
			itemStyle = itemStyle.Foreground(t.Base.GetForeground())
		}

		prefix := "  "
		if isSelected {
			prefix = "> "
		}

		// Mark the active sort with its direction
		suffix := ""
		if i == m.currentColumn {
			arrow := "▲"
			if m.descending {
				arrow = "▼"
			}
			suffix = " " + t.Renderer.NewStyle().Foreground(t.Secondary).Render(arrow)
		}

		lines = append(lines, itemStyle.Render(prefix+name)+suffix)
	}

	lines = append(lines, "")
	footerStyle := t.Renderer.NewStyle().
		Foreground(t.Secondary).
		Italic(true)
	lines = append(lines, footerStyle.Render("j/k: navigate | enter: sort | esc: cancel"))

	content := strings.Join(lines, "\n")

	boxStyle := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Width(boxWidth)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		boxStyle.Render(content),
	)
}
