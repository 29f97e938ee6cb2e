// Package export renders the current view of a tree table as Markdown or JSON.
package export

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/treegrid/pkg/treetable"
)

// Glyphs drawn in front of tree cells.
const (
	GlyphExpanded  = "▾"
	GlyphCollapsed = "▸"
	GlyphLeaf      = "•"
)

// indentUnit uses no-break spaces so Markdown renderers keep the indent.
const indentUnit = "\u00a0\u00a0"

// TreeGlyph returns the glyph for a node: expanded, collapsed or leaf.
func TreeGlyph(t *treetable.TreeTable, row int) string {
	n, err := t.NodeForRow(row)
	if err != nil {
		return ""
	}
	switch {
	case t.Graph().IsLeaf(n):
		return GlyphLeaf
	case t.IsExpanded(n):
		return GlyphExpanded
	default:
		return GlyphCollapsed
	}
}

// FormatValue renders a cell value as text. Nil is the empty string.
func FormatValue(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// baseDepth is the depth drawn flush left: 0 with a visible root, 1 without.
func baseDepth(t *treetable.TreeTable) int {
	if t.Layout().ShowRoot {
		return 0
	}
	return 1
}

// cells returns the text of every visible row, view order, tree cells indented.
func cells(t *treetable.TreeTable) ([][]string, error) {
	base := baseDepth(t)
	rows := make([][]string, t.RowCount())
	for r := range rows {
		row := make([]string, t.ColumnCount())
		for c := range row {
			v, err := t.ValueAt(r, c)
			if err != nil {
				return nil, err
			}
			text := FormatValue(v)
			if c == t.TreeColumn() {
				depth, err := t.DepthForRow(r)
				if err != nil {
					return nil, err
				}
				text = strings.Repeat(indentUnit, max(depth-base, 0)) + TreeGlyph(t, r) + " " + text
			}
			row[c] = text
		}
		rows[r] = row
	}
	return rows, nil
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// GenerateMarkdown renders the visible rows as a Markdown table with aligned
// columns, preceded by a title heading when title is not empty.
func GenerateMarkdown(t *treetable.TreeTable, title string) (string, error) {
	rows, err := cells(t)
	if err != nil {
		return "", err
	}
	header := make([]string, t.ColumnCount())
	for c := range header {
		header[c] = escapeCell(t.ColumnName(c))
	}
	widths := make([]int, len(header))
	for c, h := range header {
		widths[c] = max(runewidth.StringWidth(h), 3)
	}
	for _, row := range rows {
		for c := range row {
			row[c] = escapeCell(row[c])
			widths[c] = max(widths[c], runewidth.StringWidth(row[c]))
		}
	}

	var sb strings.Builder
	if title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", title)
	}
	writeRow := func(cols []string) {
		sb.WriteString("|")
		for c, s := range cols {
			sb.WriteString(" " + runewidth.FillRight(s, widths[c]) + " |")
		}
		sb.WriteString("\n")
	}
	writeRow(header)
	sep := make([]string, len(header))
	for c := range sep {
		sep[c] = strings.Repeat("-", widths[c])
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String(), nil
}

// Markdown writes GenerateMarkdown output to w.
func Markdown(w io.Writer, t *treetable.TreeTable, title string) error {
	content, err := GenerateMarkdown(t, title)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, content)
	return err
}

// SaveMarkdownToFile writes the generated markdown to a file
func SaveMarkdownToFile(t *treetable.TreeTable, filename, title string) error {
	content, err := GenerateMarkdown(t, title)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(content), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", filename)
	}
	return nil
}
