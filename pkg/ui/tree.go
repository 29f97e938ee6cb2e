// tree.go - Scrolling grid view over a TreeTable
package ui

import (
	"cmp"
	"fmt"
	"log"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/treegrid/pkg/export"
	"github.com/vanderheijden86/treegrid/pkg/model"
	"github.com/vanderheijden86/treegrid/pkg/treetable"
)

const (
	colGap              = 1
	maxPlainColumnWidth = 24
	minTreeColumnWidth  = 12
)

// TreeModel draws a TreeTable as a grid: one header line, then one line per
// view row. It owns the cursor, the scroll offset and the filter/sort state
// that becomes the table's view order.
type TreeModel struct {
	table  *treetable.TreeTable
	theme  Theme
	cursor int // view row
	offset int // first view row on screen
	width  int
	height int // lines available, header included

	filter   string
	sortCol  int // -1 = flattened order
	sortDesc bool
}

// span is a column's horizontal extent in cells.
type span struct {
	start, width int
}

// NewTreeModel creates a grid over t.
func NewTreeModel(t *treetable.TreeTable, theme Theme) TreeModel {
	return TreeModel{table: t, theme: theme, sortCol: -1}
}

// Table returns the table being drawn.
func (g *TreeModel) Table() *treetable.TreeTable {
	return g.table
}

// SetTable swaps the table, keeping filter and sort settings.
func (g *TreeModel) SetTable(t *treetable.TreeTable) {
	g.table = t
	g.Sync()
}

// SetSize updates the available dimensions for the grid
func (g *TreeModel) SetSize(width, height int) {
	g.width = width
	g.height = height
	g.Sync()
}

func (g *TreeModel) bodyHeight() int {
	return max(g.height-1, 1)
}

// spans lays out the columns: plain columns fit their content up to a cap,
// the tree column takes the rest.
func (g *TreeModel) spans() []span {
	t := g.table
	n := t.ColumnCount()
	widths := make([]int, n)
	rows := t.RowCount()
	used := 0
	for c := 0; c < n; c++ {
		if c == t.TreeColumn() {
			continue
		}
		w := runewidth.StringWidth(g.headerLabel(c))
		for r := 0; r < rows; r++ {
			v, err := t.ValueAt(r, c)
			if err != nil {
				break
			}
			w = max(w, runewidth.StringWidth(cleanText(export.FormatValue(v))))
		}
		widths[c] = min(w, maxPlainColumnWidth)
		used += widths[c] + colGap
	}
	width := g.width
	if width <= 0 {
		width = 80
	}
	widths[t.TreeColumn()] = max(width-used, minTreeColumnWidth)

	out := make([]span, n)
	x := 0
	for c, w := range widths {
		out[c] = span{start: x, width: w}
		x += w + colGap
	}
	return out
}

// syncLayoutWidth keeps the layout's mirror width equal to the tree column.
func (g *TreeModel) syncLayoutWidth() {
	l := g.table.Layout()
	w := g.spans()[g.table.TreeColumn()].width
	if l.Width != w {
		l.Width = w
		g.table.SetLayout(l)
	}
}

// Sync re-establishes the view order after the table dropped it, then
// clamps the cursor and scroll offset. Call it after anything that changes
// the table.
func (g *TreeModel) Sync() {
	if g.ordered() && !g.table.HasViewOrder() {
		if err := g.applyOrder(); err != nil {
			log.Printf("warning: reapplying view order: %v", err)
		}
	}
	g.syncLayoutWidth()
	g.clamp()
}

func (g *TreeModel) clamp() {
	n := g.table.RowCount()
	if g.cursor >= n {
		g.cursor = n - 1
	}
	if g.cursor < 0 {
		g.cursor = 0
	}
	g.ensureVisible()
}

func (g *TreeModel) ensureVisible() {
	h := g.bodyHeight()
	if g.cursor < g.offset {
		g.offset = g.cursor
	}
	if g.cursor >= g.offset+h {
		g.offset = g.cursor - h + 1
	}
	if maxOff := max(g.table.RowCount()-h, 0); g.offset > maxOff {
		g.offset = maxOff
	}
	if g.offset < 0 {
		g.offset = 0
	}
}

// follow moves the cursor to n when it is still shown.
func (g *TreeModel) follow(n model.Node) {
	if n != nil {
		if row := g.table.RowForNode(n); row >= 0 {
			g.cursor = row
		}
	}
	g.clamp()
}

// View renders the header and the visible rows.
func (g *TreeModel) View() string {
	if g.table.RowCount() == 0 {
		return g.renderEmptyState()
	}
	spans := g.spans()
	var sb strings.Builder
	sb.WriteString(g.renderHeader(spans))
	start, end := g.visibleRange()
	for r := start; r < end; r++ {
		sb.WriteString("\n")
		sb.WriteString(g.renderRow(r, spans))
	}
	return sb.String()
}

// visibleRange returns the [start, end) view rows on screen.
func (g *TreeModel) visibleRange() (start, end int) {
	n := g.table.RowCount()
	start = min(g.offset, n)
	end = min(start+g.bodyHeight(), n)
	return start, end
}

func (g *TreeModel) renderEmptyState() string {
	r := g.theme.Renderer
	titleStyle := r.NewStyle().Foreground(g.theme.Primary).Bold(true)
	mutedStyle := r.NewStyle().Foreground(g.theme.Muted)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("No rows to display."))
	sb.WriteString("\n\n")
	if g.filter != "" {
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("Nothing matches %q. Press esc to clear the filter.", g.filter)))
	} else {
		sb.WriteString(mutedStyle.Render("The document is empty or its root is hidden and has no children."))
	}
	return sb.String()
}

func (g *TreeModel) headerLabel(c int) string {
	label := g.table.ColumnName(c)
	if c == g.sortCol {
		if g.sortDesc {
			label += " ▼"
		} else {
			label += " ▲"
		}
	}
	return label
}

func (g *TreeModel) renderHeader(spans []span) string {
	cells := make([]string, len(spans))
	for c, sp := range spans {
		cells[c] = fit(g.headerLabel(c), sp.width)
	}
	return g.theme.Header.Render(strings.Join(cells, strings.Repeat(" ", colGap)))
}

func (g *TreeModel) renderRow(r int, spans []span) string {
	t := g.table
	cells := make([]string, len(spans))
	for c, sp := range spans {
		v, err := t.ValueAt(r, c)
		if err != nil {
			return ""
		}
		text := cleanText(export.FormatValue(v))
		if c == t.TreeColumn() {
			depth, _ := t.DepthForRow(r)
			cells[c] = treeCell(t.Layout(), depth, export.TreeGlyph(t, r), text, sp.width)
		} else {
			cells[c] = fit(text, sp.width)
		}
	}
	line := strings.Join(cells, strings.Repeat(" ", colGap))
	switch {
	case r == g.cursor:
		return g.theme.Cursor.Render(line)
	case t.Selection().IsRowSelected(r):
		return g.theme.Selected.Render(line)
	default:
		return g.theme.Base.Render(line)
	}
}

// fit truncates or pads s to exactly width cells.
func fit(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

func cleanText(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return ' '
		}
		return r
	}, s)
}

// treeCell draws a tree column cell so the glyph sits on the expand box that
// the layout hit-tests: the content starts at RowX (left to right) or ends at
// Width-RowX (right to left). A glyph whose box falls outside the cell is
// not drawn.
func treeCell(l treetable.Layout, depth int, glyph, text string, width int) string {
	left, _ := l.ExpandControlBounds(depth)
	x := l.RowX(depth)
	gw := runewidth.StringWidth(glyph)
	var sb strings.Builder

	if l.Direction == treetable.RightToLeft {
		end := min(width-x, width)
		if end <= 0 {
			return strings.Repeat(" ", width)
		}
		sb.WriteString(runewidth.FillLeft(runewidth.Truncate(text, end, "…"), end))
		if glyph != "" && left >= end && left+gw <= width {
			sb.WriteString(strings.Repeat(" ", left-end))
			sb.WriteString(glyph)
		}
		return fit(sb.String(), width)
	}

	pos := 0
	if glyph != "" && left >= 0 && left+gw <= width {
		sb.WriteString(strings.Repeat(" ", left))
		sb.WriteString(glyph)
		pos = left + gw
	}
	start := max(x, pos)
	if start < width {
		sb.WriteString(strings.Repeat(" ", start-pos))
		sb.WriteString(runewidth.Truncate(text, width-start, "…"))
	}
	return fit(sb.String(), width)
}

// CellAt maps a position inside the grid (header at y == 0) to a view row,
// a column and the x offset within that column's cell.
func (g *TreeModel) CellAt(x, y int) (row, col, cx int, ok bool) {
	if y < 1 {
		return -1, -1, 0, false
	}
	row = g.offset + y - 1
	if row >= g.table.RowCount() {
		return -1, -1, 0, false
	}
	col, cx, ok = g.columnAt(x)
	return row, col, cx, ok
}

// HeaderColumnAt returns the column whose header covers x.
func (g *TreeModel) HeaderColumnAt(x int) (int, bool) {
	col, _, ok := g.columnAt(x)
	return col, ok
}

func (g *TreeModel) columnAt(x int) (col, cx int, ok bool) {
	for c, sp := range g.spans() {
		if x >= sp.start && x < sp.start+sp.width {
			return c, x - sp.start, true
		}
	}
	return -1, 0, false
}

// CursorRow returns the view row under the cursor.
func (g *TreeModel) CursorRow() int {
	return g.cursor
}

// CursorNode returns the node under the cursor, or nil if there are no rows.
func (g *TreeModel) CursorNode() model.Node {
	n, err := g.table.NodeForRow(g.cursor)
	if err != nil {
		return nil
	}
	return n
}

// SetCursor moves the cursor to a view row.
func (g *TreeModel) SetCursor(row int) {
	g.cursor = row
	g.clamp()
}

// MoveDown moves the cursor down one row.
func (g *TreeModel) MoveDown() {
	g.SetCursor(g.cursor + 1)
}

// MoveUp moves the cursor up one row.
func (g *TreeModel) MoveUp() {
	g.SetCursor(g.cursor - 1)
}

// PageDown moves cursor down by half a viewport.
func (g *TreeModel) PageDown() {
	g.SetCursor(g.cursor + max(g.bodyHeight()/2, 1))
}

// PageUp moves cursor up by half a viewport.
func (g *TreeModel) PageUp() {
	g.SetCursor(g.cursor - max(g.bodyHeight()/2, 1))
}

// JumpToTop moves cursor to the first row.
func (g *TreeModel) JumpToTop() {
	g.SetCursor(0)
}

// JumpToBottom moves cursor to the last row.
func (g *TreeModel) JumpToBottom() {
	g.SetCursor(g.table.RowCount() - 1)
}

// ToggleExpand expands or collapses the node under the cursor.
func (g *TreeModel) ToggleExpand() bool {
	n := g.CursorNode()
	if n == nil || !g.table.Toggle(n) {
		return false
	}
	g.Sync()
	g.follow(n)
	return true
}

// ExpandOrMoveToChild handles the → / l key: a collapsed node is expanded,
// an expanded one moves the cursor to its first child, leaves do nothing.
func (g *TreeModel) ExpandOrMoveToChild() {
	n := g.CursorNode()
	gr := g.table.Graph()
	if n == nil || gr.IsLeaf(n) {
		return
	}
	if !g.table.IsExpanded(n) {
		g.table.Expand(n)
		g.Sync()
		g.follow(n)
		return
	}
	if gr.ChildCount(n) > 0 {
		g.follow(gr.ChildAt(n, 0))
	}
}

// CollapseOrJumpToParent handles the ← / h key: an expanded node collapses,
// anything else moves the cursor to the parent.
func (g *TreeModel) CollapseOrJumpToParent() {
	n := g.CursorNode()
	if n == nil {
		return
	}
	if !g.table.Graph().IsLeaf(n) && g.table.IsExpanded(n) {
		g.table.Collapse(n)
		g.Sync()
		g.follow(n)
		return
	}
	g.JumpToParent()
}

// JumpToParent moves the cursor to the parent row when it is shown.
func (g *TreeModel) JumpToParent() {
	n := g.CursorNode()
	if n == nil {
		return
	}
	if p := g.table.Graph().Parent(n); p != nil {
		g.follow(p)
	}
}

// ExpandAll expands every node.
func (g *TreeModel) ExpandAll() {
	n := g.CursorNode()
	g.table.ExpandAll()
	g.Sync()
	g.follow(n)
}

// CollapseAll collapses every node.
func (g *TreeModel) CollapseAll() {
	n := g.CursorNode()
	g.table.CollapseAll()
	g.Sync()
	for ; n != nil && g.table.RowForNode(n) < 0; n = g.table.Graph().Parent(n) {
	}
	g.follow(n)
}

// ToggleSelect flips the selection of the cursor row.
func (g *TreeModel) ToggleSelect() {
	g.table.Selection().ToggleRow(g.cursor)
}

// Filter returns the active filter query.
func (g *TreeModel) Filter() string {
	return g.filter
}

// SortColumn returns the sorted column and direction; -1 when unsorted.
func (g *TreeModel) SortColumn() (int, bool) {
	return g.sortCol, g.sortDesc
}

func (g *TreeModel) ordered() bool {
	return g.filter != "" || g.sortCol >= 0
}

// SetFilter keeps rows whose text contains q (case-insensitive) along with
// their shown ancestors. An empty query removes the filter.
func (g *TreeModel) SetFilter(q string) error {
	g.filter = strings.TrimSpace(q)
	return g.applyOrder()
}

// SortBy cycles col through ascending, descending and unsorted.
func (g *TreeModel) SortBy(col int) error {
	switch {
	case col != g.sortCol:
		g.sortCol, g.sortDesc = col, false
	case !g.sortDesc:
		g.sortDesc = true
	default:
		g.sortCol, g.sortDesc = -1, false
	}
	return g.applyOrder()
}

// ClearOrder drops filter and sort and returns to the flattened order.
func (g *TreeModel) ClearOrder() {
	n := g.CursorNode()
	g.filter, g.sortCol, g.sortDesc = "", -1, false
	g.table.ClearViewOrder()
	g.follow(n)
}

func (g *TreeModel) applyOrder() error {
	n := g.CursorNode()
	defer g.follow(n)
	if !g.ordered() {
		g.table.ClearViewOrder()
		return nil
	}
	var keep func(int) bool
	if g.filter != "" {
		keep = g.matcher(g.filter)
	}
	var less func(a, b int) bool
	if g.sortCol >= 0 {
		less = g.lessBy(g.sortCol, g.sortDesc)
	}
	order := treetable.SortedOrder(g.table.Mapper().RowCount(), keep, less)
	return g.table.SetViewOrder(order)
}

// matcher marks every flattened row whose cells contain q, plus the rows of
// their ancestors so matches keep their context.
func (g *TreeModel) matcher(q string) func(int) bool {
	t := g.table
	m := t.Mapper()
	proj := t.Projection()
	gr := t.Graph()
	q = strings.ToLower(q)
	keep := make([]bool, m.RowCount())
	for r := range keep {
		n := m.NodeAt(r)
		hit := false
		for c := 0; c < proj.ColumnCount() && !hit; c++ {
			hit = strings.Contains(strings.ToLower(export.FormatValue(proj.ValueAt(n, c))), q)
		}
		if !hit {
			continue
		}
		keep[r] = true
		for p := gr.Parent(n); p != nil; p = gr.Parent(p) {
			pr := m.RowOf(p)
			if pr < 0 || keep[pr] {
				break
			}
			keep[pr] = true
		}
	}
	return func(r int) bool { return keep[r] }
}

func (g *TreeModel) lessBy(col int, desc bool) func(a, b int) bool {
	m := g.table.Mapper()
	proj := g.table.Projection()
	return func(a, b int) bool {
		va := proj.ValueAt(m.NodeAt(a), col)
		vb := proj.ValueAt(m.NodeAt(b), col)
		if desc && va != nil && vb != nil {
			return compareValues(vb, va) < 0
		}
		return compareValues(va, vb) < 0
	}
}

// compareValues orders numbers numerically, everything else by text. Empty
// values sort first, and lessBy keeps them first when descending.
func compareValues(a, b any) int {
	fa, aNum := asFloat(a)
	fb, bNum := asFloat(b)
	switch {
	case aNum && bNum:
		return cmp.Compare(fa, fb)
	case a == nil || b == nil:
		return cmp.Compare(boolRank(a != nil), boolRank(b != nil))
	}
	return cmp.Compare(strings.ToLower(export.FormatValue(a)), strings.ToLower(export.FormatValue(b)))
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	default:
		return 0, false
	}
}
