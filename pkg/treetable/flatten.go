package treetable

import (
	"github.com/vanderheijden86/treegrid/pkg/model"
)

// ViewRow is one visible row of the flattened view. It is only valid until the
// next structural change or expansion toggle.
type ViewRow struct {
	Node     model.Node
	Depth    int // edges from the root; the root itself is depth 0
	ModelRow int
}

// Flatten computes the visible rows of g: a pre-order walk that descends into
// a node only when it is expanded. The root is always descended into and is
// a row only when showRoot is set. A nil graph or root yields no rows.
func Flatten(g model.NodeGraph, exp *ExpansionState, showRoot bool) []ViewRow {
	if g == nil || g.Root() == nil {
		return nil
	}
	return appendVisible(nil, g, exp, g.Root(), 0, showRoot)
}

// appendVisible appends the rows below start, and start itself when
// includeStart is set. start is treated as open.
func appendVisible(rows []ViewRow, g model.NodeGraph, exp *ExpansionState, start model.Node, depth int, includeStart bool) []ViewRow {
	type frame struct {
		n     model.Node
		depth int
	}
	if includeStart {
		rows = append(rows, ViewRow{Node: start, Depth: depth, ModelRow: len(rows)})
	}
	var stack []frame
	for i := g.ChildCount(start) - 1; i >= 0; i-- {
		stack = append(stack, frame{g.ChildAt(start, i), depth + 1})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		rows = append(rows, ViewRow{Node: f.n, Depth: f.depth, ModelRow: len(rows)})
		if !exp.IsExpanded(f.n) {
			continue
		}
		for i := g.ChildCount(f.n) - 1; i >= 0; i-- {
			stack = append(stack, frame{g.ChildAt(f.n, i), f.depth + 1})
		}
	}
	return rows
}

// Splice describes how RecomputeSubtree changed the row sequence.
type Splice struct {
	Row     int  // row of the recomputed node, -1 if it is not visible
	Removed int  // rows dropped after Row
	Added   int  // rows inserted after Row
	Full    bool // the whole view was invalidated instead
}

// ViewMapper caches the flattened view of a graph and maps between rows and
// nodes. All rows it hands out are model-space rows.
type ViewMapper struct {
	graph    model.NodeGraph
	exp      *ExpansionState
	showRoot bool

	rows  []ViewRow
	index map[model.Node]int
	valid bool
}

// NewViewMapper creates a mapper over g and exp.
func NewViewMapper(g model.NodeGraph, exp *ExpansionState, showRoot bool) *ViewMapper {
	return &ViewMapper{graph: g, exp: exp, showRoot: showRoot}
}

// Invalidate forces a full recompute on the next read.
func (m *ViewMapper) Invalidate() {
	m.valid = false
}

// SetGraph swaps the underlying graph.
func (m *ViewMapper) SetGraph(g model.NodeGraph) {
	m.graph = g
	m.valid = false
}

// SetShowRoot toggles whether the root is a row.
func (m *ViewMapper) SetShowRoot(show bool) {
	if m.showRoot != show {
		m.showRoot = show
		m.valid = false
	}
}

// ShowRoot reports whether the root is a row.
func (m *ViewMapper) ShowRoot() bool {
	return m.showRoot
}

func (m *ViewMapper) ensure() {
	if m.valid {
		return
	}
	m.rows = Flatten(m.graph, m.exp, m.showRoot)
	m.index = make(map[model.Node]int, len(m.rows))
	m.reindexFrom(0)
	m.valid = true
}

func (m *ViewMapper) reindexFrom(from int) {
	for i := from; i < len(m.rows); i++ {
		m.rows[i].ModelRow = i
		m.index[m.rows[i].Node] = i
	}
}

// Rows returns a copy of the flattened view.
func (m *ViewMapper) Rows() []ViewRow {
	m.ensure()
	out := make([]ViewRow, len(m.rows))
	copy(out, m.rows)
	return out
}

// RowCount returns the number of visible rows.
func (m *ViewMapper) RowCount() int {
	m.ensure()
	return len(m.rows)
}

// RowAt returns the row at a model index.
func (m *ViewMapper) RowAt(row int) (ViewRow, error) {
	m.ensure()
	if row < 0 || row >= len(m.rows) {
		return ViewRow{}, rowOutOfRange(row, len(m.rows))
	}
	return m.rows[row], nil
}

// NodeAt returns the node at a model index, or nil when out of range.
func (m *ViewMapper) NodeAt(row int) model.Node {
	r, err := m.RowAt(row)
	if err != nil {
		return nil
	}
	return r.Node
}

// RowOf returns the model row of n, or -1 when n is not visible.
func (m *ViewMapper) RowOf(n model.Node) int {
	if n == nil {
		return -1
	}
	m.ensure()
	if row, ok := m.index[n]; ok {
		return row
	}
	return -1
}

// IsVisible reports whether n currently has a row.
func (m *ViewMapper) IsVisible(n model.Node) bool {
	return m.RowOf(n) >= 0
}

// PathForRow returns the path of the node at a model row.
func (m *ViewMapper) PathForRow(row int) (model.Path, error) {
	r, err := m.RowAt(row)
	if err != nil {
		return nil, err
	}
	return model.PathTo(m.graph, r.Node), nil
}

// RowForPath returns the model row of the path's target, or -1.
func (m *ViewMapper) RowForPath(p model.Path) int {
	return m.RowOf(p.Last())
}

// VisibleSubtreeRows returns how many visible rows lie below n. It is 0 when
// n is collapsed or not visible.
func (m *ViewMapper) VisibleSubtreeRows(n model.Node) int {
	row := m.RowOf(n)
	if row < 0 {
		return 0
	}
	depth := m.rows[row].Depth
	end := row + 1
	for end < len(m.rows) && m.rows[end].Depth > depth {
		end++
	}
	return end - row - 1
}

// RecomputeSubtree refreshes the rows below the target of p and renumbers
// every later row. The result is identical to a full Flatten. A hidden target
// changes nothing; the root or a detached target invalidates the whole view.
func (m *ViewMapper) RecomputeSubtree(p model.Path) Splice {
	if !m.valid {
		return Splice{Row: -1, Full: true}
	}
	target := p.Last()
	if target == nil || m.graph == nil || target == m.graph.Root() || !model.Attached(m.graph, target) {
		m.Invalidate()
		return Splice{Row: -1, Full: true}
	}
	row, ok := m.index[target]
	if !ok {
		return Splice{Row: -1}
	}

	depth := m.rows[row].Depth
	end := row + 1
	for end < len(m.rows) && m.rows[end].Depth > depth {
		end++
	}
	for _, r := range m.rows[row+1 : end] {
		delete(m.index, r.Node)
	}

	var fresh []ViewRow
	if m.exp.IsExpanded(target) {
		fresh = appendVisible(nil, m.graph, m.exp, target, depth, false)
	}
	tail := append([]ViewRow(nil), m.rows[end:]...)
	m.rows = append(append(m.rows[:row+1], fresh...), tail...)
	m.reindexFrom(row + 1)

	return Splice{Row: row, Removed: end - row - 1, Added: len(fresh)}
}
