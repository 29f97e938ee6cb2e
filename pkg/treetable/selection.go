package treetable

import (
	"fmt"
	"slices"

	"github.com/vanderheijden86/treegrid/pkg/model"
)

// SelectionOrigin says which side of the bridge produced a selection change.
type SelectionOrigin int

const (
	// OriginModel: the change came from a structural update (removal, pruning, row shifts).
	OriginModel SelectionOrigin = iota
	// OriginTable: the change came from row indices.
	OriginTable
	// OriginTree: the change came from nodes or paths.
	OriginTree
)

func (o SelectionOrigin) String() string {
	switch o {
	case OriginModel:
		return "model"
	case OriginTable:
		return "table"
	case OriginTree:
		return "tree"
	default:
		return fmt.Sprintf("SelectionOrigin(%d)", int(o))
	}
}

// SelectionEvent carries the full selection after a change.
type SelectionEvent struct {
	Nodes  []model.Node // selection order, hidden nodes included
	Rows   []int        // visible view rows, ascending
	Origin SelectionOrigin
}

// SelectionBridge keeps one selection addressable by node and by view row.
// The node set is the source of truth; rows are derived from it.
//
// While the bridge is delivering its own event, selection writes coming back
// from listeners are ignored and reported as not applied. This is what keeps
// a table-side and a tree-side observer from echoing each other forever.
type SelectionBridge struct {
	mapper     *ViewMapper
	translator *CoordinateTranslator

	nodes []model.Node
	set   map[model.Node]struct{}
	rows  []int

	dispatching bool
	listeners   listenerList[SelectionEvent]

	// held defers notifications until the owning table has finished its own
	// events; pending records the origin to report on release.
	held          int
	pending       bool
	pendingOrigin SelectionOrigin
}

// NewSelectionBridge creates an empty selection over mapper and translator.
func NewSelectionBridge(mapper *ViewMapper, translator *CoordinateTranslator) *SelectionBridge {
	return &SelectionBridge{
		mapper:     mapper,
		translator: translator,
		set:        make(map[model.Node]struct{}),
	}
}

// Subscribe registers a selection listener and returns its unsubscribe func.
// Listeners run in reverse registration order.
func (b *SelectionBridge) Subscribe(fn func(SelectionEvent)) func() {
	return b.listeners.add(fn)
}

// SelectRows replaces the selection with the nodes shown at the given view
// rows. Rows out of range are ignored.
func (b *SelectionBridge) SelectRows(rows ...int) bool {
	if b.dispatching {
		return false
	}
	return b.apply(b.nodesForRows(rows), true, OriginTable)
}

// AddRows adds the nodes shown at the given view rows.
func (b *SelectionBridge) AddRows(rows ...int) bool {
	if b.dispatching {
		return false
	}
	return b.apply(b.nodesForRows(rows), false, OriginTable)
}

// ToggleRow flips the selection of the node shown at a view row.
func (b *SelectionBridge) ToggleRow(row int) bool {
	if b.dispatching {
		return false
	}
	nodes := b.nodesForRows([]int{row})
	if len(nodes) == 0 {
		return false
	}
	if b.IsSelected(nodes[0]) {
		return b.remove(nodes, OriginTable)
	}
	return b.apply(nodes, false, OriginTable)
}

// SelectNodes replaces the selection with nodes.
func (b *SelectionBridge) SelectNodes(nodes ...model.Node) bool {
	if b.dispatching {
		return false
	}
	return b.apply(nodes, true, OriginTree)
}

// AddNodes adds nodes to the selection.
func (b *SelectionBridge) AddNodes(nodes ...model.Node) bool {
	if b.dispatching {
		return false
	}
	return b.apply(nodes, false, OriginTree)
}

// RemoveNodes removes nodes from the selection.
func (b *SelectionBridge) RemoveNodes(nodes ...model.Node) bool {
	if b.dispatching {
		return false
	}
	return b.remove(nodes, OriginTree)
}

// Clear empties the selection.
func (b *SelectionBridge) Clear() bool {
	if b.dispatching || len(b.nodes) == 0 {
		return false
	}
	return b.remove(slices.Clone(b.nodes), OriginTree)
}

// Drop removes nodes that left the graph.
func (b *SelectionBridge) Drop(nodes ...model.Node) bool {
	return b.remove(nodes, OriginModel)
}

// Prune drops every selected node for which keep returns false.
func (b *SelectionBridge) Prune(keep func(model.Node) bool) bool {
	var gone []model.Node
	for _, n := range b.nodes {
		if !keep(n) {
			gone = append(gone, n)
		}
	}
	return b.remove(gone, OriginModel)
}

// Resync re-derives the visible rows after the flattened view or the view
// order changed. It notifies only when the row set moved.
func (b *SelectionBridge) Resync() bool {
	old := b.rows
	b.derive()
	if slices.Equal(old, b.rows) {
		return false
	}
	b.notify(OriginModel)
	return true
}

// IsSelected reports whether n is selected, visible or not.
func (b *SelectionBridge) IsSelected(n model.Node) bool {
	_, ok := b.set[n]
	return ok
}

// IsRowSelected reports whether a view row shows a selected node.
func (b *SelectionBridge) IsRowSelected(row int) bool {
	_, ok := slices.BinarySearch(b.rows, row)
	return ok
}

// SelectedNodes returns the selected nodes in selection order.
func (b *SelectionBridge) SelectedNodes() []model.Node {
	return slices.Clone(b.nodes)
}

// SelectedRows returns the visible selected view rows, ascending.
func (b *SelectionBridge) SelectedRows() []int {
	return slices.Clone(b.rows)
}

// Len returns the number of selected nodes.
func (b *SelectionBridge) Len() int {
	return len(b.nodes)
}

func (b *SelectionBridge) nodesForRows(rows []int) []model.Node {
	var nodes []model.Node
	for _, row := range rows {
		mr, err := b.translator.ToModelRow(row)
		if err != nil {
			continue
		}
		if n := b.mapper.NodeAt(mr); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

func (b *SelectionBridge) apply(nodes []model.Node, replace bool, origin SelectionOrigin) bool {
	var next []model.Node
	seen := make(map[model.Node]struct{}, len(nodes)+len(b.nodes))
	if !replace {
		for _, n := range b.nodes {
			next = append(next, n)
			seen[n] = struct{}{}
		}
	}
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		next = append(next, n)
	}
	if slices.Equal(next, b.nodes) {
		return false
	}
	b.nodes = next
	b.set = seen
	b.derive()
	b.notify(origin)
	return true
}

func (b *SelectionBridge) remove(nodes []model.Node, origin SelectionOrigin) bool {
	changed := false
	for _, n := range nodes {
		if _, ok := b.set[n]; ok {
			delete(b.set, n)
			changed = true
		}
	}
	if !changed {
		return false
	}
	b.nodes = slices.DeleteFunc(b.nodes, func(n model.Node) bool {
		_, ok := b.set[n]
		return !ok
	})
	b.derive()
	b.notify(origin)
	return true
}

func (b *SelectionBridge) derive() {
	rows := make([]int, 0, len(b.nodes))
	for _, n := range b.nodes {
		mr := b.mapper.RowOf(n)
		if mr < 0 {
			continue
		}
		v, err := b.translator.ToViewRow(mr)
		if err != nil {
			continue
		}
		rows = append(rows, v)
	}
	slices.Sort(rows)
	b.rows = rows
}

func (b *SelectionBridge) hold() {
	b.held++
}

func (b *SelectionBridge) release() {
	b.held--
	if b.held == 0 && b.pending {
		b.pending = false
		b.notify(b.pendingOrigin)
	}
}

func (b *SelectionBridge) notify(origin SelectionOrigin) {
	if b.held > 0 {
		b.pending = true
		b.pendingOrigin = origin
		return
	}
	if b.dispatching {
		return
	}
	b.dispatching = true
	defer func() { b.dispatching = false }()
	b.listeners.dispatch(SelectionEvent{
		Nodes:  slices.Clone(b.nodes),
		Rows:   slices.Clone(b.rows),
		Origin: origin,
	})
}
