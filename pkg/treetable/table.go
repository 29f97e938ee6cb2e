// Package treetable keeps a tree and its flattened, row-indexed table view in
// sync under mutation, expansion and selection.
//
// TreeTable is the single entry point for changes. Every operation applies
// the mutation, brings the flattened rows, the view order and the selection up
// to date, and only then notifies observers, so listeners always see the
// post-mutation state. Table-facing methods take view rows (after the
// backend's sort and filter); each request is converted to a model row exactly
// once, in resolve.
//
// A TreeTable is not safe for concurrent use.
package treetable

import (
	"io"
	"log"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/vanderheijden86/treegrid/pkg/model"
)

type options struct {
	layout       Layout
	defaultDepth int
	logger       *log.Logger
}

// Option configures a TreeTable.
type Option func(*options)

// WithLayout sets the tree column geometry, including root visibility.
func WithLayout(l Layout) Option {
	return func(o *options) { o.layout = l }
}

// WithShowRoot sets whether the root is a row.
func WithShowRoot(show bool) Option {
	return func(o *options) { o.layout.ShowRoot = show }
}

// WithDefaultExpandDepth expands nodes shallower than depth on construction.
// The default is 1: only the root is open.
func WithDefaultExpandDepth(depth int) Option {
	return func(o *options) { o.defaultDepth = depth }
}

// WithLogger routes diagnostics (forced reloads, dropped view orders) to l.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// PointerResult is the outcome of a pointer press on a cell. Toggling
// expansion and beginning an edit are mutually exclusive.
type PointerResult struct {
	Toggled   bool
	BeginEdit bool
}

// TreeTable composes a NodeGraph and a Projection into a row-indexed table.
type TreeTable struct {
	graph      model.NodeGraph
	proj       model.Projection
	treeColumn int

	exp        *ExpansionState
	mapper     *ViewMapper
	translator *CoordinateTranslator
	selection  *SelectionBridge
	notifier   *ChangeNotifier
	trigger    *EditTrigger

	defaultDepth int
	logger       *log.Logger
}

// New builds a tree table. The projection must tag exactly one tree column.
func New(g model.NodeGraph, p model.Projection, opts ...Option) (*TreeTable, error) {
	treeColumn, err := model.TreeColumn(p)
	if err != nil {
		return nil, errors.Wrap(err, "tree table")
	}
	o := options{
		layout:       DefaultLayout(),
		defaultDepth: 1,
		logger:       log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(&o)
	}

	t := &TreeTable{
		graph:        g,
		proj:         p,
		treeColumn:   treeColumn,
		exp:          NewExpansionState(),
		notifier:     NewChangeNotifier(),
		defaultDepth: o.defaultDepth,
		logger:       o.logger,
	}
	t.expandToDepth(o.defaultDepth)
	t.mapper = NewViewMapper(g, t.exp, o.layout.ShowRoot)
	t.translator = NewCoordinateTranslator(t.mapper.RowCount())
	t.selection = NewSelectionBridge(t.mapper, t.translator)
	t.trigger = NewEditTrigger(g, t.mapper, t.translator, o.layout)
	return t, nil
}

func (t *TreeTable) Graph() model.NodeGraph                 { return t.graph }
func (t *TreeTable) Projection() model.Projection           { return t.proj }
func (t *TreeTable) Expansion() *ExpansionState             { return t.exp }
func (t *TreeTable) Mapper() *ViewMapper                    { return t.mapper }
func (t *TreeTable) Translator() *CoordinateTranslator      { return t.translator }
func (t *TreeTable) Selection() *SelectionBridge            { return t.selection }
func (t *TreeTable) Notifier() *ChangeNotifier              { return t.notifier }
func (t *TreeTable) EditTrigger() *EditTrigger              { return t.trigger }
func (t *TreeTable) TreeColumn() int                        { return t.treeColumn }
func (t *TreeTable) Layout() Layout                         { return t.trigger.Layout() }
func (t *TreeTable) DefaultExpandDepth() int                { return t.defaultDepth }
func (t *TreeTable) ColumnCount() int                       { return t.proj.ColumnCount() }
func (t *TreeTable) ColumnName(col int) string              { return t.proj.ColumnName(col) }
func (t *TreeTable) ColumnKind(col int) model.ColumnKind    { return t.proj.ColumnKind(col) }
func (t *TreeTable) IsExpanded(n model.Node) bool           { return t.exp.IsExpanded(n) }
func (t *TreeTable) HasViewOrder() bool                     { return t.translator.HasOrder() }
func (t *TreeTable) SubscribeRows(fn func(RowEvent)) func() { return t.notifier.SubscribeRows(fn) }

// RowCount returns the number of view rows.
func (t *TreeTable) RowCount() int {
	return t.translator.ViewRowCount()
}

// resolve converts a view row to its flattened row. It is the only place a
// view-space index is translated.
func (t *TreeTable) resolve(viewRow int) (ViewRow, error) {
	mr, err := t.translator.ToModelRow(viewRow)
	if err != nil {
		return ViewRow{}, err
	}
	return t.mapper.RowAt(mr)
}

func (t *TreeTable) checkColumn(col int) error {
	if n := t.proj.ColumnCount(); col < 0 || col >= n {
		return errors.Wrapf(ErrColumnOutOfRange, "column %d not in [0, %d)", col, n)
	}
	return nil
}

// ValueAt returns the value of a cell.
func (t *TreeTable) ValueAt(row, col int) (any, error) {
	r, err := t.resolve(row)
	if err != nil {
		return nil, err
	}
	if err := t.checkColumn(col); err != nil {
		return nil, err
	}
	return t.proj.ValueAt(r.Node, col), nil
}

// IsCellEditable reports whether a cell accepts edits.
func (t *TreeTable) IsCellEditable(row, col int) (bool, error) {
	r, err := t.resolve(row)
	if err != nil {
		return false, err
	}
	if err := t.checkColumn(col); err != nil {
		return false, err
	}
	return t.proj.IsEditable(r.Node, col), nil
}

// SetValueAt edits a cell and announces the change.
func (t *TreeTable) SetValueAt(row, col int, value any) error {
	r, err := t.resolve(row)
	if err != nil {
		return err
	}
	if err := t.checkColumn(col); err != nil {
		return err
	}
	setter, ok := t.proj.(model.ValueSetter)
	if !ok || !t.proj.IsEditable(r.Node, col) {
		return errors.Newf("cell (%d, %d) is not editable", row, col)
	}
	if err := setter.SetValueAt(r.Node, col, value); err != nil {
		return err
	}
	t.NodeChanged(r.Node)
	return nil
}

// NodeForRow returns the node shown at a view row.
func (t *TreeTable) NodeForRow(row int) (model.Node, error) {
	r, err := t.resolve(row)
	if err != nil {
		return nil, err
	}
	return r.Node, nil
}

// PathForRow returns the path of the node shown at a view row.
func (t *TreeTable) PathForRow(row int) (model.Path, error) {
	r, err := t.resolve(row)
	if err != nil {
		return nil, err
	}
	return model.PathTo(t.graph, r.Node), nil
}

// DepthForRow returns the tree depth of the node shown at a view row.
func (t *TreeTable) DepthForRow(row int) (int, error) {
	r, err := t.resolve(row)
	if err != nil {
		return 0, err
	}
	return r.Depth, nil
}

// RowForNode returns the view row of n, or -1 when it is hidden or filtered.
func (t *TreeTable) RowForNode(n model.Node) int {
	mr := t.mapper.RowOf(n)
	if mr < 0 {
		return -1
	}
	v, err := t.translator.ToViewRow(mr)
	if err != nil {
		return -1
	}
	return v
}

// refresh aligns the translator and the selection with the mapper after the
// flattened view changed. It reports whether an installed view order had to
// be dropped.
func (t *TreeTable) refresh() bool {
	dropped := t.translator.Reset(t.mapper.RowCount())
	if dropped {
		t.logger.Printf("view order dropped after the flattened view changed")
	}
	t.selection.Resync()
	return dropped
}

// InsertNode inserts child under parent at index.
func (t *TreeTable) InsertNode(parent, child model.Node, index int) error {
	prev := t.RowCount()
	if err := t.graph.Insert(parent, child, index); err != nil {
		return errors.Wrap(err, "insert node")
	}
	t.selection.hold()
	defer t.selection.release()

	parentPath := model.PathTo(t.graph, parent)
	t.mapper.RecomputeSubtree(parentPath)
	dropped := t.refresh()

	t.notifier.FireNodesInserted(parentPath, []int{t.graph.IndexOfChild(parent, child)}, []model.Node{child}, prev)
	if dropped {
		t.notifier.FireRows(RowEvent{Kind: RowsReloaded})
		return nil
	}
	if mr := t.mapper.RowOf(child); mr >= 0 {
		ev, err := InsertedRows(prev, mr, mr+t.mapper.VisibleSubtreeRows(child))
		if err != nil {
			t.logger.Printf("forcing reload: %v", err)
		}
		t.notifier.FireRows(ev)
		if ev.Kind == RowsReloaded {
			return nil
		}
	}
	if t.graph.ChildCount(parent) == 1 {
		t.fireParentUpdated(parent)
	}
	return nil
}

// fireParentUpdated reports the row of parent as updated after its first
// child arrived or its last child left, since its handle changed.
func (t *TreeTable) fireParentUpdated(parent model.Node) {
	if v := t.RowForNode(parent); v >= 0 {
		t.notifier.FireRows(RowEvent{Kind: RowsUpdated, First: v, Last: v})
	}
}

// RemoveNode removes node from its parent. Removing the root or a detached
// node fails with model.ErrNoParent.
func (t *TreeTable) RemoveNode(node model.Node) error {
	parent := t.graph.Parent(node)
	if parent == nil {
		return errors.Wrapf(model.ErrNoParent, "remove %v", node)
	}
	idx := t.graph.IndexOfChild(parent, node)
	if idx < 0 {
		return errors.AssertionFailedf("%v is not listed under its parent %v", node, parent)
	}
	return t.RemoveChildAt(parent, idx)
}

// RemoveChildAt removes the child of parent at index.
func (t *TreeTable) RemoveChildAt(parent model.Node, index int) error {
	if parent == nil {
		return errors.Wrap(model.ErrNoParent, "remove child")
	}
	prev := t.RowCount()
	node := t.graph.ChildAt(parent, index)
	mr := t.mapper.RowOf(node)
	span := 0
	if mr >= 0 {
		span = 1 + t.mapper.VisibleSubtreeRows(node)
	}
	var subtree []model.Node
	if node != nil {
		walkSubtree(t.graph, node, func(n model.Node) { subtree = append(subtree, n) })
	}

	removed, err := t.graph.Remove(parent, index)
	if err != nil {
		return errors.Wrap(err, "remove node")
	}
	t.selection.hold()
	defer t.selection.release()

	t.exp.Forget(subtree...)
	t.selection.Drop(subtree...)
	parentPath := model.PathTo(t.graph, parent)
	t.mapper.RecomputeSubtree(parentPath)
	dropped := t.refresh()

	t.notifier.FireNodesRemoved(parentPath, []int{index}, []model.Node{removed}, prev)
	switch {
	case dropped:
		t.notifier.FireRows(RowEvent{Kind: RowsReloaded})
	case mr >= 0:
		t.notifier.FireRows(RowEvent{Kind: RowsDeleted, First: mr, Last: mr + span - 1})
	}
	if !dropped && t.graph.ChildCount(parent) == 0 {
		t.fireParentUpdated(parent)
	}
	return nil
}

// NodeChanged announces that the values of n changed.
func (t *TreeTable) NodeChanged(n model.Node) {
	if n == nil {
		return
	}
	parent := t.graph.Parent(n)
	if parent == nil {
		t.NodesChanged(n, nil)
		return
	}
	t.NodesChanged(parent, []int{t.graph.IndexOfChild(parent, n)})
}

// NodesChanged announces value changes of parent's children at indices, or
// of parent itself when indices is nil. No rows move.
func (t *TreeTable) NodesChanged(parent model.Node, indices []int) {
	parentPath := model.PathTo(t.graph, parent)
	t.notifier.FireNodesChanged(parentPath, indices, t.RowCount())

	var nodes []model.Node
	if indices == nil {
		nodes = []model.Node{parent}
	} else {
		for _, i := range indices {
			if c := t.graph.ChildAt(parent, i); c != nil {
				nodes = append(nodes, c)
			}
		}
	}
	var rows []int
	for _, n := range nodes {
		if v := t.RowForNode(n); v >= 0 {
			rows = append(rows, v)
		}
	}
	for _, ev := range updatedRuns(rows) {
		t.notifier.FireRows(ev)
	}
}

// StructureChanged announces that the subtree at n is stale. Selected and
// expanded nodes that are no longer attached to the graph are dropped.
func (t *TreeTable) StructureChanged(n model.Node) {
	prev := t.RowCount()
	path := model.PathTo(t.graph, n)
	t.selection.hold()
	defer t.selection.release()

	t.selection.Prune(func(sel model.Node) bool { return model.Attached(t.graph, sel) })
	for _, e := range t.exp.Nodes() {
		if !model.Attached(t.graph, e) {
			t.exp.Forget(e)
		}
	}
	t.mapper.RecomputeSubtree(path)
	t.refresh()
	t.notifier.FireStructureChanged(path, prev)
	t.notifier.FireRows(RowEvent{Kind: RowsReloaded})
}

// Reload treats the whole tree as stale.
func (t *TreeTable) Reload() {
	if t.graph == nil || t.graph.Root() == nil {
		t.visibilityReset()
		return
	}
	t.StructureChanged(t.graph.Root())
}

// SetGraph replaces the graph. Expansion returns to the default depth and the
// selection is cleared.
func (t *TreeTable) SetGraph(g model.NodeGraph) {
	prev := t.RowCount()
	t.selection.hold()
	defer t.selection.release()

	t.graph = g
	t.trigger.graph = g
	t.mapper.SetGraph(g)
	t.selection.Drop(t.selection.SelectedNodes()...)
	t.expandToDepth(t.defaultDepth)
	t.refresh()
	var root model.Path
	if g != nil {
		root = model.PathTo(g, g.Root())
	}
	t.notifier.FireStructureChanged(root, prev)
	t.notifier.FireRows(RowEvent{Kind: RowsReloaded})
}

// SetLayout replaces the tree column geometry. Changing root visibility
// reloads the rows.
func (t *TreeTable) SetLayout(l Layout) {
	t.trigger.SetLayout(l)
	if t.mapper.ShowRoot() != l.ShowRoot {
		t.mapper.SetShowRoot(l.ShowRoot)
		t.visibilityReset()
	}
}

// Expand opens n. It reports whether anything changed.
func (t *TreeTable) Expand(n model.Node) bool {
	return t.setExpanded(n, true)
}

// Collapse closes n. Selected descendants stay selected but lose their rows.
func (t *TreeTable) Collapse(n model.Node) bool {
	return t.setExpanded(n, false)
}

// Toggle flips n.
func (t *TreeTable) Toggle(n model.Node) bool {
	return t.setExpanded(n, !t.exp.IsExpanded(n))
}

func (t *TreeTable) setExpanded(n model.Node, expand bool) bool {
	if n == nil || t.graph.IsLeaf(n) {
		return false
	}
	var changed bool
	if expand {
		changed = t.exp.Expand(n)
	} else {
		changed = t.exp.Collapse(n)
	}
	if !changed {
		return false
	}
	t.selection.hold()
	defer t.selection.release()

	path := model.PathTo(t.graph, n)
	sp := t.mapper.RecomputeSubtree(path)
	dropped := t.refresh()
	t.notifier.FireExpansion(ExpansionEvent{Path: path, Expanded: expand})
	switch {
	case dropped || sp.Full:
		t.notifier.FireRows(RowEvent{Kind: RowsReloaded})
	case sp.Row < 0:
	default:
		if sp.Removed > 0 {
			t.notifier.FireRows(RowEvent{Kind: RowsDeleted, First: sp.Row + 1, Last: sp.Row + sp.Removed})
		}
		if sp.Added > 0 {
			t.notifier.FireRows(RowEvent{Kind: RowsInserted, First: sp.Row + 1, Last: sp.Row + sp.Added})
		}
	}
	return true
}

// ExpandAll opens every non-leaf node.
func (t *TreeTable) ExpandAll() {
	walkGraph(t.graph, func(n model.Node, _ int) {
		if !t.graph.IsLeaf(n) {
			t.exp.Expand(n)
		}
	})
	t.visibilityReset()
}

// CollapseAll closes every node.
func (t *TreeTable) CollapseAll() {
	t.exp.Clear()
	t.visibilityReset()
}

// ExpandToDepth opens exactly the non-leaf nodes shallower than depth.
func (t *TreeTable) ExpandToDepth(depth int) {
	t.expandToDepth(depth)
	t.visibilityReset()
}

func (t *TreeTable) expandToDepth(depth int) {
	t.exp.Clear()
	walkGraph(t.graph, func(n model.Node, d int) {
		if d < depth && !t.graph.IsLeaf(n) {
			t.exp.Expand(n)
		}
	})
}

// visibilityReset recomputes all rows after a bulk expansion change.
func (t *TreeTable) visibilityReset() {
	t.selection.hold()
	defer t.selection.release()
	t.mapper.Invalidate()
	t.refresh()
	t.notifier.FireRows(RowEvent{Kind: RowsReloaded})
}

// SetViewOrder installs the backend's sort/filter order: viewToModel[v] is
// the model row shown at view row v.
func (t *TreeTable) SetViewOrder(viewToModel []int) error {
	if err := t.translator.SetOrder(viewToModel, t.mapper.RowCount()); err != nil {
		return err
	}
	t.reordered()
	return nil
}

// ClearViewOrder returns to the flattened order.
func (t *TreeTable) ClearViewOrder() {
	if !t.translator.HasOrder() {
		return
	}
	t.translator.ClearOrder()
	t.reordered()
}

func (t *TreeTable) reordered() {
	t.selection.hold()
	defer t.selection.release()
	t.selection.Resync()
	t.notifier.FireRows(RowEvent{Kind: RowsReordered})
}

// PointerDown handles a pointer press at (x, y) on a cell. On the tree
// column a hit on the expand box toggles the node and suppresses editing;
// otherwise editing begins when the cell is editable.
func (t *TreeTable) PointerDown(row, col, x, y int) (PointerResult, error) {
	r, err := t.resolve(row)
	if err != nil {
		return PointerResult{}, err
	}
	if err := t.checkColumn(col); err != nil {
		return PointerResult{}, err
	}
	if col == t.treeColumn {
		path := model.PathTo(t.graph, r.Node)
		if t.trigger.HitTestExpandControl(path, x, y) {
			t.Toggle(r.Node)
			return PointerResult{Toggled: true}, nil
		}
	}
	return PointerResult{BeginEdit: t.proj.IsEditable(r.Node, col)}, nil
}

// SnapshotState captures expansion overrides relative to the default depth.
func (t *TreeTable) SnapshotState(key KeyFunc) *TreeState {
	return SnapshotState(t.graph, t.exp, key, t.defaultDepth)
}

// RestoreState applies a snapshot and reloads the rows.
func (t *TreeTable) RestoreState(st *TreeState, key KeyFunc) {
	RestoreState(t.graph, t.exp, st, key, t.defaultDepth)
	t.visibilityReset()
}

// walkSubtree visits start and all its descendants.
func walkSubtree(g model.NodeGraph, start model.Node, fn func(model.Node)) {
	stack := []model.Node{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(n)
		for i := g.ChildCount(n) - 1; i >= 0; i-- {
			stack = append(stack, g.ChildAt(n, i))
		}
	}
}

// updatedRuns groups view rows into RowsUpdated events over contiguous runs.
func updatedRuns(rows []int) []RowEvent {
	if len(rows) == 0 {
		return nil
	}
	sorted := slices.Clone(rows)
	slices.Sort(sorted)
	var out []RowEvent
	cur := RowEvent{Kind: RowsUpdated, First: sorted[0], Last: sorted[0]}
	for _, r := range sorted[1:] {
		if r <= cur.Last+1 {
			if r > cur.Last {
				cur.Last = r
			}
			continue
		}
		out = append(out, cur)
		cur = RowEvent{Kind: RowsUpdated, First: r, Last: r}
	}
	return append(out, cur)
}
