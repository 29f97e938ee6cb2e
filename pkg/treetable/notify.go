package treetable

import (
	"fmt"
	"slices"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/vanderheijden86/treegrid/pkg/model"
)

// ChangeKind is the kind of a tree-level change.
type ChangeKind int

const (
	// StructureChanged: the subtree at Path is entirely stale.
	StructureChanged ChangeKind = iota
	// NodesInserted: Children were added under Path at ChildIndices.
	NodesInserted
	// NodesRemoved: Children were removed from Path; ChildIndices are their old indices.
	NodesRemoved
	// NodesChanged: values changed, structure did not. Nil ChildIndices means
	// the node at Path itself changed.
	NodesChanged
)

func (k ChangeKind) String() string {
	switch k {
	case StructureChanged:
		return "structure-changed"
	case NodesInserted:
		return "nodes-inserted"
	case NodesRemoved:
		return "nodes-removed"
	case NodesChanged:
		return "nodes-changed"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// ChangeEvent is a tree-level change notification.
type ChangeEvent struct {
	Kind         ChangeKind
	Path         model.Path
	ChildIndices []int // ascending
	Children     []model.Node
	PrevRowCount int // view rows before the change
}

// RowEventKind is the kind of a table-level change.
type RowEventKind int

const (
	// RowsReloaded: every row may have changed; re-query everything.
	RowsReloaded RowEventKind = iota
	// RowsInserted: rows First..Last are new.
	RowsInserted
	// RowsDeleted: rows First..Last (pre-deletion numbering) are gone.
	RowsDeleted
	// RowsUpdated: values of rows First..Last changed.
	RowsUpdated
	// RowsReordered: the view order changed; row count may have changed too.
	RowsReordered
)

func (k RowEventKind) String() string {
	switch k {
	case RowsReloaded:
		return "reloaded"
	case RowsInserted:
		return "inserted"
	case RowsDeleted:
		return "deleted"
	case RowsUpdated:
		return "updated"
	case RowsReordered:
		return "reordered"
	default:
		return fmt.Sprintf("RowEventKind(%d)", int(k))
	}
}

// RowEvent is a table-level change in view rows; bounds are inclusive.
type RowEvent struct {
	Kind        RowEventKind
	First, Last int
}

func (e RowEvent) String() string {
	if e.Kind == RowsReloaded || e.Kind == RowsReordered {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s %d-%d", e.Kind, e.First, e.Last)
}

// ExpansionEvent reports an expand or collapse gesture.
type ExpansionEvent struct {
	Path     model.Path
	Expanded bool
}

// InsertedRows builds the incremental event for rows first..last inserted
// into a view that had prevRowCount rows. An insertion into an empty view
// cannot be expressed incrementally and returns ErrFullReloadRequired along
// with a RowsReloaded event the caller should send instead.
func InsertedRows(prevRowCount, first, last int) (RowEvent, error) {
	if prevRowCount == 0 {
		return RowEvent{Kind: RowsReloaded}, errors.Wrapf(ErrFullReloadRequired,
			"insert of rows %d-%d into an empty view", first, last)
	}
	if first < 0 || last < first || first > prevRowCount {
		return RowEvent{Kind: RowsReloaded}, errors.Wrapf(ErrFullReloadRequired,
			"insert target %d-%d invalid for %d rows", first, last, prevRowCount)
	}
	return RowEvent{Kind: RowsInserted, First: first, Last: last}, nil
}

type listenerEntry[T any] struct {
	id int
	fn func(T)
}

type listenerList[T any] struct {
	nextID  int
	entries []listenerEntry[T]
}

func (l *listenerList[T]) add(fn func(T)) func() {
	id := l.nextID
	l.nextID++
	l.entries = append(l.entries, listenerEntry[T]{id: id, fn: fn})
	return func() {
		l.entries = slices.DeleteFunc(l.entries, func(e listenerEntry[T]) bool { return e.id == id })
	}
}

// dispatch calls listeners in reverse registration order over a snapshot of
// the list.
func (l *listenerList[T]) dispatch(ev T) {
	snapshot := slices.Clone(l.entries)
	for i := len(snapshot) - 1; i >= 0; i-- {
		snapshot[i].fn(ev)
	}
}

// ChangeNotifier is the observer registry of one tree table. Listeners run in
// reverse registration order. A listener must not mutate the graph or the
// expansion state from inside a callback; doing so is undefined.
type ChangeNotifier struct {
	tree      listenerList[ChangeEvent]
	rows      listenerList[RowEvent]
	expansion listenerList[ExpansionEvent]
}

// NewChangeNotifier returns an empty registry.
func NewChangeNotifier() *ChangeNotifier {
	return &ChangeNotifier{}
}

// SubscribeTree registers a tree-level listener and returns its unsubscribe func.
func (n *ChangeNotifier) SubscribeTree(fn func(ChangeEvent)) func() {
	return n.tree.add(fn)
}

// SubscribeRows registers a row-level listener.
func (n *ChangeNotifier) SubscribeRows(fn func(RowEvent)) func() {
	return n.rows.add(fn)
}

// SubscribeExpansion registers an expansion listener.
func (n *ChangeNotifier) SubscribeExpansion(fn func(ExpansionEvent)) func() {
	return n.expansion.add(fn)
}

// FireStructureChanged announces that the subtree at path is stale.
func (n *ChangeNotifier) FireStructureChanged(path model.Path, prevRowCount int) {
	n.tree.dispatch(ChangeEvent{Kind: StructureChanged, Path: path, PrevRowCount: prevRowCount})
}

// FireNodesInserted announces children inserted under parent.
func (n *ChangeNotifier) FireNodesInserted(parent model.Path, indices []int, children []model.Node, prevRowCount int) {
	indices, children = sortedPairs(indices, children)
	n.tree.dispatch(ChangeEvent{Kind: NodesInserted, Path: parent, ChildIndices: indices, Children: children, PrevRowCount: prevRowCount})
}

// FireNodesRemoved announces children removed from parent.
func (n *ChangeNotifier) FireNodesRemoved(parent model.Path, indices []int, removed []model.Node, prevRowCount int) {
	indices, removed = sortedPairs(indices, removed)
	n.tree.dispatch(ChangeEvent{Kind: NodesRemoved, Path: parent, ChildIndices: indices, Children: removed, PrevRowCount: prevRowCount})
}

// FireNodesChanged announces value changes. Nil indices means the node at
// parent itself changed.
func (n *ChangeNotifier) FireNodesChanged(parent model.Path, indices []int, rowCount int) {
	indices, _ = sortedPairs(indices, nil)
	n.tree.dispatch(ChangeEvent{Kind: NodesChanged, Path: parent, ChildIndices: indices, PrevRowCount: rowCount})
}

// FireRows delivers a row-level event.
func (n *ChangeNotifier) FireRows(ev RowEvent) {
	n.rows.dispatch(ev)
}

// FireExpansion delivers an expansion event.
func (n *ChangeNotifier) FireExpansion(ev ExpansionEvent) {
	n.expansion.dispatch(ev)
}

// sortedPairs returns copies of indices (and the aligned nodes, if any)
// ordered by ascending index.
func sortedPairs(indices []int, nodes []model.Node) ([]int, []model.Node) {
	if indices == nil {
		return nil, slices.Clone(nodes)
	}
	idx := slices.Clone(indices)
	ns := slices.Clone(nodes)
	if slices.IsSorted(idx) {
		return idx, ns
	}
	aligned := len(ns) == len(idx)
	perm := make([]int, len(idx))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool { return indices[perm[a]] < indices[perm[b]] })
	for i, p := range perm {
		idx[i] = indices[p]
		if aligned {
			ns[i] = nodes[p]
		}
	}
	return idx, ns
}
