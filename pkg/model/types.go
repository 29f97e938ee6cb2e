package model

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNoParent is returned when removing a node that has no parent.
	// It is a caller error and should not be retried.
	ErrNoParent = errors.New("node has no parent")
	// ErrChildIndexOutOfRange is returned by Insert and Remove for a bad child index.
	ErrChildIndexOutOfRange = errors.New("child index out of range")
	// ErrNoTreeColumn is returned when a projection has no tree column.
	ErrNoTreeColumn = errors.New("projection has no tree column")
	// ErrMultipleTreeColumns is returned when more than one column is tagged as the tree column.
	ErrMultipleTreeColumns = errors.New("projection has more than one tree column")
)

// Node is an opaque handle into a NodeGraph. The dynamic type must be
// comparable; pointers are the usual choice.
type Node any

// NodeGraph is the hierarchical data source. It exclusively owns the
// parent/child edges; callers only hold references to nodes.
type NodeGraph interface {
	Root() Node
	ChildAt(parent Node, i int) Node
	ChildCount(parent Node) int
	// IndexOfChild returns -1 if child is not a child of parent.
	IndexOfChild(parent, child Node) int
	IsLeaf(node Node) bool
	// Parent returns nil for the root and for detached nodes.
	Parent(node Node) Node
	Insert(parent, child Node, index int) error
	Remove(parent Node, index int) (Node, error)
}

// ColumnKind tags a column as the tree column or a plain value column.
type ColumnKind int

const (
	ColumnPlain ColumnKind = iota
	ColumnTree
)

func (k ColumnKind) String() string {
	switch k {
	case ColumnTree:
		return "tree"
	case ColumnPlain:
		return "plain"
	default:
		return fmt.Sprintf("ColumnKind(%d)", int(k))
	}
}

// ParseColumnKind parses "tree" or "plain". The empty string is plain.
func ParseColumnKind(s string) (ColumnKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "plain":
		return ColumnPlain, nil
	case "tree":
		return ColumnTree, nil
	default:
		return ColumnPlain, errors.Newf("unknown column kind %q", s)
	}
}

// ColumnDescriptor describes one table column.
type ColumnDescriptor struct {
	Name     string     `yaml:"name" json:"name"`
	Kind     ColumnKind `yaml:"-" json:"-"`
	Editable bool       `yaml:"editable,omitempty" json:"editable,omitempty"`
}

// Projection is the tabular view of a NodeGraph's nodes.
type Projection interface {
	ColumnCount() int
	ColumnName(i int) string
	ColumnKind(i int) ColumnKind
	ValueAt(node Node, column int) any
	IsEditable(node Node, column int) bool
}

// ValueSetter is implemented by projections that accept edits.
type ValueSetter interface {
	SetValueAt(node Node, column int, value any) error
}

// TreeColumn returns the index of the single tree column in p.
func TreeColumn(p Projection) (int, error) {
	found := -1
	for i := 0; i < p.ColumnCount(); i++ {
		if p.ColumnKind(i) != ColumnTree {
			continue
		}
		if found >= 0 {
			return -1, errors.Wrapf(ErrMultipleTreeColumns, "columns %d and %d", found, i)
		}
		found = i
	}
	if found < 0 {
		return -1, ErrNoTreeColumn
	}
	return found, nil
}

// ColumnName returns the default name for a column index: A, B, ..., Z, AA,
// AB, ... (bijective base-26). Negative indices yield "".
func ColumnName(index int) string {
	if index < 0 {
		return ""
	}
	var buf [16]byte
	i := len(buf)
	for index >= 0 {
		i--
		buf[i] = byte('A' + index%26)
		index = index/26 - 1
	}
	return string(buf[i:])
}

// Path is the sequence of nodes from the root to a target, inclusive.
type Path []Node

// PathTo builds the path from the graph root to node by following parent
// references. A nil node yields a nil path.
func PathTo(g NodeGraph, node Node) Path {
	if g == nil || node == nil {
		return nil
	}
	depth := 0
	for p := g.Parent(node); p != nil; p = g.Parent(p) {
		depth++
	}
	path := make(Path, depth+1)
	n := node
	for i := depth; i >= 0; i-- {
		path[i] = n
		n = g.Parent(n)
	}
	return path
}

// Last returns the target node, or nil for an empty path.
func (p Path) Last() Node {
	if len(p) == 0 {
		return nil
	}
	return p[len(p)-1]
}

// ParentPath returns the path without its last element.
func (p Path) ParentPath() Path {
	if len(p) <= 1 {
		return nil
	}
	return p[:len(p)-1]
}

// Depth is the number of edges from the root; -1 for an empty path.
func (p Path) Depth() int {
	return len(p) - 1
}

// Child returns a new path extended by node.
func (p Path) Child(node Node) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = node
	return out
}

// Equal reports whether both paths name the same nodes in order.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// Contains reports whether node lies on the path.
func (p Path) Contains(node Node) bool {
	for _, n := range p {
		if n == node {
			return true
		}
	}
	return false
}

// IsDescendant reports whether p lies under (or equals) ancestor.
func (p Path) IsDescendant(ancestor Path) bool {
	if len(ancestor) > len(p) {
		return false
	}
	return p[:len(ancestor)].Equal(ancestor)
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, n := range p {
		parts[i] = fmt.Sprint(n)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Attached reports whether node is reachable from the graph root through
// edges the graph still reports in both directions.
func Attached(g NodeGraph, node Node) bool {
	if g == nil || node == nil {
		return false
	}
	root := g.Root()
	n := node
	for n != root {
		p := g.Parent(n)
		if p == nil || g.IndexOfChild(p, n) < 0 {
			return false
		}
		n = p
	}
	return true
}
