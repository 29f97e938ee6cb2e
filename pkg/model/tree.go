package model

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// TreeNode is a node of the in-memory Tree.
type TreeNode struct {
	Name   string
	Fields map[string]any

	parent   *TreeNode
	children []*TreeNode
}

// NewNode creates a detached node.
func NewNode(name string, fields map[string]any) *TreeNode {
	return &TreeNode{Name: name, Fields: fields}
}

func (n *TreeNode) String() string {
	if n == nil {
		return "<nil>"
	}
	return n.Name
}

// Children returns the node's children. The slice must not be modified.
func (n *TreeNode) Children() []*TreeNode {
	return n.children
}

// ParentNode returns the parent, or nil.
func (n *TreeNode) ParentNode() *TreeNode {
	return n.parent
}

// Add appends child and returns n, for building fixtures.
func (n *TreeNode) Add(children ...*TreeNode) *TreeNode {
	for _, c := range children {
		c.parent = n
		n.children = append(n.children, c)
	}
	return n
}

// Tree is an in-memory NodeGraph over *TreeNode.
type Tree struct {
	root *TreeNode
}

// NewTree creates a tree rooted at root. root may be nil.
func NewTree(root *TreeNode) *Tree {
	return &Tree{root: root}
}

func (t *Tree) Root() Node {
	if t.root == nil {
		return nil
	}
	return t.root
}

// RootNode returns the typed root.
func (t *Tree) RootNode() *TreeNode {
	return t.root
}

func asTreeNode(n Node) *TreeNode {
	tn, _ := n.(*TreeNode)
	return tn
}

func (t *Tree) ChildAt(parent Node, i int) Node {
	p := asTreeNode(parent)
	if p == nil || i < 0 || i >= len(p.children) {
		return nil
	}
	return p.children[i]
}

func (t *Tree) ChildCount(parent Node) int {
	p := asTreeNode(parent)
	if p == nil {
		return 0
	}
	return len(p.children)
}

func (t *Tree) IndexOfChild(parent, child Node) int {
	p, c := asTreeNode(parent), asTreeNode(child)
	if p == nil || c == nil {
		return -1
	}
	for i, ch := range p.children {
		if ch == c {
			return i
		}
	}
	return -1
}

func (t *Tree) IsLeaf(node Node) bool {
	n := asTreeNode(node)
	return n == nil || len(n.children) == 0
}

func (t *Tree) Parent(node Node) Node {
	n := asTreeNode(node)
	if n == nil || n.parent == nil {
		return nil
	}
	return n.parent
}

func (t *Tree) Insert(parent, child Node, index int) error {
	p, c := asTreeNode(parent), asTreeNode(child)
	if p == nil {
		return errors.New("insert: nil parent")
	}
	if c == nil {
		return errors.New("insert: nil child")
	}
	if c.parent != nil {
		return errors.Newf("insert: %q already has parent %q", c.Name, c.parent.Name)
	}
	for a := p; a != nil; a = a.parent {
		if a == c {
			return errors.Newf("insert: %q is an ancestor of %q", c.Name, p.Name)
		}
	}
	if index < 0 || index > len(p.children) {
		return errors.Wrapf(ErrChildIndexOutOfRange, "insert at %d under %q with %d children",
			index, p.Name, len(p.children))
	}
	p.children = append(p.children, nil)
	copy(p.children[index+1:], p.children[index:])
	p.children[index] = c
	c.parent = p
	return nil
}

func (t *Tree) Remove(parent Node, index int) (Node, error) {
	p := asTreeNode(parent)
	if p == nil {
		return nil, ErrNoParent
	}
	if index < 0 || index >= len(p.children) {
		return nil, errors.Wrapf(ErrChildIndexOutOfRange, "remove %d under %q with %d children",
			index, p.Name, len(p.children))
	}
	c := p.children[index]
	p.children = append(p.children[:index], p.children[index+1:]...)
	c.parent = nil
	return c, nil
}

// Walk visits every node in pre-order. Returning false from fn skips the
// node's children.
func (t *Tree) Walk(fn func(n *TreeNode, depth int) bool) {
	if t.root == nil {
		return
	}
	type frame struct {
		n     *TreeNode
		depth int
	}
	stack := []frame{{t.root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.n, f.depth) {
			continue
		}
		for i := len(f.n.children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.n.children[i], f.depth + 1})
		}
	}
}

// Find returns the first node (pre-order) with the given name.
func (t *Tree) Find(name string) *TreeNode {
	var found *TreeNode
	t.Walk(func(n *TreeNode, _ int) bool {
		if found != nil {
			return false
		}
		if n.Name == name {
			found = n
			return false
		}
		return true
	})
	return found
}

// NodeKey returns the "/"-joined names along the node's path. It is stable
// across reloads of the same document and is used to persist expansion state.
func NodeKey(g NodeGraph, node Node) string {
	path := PathTo(g, node)
	parts := make([]string, len(path))
	for i, n := range path {
		if tn := asTreeNode(n); tn != nil {
			parts[i] = tn.Name
		}
	}
	return strings.Join(parts, "/")
}
