package treetable

import "github.com/vanderheijden86/treegrid/pkg/model"

// ExpansionState tracks which nodes are expanded. A node's ancestor chain is
// unique in a tree, so the node identifies its path.
type ExpansionState struct {
	expanded map[model.Node]struct{}
}

// NewExpansionState returns an empty state: everything collapsed.
func NewExpansionState() *ExpansionState {
	return &ExpansionState{expanded: make(map[model.Node]struct{})}
}

// IsExpanded reports whether n is expanded.
func (s *ExpansionState) IsExpanded(n model.Node) bool {
	if n == nil {
		return false
	}
	_, ok := s.expanded[n]
	return ok
}

// IsPathExpanded reports whether the target of p is expanded.
func (s *ExpansionState) IsPathExpanded(p model.Path) bool {
	return s.IsExpanded(p.Last())
}

// Expand marks n expanded and reports whether the state changed.
func (s *ExpansionState) Expand(n model.Node) bool {
	if n == nil || s.IsExpanded(n) {
		return false
	}
	s.expanded[n] = struct{}{}
	return true
}

// Collapse marks n collapsed and reports whether the state changed.
func (s *ExpansionState) Collapse(n model.Node) bool {
	if !s.IsExpanded(n) {
		return false
	}
	delete(s.expanded, n)
	return true
}

// Toggle flips n and returns the new state.
func (s *ExpansionState) Toggle(n model.Node) bool {
	if s.Collapse(n) {
		return false
	}
	return s.Expand(n)
}

// Forget drops nodes from the set, e.g. after they were removed from the graph.
func (s *ExpansionState) Forget(nodes ...model.Node) {
	for _, n := range nodes {
		delete(s.expanded, n)
	}
}

// Clear collapses everything.
func (s *ExpansionState) Clear() {
	clear(s.expanded)
}

// Len returns the number of expanded nodes.
func (s *ExpansionState) Len() int {
	return len(s.expanded)
}

// Nodes returns the expanded nodes in no particular order.
func (s *ExpansionState) Nodes() []model.Node {
	out := make([]model.Node, 0, len(s.expanded))
	for n := range s.expanded {
		out = append(out, n)
	}
	return out
}
