package treetable

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"

	"github.com/vanderheijden86/treegrid/pkg/model"
)

// TreeState is the persisted expand/collapse state of a tree table.
//
// File format (JSON):
//
//	{
//	  "version": 1,
//	  "expanded": {
//	    "root/docs": true,     // explicitly expanded
//	    "root/src":  false     // explicitly collapsed
//	  }
//	}
//
// Only nodes whose state differs from the default are stored. The default is
// expanded for depth < defaultDepth and collapsed otherwise.
type TreeState struct {
	Version  int             `json:"version"`
	Expanded map[string]bool `json:"expanded"`
}

// TreeStateVersion is the current schema version.
const TreeStateVersion = 1

const treeStateFileName = "tree-state.json"

// DefaultTreeState returns an empty state at the current version.
func DefaultTreeState() *TreeState {
	return &TreeState{
		Version:  TreeStateVersion,
		Expanded: make(map[string]bool),
	}
}

// TreeStatePath returns the state file inside dir (default ".treegrid").
func TreeStatePath(dir string) string {
	if dir == "" {
		dir = ".treegrid"
	}
	return filepath.Join(dir, treeStateFileName)
}

// KeyFunc maps a node to a key that survives reloading the graph.
type KeyFunc func(g model.NodeGraph, n model.Node) string

// walkGraph visits every node of g in pre-order, hidden ones included.
func walkGraph(g model.NodeGraph, fn func(n model.Node, depth int)) {
	if g == nil || g.Root() == nil {
		return
	}
	type frame struct {
		n     model.Node
		depth int
	}
	stack := []frame{{g.Root(), 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(f.n, f.depth)
		for i := g.ChildCount(f.n) - 1; i >= 0; i-- {
			stack = append(stack, frame{g.ChildAt(f.n, i), f.depth + 1})
		}
	}
}

// SnapshotState records every non-leaf node whose expansion differs from the default.
func SnapshotState(g model.NodeGraph, exp *ExpansionState, key KeyFunc, defaultDepth int) *TreeState {
	st := DefaultTreeState()
	walkGraph(g, func(n model.Node, depth int) {
		if g.IsLeaf(n) {
			return
		}
		expanded := exp.IsExpanded(n)
		if expanded != (depth < defaultDepth) {
			st.Expanded[key(g, n)] = expanded
		}
	})
	return st
}

// RestoreState resets exp to the defaults and applies the overrides in st.
// Keys that no longer match a node are ignored.
func RestoreState(g model.NodeGraph, exp *ExpansionState, st *TreeState, key KeyFunc, defaultDepth int) {
	exp.Clear()
	walkGraph(g, func(n model.Node, depth int) {
		if g.IsLeaf(n) {
			return
		}
		expanded := depth < defaultDepth
		if st != nil {
			if v, ok := st.Expanded[key(g, n)]; ok {
				expanded = v
			}
		}
		if expanded {
			exp.Expand(n)
		}
	})
}

// SaveTreeState writes st to path, creating the directory if needed.
func SaveTreeState(path string, st *TreeState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal tree state")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create state directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write tree state %s", path)
	}
	return nil
}

// LoadTreeState reads a state file. A missing file yields the default state.
func LoadTreeState(path string) (*TreeState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultTreeState(), nil
		}
		return nil, errors.Wrapf(err, "read tree state %s", path)
	}
	var st TreeState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.Wrapf(err, "invalid tree state %s", path)
	}
	if st.Version > TreeStateVersion {
		return nil, errors.Newf("tree state %s has version %d, newer than %d", path, st.Version, TreeStateVersion)
	}
	if st.Expanded == nil {
		st.Expanded = make(map[string]bool)
	}
	return &st, nil
}
