package treetable

import (
	"fmt"
	"strings"
	"testing"

	"github.com/vanderheijden86/treegrid/pkg/model"
)

// sampleTree builds
//
//	root
//	├── a
//	│   ├── a1
//	│   └── a2
//	│       └── a21
//	├── b
//	│   └── b1
//	└── c
func sampleTree() *model.Tree {
	root := model.NewNode("root", nil).Add(
		model.NewNode("a", map[string]any{"Size": 3}).Add(
			model.NewNode("a1", map[string]any{"Size": 1}),
			model.NewNode("a2", map[string]any{"Size": 2}).Add(
				model.NewNode("a21", map[string]any{"Size": 1}),
			),
		),
		model.NewNode("b", map[string]any{"Size": 1}).Add(
			model.NewNode("b1", map[string]any{"Size": 1}),
		),
		model.NewNode("c", map[string]any{"Size": 0}),
	)
	return model.NewTree(root)
}

func sampleColumns() *model.Columns {
	return model.NewColumns(
		model.ColumnDescriptor{Name: "Name", Kind: model.ColumnTree},
		model.ColumnDescriptor{Name: "Size", Editable: true},
	)
}

func newSampleTable(t *testing.T, opts ...Option) (*TreeTable, *model.Tree) {
	t.Helper()
	tree := sampleTree()
	tt, err := New(tree, sampleColumns(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tt, tree
}

func find(t *testing.T, tree *model.Tree, name string) *model.TreeNode {
	t.Helper()
	n := tree.Find(name)
	if n == nil {
		t.Fatalf("node %q not found", name)
	}
	return n
}

// rowNames renders the flattened view one row per line, indented by one ". "
// per depth level.
func rowNames(rows []ViewRow) string {
	var sb strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&sb, "%s%v\n", strings.Repeat(". ", r.Depth), r.Node)
	}
	return sb.String()
}

// viewNames returns the node names in view order.
func viewNames(t *testing.T, tt *TreeTable) []string {
	t.Helper()
	names := make([]string, tt.RowCount())
	for i := range names {
		n, err := tt.NodeForRow(i)
		if err != nil {
			t.Fatalf("NodeForRow(%d): %v", i, err)
		}
		names[i] = fmt.Sprint(n)
	}
	return names
}

// eventLog collects every event of a table as strings.
type eventLog struct {
	events []string
}

func (l *eventLog) attach(tt *TreeTable) {
	tt.Notifier().SubscribeTree(func(ev ChangeEvent) {
		l.events = append(l.events, fmt.Sprintf("tree %s %v %v", ev.Kind, ev.Path, ev.ChildIndices))
	})
	tt.Notifier().SubscribeRows(func(ev RowEvent) {
		l.events = append(l.events, "rows "+ev.String())
	})
	tt.Notifier().SubscribeExpansion(func(ev ExpansionEvent) {
		l.events = append(l.events, fmt.Sprintf("expansion %v %t", ev.Path, ev.Expanded))
	})
	tt.Selection().Subscribe(func(ev SelectionEvent) {
		l.events = append(l.events, fmt.Sprintf("selection %s %v", ev.Origin, ev.Rows))
	})
}

func (l *eventLog) reset() {
	l.events = nil
}
