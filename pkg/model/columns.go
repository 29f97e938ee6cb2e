package model

import (
	"github.com/cockroachdb/errors"
)

// Columns is a Projection over TreeNode values. The tree column shows the
// node name; every other column reads the field named after the column.
type Columns struct {
	descs []ColumnDescriptor
}

// NewColumns builds a projection from descriptors.
func NewColumns(descs ...ColumnDescriptor) *Columns {
	c := &Columns{descs: make([]ColumnDescriptor, len(descs))}
	copy(c.descs, descs)
	return c
}

// Descriptors returns a copy of the column descriptors.
func (c *Columns) Descriptors() []ColumnDescriptor {
	out := make([]ColumnDescriptor, len(c.descs))
	copy(out, c.descs)
	return out
}

func (c *Columns) ColumnCount() int {
	return len(c.descs)
}

func (c *Columns) ColumnName(i int) string {
	if i < 0 || i >= len(c.descs) {
		return ""
	}
	if c.descs[i].Name == "" {
		return ColumnName(i)
	}
	return c.descs[i].Name
}

func (c *Columns) ColumnKind(i int) ColumnKind {
	if i < 0 || i >= len(c.descs) {
		return ColumnPlain
	}
	return c.descs[i].Kind
}

func (c *Columns) ValueAt(node Node, column int) any {
	n := asTreeNode(node)
	if n == nil || column < 0 || column >= len(c.descs) {
		return nil
	}
	if c.descs[column].Kind == ColumnTree {
		return n.Name
	}
	return n.Fields[c.ColumnName(column)]
}

func (c *Columns) IsEditable(node Node, column int) bool {
	if asTreeNode(node) == nil || column < 0 || column >= len(c.descs) {
		return false
	}
	return c.descs[column].Editable
}

// SetValueAt writes a field on an editable column. Editing the tree column
// renames the node.
func (c *Columns) SetValueAt(node Node, column int, value any) error {
	n := asTreeNode(node)
	if n == nil {
		return errors.New("set value: not a tree node")
	}
	if !c.IsEditable(node, column) {
		return errors.Newf("set value: column %q is not editable", c.ColumnName(column))
	}
	if c.descs[column].Kind == ColumnTree {
		s, ok := value.(string)
		if !ok {
			return errors.Newf("set value: tree column needs a string, got %T", value)
		}
		n.Name = s
		return nil
	}
	if n.Fields == nil {
		n.Fields = make(map[string]any)
	}
	n.Fields[c.ColumnName(column)] = value
	return nil
}
