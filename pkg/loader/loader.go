// Package loader reads and writes outline documents (YAML or JSON) as an
// in-memory tree plus its column projection.
//
// Document format:
//
//	columns:            # optional; defaults to Name + one column per field
//	  - name: Name
//	    kind: tree
//	  - name: Owner
//	    editable: true
//	root:
//	  name: project
//	  fields: {owner: ana}
//	  children:
//	    - name: docs
//
// A top-level "nodes" list may replace "root"; the nodes then hang under a
// synthetic root named after the file.
package loader

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/treegrid/pkg/model"
)

// ErrUnsupportedFormat is returned for file extensions other than .yaml,
// .yml and .json.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Format is a document encoding.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "yaml"
}

// FormatForPath picks the format from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return FormatYAML, errors.Wrapf(ErrUnsupportedFormat, "%s", path)
	}
}

// DefaultTreeColumn is the name of the tree column when a document declares
// no columns.
const DefaultTreeColumn = "Name"

// Document is a loaded outline.
type Document struct {
	Path    string
	Format  Format
	Columns []model.ColumnDescriptor
	Tree    *model.Tree
}

// Projection returns the column projection of the document.
func (d *Document) Projection() *model.Columns {
	return model.NewColumns(d.Columns...)
}

type columnSpec struct {
	Name     string `yaml:"name" json:"name"`
	Kind     string `yaml:"kind,omitempty" json:"kind,omitempty"`
	Editable bool   `yaml:"editable,omitempty" json:"editable,omitempty"`
}

type nodeSpec struct {
	Name     string         `yaml:"name" json:"name"`
	Fields   map[string]any `yaml:"fields,omitempty" json:"fields,omitempty"`
	Children []*nodeSpec    `yaml:"children,omitempty" json:"children,omitempty"`

	// fieldOrder keeps the YAML key order of Fields.
	fieldOrder []string
}

type docSpec struct {
	Columns []columnSpec `yaml:"columns,omitempty" json:"columns,omitempty"`
	Root    *nodeSpec    `yaml:"root,omitempty" json:"root,omitempty"`
	Nodes   []*nodeSpec  `yaml:"nodes,omitempty" json:"nodes,omitempty"`
}

// UnmarshalYAML decodes a node while recording the order of its field keys.
func (n *nodeSpec) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Name     string      `yaml:"name"`
		Fields   yaml.Node   `yaml:"fields"`
		Children []*nodeSpec `yaml:"children"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	n.Name, n.Children = raw.Name, raw.Children
	if raw.Fields.Kind == 0 {
		return nil
	}
	if raw.Fields.Kind != yaml.MappingNode {
		return errors.Newf("line %d: fields of %q must be a mapping", raw.Fields.Line, raw.Name)
	}
	if err := raw.Fields.Decode(&n.Fields); err != nil {
		return err
	}
	for i := 0; i+1 < len(raw.Fields.Content); i += 2 {
		n.fieldOrder = append(n.fieldOrder, raw.Fields.Content[i].Value)
	}
	return nil
}

// fieldKeys returns the node's field names: document order for YAML, sorted
// for JSON, whose decoder does not keep object key order.
func (n *nodeSpec) fieldKeys() []string {
	if n.fieldOrder != nil {
		return n.fieldOrder
	}
	keys := make([]string, 0, len(n.Fields))
	for k := range n.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Load reads a document from disk.
func Load(path string) (*Document, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return decode(path, format, data)
}

// Decode parses data as the content of the document at path.
func Decode(path string, data []byte) (*Document, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	return decode(path, format, data)
}

func decode(path string, format Format, data []byte) (*Document, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	doc, err := Parse(data, format, name)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	doc.Path = path
	return doc, nil
}

// Parse decodes a document. rootName names the synthetic root used when the
// document has a top-level "nodes" list.
func Parse(data []byte, format Format, rootName string) (*Document, error) {
	var spec docSpec
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, errors.Wrap(err, "parse json")
		}
	default:
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, errors.Wrap(err, "parse yaml")
		}
	}

	root := spec.Root
	switch {
	case root != nil && len(spec.Nodes) > 0:
		return nil, errors.New("document has both root and nodes")
	case root == nil && len(spec.Nodes) > 0:
		root = &nodeSpec{Name: rootName, Children: spec.Nodes}
	}

	tree, order, err := buildTree(root)
	if err != nil {
		return nil, err
	}
	columns, err := buildColumns(spec.Columns, order)
	if err != nil {
		return nil, err
	}
	return &Document{Format: format, Columns: columns, Tree: tree}, nil
}

// buildTree converts the decoded nodes into a model.Tree and returns the field
// keys in first-seen pre-order.
func buildTree(root *nodeSpec) (*model.Tree, []string, error) {
	if root == nil {
		return model.NewTree(nil), nil, nil
	}
	type frame struct {
		spec   *nodeSpec
		parent *model.TreeNode
		path   string
	}
	var (
		top   *model.TreeNode
		order []string
		seen  = make(map[string]bool)
		stack = []frame{{spec: root}}
	)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.spec == nil {
			return nil, nil, errors.Newf("empty node under %q", f.path)
		}
		path := f.spec.Name
		if f.path != "" {
			path = f.path + "/" + f.spec.Name
		}
		if strings.TrimSpace(f.spec.Name) == "" {
			return nil, nil, errors.Newf("node %q has no name", path)
		}
		n := model.NewNode(f.spec.Name, f.spec.Fields)
		if f.parent == nil {
			top = n
		} else {
			f.parent.Add(n)
		}
		for _, k := range f.spec.fieldKeys() {
			if !seen[k] {
				seen[k] = true
				order = append(order, k)
			}
		}
		for i := len(f.spec.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{spec: f.spec.Children[i], parent: n, path: path})
		}
	}
	return model.NewTree(top), order, nil
}

// buildColumns validates declared columns, or derives the default set: the
// tree column followed by one editable column per field key.
func buildColumns(specs []columnSpec, fieldOrder []string) ([]model.ColumnDescriptor, error) {
	if len(specs) == 0 {
		cols := []model.ColumnDescriptor{{Name: DefaultTreeColumn, Kind: model.ColumnTree}}
		for _, k := range fieldOrder {
			cols = append(cols, model.ColumnDescriptor{Name: k, Editable: true})
		}
		return cols, nil
	}
	cols := make([]model.ColumnDescriptor, len(specs))
	for i, s := range specs {
		kind, err := model.ParseColumnKind(s.Kind)
		if err != nil {
			return nil, errors.Wrapf(err, "column %d", i)
		}
		cols[i] = model.ColumnDescriptor{Name: s.Name, Kind: kind, Editable: s.Editable}
	}
	if _, err := model.TreeColumn(model.NewColumns(cols...)); err != nil {
		return nil, err
	}
	return cols, nil
}

// Save writes the document back to its path in its format, replacing the
// file atomically.
func Save(doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	return WriteFileAtomic(doc.Path, data)
}

// Encode serializes the document in its format.
func Encode(doc *Document) ([]byte, error) {
	spec := docSpec{Root: toSpec(doc.Tree)}
	for _, c := range doc.Columns {
		cs := columnSpec{Name: c.Name, Editable: c.Editable}
		if c.Kind == model.ColumnTree {
			cs.Kind = c.Kind.String()
		}
		spec.Columns = append(spec.Columns, cs)
	}
	if doc.Format == FormatJSON {
		data, err := json.MarshalIndent(&spec, "", "  ")
		return data, errors.Wrap(err, "encode json")
	}
	data, err := yaml.Marshal(&spec)
	return data, errors.Wrap(err, "encode yaml")
}

func toSpec(tree *model.Tree) *nodeSpec {
	if tree == nil || tree.RootNode() == nil {
		return nil
	}
	specs := make(map[*model.TreeNode]*nodeSpec)
	tree.Walk(func(n *model.TreeNode, _ int) bool {
		s := &nodeSpec{Name: n.Name, Fields: n.Fields}
		specs[n] = s
		if p := n.ParentNode(); p != nil {
			specs[p].Children = append(specs[p].Children, s)
		}
		return true
	})
	return specs[tree.RootNode()]
}

// WriteFileAtomic writes through a temp file in the same directory and
// renames it over path.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temp file in %s", dir)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return errors.Wrapf(err, "write %s", name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return errors.Wrapf(err, "close %s", name)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return errors.Wrapf(err, "chmod %s", name)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return errors.Wrapf(err, "rename over %s", path)
	}
	return nil
}
