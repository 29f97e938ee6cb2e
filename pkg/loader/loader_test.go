package loader

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/vanderheijden86/treegrid/pkg/model"
)

const sampleYAML = `
root:
  name: project
  children:
    - name: docs
      fields:
        owner: ana
        pages: 12
      children:
        - name: intro
          fields:
            pages: 2
            status: draft
    - name: src
      fields:
        owner: bo
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func columnNames(cols []model.ColumnDescriptor) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// TestLoadYAMLDefaultColumns verifies default columns follow first-seen field order
func TestLoadYAMLDefaultColumns(t *testing.T) {
	doc, err := Load(writeFile(t, "outline.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"Name", "owner", "pages", "status"}
	if got := columnNames(doc.Columns); !slices.Equal(got, want) {
		t.Errorf("columns = %v, want %v", got, want)
	}
	if doc.Columns[0].Kind != model.ColumnTree || doc.Columns[0].Editable {
		t.Errorf("first column should be the read-only tree column: %+v", doc.Columns[0])
	}
	if !doc.Columns[1].Editable {
		t.Error("field columns default to editable")
	}

	intro := doc.Tree.Find("intro")
	if intro == nil || intro.ParentNode().Name != "docs" {
		t.Fatal("intro should hang under docs")
	}
	if got := model.NodeKey(doc.Tree, intro); got != "project/docs/intro" {
		t.Errorf("NodeKey = %q", got)
	}
	proj := doc.Projection()
	if v := proj.ValueAt(doc.Tree.Find("docs"), 2); v != 12 {
		t.Errorf("docs pages = %v (%T), want 12", v, v)
	}
}

func TestLoadJSONNodesList(t *testing.T) {
	path := writeFile(t, "plan.json", `{
  "columns": [{"name": "Task", "kind": "tree"}, {"name": "est", "editable": true}],
  "nodes": [
    {"name": "design", "fields": {"est": 3}},
    {"name": "build", "children": [{"name": "api"}]}
  ]
}`)
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Format != FormatJSON {
		t.Errorf("format = %s", doc.Format)
	}
	root := doc.Tree.RootNode()
	if root.Name != "plan" || len(root.Children()) != 2 {
		t.Fatalf("synthetic root = %v with %d children", root, len(root.Children()))
	}
	if got := columnNames(doc.Columns); !slices.Equal(got, []string{"Task", "est"}) {
		t.Errorf("columns = %v", got)
	}
	if v := doc.Projection().ValueAt(doc.Tree.Find("design"), 1); v != float64(3) {
		t.Errorf("est = %v (%T)", v, v)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		target  error
	}{
		{"no tree column", "columns: [{name: A}]\nroot: {name: r}\n", model.ErrNoTreeColumn},
		{"two tree columns", "columns: [{name: A, kind: tree}, {name: B, kind: tree}]\nroot: {name: r}\n", model.ErrMultipleTreeColumns},
		{"unnamed node", "root:\n  name: r\n  children:\n    - fields: {a: 1}\n", nil},
		{"root and nodes", "root: {name: r}\nnodes: [{name: x}]\n", nil},
		{"bad kind", "columns: [{name: A, kind: branch}]\nroot: {name: r}\n", nil},
		{"fields not a mapping", "root: {name: r, fields: [1, 2]}\n", nil},
		{"bad yaml", "root: [\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), FormatYAML, "doc")
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("error %v is not %v", err, tt.target)
			}
		})
	}
}

func TestParseEmptyDocument(t *testing.T) {
	doc, err := Parse([]byte("columns: []\n"), FormatYAML, "empty")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Tree.Root() != nil {
		t.Error("expected a tree without a root")
	}
}

func TestFormatForPath(t *testing.T) {
	for _, p := range []string{"a.yaml", "b.YML", "c.json"} {
		if _, err := FormatForPath(p); err != nil {
			t.Errorf("FormatForPath(%q): %v", p, err)
		}
	}
	if _, err := FormatForPath("d.toml"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

// TestSaveRoundTrip verifies an edited document reloads with the edit
func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"outline.yaml", "outline.json"} {
		t.Run(name, func(t *testing.T) {
			src := writeFile(t, "outline.yaml", sampleYAML)
			doc, err := Load(src)
			if err != nil {
				t.Fatal(err)
			}
			doc.Path = filepath.Join(filepath.Dir(src), name)
			doc.Format, _ = FormatForPath(name)
			doc.Tree.Find("src").Fields["owner"] = "cy"

			if err := Save(doc); err != nil {
				t.Fatalf("Save: %v", err)
			}
			again, err := Load(doc.Path)
			if err != nil {
				t.Fatalf("reload: %v", err)
			}
			if got := again.Tree.Find("src").Fields["owner"]; got != "cy" {
				t.Errorf("owner = %v, want cy", got)
			}
			if again.Tree.Find("intro") == nil {
				t.Error("nested node lost")
			}
			if len(again.Columns) != len(doc.Columns) || again.Columns[0].Kind != model.ColumnTree {
				t.Errorf("columns = %+v", again.Columns)
			}
		})
	}
}

func TestDecodeNamesRootAfterFile(t *testing.T) {
	doc, err := Decode("/tmp/plans.json", []byte(`{"nodes":[{"name":"q1"},{"name":"q2"}]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Path != "/tmp/plans.json" || doc.Format != FormatJSON {
		t.Errorf("path/format = %q/%v", doc.Path, doc.Format)
	}
	if got := doc.Tree.RootNode().Name; got != "plans" {
		t.Errorf("root name = %q, want plans", got)
	}
	if _, err := Decode("plans.txt", nil); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

// TestSaveReplacesFileAtomically verifies Save swaps in a new file: a reader
// holding the old file keeps seeing complete old contents and no temp file
// is left behind
func TestSaveReplacesFileAtomically(t *testing.T) {
	src := writeFile(t, "outline.yaml", sampleYAML)
	doc, err := Load(src)
	if err != nil {
		t.Fatal(err)
	}
	old, err := os.Open(src)
	if err != nil {
		t.Fatal(err)
	}
	defer old.Close()

	doc.Tree.Find("docs").Fields["owner"] = "cy"
	if err := Save(doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := io.ReadAll(old)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != sampleYAML {
		t.Errorf("the open file changed under its reader:\n%s", data)
	}

	entries, err := os.ReadDir(filepath.Dir(src))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "outline.yaml")
	if err := WriteFileAtomic(path, []byte("root: {name: x}\n")); err == nil {
		t.Error("expected an error for a missing directory")
	}
}
