package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/treegrid/pkg/model"
	"github.com/vanderheijden86/treegrid/pkg/treetable"
)

func newTable(t *testing.T, opts ...treetable.Option) (*treetable.TreeTable, *model.Tree) {
	t.Helper()
	root := model.NewNode("root", nil).Add(
		model.NewNode("a", map[string]any{"Size": 3}).Add(
			model.NewNode("a1", map[string]any{"Size": 1}),
		),
		model.NewNode("b|c", map[string]any{"Size": 2}),
	)
	tree := model.NewTree(root)
	cols := model.NewColumns(
		model.ColumnDescriptor{Name: "Name", Kind: model.ColumnTree},
		model.ColumnDescriptor{Name: "Size"},
	)
	tt, err := treetable.New(tree, cols, opts...)
	if err != nil {
		t.Fatal(err)
	}
	tt.Expand(tree.Find("a"))
	return tt, tree
}

func TestGenerateMarkdown(t *testing.T) {
	tt, _ := newTable(t)
	md, err := GenerateMarkdown(tt, "Outline")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(md, "\n"), "\n")
	// title, blank, header, separator, 4 rows
	if len(lines) != 8 {
		t.Fatalf("got %d lines:\n%s", len(lines), md)
	}
	if lines[0] != "# Outline" {
		t.Errorf("title = %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "| Name") || !strings.Contains(lines[3], "---") {
		t.Errorf("header = %q / %q", lines[2], lines[3])
	}
	wantCells := []string{
		"▾ root",
		indentUnit + "▾ a",
		indentUnit + indentUnit + "• a1",
		indentUnit + `• b\|c`,
	}
	for i, want := range wantCells {
		if !strings.Contains(lines[4+i], want) {
			t.Errorf("row %d = %q, want it to contain %q", i, lines[4+i], want)
		}
	}
	// Columns are padded to a common display width.
	width := len([]rune(lines[2]))
	for _, l := range lines[3:] {
		if len([]rune(l)) != width {
			t.Errorf("line %q is not aligned to %d runes", l, width)
		}
	}
}

func TestGenerateMarkdownHiddenRoot(t *testing.T) {
	tt, _ := newTable(t, treetable.WithShowRoot(false))
	md, err := GenerateMarkdown(tt, "")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(md, "root") {
		t.Error("hidden root should not be exported")
	}
	if !strings.Contains(md, "| ▾ a") {
		t.Errorf("top level rows should be flush left:\n%s", md)
	}
}

func TestSaveMarkdownToFile(t *testing.T) {
	tt, _ := newTable(t)
	path := filepath.Join(t.TempDir(), "out.md")
	if err := SaveMarkdownToFile(tt, path, "x"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# x\n") {
		t.Errorf("unexpected file content %q", data)
	}
}

func TestRowsJSON(t *testing.T) {
	tt, tree := newTable(t)
	tt.Selection().SelectNodes(tree.Find("a1"))
	var buf bytes.Buffer
	if err := RowsJSON(&buf, tt); err != nil {
		t.Fatal(err)
	}
	var out RowsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, buf.String())
	}
	if len(out.Rows) != 4 || len(out.Columns) != 2 {
		t.Fatalf("got %d rows, %d columns", len(out.Rows), len(out.Columns))
	}
	a1 := out.Rows[2]
	if a1.Path != "root/a/a1" || a1.Depth != 2 || !a1.Leaf || !a1.Selected {
		t.Errorf("a1 record = %+v", a1)
	}
	if a1.Values["Size"] != float64(1) {
		t.Errorf("a1 size = %v", a1.Values["Size"])
	}
	if !out.Rows[1].Expanded {
		t.Error("a should be reported expanded")
	}
}
