package export

import (
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/treegrid/pkg/model"
	"github.com/vanderheijden86/treegrid/pkg/treetable"
)

// RowRecord is one visible row in the robot output.
type RowRecord struct {
	Row      int            `json:"row"`
	Depth    int            `json:"depth"`
	Path     string         `json:"path"`
	Leaf     bool           `json:"leaf"`
	Expanded bool           `json:"expanded"`
	Selected bool           `json:"selected,omitempty"`
	Values   map[string]any `json:"values"`
}

// RowsOutput is the document written by RowsJSON.
type RowsOutput struct {
	Columns []string    `json:"columns"`
	Rows    []RowRecord `json:"rows"`
}

// BuildRows collects the visible rows in view order.
func BuildRows(t *treetable.TreeTable) (RowsOutput, error) {
	out := RowsOutput{
		Columns: make([]string, t.ColumnCount()),
		Rows:    make([]RowRecord, 0, t.RowCount()),
	}
	for c := range out.Columns {
		out.Columns[c] = t.ColumnName(c)
	}
	g := t.Graph()
	for r := 0; r < t.RowCount(); r++ {
		n, err := t.NodeForRow(r)
		if err != nil {
			return RowsOutput{}, err
		}
		depth, err := t.DepthForRow(r)
		if err != nil {
			return RowsOutput{}, err
		}
		rec := RowRecord{
			Row:      r,
			Depth:    depth,
			Path:     pathKey(model.PathTo(g, n)),
			Leaf:     g.IsLeaf(n),
			Expanded: t.IsExpanded(n),
			Selected: t.Selection().IsSelected(n),
			Values:   make(map[string]any, len(out.Columns)),
		}
		for c, name := range out.Columns {
			v, err := t.ValueAt(r, c)
			if err != nil {
				return RowsOutput{}, err
			}
			rec.Values[name] = v
		}
		out.Rows = append(out.Rows, rec)
	}
	return out, nil
}

func pathKey(p model.Path) string {
	parts := make([]string, len(p))
	for i, n := range p {
		parts[i] = FormatValue(n)
	}
	return strings.Join(parts, "/")
}

// RowsJSON writes the visible rows as indented JSON.
func RowsJSON(w io.Writer, t *treetable.TreeTable) error {
	out, err := BuildRows(t)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
