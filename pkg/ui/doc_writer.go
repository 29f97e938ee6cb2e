package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/cockroachdb/errors"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/treegrid/pkg/export"
	"github.com/vanderheijden86/treegrid/pkg/loader"
	"github.com/vanderheijden86/treegrid/pkg/treetable"
)

// WriteOperation is the kind of output a DocWriter produced.
type WriteOperation int

const (
	OpSave WriteOperation = iota
	OpExport
	OpCopy
)

func (o WriteOperation) String() string {
	switch o {
	case OpSave:
		return "save"
	case OpExport:
		return "export"
	case OpCopy:
		return "copy"
	default:
		return fmt.Sprintf("WriteOperation(%d)", int(o))
	}
}

// WriteResultMsg is returned after a DocWriter command completes.
type WriteResultMsg struct {
	Operation WriteOperation
	Path      string
	Success   bool
	Error     error
	Output    string
}

// DocWriter produces tea.Cmds that write the document, a Markdown export or
// the clipboard off the UI thread. Content is rendered when the command is
// created, on the UI thread, since the table is not safe for concurrent use.
type DocWriter struct {
	// onWrite is told about document bytes before they hit the disk so the
	// reload worker can ignore its own writes.
	onWrite   func(data []byte)
	clipboard func(string) error
}

// NewDocWriter creates a writer. onWrite may be nil.
func NewDocWriter(onWrite func(data []byte)) *DocWriter {
	return &DocWriter{onWrite: onWrite, clipboard: clipboard.WriteAll}
}

// Save writes doc back to its path in its own format.
func (w *DocWriter) Save(doc *loader.Document) tea.Cmd {
	if doc == nil || doc.Path == "" {
		return w.failedCmd(OpSave, "", errors.New("document has no path"))
	}
	data, err := loader.Encode(doc)
	if err != nil {
		return w.failedCmd(OpSave, doc.Path, err)
	}
	path := doc.Path
	onWrite := w.onWrite
	return func() tea.Msg {
		if onWrite != nil {
			onWrite(data)
		}
		if err := loader.WriteFileAtomic(path, data); err != nil {
			return WriteResultMsg{Operation: OpSave, Path: path, Error: err}
		}
		return WriteResultMsg{
			Operation: OpSave,
			Path:      path,
			Success:   true,
			Output:    fmt.Sprintf("saved %s", filepath.Base(path)),
		}
	}
}

// ExportMarkdown writes the visible rows to path as a Markdown table.
func (w *DocWriter) ExportMarkdown(t *treetable.TreeTable, path, title string) tea.Cmd {
	content, err := export.GenerateMarkdown(t, title)
	if err != nil {
		return w.failedCmd(OpExport, path, err)
	}
	n := t.RowCount()
	return func() tea.Msg {
		if err := loader.WriteFileAtomic(path, []byte(content)); err != nil {
			return WriteResultMsg{Operation: OpExport, Path: path, Error: err}
		}
		return WriteResultMsg{
			Operation: OpExport,
			Path:      path,
			Success:   true,
			Output:    fmt.Sprintf("exported %d rows to %s", n, filepath.Base(path)),
		}
	}
}

// CopyRows puts the given view rows on the clipboard, one line per row with
// tab separated cells.
func (w *DocWriter) CopyRows(t *treetable.TreeTable, rows []int) tea.Cmd {
	text, err := rowsText(t, rows)
	if err != nil {
		return w.failedCmd(OpCopy, "", err)
	}
	write := w.clipboard
	n := len(rows)
	return func() tea.Msg {
		if err := write(text); err != nil {
			return WriteResultMsg{Operation: OpCopy, Error: errors.Wrap(err, "clipboard")}
		}
		return WriteResultMsg{
			Operation: OpCopy,
			Success:   true,
			Output:    fmt.Sprintf("copied %d rows", n),
		}
	}
}

func rowsText(t *treetable.TreeTable, rows []int) (string, error) {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		cells := make([]string, t.ColumnCount())
		for c := range cells {
			v, err := t.ValueAt(r, c)
			if err != nil {
				return "", err
			}
			cells[c] = cleanText(export.FormatValue(v))
		}
		lines = append(lines, strings.Join(cells, "\t"))
	}
	return strings.Join(lines, "\n"), nil
}

// failedCmd returns a command that immediately reports err
func (w *DocWriter) failedCmd(op WriteOperation, path string, err error) tea.Cmd {
	return func() tea.Msg {
		return WriteResultMsg{Operation: op, Path: path, Error: err}
	}
}
