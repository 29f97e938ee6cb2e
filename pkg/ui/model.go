package ui

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"

	"github.com/vanderheijden86/treegrid/pkg/export"
	"github.com/vanderheijden86/treegrid/pkg/loader"
	"github.com/vanderheijden86/treegrid/pkg/model"
	"github.com/vanderheijden86/treegrid/pkg/treetable"
)

// gridTop is the screen line where the grid header is drawn.
const gridTop = 1

// chromeLines are the lines around the grid: title, status and footer.
const chromeLines = 3

// session is state shared with table listeners, which outlive copies of
// the Model value.
type session struct {
	dirty       bool
	forceReload bool
}

// Options configures NewModel.
type Options struct {
	// TableOptions are passed to treetable.New, also when a reload brings
	// new columns.
	TableOptions []treetable.Option
	// State, when set, is applied after the table is built.
	State *treetable.TreeState
	// ExpandAll opens every node after State is applied.
	ExpandAll bool
	// Worker reloads the document on change. May be nil.
	Worker *BackgroundWorker
	// ExportPath is where the export key writes Markdown. Defaults to the
	// document path with a .md extension.
	ExportPath string
	Theme      *Theme
	Keys       *KeyMap
}

// Model is the top-level bubbletea model: a grid over a TreeTable plus the
// filter, edit and sort modals.
type Model struct {
	doc     *loader.Document
	table   *treetable.TreeTable
	grid    TreeModel
	keys    KeyMap
	theme   Theme
	tblOpts []treetable.Option

	context     Context
	helpFor     Context
	filterInput textinput.Model
	editor      textinput.Model
	editRow     int
	editCol     int
	picker      ColumnPickerModel

	writer     *DocWriter
	worker     *BackgroundWorker
	session    *session
	unsubs     []func()
	exportPath string

	status    string
	statusErr bool
	width     int
	height    int
}

// NewModel builds the table for doc and wraps it in a Model.
func NewModel(doc *loader.Document, opts Options) (Model, error) {
	if doc == nil {
		return Model{}, errors.New("no document")
	}
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	keys := DefaultKeyMap()
	if opts.Keys != nil {
		keys = *opts.Keys
	}

	fi := textinput.New()
	fi.Prompt = "/ "
	fi.Placeholder = "filter rows..."
	fi.CharLimit = 120

	ed := textinput.New()
	ed.Prompt = "= "
	ed.CharLimit = 1024

	m := Model{
		doc:         doc,
		keys:        keys,
		theme:       theme,
		tblOpts:     opts.TableOptions,
		filterInput: fi,
		editor:      ed,
		worker:      opts.Worker,
		session:     &session{},
		exportPath:  opts.ExportPath,
	}
	var onWrite func([]byte)
	if opts.Worker != nil {
		onWrite = opts.Worker.MarkWritten
	}
	m.writer = NewDocWriter(onWrite)
	if m.exportPath == "" && doc.Path != "" {
		m.exportPath = strings.TrimSuffix(doc.Path, filepath.Ext(doc.Path)) + ".md"
	}

	t, err := m.newTable(doc)
	if err != nil {
		return Model{}, err
	}
	if opts.State != nil {
		t.RestoreState(opts.State, model.NodeKey)
	}
	if opts.ExpandAll {
		t.ExpandAll()
	}
	m.attach(t)
	return m, nil
}

func (m *Model) newTable(doc *loader.Document) (*treetable.TreeTable, error) {
	t, err := treetable.New(doc.Tree, doc.Projection(), m.tblOpts...)
	if err != nil {
		return nil, errors.Wrapf(err, "build table for %s", doc.Path)
	}
	return t, nil
}

// attach makes t the displayed table and subscribes to its edits.
func (m *Model) attach(t *treetable.TreeTable) {
	for _, u := range m.unsubs {
		u()
	}
	s := m.session
	m.unsubs = []func(){
		t.Notifier().SubscribeTree(func(ev treetable.ChangeEvent) {
			if ev.Kind != treetable.StructureChanged {
				s.dirty = true
			}
		}),
	}
	m.table = t
	if m.grid.table == nil {
		m.grid = NewTreeModel(t, m.theme)
	} else {
		m.grid.SetTable(t)
	}
}

// Table returns the table being shown.
func (m Model) Table() *treetable.TreeTable {
	return m.table
}

// Document returns the document being shown.
func (m Model) Document() *loader.Document {
	return m.doc
}

// Grid returns the grid view.
func (m Model) Grid() *TreeModel {
	return &m.grid
}

// Dirty reports whether there are edits that were not saved.
func (m Model) Dirty() bool {
	return m.session.dirty
}

// Status returns the status line text.
func (m Model) Status() string {
	return m.status
}

// Context returns the focused part of the UI.
func (m Model) Context() Context {
	return m.context
}

// SnapshotState captures the expansion state for persisting.
func (m Model) SnapshotState() *treetable.TreeState {
	return m.table.SnapshotState(model.NodeKey)
}

func (m *Model) setStatus(format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.grid.SetSize(msg.Width, max(msg.Height-chromeLines, 2))
		m.picker.SetSize(msg.Width, msg.Height)
		m.filterInput.Width = max(msg.Width-4, 10)
		m.editor.Width = max(msg.Width-4, 10)
		return m, nil

	case DocumentReadyMsg:
		if m.session.dirty && !m.session.forceReload {
			m.setStatus("%s changed on disk; unsaved edits kept (r reloads)", filepath.Base(msg.Doc.Path))
			return m, nil
		}
		if err := m.applyDocument(msg.Doc); err != nil {
			m.setError(err)
			return m, nil
		}
		m.setStatus("reloaded %s", filepath.Base(msg.Doc.Path))
		return m, nil

	case DocumentErrorMsg:
		m.setError(errors.Wrap(msg.Err, "reload"))
		return m, nil

	case WriteResultMsg:
		if !msg.Success {
			m.setError(errors.Wrapf(msg.Error, "%s failed", msg.Operation))
			return m, nil
		}
		if msg.Operation == OpSave {
			m.session.dirty = false
		}
		m.setStatus("%s", msg.Output)
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		switch m.context {
		case ContextFilter:
			return m.updateFilter(msg)
		case ContextEdit:
			return m.updateEdit(msg)
		case ContextSortPicker:
			return m.updatePicker(msg)
		case ContextHelp:
			if key.Matches(msg, m.keys.Help) || msg.String() == "esc" || msg.String() == "q" {
				m.context = m.helpFor
			}
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	g := &m.grid
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		g.MoveUp()
	case key.Matches(msg, m.keys.Down):
		g.MoveDown()
	case key.Matches(msg, m.keys.PageUp):
		g.PageUp()
	case key.Matches(msg, m.keys.PageDown):
		g.PageDown()
	case key.Matches(msg, m.keys.Home):
		g.JumpToTop()
	case key.Matches(msg, m.keys.End):
		g.JumpToBottom()
	case key.Matches(msg, m.keys.Left):
		g.CollapseOrJumpToParent()
	case key.Matches(msg, m.keys.Right):
		g.ExpandOrMoveToChild()
	case key.Matches(msg, m.keys.Toggle):
		g.ToggleExpand()
	case key.Matches(msg, m.keys.Parent):
		g.JumpToParent()
	case key.Matches(msg, m.keys.ExpandAll):
		g.ExpandAll()
	case key.Matches(msg, m.keys.CollapseAll):
		g.CollapseAll()
	case key.Matches(msg, m.keys.Select):
		g.ToggleSelect()
	case key.Matches(msg, m.keys.Edit):
		col := m.firstEditableColumn(g.CursorRow())
		if col < 0 {
			m.setStatus("no editable cell in this row")
			return m, nil
		}
		return m.beginEdit(g.CursorRow(), col)
	case key.Matches(msg, m.keys.Filter):
		m.context = ContextFilter
		m.filterInput.SetValue(g.Filter())
		m.filterInput.CursorEnd()
		return m, m.filterInput.Focus()
	case key.Matches(msg, m.keys.Sort):
		names := make([]string, m.table.ColumnCount())
		for c := range names {
			names[c] = m.table.ColumnName(c)
		}
		col, desc := g.SortColumn()
		m.picker = NewColumnPickerModel(names, col, desc, m.theme)
		m.picker.SetSize(m.width, m.height)
		m.context = ContextSortPicker
	case key.Matches(msg, m.keys.ClearOrder):
		g.ClearOrder()
		m.setStatus("flattened order")
	case key.Matches(msg, m.keys.Copy):
		rows := m.table.Selection().SelectedRows()
		if len(rows) == 0 {
			rows = []int{g.CursorRow()}
		}
		return m, m.writer.CopyRows(m.table, rows)
	case key.Matches(msg, m.keys.Save):
		return m, m.writer.Save(m.doc)
	case key.Matches(msg, m.keys.Export):
		if m.exportPath == "" {
			m.setStatus("no export path")
			return m, nil
		}
		return m, m.writer.ExportMarkdown(m.table, m.exportPath, m.title())
	case key.Matches(msg, m.keys.Reload):
		return m, m.reload()
	case key.Matches(msg, m.keys.Help):
		m.helpFor = m.context
		m.context = ContextHelp
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.context != ContextGrid {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.grid.MoveUp()
		return m, nil
	case tea.MouseButtonWheelDown:
		m.grid.MoveDown()
		return m, nil
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
	default:
		return m, nil
	}

	y := msg.Y - gridTop
	if y == 0 {
		if col, ok := m.grid.HeaderColumnAt(msg.X); ok {
			if err := m.grid.SortBy(col); err != nil {
				m.setError(err)
			}
		}
		return m, nil
	}
	row, col, cx, ok := m.grid.CellAt(msg.X, y)
	if !ok {
		return m, nil
	}
	cur := m.grid.CursorNode()
	onCursor := row == m.grid.CursorRow()
	// Rows are RowHeight cells tall and the grid scrolls by whole rows, so
	// the pointer's y in table space is the row's band.
	res, err := m.table.PointerDown(row, col, cx, row*m.table.Layout().RowHeight)
	if err != nil {
		m.setError(err)
		return m, nil
	}
	if res.Toggled {
		m.grid.Sync()
		m.grid.follow(cur)
		return m, nil
	}
	m.grid.SetCursor(row)
	// A second click on the cursor row edits the cell.
	if res.BeginEdit && onCursor {
		return m.beginEdit(row, col)
	}
	return m, nil
}

func (m *Model) firstEditableColumn(row int) int {
	for c := 0; c < m.table.ColumnCount(); c++ {
		if ok, err := m.table.IsCellEditable(row, c); err == nil && ok {
			return c
		}
	}
	return -1
}

func (m Model) beginEdit(row, col int) (tea.Model, tea.Cmd) {
	v, err := m.table.ValueAt(row, col)
	if err != nil {
		m.setError(err)
		return m, nil
	}
	m.editRow, m.editCol = row, col
	m.editor.Prompt = m.table.ColumnName(col) + " = "
	m.editor.SetValue(export.FormatValue(v))
	m.editor.CursorEnd()
	m.context = ContextEdit
	return m, m.editor.Focus()
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editor.Blur()
		m.context = ContextGrid
		return m, nil
	case "enter":
		m.editor.Blur()
		m.context = ContextGrid
		n, _ := m.table.NodeForRow(m.editRow)
		old, _ := m.table.ValueAt(m.editRow, m.editCol)
		if err := m.table.SetValueAt(m.editRow, m.editCol, parseCellValue(old, m.editor.Value())); err != nil {
			m.setError(err)
			return m, nil
		}
		if m.grid.ordered() {
			// a value edit keeps the view order, but the row may now sort or
			// filter differently
			_ = m.grid.applyOrder()
		}
		m.grid.Sync()
		m.grid.follow(n)
		m.setStatus("edited %s", m.table.ColumnName(m.editCol))
		return m, nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filterInput.SetValue("")
		m.filterInput.Blur()
		m.context = ContextGrid
		if err := m.grid.SetFilter(""); err != nil {
			m.setError(err)
		}
		return m, nil
	case "enter":
		m.filterInput.Blur()
		m.context = ContextGrid
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	if err := m.grid.SetFilter(m.filterInput.Value()); err != nil {
		m.setError(err)
	}
	return m, cmd
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "esc":
		m.context = ContextGrid
	case key.Matches(msg, m.keys.Up):
		m.picker.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.picker.MoveDown()
	case msg.String() == "enter":
		m.context = ContextGrid
		if col := m.picker.SelectedColumn(); col >= 0 {
			if err := m.grid.SortBy(col); err != nil {
				m.setError(err)
			}
		}
	}
	return m, nil
}

// reload asks for a fresh copy of the document, discarding unsaved edits.
func (m *Model) reload() tea.Cmd {
	m.session.forceReload = true
	if m.worker != nil {
		m.worker.ResetHash()
		m.worker.TriggerRefresh()
		return nil
	}
	path := m.doc.Path
	return func() tea.Msg {
		doc, err := loader.Load(path)
		if err != nil {
			return DocumentErrorMsg{Err: err, Recoverable: true}
		}
		return DocumentReadyMsg{Doc: doc}
	}
}

// applyDocument swaps in a reloaded document. Expansion, selection and the
// cursor carry over by node key.
func (m *Model) applyDocument(doc *loader.Document) error {
	keyOf := func(n model.Node) string { return model.NodeKey(m.table.Graph(), n) }
	st := m.table.SnapshotState(model.NodeKey)
	var cursorKey string
	if n := m.grid.CursorNode(); n != nil {
		cursorKey = keyOf(n)
	}
	selected := make(map[string]bool)
	for _, n := range m.table.Selection().SelectedNodes() {
		selected[keyOf(n)] = true
	}

	if slices.Equal(m.doc.Columns, doc.Columns) {
		m.table.SetGraph(doc.Tree)
	} else {
		t, err := m.newTable(doc)
		if err != nil {
			return err
		}
		m.attach(t)
	}
	m.doc = doc
	m.table.RestoreState(st, model.NodeKey)

	var cursor model.Node
	var sel []model.Node
	doc.Tree.Walk(func(n *model.TreeNode, _ int) bool {
		k := model.NodeKey(doc.Tree, n)
		if k == cursorKey {
			cursor = n
		}
		if selected[k] {
			sel = append(sel, n)
		}
		return true
	})
	m.table.Selection().SelectNodes(sel...)
	m.grid.Sync()
	if cursor != nil {
		m.grid.follow(cursor)
	}
	m.session.dirty = false
	m.session.forceReload = false
	return nil
}

func (m Model) title() string {
	if m.doc.Path == "" {
		return "treegrid"
	}
	return filepath.Base(m.doc.Path)
}

func (m Model) View() string {
	switch m.context {
	case ContextHelp:
		return RenderContextHelp(m.helpFor, m.keys, m.theme, max(m.width, 40), max(m.height, 10))
	case ContextSortPicker:
		return m.picker.View()
	}

	r := m.theme.Renderer
	var sb strings.Builder

	title := m.title()
	if m.session.dirty {
		title += " ●"
	}
	info := fmt.Sprintf("%d rows", m.table.RowCount())
	if n := m.table.Selection().Len(); n > 0 {
		info += fmt.Sprintf(" • %d selected", n)
	}
	if f := m.grid.Filter(); f != "" {
		info += fmt.Sprintf(" • filter %q", f)
	}
	sb.WriteString(m.theme.Header.Render(title))
	sb.WriteString("  ")
	sb.WriteString(r.NewStyle().Foreground(m.theme.Muted).Render(info))
	sb.WriteString("\n")

	sb.WriteString(m.grid.View())
	sb.WriteString("\n")

	statusStyle := m.theme.Status
	if m.statusErr {
		statusStyle = r.NewStyle().Foreground(m.theme.Error)
	}
	sb.WriteString(statusStyle.Render(m.status))
	sb.WriteString("\n")

	switch m.context {
	case ContextFilter:
		sb.WriteString(m.filterInput.View())
	case ContextEdit:
		sb.WriteString(m.editor.View())
	default:
		sb.WriteString(r.NewStyle().Foreground(m.theme.Muted).Render(shortHelpLine(m.keys.ShortHelp())))
	}
	return sb.String()
}

// parseCellValue converts typed text to the type of the value it replaces.
// Text that does not parse stays a string.
func parseCellValue(old any, text string) any {
	switch old.(type) {
	case int, int64, uint64:
		if v, err := strconv.Atoi(strings.TrimSpace(text)); err == nil {
			return v
		}
	case float64, float32:
		if v, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
			return v
		}
	case bool:
		if v, err := strconv.ParseBool(strings.TrimSpace(text)); err == nil {
			return v
		}
	}
	return text
}
