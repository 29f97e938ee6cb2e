package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap binds the grid commands.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Home        key.Binding
	End         key.Binding
	Left        key.Binding
	Right       key.Binding
	Toggle      key.Binding
	Parent      key.Binding
	ExpandAll   key.Binding
	CollapseAll key.Binding
	Select      key.Binding
	Edit        key.Binding
	Filter      key.Binding
	Sort        key.Binding
	ClearOrder  key.Binding
	Copy        key.Binding
	Save        key.Binding
	Export      key.Binding
	Reload      key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:      key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
		PageDown:    key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
		Home:        key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first row")),
		End:         key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last row")),
		Left:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "collapse or parent")),
		Right:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "expand or child")),
		Toggle:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "toggle")),
		Parent:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "parent")),
		ExpandAll:   key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "expand all")),
		CollapseAll: key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "collapse all")),
		Select:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		Edit:        key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit cell")),
		Filter:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Sort:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		ClearOrder:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear filter/sort")),
		Copy:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy rows")),
		Save:        key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Export:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export markdown")),
		Reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp is the footer line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Edit, k.Filter, k.Sort, k.Save, k.Help, k.Quit}
}

// FullHelp is the help overlay, grouped by concern.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.End, k.Parent},
		{k.Left, k.Right, k.Toggle, k.ExpandAll, k.CollapseAll},
		{k.Select, k.Edit, k.Filter, k.Sort, k.ClearOrder},
		{k.Copy, k.Save, k.Export, k.Reload, k.Help, k.Quit},
	}
}
