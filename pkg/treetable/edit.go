package treetable

import (
	"github.com/vanderheijden86/treegrid/pkg/model"
)

// Direction is the horizontal layout direction of the tree column.
type Direction int

const (
	LeftToRight Direction = iota
	RightToLeft
)

// Layout is the geometry of the tree column's expand affordance. Units are
// whatever the backend uses for pointer coordinates (pixels, terminal cells).
type Layout struct {
	LeftIndent      int
	RightIndent     int
	HandleWidth     int // width of the expand box
	RowHeight       int // 0 disables the vertical check
	Width           int // tree column width, used to mirror right-to-left
	Direction       Direction
	ShowRoot        bool
	ShowRootHandles bool
}

// DefaultLayout mirrors the common desktop defaults: 7+11 indent, an 8 wide
// box, visible root with handles, left to right.
func DefaultLayout() Layout {
	return Layout{
		LeftIndent:      7,
		RightIndent:     11,
		HandleWidth:     8,
		RowHeight:       16,
		Direction:       LeftToRight,
		ShowRoot:        true,
		ShowRootHandles: true,
	}
}

// TotalIndent is the horizontal step per tree level.
func (l Layout) TotalIndent() int {
	return l.LeftIndent + l.RightIndent
}

// DepthOffset shifts depths so that the first drawn level starts at column 0:
//
//	visible root, handles shown   1
//	visible root, handles hidden  0
//	hidden root,  handles shown   0
//	hidden root,  handles hidden -1
func (l Layout) DepthOffset() int {
	switch {
	case l.ShowRoot && l.ShowRootHandles:
		return 1
	case !l.ShowRoot && !l.ShowRootHandles:
		return -1
	default:
		return 0
	}
}

// RowX is the left edge of a row's content at the given depth.
func (l Layout) RowX(depth int) int {
	return l.TotalIndent() * (depth + l.DepthOffset())
}

// ExpandControlBounds returns the half-open x range [left, right) of the
// expand box for a row at depth.
func (l Layout) ExpandControlBounds(depth int) (left, right int) {
	x := l.RowX(depth)
	if l.Direction == RightToLeft {
		left = l.Width - x + l.RightIndent - 1
		left -= l.HandleWidth / 2
	} else {
		left = x - l.RightIndent + 1
		left -= (l.HandleWidth + 1) / 2
	}
	return left, left + l.HandleWidth
}

// EditTrigger hit-tests pointer positions against the expand affordance.
type EditTrigger struct {
	graph      model.NodeGraph
	mapper     *ViewMapper
	translator *CoordinateTranslator
	layout     Layout
}

// NewEditTrigger creates a trigger over the given view state.
func NewEditTrigger(g model.NodeGraph, mapper *ViewMapper, translator *CoordinateTranslator, layout Layout) *EditTrigger {
	return &EditTrigger{graph: g, mapper: mapper, translator: translator, layout: layout}
}

// Layout returns the current geometry.
func (e *EditTrigger) Layout() Layout {
	return e.layout
}

// SetLayout replaces the geometry.
func (e *EditTrigger) SetLayout(l Layout) {
	e.layout = l
}

// HitTestExpandControl reports whether (x, y) falls on the expand box of the
// row showing path's target. Leaves and rows that are not visible never hit.
// When RowHeight is set, y must fall inside the row's band.
func (e *EditTrigger) HitTestExpandControl(path model.Path, x, y int) bool {
	node := path.Last()
	if node == nil || e.graph.IsLeaf(node) {
		return false
	}
	mr := e.mapper.RowOf(node)
	if mr < 0 {
		return false
	}
	if e.layout.RowHeight > 0 {
		vr, err := e.translator.ToViewRow(mr)
		if err != nil {
			return false
		}
		top := vr * e.layout.RowHeight
		if y < top || y >= top+e.layout.RowHeight {
			return false
		}
	}
	left, right := e.layout.ExpandControlBounds(path.Depth())
	return x >= left && x < right
}
