package treetable

import (
	"testing"

	"github.com/vanderheijden86/treegrid/pkg/model"
)

func TestDepthOffset(t *testing.T) {
	tests := []struct {
		showRoot, handles bool
		want              int
	}{
		{true, true, 1},
		{true, false, 0},
		{false, true, 0},
		{false, false, -1},
	}
	for _, tt := range tests {
		l := Layout{ShowRoot: tt.showRoot, ShowRootHandles: tt.handles}
		if got := l.DepthOffset(); got != tt.want {
			t.Errorf("DepthOffset(root=%t, handles=%t) = %d, want %d", tt.showRoot, tt.handles, got, tt.want)
		}
	}
}

// TestExpandControlBounds covers the four offset cases and right-to-left
// mirroring with the default 7+11 indent and an 8 wide box
func TestExpandControlBounds(t *testing.T) {
	tests := []struct {
		name              string
		showRoot, handles bool
		dir               Direction
		depth             int
		left, right       int
	}{
		{"root handles", true, true, LeftToRight, 1, 22, 30},
		{"root no handles", true, false, LeftToRight, 1, 4, 12},
		{"hidden root handles", false, true, LeftToRight, 1, 4, 12},
		{"hidden root no handles", false, false, LeftToRight, 1, -14, -6},
		{"deeper", true, true, LeftToRight, 2, 40, 48},
		{"rtl root handles", true, true, RightToLeft, 1, 170, 178},
		{"rtl hidden root no handles", false, false, RightToLeft, 1, 206, 214},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := DefaultLayout()
			l.ShowRoot, l.ShowRootHandles = tt.showRoot, tt.handles
			l.Direction = tt.dir
			l.Width = 200
			left, right := l.ExpandControlBounds(tt.depth)
			if left != tt.left || right != tt.right {
				t.Errorf("bounds = [%d, %d), want [%d, %d)", left, right, tt.left, tt.right)
			}
		})
	}
}

// TestExpandControlMirrors verifies the RTL box is the LTR box reflected in
// the column width
func TestExpandControlMirrors(t *testing.T) {
	for depth := 0; depth < 4; depth++ {
		l := DefaultLayout()
		l.Width = 300
		ll, lr := l.ExpandControlBounds(depth)
		l.Direction = RightToLeft
		rl, rr := l.ExpandControlBounds(depth)
		if ll+lr+rl+rr != 2*l.Width {
			t.Errorf("depth %d: LTR [%d,%d) and RTL [%d,%d) are not mirrored in %d", depth, ll, lr, rl, rr, l.Width)
		}
	}
}

func TestHitTestExpandControl(t *testing.T) {
	tt, tree := newSampleTable(t)
	trig := tt.EditTrigger()
	a := model.PathTo(tree, find(t, tree, "a"))
	c := model.PathTo(tree, find(t, tree, "c"))
	a21 := model.PathTo(tree, find(t, tree, "a21"))

	// a is row 1 at depth 1: box [22, 30), band [16, 32)
	tests := []struct {
		name string
		path model.Path
		x, y int
		want bool
	}{
		{"inside", a, 22, 20, true},
		{"right edge", a, 29, 16, true},
		{"past right", a, 30, 20, false},
		{"before left", a, 21, 20, false},
		{"wrong row", a, 25, 40, false},
		{"leaf", c, 22, 52, false},
		{"hidden", a21, 58, 0, false},
		{"nil path", nil, 22, 20, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := trig.HitTestExpandControl(tc.path, tc.x, tc.y); got != tc.want {
				t.Errorf("HitTestExpandControl(%v, %d, %d) = %t, want %t", tc.path, tc.x, tc.y, got, tc.want)
			}
		})
	}
}

// TestHitTestTerminalCells checks the cell geometry the terminal renderer uses
func TestHitTestTerminalCells(t *testing.T) {
	l := Layout{LeftIndent: 1, RightIndent: 2, HandleWidth: 1, RowHeight: 1, ShowRoot: true, ShowRootHandles: true}
	left, right := l.ExpandControlBounds(1)
	if left != l.RowX(1)-2 || right != left+1 {
		t.Errorf("bounds = [%d, %d), want the single cell at %d", left, right, l.RowX(1)-2)
	}
}

// TestPointerDownTogglesWithoutEditing verifies toggling and editing are
// mutually exclusive outcomes of one press
func TestPointerDownTogglesWithoutEditing(t *testing.T) {
	tt, tree := newSampleTable(t)
	a := find(t, tree, "a")

	res, err := tt.PointerDown(1, 0, 25, 20)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Toggled || res.BeginEdit {
		t.Errorf("press on the box = %+v, want toggle only", res)
	}
	if !tt.IsExpanded(a) {
		t.Error("a should be expanded")
	}

	res, _ = tt.PointerDown(1, 0, 25, 20)
	if !res.Toggled || tt.IsExpanded(a) {
		t.Errorf("second press should collapse a, got %+v", res)
	}

	res, _ = tt.PointerDown(1, 1, 25, 20)
	if res.Toggled || !res.BeginEdit {
		t.Errorf("press on an editable plain cell = %+v, want edit", res)
	}

	res, _ = tt.PointerDown(1, 0, 60, 20)
	if res.Toggled || res.BeginEdit {
		t.Errorf("press on the label of a read-only tree cell = %+v, want nothing", res)
	}

	if _, err := tt.PointerDown(10, 0, 0, 0); err == nil {
		t.Error("expected an error for an out of range row")
	}
}
