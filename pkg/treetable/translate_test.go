package treetable

import (
	"testing"

	"github.com/cockroachdb/errors"
	"pgregory.net/rapid"
)

// TestTranslatorIdentityRoundTrip verifies toView(toModel(r)) == r without an order
func TestTranslatorIdentityRoundTrip(t *testing.T) {
	tr := NewCoordinateTranslator(7)
	for v := 0; v < tr.ViewRowCount(); v++ {
		m, err := tr.ToModelRow(v)
		if err != nil {
			t.Fatalf("ToModelRow(%d): %v", v, err)
		}
		back, err := tr.ToViewRow(m)
		if err != nil {
			t.Fatalf("ToViewRow(%d): %v", m, err)
		}
		if back != v {
			t.Errorf("round trip %d -> %d -> %d", v, m, back)
		}
	}
}

// TestTranslatorOrderRoundTrip checks the round trip under random permutations
// and filters
func TestTranslatorOrderRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 50).Draw(rt, "rows")
		perm := rapid.Permutation(identity(n)).Draw(rt, "perm")
		keep := rapid.IntRange(0, n).Draw(rt, "keep")
		order := perm[:keep]

		tr := NewCoordinateTranslator(n)
		if err := tr.SetOrder(order, n); err != nil {
			rt.Fatalf("SetOrder: %v", err)
		}
		if tr.ViewRowCount() != keep {
			rt.Fatalf("ViewRowCount = %d, want %d", tr.ViewRowCount(), keep)
		}
		for v := range order {
			m, err := tr.ToModelRow(v)
			if err != nil {
				rt.Fatalf("ToModelRow(%d): %v", v, err)
			}
			back, err := tr.ToViewRow(m)
			if err != nil || back != v {
				rt.Fatalf("round trip %d -> %d -> %d (%v)", v, m, back, err)
			}
		}
		for _, m := range perm[keep:] {
			if _, err := tr.ToViewRow(m); !errors.Is(err, ErrRowFiltered) {
				rt.Fatalf("ToViewRow(%d) = %v, want ErrRowFiltered", m, err)
			}
		}
	})
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestTranslatorErrors(t *testing.T) {
	tr := NewCoordinateTranslator(3)
	if _, err := tr.ToModelRow(3); !errors.Is(err, ErrRowOutOfRange) {
		t.Errorf("ToModelRow(3) = %v, want ErrRowOutOfRange", err)
	}
	if _, err := tr.ToViewRow(-1); !errors.Is(err, ErrRowOutOfRange) {
		t.Errorf("ToViewRow(-1) = %v, want ErrRowOutOfRange", err)
	}

	tests := []struct {
		name  string
		order []int
	}{
		{"duplicate", []int{0, 0}},
		{"out of range", []int{3}},
		{"negative", []int{-1}},
		{"too long", []int{0, 1, 2, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tr.SetOrder(tt.order, 3); !errors.Is(err, ErrInvalidOrder) {
				t.Errorf("SetOrder(%v) = %v, want ErrInvalidOrder", tt.order, err)
			}
			if tr.HasOrder() {
				t.Error("a rejected order must not be installed")
			}
		})
	}
}

// TestTranslatorResetDropsOrder verifies a new model row count drops the order
func TestTranslatorResetDropsOrder(t *testing.T) {
	tr := NewCoordinateTranslator(3)
	if tr.Reset(4) {
		t.Error("Reset without an order should report false")
	}
	if err := tr.SetOrder([]int{2, 0}, 4); err != nil {
		t.Fatal(err)
	}
	if !tr.Reset(5) {
		t.Error("Reset with an order should report true")
	}
	if tr.HasOrder() || tr.ViewRowCount() != 5 {
		t.Errorf("after Reset: HasOrder=%t ViewRowCount=%d", tr.HasOrder(), tr.ViewRowCount())
	}
}

func TestSortedOrder(t *testing.T) {
	vals := []int{5, 1, 4, 1, 3}
	order := SortedOrder(len(vals),
		func(m int) bool { return vals[m] != 4 },
		func(a, b int) bool { return vals[a] < vals[b] })
	want := []int{1, 3, 4, 0}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
	if got := SortedOrder(3, nil, nil); len(got) != 3 || got[2] != 2 {
		t.Errorf("SortedOrder(3, nil, nil) = %v", got)
	}
}
