package treetable

import (
	"slices"

	"github.com/cockroachdb/errors"
)

// CoordinateTranslator converts between view rows (after the backend's sort
// and filter) and model rows (ViewMapper order). Without an installed order
// it is the identity.
type CoordinateTranslator struct {
	modelRows   int
	viewToModel []int // nil means identity
	modelToView []int // -1 marks rows filtered out
}

// NewCoordinateTranslator returns an identity translator over modelRows rows.
func NewCoordinateTranslator(modelRows int) *CoordinateTranslator {
	return &CoordinateTranslator{modelRows: modelRows}
}

// SetOrder installs a view order: viewToModel[v] is the model row shown at
// view row v. Model rows missing from viewToModel are filtered out.
func (t *CoordinateTranslator) SetOrder(viewToModel []int, modelRows int) error {
	if modelRows < 0 || len(viewToModel) > modelRows {
		return errors.Wrapf(ErrInvalidOrder, "%d view rows over %d model rows", len(viewToModel), modelRows)
	}
	m2v := make([]int, modelRows)
	for i := range m2v {
		m2v[i] = -1
	}
	for v, mr := range viewToModel {
		if mr < 0 || mr >= modelRows {
			return errors.Wrapf(ErrInvalidOrder, "view row %d maps to model row %d outside [0, %d)", v, mr, modelRows)
		}
		if m2v[mr] >= 0 {
			return errors.Wrapf(ErrInvalidOrder, "model row %d appears at view rows %d and %d", mr, m2v[mr], v)
		}
		m2v[mr] = v
	}
	t.modelRows = modelRows
	t.viewToModel = slices.Clone(viewToModel)
	t.modelToView = m2v
	return nil
}

// ClearOrder returns to the identity mapping.
func (t *CoordinateTranslator) ClearOrder() {
	t.viewToModel = nil
	t.modelToView = nil
}

// HasOrder reports whether a non-identity order is installed.
func (t *CoordinateTranslator) HasOrder() bool {
	return t.viewToModel != nil
}

// Reset records a new model row count after the flattened view changed. An
// installed order no longer describes the rows and is dropped; the return
// value reports whether that happened.
func (t *CoordinateTranslator) Reset(modelRows int) bool {
	t.modelRows = modelRows
	if !t.HasOrder() {
		return false
	}
	t.ClearOrder()
	return true
}

// ModelRowCount returns the number of model rows.
func (t *CoordinateTranslator) ModelRowCount() int {
	return t.modelRows
}

// ViewRowCount returns the number of rows the backend shows.
func (t *CoordinateTranslator) ViewRowCount() int {
	if t.viewToModel == nil {
		return t.modelRows
	}
	return len(t.viewToModel)
}

// ToModelRow converts a view row to a model row.
func (t *CoordinateTranslator) ToModelRow(view int) (int, error) {
	n := t.ViewRowCount()
	if view < 0 || view >= n {
		return -1, rowOutOfRange(view, n)
	}
	if t.viewToModel == nil {
		return view, nil
	}
	return t.viewToModel[view], nil
}

// ToViewRow converts a model row to a view row. Rows hidden by the filter
// return ErrRowFiltered.
func (t *CoordinateTranslator) ToViewRow(model int) (int, error) {
	if model < 0 || model >= t.modelRows {
		return -1, rowOutOfRange(model, t.modelRows)
	}
	if t.modelToView == nil {
		return model, nil
	}
	if v := t.modelToView[model]; v >= 0 {
		return v, nil
	}
	return -1, errors.Wrapf(ErrRowFiltered, "model row %d", model)
}

// SortedOrder builds a view order over n model rows: rows for which keep
// returns false are dropped, the rest are stably sorted by less. Either func
// may be nil.
func SortedOrder(n int, keep func(model int) bool, less func(a, b int) bool) []int {
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if keep == nil || keep(i) {
			order = append(order, i)
		}
	}
	if less != nil {
		slices.SortStableFunc(order, func(a, b int) int {
			switch {
			case less(a, b):
				return -1
			case less(b, a):
				return 1
			default:
				return 0
			}
		})
	}
	return order
}
