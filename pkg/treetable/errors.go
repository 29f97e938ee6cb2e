package treetable

import "github.com/cockroachdb/errors"

var (
	// ErrRowOutOfRange is returned for row indices outside [0, RowCount()).
	ErrRowOutOfRange = errors.New("row index out of range")
	// ErrColumnOutOfRange is returned for column indices outside [0, ColumnCount()).
	ErrColumnOutOfRange = errors.New("column index out of range")
	// ErrRowFiltered is returned by ToViewRow for a model row the view order hides.
	ErrRowFiltered = errors.New("model row is filtered out of the view")
	// ErrInvalidOrder is returned when a view order is not a partial permutation.
	ErrInvalidOrder = errors.New("invalid view order")
	// ErrFullReloadRequired is returned when an incremental row update cannot be
	// computed, most commonly an insertion into a view that had zero rows.
	ErrFullReloadRequired = errors.New("incremental update impossible; full reload required")
)

func rowOutOfRange(row, n int) error {
	return errors.Wrapf(ErrRowOutOfRange, "row %d not in [0, %d)", row, n)
}
