package kdsplit

import (
	kderrors "github.com/tamirms/kdsplit/errors"
)

// maxRows is the largest supported row count. Leaf coverage is tracked in a
// 32-bit roaring bitmap and the file header stores rows as uint64.
const maxRows = uint64(1) << 32

// NoDimension is the last split dimension of a unit that was never split.
const NoDimension = -1

// Validate checks that cols is a well-formed dataset: at least one column,
// every column the same length, and no more than 2^32 rows.
func Validate(cols [][]int32) error {
	_, err := numRows(cols)
	return err
}

// numRows validates cols and returns the shared column length.
func numRows(cols [][]int32) (int, error) {
	if len(cols) == 0 {
		return 0, kderrors.ErrNoColumns
	}
	rows := len(cols[0])
	for i := 1; i < len(cols); i++ {
		if len(cols[i]) != rows {
			return 0, &kderrors.ColumnLengthError{Column: i, Expected: rows, Actual: len(cols[i])}
		}
	}
	if uint64(rows) > maxRows {
		return 0, kderrors.ErrTooManyRows
	}
	return rows, nil
}

// rowView fills dst with the [lo, hi) sub-slices of cols and returns it.
// Capacity is capped at hi so an append through a view can never write into
// a neighbouring unit's rows.
func rowView(dst, cols [][]int32, lo, hi int) [][]int32 {
	dst = dst[:0]
	for _, col := range cols {
		dst = append(dst, col[lo:hi:hi])
	}
	return dst
}
