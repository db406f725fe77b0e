package kdsplit

import (
	"fmt"

	kderrors "github.com/tamirms/kdsplit/errors"
	"github.com/tamirms/kdsplit/internal/cosort"
)

// SplitPolicy chooses the column a unit is co-sorted and halved on.
//
// cols are the unit's own rows; last is the column its parent split on, or
// NoDimension for the root. Next must return an index in [0, len(cols)).
// Implementations are called concurrently from every worker and must not
// modify cols.
type SplitPolicy interface {
	Next(cols [][]int32, last int) int
}

// SplitPolicyFunc adapts a function to SplitPolicy.
type SplitPolicyFunc func(cols [][]int32, last int) int

// Next calls f(cols, last).
func (f SplitPolicyFunc) Next(cols [][]int32, last int) int {
	return f(cols, last)
}

// RoundRobin cycles through the columns: 0 for the root, then last+1 modulo
// the column count.
type RoundRobin struct{}

// Next implements SplitPolicy.
func (RoundRobin) Next(cols [][]int32, last int) int {
	if last < 0 || len(cols) == 0 {
		return 0
	}
	return (last + 1) % len(cols)
}

// MaxSpread picks the column whose values span the widest range (max - min)
// within the unit. Ties go to the lowest index. When every column is constant
// it falls back to RoundRobin so repeated splits still rotate.
type MaxSpread struct{}

// Next implements SplitPolicy.
func (MaxSpread) Next(cols [][]int32, last int) int {
	best, bestSpread := -1, int64(0)
	for c, col := range cols {
		if len(col) == 0 {
			continue
		}
		lo, hi := col[0], col[0]
		for _, v := range col[1:] {
			lo = min(lo, v)
			hi = max(hi, v)
		}
		if spread := int64(hi) - int64(lo); spread > bestSpread {
			best, bestSpread = c, spread
		}
	}
	if best < 0 {
		return RoundRobin{}.Next(cols, last)
	}
	return best
}

// CoSort reorders every column of cols in place so that cols[by] is
// non-decreasing, moving whole rows together. Ties keep their input order.
func CoSort(cols [][]int32, by int) error {
	if _, err := numRows(cols); err != nil {
		return err
	}
	if by < 0 || by >= len(cols) {
		return fmt.Errorf("%w: %d of %d columns", kderrors.ErrInvalidDimension, by, len(cols))
	}
	cosort.CoSort(cols, by)
	return nil
}

// Split co-sorts cols on dim and cuts every column at row len/2. Rows
// [0, mid) go to left and [mid, len) to right. Both halves alias cols;
// no values are copied.
func Split(cols [][]int32, dim int) (left, right [][]int32, err error) {
	if err := CoSort(cols, dim); err != nil {
		return nil, nil, err
	}
	rows := len(cols[0])
	mid := rows / 2
	return rowView(nil, cols, 0, mid), rowView(nil, cols, mid, rows), nil
}
