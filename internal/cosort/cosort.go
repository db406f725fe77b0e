// Package cosort reorders a set of row-aligned columns by the sort order of
// one reference column.
//
// All columns passed to a single call must have the same length; callers are
// responsible for checking that. The permutation is applied in place with a
// single auxiliary buffer shared across columns.
package cosort

import (
	"cmp"
	"slices"
)

// Sorter holds the index and value scratch buffers reused across calls.
// A Sorter is not safe for concurrent use; give each goroutine its own.
type Sorter struct {
	perm []int
	buf  []int32
}

// Permutation returns the row order that sorts key in non-decreasing order:
// position i of the result holds the source row for output row i.
// Ties keep their input order. The returned slice is owned by s and is
// overwritten by the next call.
func (s *Sorter) Permutation(key []int32) []int {
	n := len(key)
	if cap(s.perm) < n {
		s.perm = make([]int, n)
	}
	perm := s.perm[:n]
	for i := range perm {
		perm[i] = i
	}
	slices.SortStableFunc(perm, func(a, b int) int {
		return cmp.Compare(key[a], key[b])
	})
	return perm
}

// CoSort sorts cols[by] in place and applies the same row permutation to
// every other column. Columns of length 0 or 1 are left untouched.
func (s *Sorter) CoSort(cols [][]int32, by int) {
	n := len(cols[by])
	if n < 2 {
		return
	}
	perm := s.Permutation(cols[by])
	if cap(s.buf) < n {
		s.buf = make([]int32, n)
	}
	buf := s.buf[:n]
	for _, col := range cols {
		Apply(perm, col, buf)
	}
}

// Apply reorders col so that col[i] becomes the old col[perm[i]].
//
// Positions at or after i still hold their original values when position i
// is written, and buf[j] holds the original col[j] for every j < i, so each
// source is read either from col or from buf. len(buf) must be >= len(col).
func Apply(perm []int, col, buf []int32) {
	for i, src := range perm {
		buf[i] = col[i]
		switch {
		case src > i:
			col[i] = col[src]
		case src < i:
			col[i] = buf[src]
		}
	}
}

// CoSort is a convenience wrapper that allocates a fresh Sorter.
func CoSort(cols [][]int32, by int) {
	var s Sorter
	s.CoSort(cols, by)
}
