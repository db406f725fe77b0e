// Package datagen produces deterministic synthetic columns for tools and
// tests. Values are murmur3 hashes of (seed, column, row), so a dataset can be
// regenerated from its parameters alone.
package datagen

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/spaolacci/murmur3"
)

// CheckParams reports whether flag-style parameters describe a dataset
// Columns can generate. spread is taken as an int so callers can pass parsed
// flags without truncating them first.
func CheckParams(numCols, rows, spread int) error {
	switch {
	case numCols < 1:
		return fmt.Errorf("columns must be at least 1, got %d", numCols)
	case rows < 0:
		return fmt.Errorf("rows must not be negative, got %d", rows)
	case spread < 0 || spread > math.MaxInt32:
		return fmt.Errorf("spread must be in [0, %d], got %d", math.MaxInt32, spread)
	}
	return nil
}

// Columns returns numCols columns of rows values each. When spread > 0,
// values fall in [-spread, spread); otherwise they cover the full int32 range.
func Columns(numCols, rows int, seed uint32, spread int32) [][]int32 {
	cols := make([][]int32, numCols)
	for c := range cols {
		cols[c] = make([]int32, rows)
		Fill(cols[c], c, seed, spread)
	}
	return cols
}

// Fill writes the values of column c into dst.
func Fill(dst []int32, c int, seed uint32, spread int32) {
	var key [12]byte
	binary.LittleEndian.PutUint32(key[0:4], uint32(c))
	for r := range dst {
		binary.LittleEndian.PutUint64(key[4:12], uint64(r))
		h := murmur3.Sum32WithSeed(key[:], seed)
		if spread > 0 {
			dst[r] = int32(h%(2*uint32(spread))) - spread
		} else {
			dst[r] = int32(h)
		}
	}
}
