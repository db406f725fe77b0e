package kdsplit

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"slices"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// scenarioColumns is the three-column, eight-row dataset used across tests.
func scenarioColumns() [][]int32 {
	return [][]int32{
		{1, 2, 3, 4, 4, 3, 2, 1},
		{5, 4, 3, 2, 2, 3, 4, 5},
		{9, 3, 2, 8, 5, 7, 1, 0},
	}
}

func randomColumns(rng *rand.Rand, numCols, rows int, spread int32) [][]int32 {
	cols := make([][]int32, numCols)
	for c := range cols {
		cols[c] = make([]int32, rows)
		for r := range cols[c] {
			cols[c][r] = int32(rng.Int64N(2*int64(spread)) - int64(spread))
		}
	}
	return cols
}

func cloneColumns(cols [][]int32) [][]int32 {
	out := make([][]int32, len(cols))
	for i, c := range cols {
		out[i] = slices.Clone(c)
	}
	return out
}

// rowCounts returns the multiset of rows in cols, keyed by the row's values.
func rowCounts(cols [][]int32) map[string]int {
	counts := make(map[string]int)
	if len(cols) == 0 {
		return counts
	}
	row := make([]int32, len(cols))
	for r := range cols[0] {
		for c := range cols {
			row[c] = cols[c][r]
		}
		counts[fmt.Sprint(row)]++
	}
	return counts
}
