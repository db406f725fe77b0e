package kdsplit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kderrors "github.com/tamirms/kdsplit/errors"
)

func TestPartitionPreconditions(t *testing.T) {
	tests := []struct {
		name string
		cols [][]int32
		opts []Option
		want error
	}{
		{"NoColumns", [][]int32{}, nil, kderrors.ErrNoColumns},
		{"NilColumns", nil, nil, kderrors.ErrNoColumns},
		{"Ragged", [][]int32{{1, 2, 3}, {1, 2}}, nil, kderrors.ErrRaggedColumns},
		{"ZeroLeafSize", scenarioColumns(), []Option{WithLeafSize(0)}, kderrors.ErrInvalidLeafSize},
		{"NegativeLeafSize", scenarioColumns(), []Option{WithLeafSize(-3)}, kderrors.ErrInvalidLeafSize},
		{"NegativeWorkers", scenarioColumns(), []Option{WithWorkers(-1)}, kderrors.ErrInvalidWorkers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := cloneColumns(tt.cols)
			res, err := Partition(context.Background(), tt.cols, tt.opts...)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
			// Rejected before any work: columns untouched.
			assert.Equal(t, orig, cloneColumns(tt.cols))
		})
	}
}

func TestPartitionScenario(t *testing.T) {
	for _, workers := range []int{1, 2, 4, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			cols := scenarioColumns()
			res, err := Partition(context.Background(), cols, WithLeafSize(3), WithWorkers(workers), WithVerify())
			require.NoError(t, err)

			assert.Equal(t, [][]int32{
				{2, 2, 1, 1, 4, 4, 3, 3},
				{4, 4, 5, 5, 2, 2, 3, 3},
				{3, 1, 9, 0, 8, 5, 2, 7},
			}, cols)
			assert.Equal(t, []Leaf{
				{Offset: 0, Rows: 2, Dim: 1, Depth: 2},
				{Offset: 2, Rows: 2, Dim: 1, Depth: 2},
				{Offset: 4, Rows: 2, Dim: 1, Depth: 2},
				{Offset: 6, Rows: 2, Dim: 1, Depth: 2},
			}, res.Leaves)
			assert.Equal(t, 3, res.Splits)
			assert.Equal(t, 8, res.Rows)
			assert.Equal(t, 3, res.Columns)
		})
	}
}

// TestPartitionOddRows pins the result for a nine-row input where the
// round-robin policy reaches the third column.
func TestPartitionOddRows(t *testing.T) {
	cols := [][]int32{
		{1, 2, 3, 4, 4, 3, 2, 1, 99},
		{5, 4, 3, 2, 2, 3, 4, 5, -1},
		{9, 3, 2, 8, 5, 7, 1, 0, 99},
	}
	res, err := Partition(context.Background(), cols)
	require.NoError(t, err)

	assert.Equal(t, [][]int32{
		{2, 2, 1, 1, 99, 4, 3, 4, 3},
		{4, 4, 5, 5, -1, 2, 3, 2, 3},
		{3, 1, 9, 0, 99, 8, 2, 5, 7},
	}, cols)
	assert.Equal(t, []Leaf{
		{Offset: 0, Rows: 2, Dim: 1, Depth: 2},
		{Offset: 2, Rows: 2, Dim: 1, Depth: 2},
		{Offset: 4, Rows: 2, Dim: 1, Depth: 2},
		{Offset: 6, Rows: 1, Dim: 2, Depth: 3},
		{Offset: 7, Rows: 2, Dim: 2, Depth: 3},
	}, res.Leaves)
}

func TestPartitionLeafSizeOne(t *testing.T) {
	cols := scenarioColumns()
	res, err := Partition(context.Background(), cols, WithLeafSize(1))
	require.NoError(t, err)

	require.Len(t, res.Leaves, 8)
	for i, l := range res.Leaves {
		assert.Equal(t, i, l.Offset)
		assert.Equal(t, 1, l.Rows)
	}
	assert.Equal(t, 7, res.Splits)
	assert.Equal(t, []int32{1, 3, 0, 9, 5, 8, 2, 7}, cols[2])
}

// TestPartitionTerminates runs a grid of shapes and checks every run returns
// and produces a lossless tiling whose leaves respect the size floor.
func TestPartitionTerminates(t *testing.T) {
	rng := newTestRNG(t)
	for _, rows := range []int{0, 1, 2, 3, 5, 8, 33, 1000} {
		for _, leafSize := range []int{1, 2, 3, 7, 64} {
			for _, workers := range []int{1, 2, 3, 4, 16} {
				name := fmt.Sprintf("rows=%d/leaf=%d/workers=%d", rows, leafSize, workers)
				cols := randomColumns(rng, 3, rows, 50)
				want := rowCounts(cols)

				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				res, err := Partition(ctx, cols, WithLeafSize(leafSize), WithWorkers(workers))
				cancel()
				require.NoError(t, err, name)

				require.NoError(t, res.CheckCoverage(), name)
				require.Equal(t, want, rowCounts(cols), name)
				require.Equal(t, len(res.Leaves)-1, res.Splits, name)
				require.LessOrEqual(t, res.Workers, max(rows, 1), name)

				total := 0
				for _, l := range res.Leaves {
					total += l.Rows
					require.True(t, l.Rows < leafSize || l.Rows <= 1, "%s: leaf of %d rows", name, l.Rows)
					if l.Dim != NoDimension {
						require.True(t, slices.IsSorted(l.Columns(cols)[l.Dim]), "%s: leaf at %d not sorted on %d", name, l.Offset, l.Dim)
					}
				}
				require.Equal(t, rows, total, name)
			}
		}
	}
}

func TestPartitionDeterministicAcrossWorkers(t *testing.T) {
	rng := newTestRNG(t)
	base := randomColumns(rng, 4, 5000, 1000)

	var first [][]int32
	var firstLeaves []Leaf
	for _, workers := range []int{1, 3, 8} {
		cols := cloneColumns(base)
		res, err := Partition(context.Background(), cols, WithWorkers(workers), WithLeafSize(16))
		require.NoError(t, err)
		if first == nil {
			first, firstLeaves = cols, res.Leaves
			continue
		}
		assert.Equal(t, first, cols, "workers=%d", workers)
		assert.Equal(t, firstLeaves, res.Leaves, "workers=%d", workers)
	}
}

func TestPartitionEmptyRows(t *testing.T) {
	cols := [][]int32{{}, {}}
	res, err := Partition(context.Background(), cols, WithWorkers(8), WithVerify())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Workers)
	assert.Equal(t, []Leaf{{Offset: 0, Rows: 0, Dim: NoDimension, Depth: 0}}, res.Leaves)
	assert.Equal(t, 0, res.Splits)
}

func TestPartitionDefaults(t *testing.T) {
	rng := newTestRNG(t)
	cols := randomColumns(rng, 2, 100, 100)
	res, err := Partition(context.Background(), cols, WithWorkers(0), WithSplitPolicy(nil), WithLogger(nil))
	require.NoError(t, err)

	assert.Equal(t, DefaultWorkers, res.Workers)
	assert.Equal(t, DefaultLeafSize, res.LeafSize)
}

func TestPartitionMaxSpread(t *testing.T) {
	rng := newTestRNG(t)
	cols := randomColumns(rng, 3, 2000, 10)
	// Widen column 2 so the root split lands on it.
	for r := range cols[2] {
		cols[2][r] *= 1000
	}
	want := rowCounts(cols)

	res, err := Partition(context.Background(), cols, WithSplitPolicy(MaxSpread{}), WithLeafSize(8), WithVerify())
	require.NoError(t, err)
	assert.Equal(t, want, rowCounts(cols))

	// The root cut on column 2: the left half holds the smaller values.
	leftMax := slices.Max(cols[2][:1000])
	rightMin := slices.Min(cols[2][1000:])
	assert.LessOrEqual(t, leftMax, rightMin)
	assert.Equal(t, len(res.Leaves)-1, res.Splits)
}

func TestPartitionPolicyOutOfRange(t *testing.T) {
	rng := newTestRNG(t)
	cols := randomColumns(rng, 2, 500, 100)
	want := rowCounts(cols)

	bad := SplitPolicyFunc(func(cols [][]int32, last int) int {
		if last == NoDimension {
			return 0
		}
		return len(cols)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := Partition(ctx, cols, WithSplitPolicy(bad), WithWorkers(4))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, kderrors.ErrInvalidDimension)
	assert.Equal(t, want, rowCounts(cols))
}

func TestPartitionCancelled(t *testing.T) {
	rng := newTestRNG(t)
	cols := randomColumns(rng, 3, 10000, 100)
	want := rowCounts(cols)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Partition(ctx, cols, WithWorkers(4))
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	assert.Equal(t, want, rowCounts(cols))
}

func TestPartitionCancelledMidRun(t *testing.T) {
	rng := newTestRNG(t)
	cols := randomColumns(rng, 2, 20000, 1000)
	want := rowCounts(cols)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	policy := SplitPolicyFunc(func(c [][]int32, last int) int {
		// Single worker, so calls is not shared.
		calls++
		if calls == 10 {
			cancel()
		}
		return RoundRobin{}.Next(c, last)
	})
	res, err := Partition(ctx, cols, WithWorkers(1), WithSplitPolicy(policy))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, want, rowCounts(cols))
}

func TestPartitionLogsLeaves(t *testing.T) {
	var buf bytes.Buffer
	cols := scenarioColumns()
	res, err := Partition(context.Background(), cols, WithLogger(NewTextLogger(&buf, slog.LevelDebug)))
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, len(res.Leaves), strings.Count(out, "msg=leaf "))
	assert.Contains(t, out, "partition started")
	assert.Contains(t, out, "partition finished")
}

func TestPartitionJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	_, err := Partition(context.Background(), scenarioColumns(), WithLogger(NewJSONLogger(&buf, slog.LevelInfo)))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"partition finished"`)
	assert.NotContains(t, out, `"msg":"leaf"`)
}

func TestLeafColumns(t *testing.T) {
	cols := scenarioColumns()
	res, err := Partition(context.Background(), cols)
	require.NoError(t, err)

	rebuilt := make([][]int32, len(cols))
	for _, l := range res.Leaves {
		for c, col := range l.Columns(cols) {
			rebuilt[c] = append(rebuilt[c], col...)
		}
	}
	assert.Equal(t, cols, rebuilt)
}

func BenchmarkPartition(b *testing.B) {
	rng := newTestRNG(b)
	base := randomColumns(rng, 3, 1<<16, 1<<20)
	cols := cloneColumns(base)
	for _, workers := range []int{1, 4} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			for b.Loop() {
				b.StopTimer()
				for c := range cols {
					copy(cols[c], base[c])
				}
				b.StartTimer()
				if _, err := Partition(context.Background(), cols, WithWorkers(workers), WithLeafSize(32)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
