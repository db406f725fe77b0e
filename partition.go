package kdsplit

import (
	"context"
	"fmt"
	"slices"
	"time"

	kderrors "github.com/tamirms/kdsplit/errors"
)

// Leaf is a contiguous run of rows that was not split further.
type Leaf struct {
	Offset int // first row of the leaf in the partitioned columns
	Rows   int
	Dim    int // column the leaf's parent split on, NoDimension for an unsplit root
	Depth  int // number of splits above the leaf
}

// Columns returns views of the leaf's rows in cols.
func (l Leaf) Columns(cols [][]int32) [][]int32 {
	return rowView(nil, cols, l.Offset, l.Offset+l.Rows)
}

// Result describes a finished partition run.
type Result struct {
	Rows     int
	Columns  int
	Workers  int
	LeafSize int
	Splits   int
	Leaves   []Leaf // ordered by Offset
	Duration time.Duration
}

// Partition recursively co-sorts and halves cols on a pool of workers until
// every unit is a leaf. Columns are reordered in place; the caller must not
// touch them until Partition returns. Each leaf's rows end up contiguous and
// the returned leaves tile [0, rows) exactly once.
//
// Preconditions are checked before any worker starts. If ctx is cancelled
// the run stops early; cols then hold some permutation of the original rows.
func Partition(ctx context.Context, cols [][]int32, opts ...Option) (*Result, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	rows, err := numRows(cols)
	if err != nil {
		return nil, err
	}

	workers := min(cfg.workers, max(rows, 1))

	var before Digest
	if cfg.verify {
		if before, err = fingerprint(ctx, cols, rows, workers); err != nil {
			return nil, err
		}
	}

	log := cfg.logger.With("rows", rows, "columns", len(cols))
	log.Info("partition started", "workers", workers, "leaf_size", cfg.leafSize)
	start := time.Now()

	s := newScheduler(cols, workers, cfg)
	if err := s.seed(workUnit{lo: 0, hi: rows, dim: NoDimension}); err != nil {
		return nil, fmt.Errorf("%w: seed: %w", kderrors.ErrSchedulerFault, err)
	}
	s.start(ctx)
	if err := s.wait(); err != nil {
		log.Error("partition failed", "error", err)
		return nil, fmt.Errorf("partition: %w", err)
	}
	if err := s.drain(); err != nil {
		return nil, err
	}

	res := &Result{
		Rows:     rows,
		Columns:  len(cols),
		Workers:  workers,
		LeafSize: cfg.leafSize,
		Splits:   int(s.splits.Load()),
		Leaves:   collectLeaves(s.leaves),
		Duration: time.Since(start),
	}
	for _, l := range res.Leaves {
		log.Debug("leaf", "offset", l.Offset, "rows", l.Rows, "dim", l.Dim, "depth", l.Depth)
	}

	if cfg.verify {
		if err := verifyRun(ctx, cols, res, before); err != nil {
			return nil, err
		}
	}

	log.Info("partition finished", "leaves", len(res.Leaves), "splits", res.Splits, "duration", res.Duration)
	return res, nil
}

func collectLeaves(perWorker [][]Leaf) []Leaf {
	var leaves []Leaf
	for _, l := range perWorker {
		leaves = append(leaves, l...)
	}
	slices.SortFunc(leaves, func(a, b Leaf) int {
		return a.Offset - b.Offset
	})
	return leaves
}
