// Package kdsplit implements a parallel recursive partitioner for row-aligned
// integer columns.
//
// A partition run co-sorts all columns by one column, cuts every column at
// the midpoint and hands both halves back to a fixed pool of workers, which
// repeat the process until every piece is smaller than the leaf size. The
// result is the shape of a k-d tree laid out in place: each leaf's rows are
// contiguous, and the leaves tile the dataset exactly once.
//
// # Basic Usage
//
// Partitioning columns in memory:
//
//	cols := [][]int32{xs, ys, zs} // equal lengths
//	res, err := kdsplit.Partition(ctx, cols,
//	    kdsplit.WithWorkers(8), kdsplit.WithLeafSize(64))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, leaf := range res.Leaves {
//	    rows := leaf.Columns(cols)
//	    _ = rows
//	}
//
// Partitioning a dataset file in place:
//
//	f, err := kdsplit.OpenFile("points.kds")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//	res, err := f.Partition(ctx, kdsplit.WithLeafSize(64))
//
// # Package Structure
//
// The implementation is organized as follows:
//
//   - Public API: partition.go (Partition, Result, Leaf), split.go (CoSort, Split, SplitPolicy)
//   - Configuration: options.go (Option, With* functions), logger.go
//   - Scheduling: scheduler.go (work units, worker loop, termination counter)
//   - Verification: verify.go (Fingerprint, CheckCoverage)
//   - Dataset files: header.go (header, footer), file.go (CreateFile, OpenFile)
//   - Algorithms: internal/cosort (permutation co-sort), internal/workqueue (MPMC queue)
//   - Platform: fallocate_*.go, prefault_*.go, fadvise_*.go (OS-specific optimizations)
package kdsplit
