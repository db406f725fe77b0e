package kdsplit

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	kderrors "github.com/tamirms/kdsplit/errors"
	"github.com/tamirms/kdsplit/internal/encoding"
)

// fingerprintChunkRows is the number of rows hashed per goroutine task.
const fingerprintChunkRows = 1 << 16

// Digest is an order-independent summary of a dataset's rows.
//
// Each row is hashed with xxHash3-128 over its little-endian values and the
// two halves are summed modulo 2^64, so any reordering of whole rows leaves
// the digest unchanged while moving a value between rows almost surely
// changes it.
type Digest struct {
	Rows uint64
	Lo   uint64
	Hi   uint64
}

func (d *Digest) add(o Digest) {
	d.Rows += o.Rows
	d.Lo += o.Lo
	d.Hi += o.Hi
}

// Fingerprint computes the row digest of cols using up to DefaultWorkers
// goroutines.
func Fingerprint(ctx context.Context, cols [][]int32) (Digest, error) {
	rows, err := numRows(cols)
	if err != nil {
		return Digest{}, err
	}
	return fingerprint(ctx, cols, rows, DefaultWorkers)
}

func fingerprint(ctx context.Context, cols [][]int32, rows, workers int) (Digest, error) {
	numChunks := (rows + fingerprintChunkRows - 1) / fingerprintChunkRows
	partials := make([]Digest, numChunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i := range numChunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lo := i * fingerprintChunkRows
			hi := min(lo+fingerprintChunkRows, rows)
			partials[i] = digestRows(cols, lo, hi)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Digest{}, err
	}

	var d Digest
	for _, p := range partials {
		d.add(p)
	}
	return d, nil
}

func digestRows(cols [][]int32, lo, hi int) Digest {
	buf := make([]byte, 4*len(cols))
	d := Digest{Rows: uint64(hi - lo)}
	for r := lo; r < hi; r++ {
		n := encoding.PutRow(buf, cols, r)
		h := xxh3.Hash128(buf[:n])
		d.Lo += h.Lo
		d.Hi += h.Hi
	}
	return d
}

// CheckCoverage reports whether the leaves tile rows [0, Rows) exactly once.
// It returns an error wrapping ErrLeafOverlap or ErrLeafGap otherwise.
func (r *Result) CheckCoverage() error {
	covered := roaring.New()
	for _, l := range r.Leaves {
		if l.Offset < 0 || l.Rows < 0 || l.Offset+l.Rows > r.Rows {
			return fmt.Errorf("%w: leaf [%d, %d) outside %d rows", kderrors.ErrLeafGap, l.Offset, l.Offset+l.Rows, r.Rows)
		}
		before := covered.GetCardinality()
		covered.AddRange(uint64(l.Offset), uint64(l.Offset+l.Rows))
		if added := covered.GetCardinality() - before; added != uint64(l.Rows) {
			return fmt.Errorf("%w: leaf [%d, %d) repeats %d rows",
				kderrors.ErrLeafOverlap, l.Offset, l.Offset+l.Rows, uint64(l.Rows)-added)
		}
	}
	if n := covered.GetCardinality(); n != uint64(r.Rows) {
		return fmt.Errorf("%w: %d of %d rows covered", kderrors.ErrLeafGap, n, r.Rows)
	}
	return nil
}

// verifyRun checks the fingerprint taken before the run against the
// partitioned columns and the leaves against the row range.
func verifyRun(ctx context.Context, cols [][]int32, res *Result, before Digest) error {
	after, err := fingerprint(ctx, cols, res.Rows, res.Workers)
	if err != nil {
		return err
	}
	var rowsErr error
	if after != before {
		rowsErr = kderrors.ErrRowsChanged
	}
	return errors.Join(rowsErr, res.CheckCoverage())
}
