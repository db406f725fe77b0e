// Package errors defines all exported error sentinels for the kdsplit library.
//
// This is the single source of truth for error values. Both the top-level
// kdsplit package and internal packages import from here, ensuring
// errors.Is checks work across package boundaries.
package errors

import (
	"errors"
	"fmt"
)

// Precondition errors, returned before any worker is started.
var (
	ErrNoColumns        = errors.New("kdsplit: dataset has no columns")
	ErrRaggedColumns    = errors.New("kdsplit: columns have unequal lengths")
	ErrInvalidLeafSize  = errors.New("kdsplit: leaf size must be at least 1")
	ErrInvalidWorkers   = errors.New("kdsplit: worker count must not be negative")
	ErrTooManyRows      = errors.New("kdsplit: row count exceeds maximum (2^32)")
	ErrInvalidDimension = errors.New("kdsplit: split dimension out of range")
)

// Scheduling errors
var (
	ErrSchedulerFault = errors.New("kdsplit: internal scheduling fault")
	ErrQueueClosed    = errors.New("kdsplit: work queue is closed")
)

// Verification errors
var (
	ErrRowsChanged = errors.New("kdsplit: row multiset changed during partition")
	ErrLeafOverlap = errors.New("kdsplit: leaves overlap")
	ErrLeafGap     = errors.New("kdsplit: leaves do not cover every row")
)

// Dataset file errors
var (
	ErrInvalidMagic   = errors.New("kdsplit: invalid magic number")
	ErrInvalidVersion = errors.New("kdsplit: unsupported version")
	ErrChecksumFailed = errors.New("kdsplit: file checksum verification failed")
	ErrTruncatedFile  = errors.New("kdsplit: dataset file is truncated")
	ErrCorruptedFile  = errors.New("kdsplit: dataset file is corrupted")
	ErrFileClosed     = errors.New("kdsplit: dataset file is closed")
)

// ColumnLengthError reports the first column whose length differs from
// column 0. It unwraps to ErrRaggedColumns.
type ColumnLengthError struct {
	Column   int
	Expected int
	Actual   int
}

func (e *ColumnLengthError) Error() string {
	return fmt.Sprintf("kdsplit: column %d has %d rows, expected %d", e.Column, e.Actual, e.Expected)
}

func (e *ColumnLengthError) Unwrap() error { return ErrRaggedColumns }
