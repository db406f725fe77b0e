//go:build linux

package kdsplit

import "golang.org/x/sys/unix"

// madvPopulateWrite is MADV_POPULATE_WRITE (Linux 5.14+).
const madvPopulateWrite = 23

// prefaultRegion populates the pages of a freshly mapped dataset file before
// the columns are copied in. Older kernels reject the advice with EINVAL,
// which is ignored.
func prefaultRegion(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, madvPopulateWrite)
}
