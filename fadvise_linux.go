//go:build linux

package kdsplit

import "golang.org/x/sys/unix"

// fadviseWillNeed hints to the kernel that the whole range will be accessed
// soon. Applied before mapping a dataset file for partitioning.
// Best-effort: errors are silently ignored.
func fadviseWillNeed(fd int, offset, length int64) {
	_ = unix.Fadvise(fd, offset, length, unix.FADV_WILLNEED)
}
