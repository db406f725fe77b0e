//go:build !linux

package kdsplit

// fadviseWillNeed is a no-op on non-Linux platforms.
// posix_fadvise is not available everywhere x/sys/unix builds.
func fadviseWillNeed(fd int, offset, length int64) {
	// No-op
}
