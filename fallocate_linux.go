//go:build linux

package kdsplit

import (
	"os"

	"golang.org/x/sys/unix"
)

// fallocateFile reserves size bytes for a new dataset file and sets its
// length, so that writes through the mapping cannot fault on a full disk.
func fallocateFile(file *os.File, size int64) error {
	fd := int(file.Fd())
	// Filesystems without fallocate support (NFS, some FUSE mounts) still get
	// a correctly sized, sparse file.
	_ = unix.Fallocate(fd, 0, 0, size)
	return unix.Ftruncate(fd, size)
}
