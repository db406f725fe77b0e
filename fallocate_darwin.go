//go:build darwin

package kdsplit

import (
	"os"

	"golang.org/x/sys/unix"
)

// fallocateFile reserves size bytes for a new dataset file and sets its
// length. F_PREALLOCATE only reserves space, so the file is truncated to size
// either way.
func fallocateFile(file *os.File, size int64) error {
	fst := unix.Fstore_t{
		Flags:   unix.F_ALLOCATEALL,
		Posmode: unix.F_PEOFPOSMODE,
		Length:  size,
	}
	_ = unix.FcntlFstore(file.Fd(), unix.F_PREALLOCATE, &fst)
	return unix.Ftruncate(int(file.Fd()), size)
}
