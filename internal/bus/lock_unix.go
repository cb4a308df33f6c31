//go:build !windows

package bus

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile blocks until it holds a shared or exclusive advisory lock on f.
// flock locks belong to the open file description, so two descriptors in the
// same process exclude each other as well.
func lockFile(f *os.File, exclusive bool) error {
	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}
	return unix.Flock(int(f.Fd()), how)
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
