package process

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// SetSubreaper marks the calling process as a child subreaper, so orphaned
// descendants are reparented to it instead of to the real init.
func SetSubreaper() error {
	return unix.Prctl(unix.PR_SET_CHILD_SUBREAPER, 1, 0, 0, 0)
}

// IsSubreaper reports whether the calling process is a child subreaper.
func IsSubreaper() bool {
	var flag int32
	err := unix.Prctl(unix.PR_GET_CHILD_SUBREAPER, uintptr(unsafe.Pointer(&flag)), 0, 0, 0)
	return err == nil && flag == 1
}
