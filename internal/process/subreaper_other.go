//go:build !linux

package process

import "errors"

// SetSubreaper is only supported on Linux.
func SetSubreaper() error {
	return errors.New("child subreaper is only supported on linux")
}

// IsSubreaper always reports false outside Linux.
func IsSubreaper() bool {
	return false
}
