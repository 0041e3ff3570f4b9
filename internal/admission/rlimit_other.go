//go:build !linux && !darwin

package admission

import "errors"

// RaiseFileLimit is not supported on this platform.
func RaiseFileLimit(want uint64) (soft, hard uint64, err error) {
	return 0, 0, errors.New("setrlimit: unsupported platform")
}
