//go:build linux || darwin

package admission

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// RaiseFileLimit sets the open file descriptor limit to want. When the hard
// limit cannot be raised (unprivileged process) the soft limit is raised as
// far as the current hard limit allows. It returns the limits in effect
// afterwards.
func RaiseFileLimit(want uint64) (soft, hard uint64, err error) {
	var cur unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &cur); err != nil {
		return 0, 0, fmt.Errorf("getrlimit: %w", err)
	}

	setErr := unix.Setrlimit(unix.RLIMIT_NOFILE, &unix.Rlimit{Cur: want, Max: want})
	if setErr != nil && cur.Cur < cur.Max && cur.Cur < want {
		fallback := min(want, cur.Max)
		if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &unix.Rlimit{Cur: fallback, Max: cur.Max}); err != nil {
			setErr = errors.Join(setErr, err)
		}
	}

	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &cur); err != nil {
		return 0, 0, errors.Join(setErr, fmt.Errorf("getrlimit: %w", err))
	}
	if setErr != nil {
		return cur.Cur, cur.Max, fmt.Errorf("setrlimit nofile=%d: %w", want, setErr)
	}
	return cur.Cur, cur.Max, nil
}
