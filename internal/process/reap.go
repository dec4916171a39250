package process

import (
	"errors"

	"github.com/smazurov/pidone/internal/logging"
	"golang.org/x/sys/unix"
)

// WaitFunc has the signature of unix.Wait4.
type WaitFunc func(pid int, wstatus *unix.WaitStatus, options int, rusage *unix.Rusage) (int, error)

// Reaper collects terminated children one at a time.
type Reaper struct {
	wait   WaitFunc
	logger logging.Logger
}

// NewReaper creates a reaper backed by wait4(2).
func NewReaper(logger logging.Logger) *Reaper {
	return NewReaperWithWait(unix.Wait4, logger)
}

// NewReaperWithWait creates a reaper with a custom wait implementation.
func NewReaperWithWait(wait WaitFunc, logger logging.Logger) *Reaper {
	return &Reaper{wait: wait, logger: logger}
}

// TryReap performs one non-blocking wait for any child.
// It returns false when no terminated child is available. Outcomes other
// than exit or death by signal are logged and reported as nothing reaped.
//
// A single SIGCHLD may stand for several terminations, so callers drain
// by calling TryReap until it returns false.
func (r *Reaper) TryReap() (Carcass, bool) {
	var status unix.WaitStatus

	pid, err := r.wait(-1, &status, unix.WNOHANG, nil)
	for errors.Is(err, unix.EINTR) {
		pid, err = r.wait(-1, &status, unix.WNOHANG, nil)
	}

	switch {
	case errors.Is(err, unix.ECHILD):
		return Carcass{}, false
	case err != nil:
		r.logger.Warn("wait4 failed", "error", err)
		return Carcass{}, false
	case pid <= 0:
		return Carcass{}, false
	}

	switch {
	case status.Exited():
		return Exited(pid, status.ExitStatus()), true
	case status.Signaled():
		return Killed(pid, status.Signal()), true
	default:
		r.logger.Debug("Uninterpreted wait status", "pid", pid, "status", uint32(status))
		return Carcass{}, false
	}
}
