package process

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Termination classifies how a reaped process died.
type Termination int

// Termination kinds.
const (
	ExitedZero    Termination = iota // exited with status 0
	ExitedNonZero                    // exited with a non-zero status
	Signaled                         // killed by a signal
)

// String returns the snake_case name used in logs, events and metrics.
func (t Termination) String() string {
	switch t {
	case ExitedZero:
		return "exited_zero"
	case ExitedNonZero:
		return "exited_non_zero"
	case Signaled:
		return "signaled"
	}
	return fmt.Sprintf("termination(%d)", int(t))
}

// Clean reports whether the process exited with status 0.
func (t Termination) Clean() bool {
	return t == ExitedZero
}

// Carcass is a single observed process termination.
// Exactly one of Status or Signal is meaningful: Signal is non-zero
// only when the process was killed by a signal.
type Carcass struct {
	PID    int
	Status int
	Signal unix.Signal
}

// Exited returns a carcass for a process that exited with status.
func Exited(pid, status int) Carcass {
	return Carcass{PID: pid, Status: status}
}

// Killed returns a carcass for a process terminated by sig.
func Killed(pid int, sig unix.Signal) Carcass {
	return Carcass{PID: pid, Signal: sig}
}

// Signaled reports whether the process was killed by a signal.
func (c Carcass) Signaled() bool {
	return c.Signal != 0
}

// Termination classifies the carcass.
func (c Carcass) Termination() Termination {
	switch {
	case c.Signaled():
		return Signaled
	case c.Status == 0:
		return ExitedZero
	default:
		return ExitedNonZero
	}
}

func (c Carcass) String() string {
	if c.Signaled() {
		return fmt.Sprintf("(pid=%d,sig=%s)", c.PID, unix.SignalName(c.Signal))
	}
	return fmt.Sprintf("(pid=%d,exit=%d)", c.PID, c.Status)
}
