package orphan

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/smazurov/pidone/internal/logging"
	"golang.org/x/sys/unix"
)

// Signaler delivers a signal to a process.
type Signaler interface {
	Signal(pid int, sig unix.Signal) error
}

// KillSignaler delivers signals with kill(2).
type KillSignaler struct{}

// Signal sends sig to pid.
func (KillSignaler) Signal(pid int, sig unix.Signal) error {
	return unix.Kill(pid, sig)
}

// Advance performs one escalation step for s and returns the next state.
//
//	Untouched      -> SIGTERM -> AskedToExit         (Failed on error)
//	AskedToExit    -> SIGKILL -> ForciblyKilled(now) (Failed on error)
//	ForciblyKilled -> unchanged, lingering time is logged
//	Failed         -> unchanged
func Advance(s State, signaler Signaler, now time.Time, logger logging.Logger) State {
	switch st := s.(type) {
	case Untouched:
		logger.Info("Sending SIGTERM to orphan", "pid", st.Pid)
		if err := signaler.Signal(st.Pid, unix.SIGTERM); err != nil {
			logger.Warn("Unable to send SIGTERM to orphan", "pid", st.Pid, "error", err)
			return Failed{Pid: st.Pid, Cause: err}
		}
		return AskedToExit{Pid: st.Pid}

	case AskedToExit:
		logger.Info("Sending SIGKILL to orphan", "pid", st.Pid)
		if err := signaler.Signal(st.Pid, unix.SIGKILL); err != nil {
			logger.Warn("Unable to send SIGKILL to orphan", "pid", st.Pid, "error", err)
			return Failed{Pid: st.Pid, Cause: err}
		}
		return ForciblyKilled{Pid: st.Pid, SentAt: now}

	case ForciblyKilled:
		logger.Warn("Orphan lingering after SIGKILL",
			"pid", st.Pid,
			"since", humanize.RelTime(st.SentAt, now, "ago", "from now"),
			"lingering", now.Sub(st.SentAt).Truncate(time.Second))
		return st

	case Failed:
		return st
	}

	panic(fmt.Sprintf("orphan: unknown state %T", s))
}
