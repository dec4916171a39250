package reaper

import (
	"context"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sys/unix"
)

// TrappedSignals are the signals the init loop listens for.
var TrappedSignals = []os.Signal{unix.SIGCHLD, unix.SIGINT, unix.SIGTERM}

// signalBuffer bounds queued notifications. SIGCHLD coalesces in the
// kernel anyway, so one pending SIGCHLD is enough to trigger a full drain.
const signalBuffer = 32

// SignalSource delivers trapped signals one at a time.
type SignalSource struct {
	ch chan os.Signal
}

// NewSignalSource starts trapping sigs, TrappedSignals when none are given.
func NewSignalSource(sigs ...os.Signal) *SignalSource {
	if len(sigs) == 0 {
		sigs = TrappedSignals
	}
	ch := make(chan os.Signal, signalBuffer)
	signal.Notify(ch, sigs...)
	return &SignalSource{ch: ch}
}

// Wait blocks until a signal arrives, the deadline passes or ctx is done.
// Returns false when no signal was received.
func (s *SignalSource) Wait(ctx context.Context, deadline time.Time) (os.Signal, bool) {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case sig := <-s.ch:
		return sig, true
	case <-timer.C:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

// Stop stops trapping signals.
func (s *SignalSource) Stop() {
	signal.Stop(s.ch)
}

// signalName renders sig as SIGCHLD, SIGTERM, ...
func signalName(sig os.Signal) string {
	if s, ok := sig.(unix.Signal); ok {
		if name := unix.SignalName(s); name != "" {
			return name
		}
	}
	return sig.String()
}
