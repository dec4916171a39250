// Package systemd reports readiness and liveness to a supervising service
// manager over the sd_notify protocol. Every call is a no-op when
// NOTIFY_SOCKET is unset, which is the usual case for a container init.
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/smazurov/pidone/internal/logging"
)

// NotifyFunc sends a state string. Matches daemon.SdNotify.
type NotifyFunc func(unsetEnvironment bool, state string) (bool, error)

// WatchdogFunc reports the watchdog interval, zero when disabled.
// Matches daemon.SdWatchdogEnabled.
type WatchdogFunc func(unsetEnvironment bool) (time.Duration, error)

// Notifier sends sd_notify messages.
type Notifier struct {
	notify   NotifyFunc
	watchdog WatchdogFunc
	logger   logging.Logger
}

// NewNotifier creates a Notifier backed by go-systemd.
func NewNotifier(logger logging.Logger) *Notifier {
	return NewNotifierWith(daemon.SdNotify, daemon.SdWatchdogEnabled, logger)
}

// NewNotifierWith creates a Notifier with custom transport functions.
func NewNotifierWith(notify NotifyFunc, watchdog WatchdogFunc, logger logging.Logger) *Notifier {
	return &Notifier{notify: notify, watchdog: watchdog, logger: logger}
}

// Ready reports that startup is complete.
func (n *Notifier) Ready() {
	n.send(daemon.SdNotifyReady)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(status string) {
	n.send("STATUS=" + status)
}

// RunWatchdog pings the watchdog at half its interval until ctx is done.
// Returns immediately when the watchdog is not enabled.
func (n *Notifier) RunWatchdog(ctx context.Context) error {
	interval, err := n.watchdog(false)
	if err != nil {
		n.logger.Warn("Invalid watchdog configuration", "error", err)
		return nil
	}
	if interval <= 0 {
		return nil
	}

	n.logger.Info("Watchdog enabled", "interval", interval)
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(false, state)
	switch {
	case err != nil:
		n.logger.Warn("Failed to notify service manager", "state", state, "error", err)
	case sent:
		n.logger.Debug("Notified service manager", "state", state)
	}
}
