// Package logging provides structured logging with per-module log levels.
//
// Logs go to stdout (text or JSON) when it is connected to something, and to
// the systemd journal when journald is reachable. With both available a
// MultiHandler writes to each. Levels live in slog.LevelVars so they can be
// changed while pidone runs (see SetLevels and config.LevelWatcher).
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"reaper": "debug",
//			"output": "warn",
//		},
//	})
//
// Then per module:
//
//	logger := logging.GetLogger("reaper")
//	logger.Info("Reaped process", "carcass", c)
//
// Modules used by pidone: main, reaper, orphan, command, process, output
// (captured child output), config, api.
//
// Viewing journal entries:
//
//	journalctl -t pidone -f
//	journalctl -t pidone MODULE=orphan
//	journalctl -t pidone COMMAND=sshd
package logging
