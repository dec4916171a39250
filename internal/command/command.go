package command

import (
	"path/filepath"

	"github.com/smazurov/pidone/internal/logging"
	"github.com/smazurov/pidone/internal/process"
)

// Starter creates a process and returns its pid.
type Starter interface {
	Start(req process.StartRequest) (int, error)
}

// Policy is the restart policy of a command.
type Policy struct {
	RestartOnSuccess bool
	RestartOnError   bool
	RestartOnSignal  bool
	SpawnLimit       int  // meaningful when Limited
	Limited          bool // false = unlimited spawns
}

// allows reports whether the policy permits a restart after t.
func (p Policy) allows(t process.Termination) bool {
	switch t {
	case process.ExitedZero:
		return p.RestartOnSuccess
	case process.ExitedNonZero:
		return p.RestartOnError
	case process.Signaled:
		return p.RestartOnSignal
	}
	return false
}

// Option configures a Command.
type Option func(*Command)

// WithName sets the name used in logs. Defaults to the executable base name.
func WithName(name string) Option {
	return func(c *Command) {
		if name != "" {
			c.name = name
		}
	}
}

// WithRestartOnSuccess restarts the command after it exits with status 0.
func WithRestartOnSuccess(restart bool) Option {
	return func(c *Command) {
		c.policy.RestartOnSuccess = restart
	}
}

// WithRestartOnError restarts the command after it exits with a non-zero status.
func WithRestartOnError(restart bool) Option {
	return func(c *Command) {
		c.policy.RestartOnError = restart
	}
}

// WithRestartOnSignal restarts the command after it is killed by a signal.
func WithRestartOnSignal(restart bool) Option {
	return func(c *Command) {
		c.policy.RestartOnSignal = restart
	}
}

// WithSpawnLimit caps the total number of spawns, the first launch included.
func WithSpawnLimit(limit int) Option {
	return func(c *Command) {
		c.policy.SpawnLimit = limit
		c.policy.Limited = true
	}
}

// WithOutputCapture routes stdout/stderr of the command into the logger.
func WithOutputCapture(capture bool) Option {
	return func(c *Command) {
		c.captureOutput = capture
	}
}

// Command is a persistent command: an immutable definition plus a spawn counter.
// A Command is owned by the init loop and is not safe for concurrent use.
type Command struct {
	name          string
	path          string
	args          string
	policy        Policy
	captureOutput bool
	spawns        int
	starter       Starter
	logger        logging.Logger
}

// New creates a persistent command. By default it is never restarted and
// has no spawn limit.
func New(path, args string, starter Starter, logger logging.Logger, opts ...Option) *Command {
	c := &Command{
		name:    filepath.Base(path),
		path:    path,
		args:    args,
		starter: starter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the command name.
func (c *Command) Name() string { return c.name }

// Path returns the executable path.
func (c *Command) Path() string { return c.path }

// Args returns the unsplit argument string.
func (c *Command) Args() string { return c.args }

// Policy returns the restart policy.
func (c *Command) Policy() Policy { return c.policy }

// Spawns returns how many times the command has been spawned.
func (c *Command) Spawns() int { return c.spawns }

func (c *Command) String() string {
	if c.args == "" {
		return c.path
	}
	return c.path + " " + c.args
}

// Launch spawns the command for the first time.
func (c *Command) Launch() (int, error) {
	return c.spawn(nil)
}

// Respawn decides whether the command should run again after its previous
// process terminated as prev, and spawns it if so.
func (c *Command) Respawn(prev process.Termination) (int, error) {
	return c.spawn(&prev)
}

func (c *Command) spawn(prev *process.Termination) (int, error) {
	if prev != nil && !c.policy.allows(*prev) {
		c.logger.Debug("Not respawning command", "command", c.name, "termination", prev.String())
		return 0, mustNotRespawn(c.name, *prev)
	}

	if c.policy.Limited && c.spawns >= c.policy.SpawnLimit {
		c.logger.Debug("Command spawned as often as allowed", "command", c.name, "limit", c.policy.SpawnLimit)
		return 0, spawnLimitReached(c.name, c.policy.SpawnLimit)
	}

	c.spawns++
	c.logger.Debug("Spawning command", "command", c.name, "spawns", c.spawns)

	pid, err := c.starter.Start(process.StartRequest{
		Name:          c.name,
		Path:          c.path,
		Args:          process.SplitArgs(c.args),
		CaptureOutput: c.captureOutput,
	})
	if err != nil {
		return 0, spawnFailed(c.name, err)
	}
	return pid, nil
}
