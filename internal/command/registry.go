// Package command holds persistent commands and their restart policy,
// keyed by the pid of each command's current live process.
package command

import (
	"slices"

	"github.com/smazurov/pidone/internal/logging"
	"github.com/smazurov/pidone/internal/process"
)

// Entry pairs a live pid with its command.
type Entry struct {
	PID     int
	Command *Command
}

// Registry maps live pids to persistent commands. Each command has at most
// one entry at a time. Not safe for concurrent use.
type Registry struct {
	byPID  map[int]*Command
	logger logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger logging.Logger) *Registry {
	return &Registry{
		byPID:  make(map[int]*Command),
		logger: logger,
	}
}

// Launch spawns c for the first time and registers its pid.
func (r *Registry) Launch(c *Command) (int, error) {
	pid, err := c.Launch()
	if err != nil {
		return 0, err
	}
	r.byPID[pid] = c
	return pid, nil
}

// Get returns the command whose live process is pid.
func (r *Registry) Get(pid int) (*Command, bool) {
	c, ok := r.byPID[pid]
	return c, ok
}

// Has reports whether pid is a supervised command.
func (r *Registry) Has(pid int) bool {
	_, ok := r.byPID[pid]
	return ok
}

// Rekey moves the entry for oldPID to newPID without spawning. Used when a
// command daemonizes itself: the original process exits and a forked child
// carries on. Returns false if oldPID is not tracked.
func (r *Registry) Rekey(oldPID, newPID int) bool {
	c, ok := r.byPID[oldPID]
	if !ok {
		return false
	}
	delete(r.byPID, oldPID)
	r.byPID[newPID] = c
	r.logger.Debug("Re-keyed command", "command", c.Name(), "old_pid", oldPID, "new_pid", newPID)
	return true
}

// Respawn removes the entry for pid and asks its command to run again after
// a termination t. On success the new pid is registered. On failure the
// command is no longer supervised. Returns the command (nil if pid was not
// tracked), the new pid and the refusal or spawn error.
func (r *Registry) Respawn(pid int, t process.Termination) (*Command, int, error) {
	c, ok := r.byPID[pid]
	if !ok {
		return nil, 0, nil
	}
	delete(r.byPID, pid)

	newPID, err := c.Respawn(t)
	if err != nil {
		return c, 0, err
	}
	r.byPID[newPID] = c
	return c, newPID, nil
}

// Len returns the number of supervised commands.
func (r *Registry) Len() int {
	return len(r.byPID)
}

// Entries returns all entries ordered by pid.
func (r *Registry) Entries() []Entry {
	pids := make([]int, 0, len(r.byPID))
	for pid := range r.byPID {
		pids = append(pids, pid)
	}
	slices.Sort(pids)

	entries := make([]Entry, 0, len(pids))
	for _, pid := range pids {
		entries = append(entries, Entry{PID: pid, Command: r.byPID[pid]})
	}
	return entries
}
