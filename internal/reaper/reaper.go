// Package reaper runs the init loop: it waits for signals, reaps exited
// children, restarts persistent commands and escalates the termination of
// orphans once per tick.
//
// The loop goroutine owns the orphan table, the command registry and the
// known-children snapshot. Other goroutines read the published Snapshot or
// subscribe to the event bus.
package reaper

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/smazurov/pidone/internal/command"
	"github.com/smazurov/pidone/internal/events"
	"github.com/smazurov/pidone/internal/logging"
	"github.com/smazurov/pidone/internal/orphan"
	"github.com/smazurov/pidone/internal/process"
)

// DefaultTick is the interval between orphan escalation steps.
const DefaultTick = time.Second

// ZombieReaper collects one terminated child without blocking.
type ZombieReaper interface {
	TryReap() (process.Carcass, bool)
}

// TreeScanner finds children of self that are not in known.
type TreeScanner interface {
	ScanNewChildren(self int, known process.PIDSet) (newChildren, updated process.PIDSet)
}

// SignalWaiter delivers trapped signals.
type SignalWaiter interface {
	Wait(ctx context.Context, deadline time.Time) (os.Signal, bool)
}

// Options configures a Reaper. Zombies, Tree, Signals, Signaler and
// Registry are required.
type Options struct {
	Self     int           // pid whose children are tracked, os.Getpid() if zero
	Tick     time.Duration // DefaultTick if zero
	Zombies  ZombieReaper
	Tree     TreeScanner
	Signals  SignalWaiter
	Signaler orphan.Signaler
	Registry *command.Registry
	Bus      *events.Bus // optional
	Logger   logging.Logger
	Now      func() time.Time

	// OnSnapshot is called on the loop goroutine after each snapshot is
	// published.
	OnSnapshot func(*Snapshot)
}

// Reaper is the init loop.
type Reaper struct {
	self       int
	tick       time.Duration
	zombies    ZombieReaper
	tree       TreeScanner
	signals    SignalWaiter
	orphans    *orphan.Table
	registry   *command.Registry
	bus        *events.Bus
	logger     logging.Logger
	now        func() time.Time
	onSnapshot func(*Snapshot)

	known    process.PIDSet
	dropped  []DroppedCommand
	reaped   uint64
	started  time.Time
	snapshot atomic.Pointer[Snapshot]
}

// New creates a Reaper. Panics if a required option is missing.
func New(opts Options) *Reaper {
	if opts.Zombies == nil || opts.Tree == nil || opts.Signals == nil || opts.Signaler == nil || opts.Registry == nil {
		panic("reaper: Zombies, Tree, Signals, Signaler and Registry are required")
	}

	r := &Reaper{
		self:       opts.Self,
		tick:       opts.Tick,
		zombies:    opts.Zombies,
		tree:       opts.Tree,
		signals:    opts.Signals,
		registry:   opts.Registry,
		bus:        opts.Bus,
		logger:     opts.Logger,
		now:        opts.Now,
		onSnapshot: opts.OnSnapshot,
		known:      process.NewPIDSet(),
	}
	if r.self == 0 {
		r.self = os.Getpid()
	}
	if r.tick <= 0 {
		r.tick = DefaultTick
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.logger == nil {
		r.logger = logging.GetLogger("reaper")
	}

	r.orphans = orphan.NewTable(opts.Signaler, logging.GetLogger("orphan"),
		orphan.WithClock(r.now),
		orphan.WithTransitionCallback(r.onTransition))
	r.started = r.now()
	r.publishSnapshot()
	return r
}

// Snapshot returns the latest published state. Safe for concurrent use.
func (r *Reaper) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

// Start launches every command once and takes the initial snapshot of
// children. Commands that fail to launch are logged and dropped.
// Must be called before Run, on the goroutine that will call Run.
func (r *Reaper) Start(commands []*command.Command) {
	for _, c := range commands {
		pid, err := r.registry.Launch(c)
		if err != nil {
			r.drop(c, 0, err)
			continue
		}
		r.logger.Info("Launched command", "command", c.Name(), "pid", pid, "cmdline", c.String())
		r.publish(events.CommandSpawnedEvent{
			Command:   c.Name(),
			PID:       pid,
			Spawns:    c.Spawns(),
			Restart:   false,
			Timestamp: r.timestamp(),
		})
	}

	_, r.known = r.tree.ScanNewChildren(r.self, process.NewPIDSet())
	r.logger.Debug("Initial children scan", "children", r.known.Sorted())
	r.publishSnapshot()
}

// Run waits for signals until ctx is done. Once per tick every orphan is
// advanced one step, even when signals arrive faster than the tick.
func (r *Reaper) Run(ctx context.Context) error {
	r.logger.Info("Init loop started", "pid", r.self, "tick", r.tick)

	deadline := r.now().Add(r.tick)
	for {
		if !r.now().Before(deadline) {
			r.onTick()
			deadline = r.now().Add(r.tick)
		}

		sig, ok := r.signals.Wait(ctx, deadline)
		if ctx.Err() != nil {
			r.logger.Info("Init loop stopped")
			return nil
		}
		if !ok {
			r.onTick()
			deadline = r.now().Add(r.tick)
			continue
		}
		r.handleSignal(sig)
	}
}

func (r *Reaper) handleSignal(sig os.Signal) {
	name := signalName(sig)
	r.publish(events.SignalReceivedEvent{Signal: name, Timestamp: r.timestamp()})

	switch sig {
	case unix.SIGCHLD:
		r.drain()
		r.publishSnapshot()
	case unix.SIGINT, unix.SIGTERM:
		r.logger.Info("Received signal, ignoring", "signal", name)
	default:
		r.logger.Debug("Received untrapped signal", "signal", name)
	}
}

// drain reaps until no terminated child is left.
func (r *Reaper) drain() {
	for {
		carcass, ok := r.zombies.TryReap()
		if !ok {
			return
		}
		r.handleCarcass(carcass)
	}
}

func (r *Reaper) handleCarcass(carcass process.Carcass) {
	r.reaped++
	termination := carcass.Termination()
	cmd, tracked := r.registry.Get(carcass.PID)

	newChildren, updated := r.tree.ScanNewChildren(r.self, r.known)
	r.known = updated

	if !termination.Clean() {
		r.markOrphans(carcass, newChildren)
	}

	_, wasOrphan := r.orphans.Forget(carcass.PID)

	ev := events.ProcessReapedEvent{
		PID:         carcass.PID,
		Carcass:     carcass.String(),
		Termination: termination.String(),
		Orphan:      wasOrphan,
		Timestamp:   r.timestamp(),
	}
	if tracked {
		ev.Command = cmd.Name()
	}
	r.publish(ev)

	switch {
	case wasOrphan:
		r.logger.Info("Reaped orphan", "carcass", carcass)
	case tracked:
		r.logger.Info("Reaped command", "command", cmd.Name(), "carcass", carcass)
	default:
		r.logger.Debug("Reaped process", "carcass", carcass)
	}

	if !tracked {
		return
	}

	if termination.Clean() && len(newChildren) > 0 {
		r.rekey(cmd, carcass.PID, newChildren)
		return
	}
	r.respawn(cmd, carcass.PID, termination)
}

// markOrphans marks every new child except supervised commands.
func (r *Reaper) markOrphans(carcass process.Carcass, newChildren process.PIDSet) {
	pids := make([]int, 0, len(newChildren))
	for _, pid := range newChildren.Sorted() {
		if r.registry.Has(pid) {
			continue
		}
		pids = append(pids, pid)
	}
	if len(pids) == 0 {
		return
	}

	r.logger.Info("Process died abnormally, terminating its orphans", "carcass", carcass, "orphans", pids)
	r.orphans.Mark(pids)
}

// rekey follows a command that daemonized: its process exited cleanly and
// left a forked child behind. The lowest new pid is taken as the daemon.
func (r *Reaper) rekey(cmd *command.Command, oldPID int, newChildren process.PIDSet) {
	candidates := newChildren.Sorted()
	newPID := candidates[0]
	r.registry.Rekey(oldPID, newPID)

	if len(candidates) > 1 {
		r.logger.Warn("Command left several children, following the lowest pid",
			"command", cmd.Name(), "children", candidates, "pid", newPID)
	}
	r.logger.Info("Command daemonized", "command", cmd.Name(), "old_pid", oldPID, "new_pid", newPID)
	r.publish(events.CommandRekeyedEvent{
		Command:   cmd.Name(),
		OldPID:    oldPID,
		NewPID:    newPID,
		Timestamp: r.timestamp(),
	})
}

func (r *Reaper) respawn(cmd *command.Command, oldPID int, termination process.Termination) {
	_, newPID, err := r.registry.Respawn(oldPID, termination)
	if err != nil {
		r.drop(cmd, oldPID, err)
		return
	}

	// A restarted command is our own child, not a newcomer to be judged.
	r.known.Add(newPID)

	r.logger.Info("Respawned command", "command", cmd.Name(), "pid", newPID, "spawns", cmd.Spawns(), "previous", termination)
	r.publish(events.CommandSpawnedEvent{
		Command:   cmd.Name(),
		PID:       newPID,
		Spawns:    cmd.Spawns(),
		Restart:   true,
		Timestamp: r.timestamp(),
	})
}

// drop logs why a command is no longer supervised.
func (r *Reaper) drop(cmd *command.Command, pid int, err error) {
	code := command.ErrorCode(err)
	switch code {
	case command.ErrCodeMustNotRespawn:
		r.logger.Info("Command not respawned", "command", cmd.Name(), "error", err)
	case command.ErrCodeSpawnLimitReached:
		r.logger.Warn("Command reached its spawn limit", "command", cmd.Name(), "error", err)
	default:
		r.logger.Error("Failed to spawn command", "command", cmd.Name(), "error", err)
	}

	d := droppedCommand(cmd, pid, err, r.now())
	r.dropped = append(r.dropped, d)
	r.publish(events.CommandDroppedEvent{
		Command:   d.Name,
		PID:       pid,
		Code:      code,
		Error:     d.Reason,
		Timestamp: r.timestamp(),
	})
}

func (r *Reaper) onTick() {
	r.orphans.AdvanceAll()
	r.publishSnapshot()
}

func (r *Reaper) onTransition(from, to orphan.State) {
	ev := events.OrphanStateChangedEvent{
		PID:       to.PID(),
		From:      from.Stage().String(),
		To:        to.Stage().String(),
		Timestamp: r.timestamp(),
	}
	if failed, ok := to.(orphan.Failed); ok {
		ev.Error = errorString(failed.Cause)
	}
	r.publish(ev)
}

func (r *Reaper) publishSnapshot() {
	s := &Snapshot{
		Taken:         r.now(),
		Started:       r.started,
		Dropped:       append([]DroppedCommand(nil), r.dropped...),
		OrphanCounts:  make(map[string]int, len(orphan.Stages)),
		KnownChildren: len(r.known),
		Reaped:        r.reaped,
	}
	for _, e := range r.registry.Entries() {
		s.Commands = append(s.Commands, commandStatus(e))
	}
	for _, st := range r.orphans.States() {
		s.Orphans = append(s.Orphans, orphanStatus(st))
	}
	for stage, n := range r.orphans.CountByStage() {
		s.OrphanCounts[stage.String()] = n
	}

	r.snapshot.Store(s)
	if r.onSnapshot != nil {
		r.onSnapshot(s)
	}
}

func (r *Reaper) publish(ev events.Event) {
	if r.bus != nil {
		r.bus.Publish(ev)
	}
}

func (r *Reaper) timestamp() string {
	return r.now().UTC().Format(time.RFC3339)
}
