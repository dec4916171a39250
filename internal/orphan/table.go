// Package orphan tracks processes whose supervising parent died abnormally
// and escalates their termination one step per tick: SIGTERM, then SIGKILL.
//
// The table is owned by a single goroutine and is not safe for concurrent use.
package orphan

import (
	"slices"
	"time"

	"github.com/smazurov/pidone/internal/logging"
)

// TransitionFunc is called after a record changes state.
type TransitionFunc func(from, to State)

// Option configures a Table.
type Option func(*Table)

// WithClock overrides the time source used for SIGKILL timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Table) {
		t.now = now
	}
}

// WithTransitionCallback registers a callback for state changes.
func WithTransitionCallback(fn TransitionFunc) Option {
	return func(t *Table) {
		t.onTransition = fn
	}
}

// Table holds one State per orphan pid.
type Table struct {
	states       map[int]State
	signaler     Signaler
	now          func() time.Time
	logger       logging.Logger
	onTransition TransitionFunc
}

// NewTable creates an empty orphan table.
func NewTable(signaler Signaler, logger logging.Logger, opts ...Option) *Table {
	t := &Table{
		states:   make(map[int]State),
		signaler: signaler,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Mark inserts Untouched records for pids not already tracked and
// immediately advances the new records once, so the first signal goes out
// without waiting for the next tick. Tracked pids keep their current state.
// Returns the number of newly marked pids.
func (t *Table) Mark(pids []int) int {
	marked := make([]int, 0, len(pids))
	for _, pid := range pids {
		if _, exists := t.states[pid]; exists {
			t.logger.Debug("Orphan already tracked", "pid", pid, "state", t.states[pid].Stage())
			continue
		}
		t.states[pid] = Untouched{Pid: pid}
		marked = append(marked, pid)
	}

	for _, pid := range marked {
		t.advance(pid)
	}

	t.logger.Debug("Marked orphans for termination", "count", len(marked))
	return len(marked)
}

// AdvanceAll advances every record exactly once.
func (t *Table) AdvanceAll() {
	for _, pid := range t.pids() {
		t.advance(pid)
	}
	if len(t.states) > 0 {
		t.logger.Debug("Advanced orphans", "count", len(t.states))
	}
}

func (t *Table) advance(pid int) {
	from := t.states[pid]
	to := Advance(from, t.signaler, t.now(), t.logger)
	t.states[pid] = to
	if to.Stage() != from.Stage() && t.onTransition != nil {
		t.onTransition(from, to)
	}
}

// Forget removes pid from the table, it is the only way a record leaves.
// It is called when the pid has been reaped.
func (t *Table) Forget(pid int) (State, bool) {
	s, ok := t.states[pid]
	if ok {
		delete(t.states, pid)
	}
	return s, ok
}

// Get returns the state of pid.
func (t *Table) Get(pid int) (State, bool) {
	s, ok := t.states[pid]
	return s, ok
}

// Len returns the number of tracked orphans.
func (t *Table) Len() int {
	return len(t.states)
}

// States returns all records ordered by pid.
func (t *Table) States() []State {
	out := make([]State, 0, len(t.states))
	for _, pid := range t.pids() {
		out = append(out, t.states[pid])
	}
	return out
}

// CountByStage returns the number of records in each stage.
func (t *Table) CountByStage() map[Stage]int {
	counts := make(map[Stage]int, len(Stages))
	for _, stage := range Stages {
		counts[stage] = 0
	}
	for _, s := range t.states {
		counts[s.Stage()]++
	}
	return counts
}

func (t *Table) pids() []int {
	pids := make([]int, 0, len(t.states))
	for pid := range t.states {
		pids = append(pids, pid)
	}
	slices.Sort(pids)
	return pids
}
