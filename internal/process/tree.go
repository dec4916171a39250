package process

import (
	"fmt"
	"math"
	"time"

	"github.com/prometheus/procfs"
	"github.com/smazurov/pidone/internal/logging"
)

// Tracker discovers parent/child relationships from the process table.
type Tracker struct {
	fs     procfs.FS
	logger logging.Logger
}

// NewTracker creates a tracker reading the default /proc mount.
func NewTracker(logger logging.Logger) (*Tracker, error) {
	return NewTrackerAt(procfs.DefaultMountPoint, logger)
}

// NewTrackerAt creates a tracker reading a procfs tree at mountPoint.
func NewTrackerAt(mountPoint string, logger logging.Logger) (*Tracker, error) {
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs at %s: %w", mountPoint, err)
	}
	return &Tracker{fs: fs, logger: logger}, nil
}

// ChildrenOf returns the live processes whose parent is pid.
// Processes whose stat record cannot be read or parsed are skipped,
// partial results are expected when processes exit mid-scan.
func (t *Tracker) ChildrenOf(pid int) PIDSet {
	children := make(PIDSet)

	procs, err := t.fs.AllProcs()
	if err != nil {
		t.logger.Warn("Unable to list processes", "error", err)
		return children
	}

	for _, p := range procs {
		if p.PID == pid {
			continue
		}
		stat, statErr := p.Stat()
		if statErr != nil {
			t.logger.Warn("Unable to read process stat", "pid", p.PID, "error", statErr)
			continue
		}
		if stat.PPID == pid {
			children.Add(p.PID)
		}
	}

	return children
}

// ScanNewChildren snapshots the children of self and returns the ones
// missing from known, along with the snapshot that replaces known.
func (t *Tracker) ScanNewChildren(self int, known PIDSet) (newChildren, updated PIDSet) {
	updated = t.ChildrenOf(self)
	return updated.Difference(known), updated
}

// Info describes a live process.
type Info struct {
	PID     int
	Comm    string
	State   string
	Started time.Time // zero when the boot time is unavailable
}

// Describe returns details for the pids in set that are still alive,
// ordered by pid.
func (t *Tracker) Describe(set PIDSet) []Info {
	infos := make([]Info, 0, len(set))
	for _, pid := range set.Sorted() {
		p, err := t.fs.Proc(pid)
		if err != nil {
			continue
		}
		stat, err := p.Stat()
		if err != nil {
			t.logger.Debug("Process vanished while describing", "pid", pid, "error", err)
			continue
		}
		info := Info{PID: pid, Comm: stat.Comm, State: stat.State}
		if secs, startErr := stat.StartTime(); startErr == nil {
			whole, frac := math.Modf(secs)
			info.Started = time.Unix(int64(whole), int64(frac*1e9))
		}
		infos = append(infos, info)
	}
	return infos
}
