package orphan

import (
	"fmt"
	"time"
)

// Stage orders orphan states. A record's stage never decreases.
type Stage int

// Orphan stages, in escalation order.
const (
	StageUntouched      Stage = iota // discovered, nothing sent yet
	StageAskedToExit                 // SIGTERM delivered
	StageForciblyKilled              // SIGKILL delivered
	StageFailed                      // a signal could not be delivered
)

func (s Stage) String() string {
	switch s {
	case StageUntouched:
		return "untouched"
	case StageAskedToExit:
		return "asked_to_exit"
	case StageForciblyKilled:
		return "forcibly_killed"
	case StageFailed:
		return "failed"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Stages lists every stage in escalation order.
var Stages = []Stage{StageUntouched, StageAskedToExit, StageForciblyKilled, StageFailed}

// State is the escalation state of one orphan. The set of implementations
// is closed: Untouched, AskedToExit, ForciblyKilled and Failed.
type State interface {
	PID() int
	Stage() Stage
	String() string
	orphanState()
}

// Untouched is a discovered orphan that has not been signaled yet.
type Untouched struct {
	Pid int
}

// AskedToExit is an orphan that has been sent SIGTERM.
type AskedToExit struct {
	Pid int
}

// ForciblyKilled is an orphan that has been sent SIGKILL at SentAt.
type ForciblyKilled struct {
	Pid    int
	SentAt time.Time
}

// Failed is an orphan that could not be signaled. It is terminal and kept
// for inspection until the pid is reaped.
type Failed struct {
	Pid   int
	Cause error
}

func (s Untouched) PID() int      { return s.Pid }
func (s AskedToExit) PID() int    { return s.Pid }
func (s ForciblyKilled) PID() int { return s.Pid }
func (s Failed) PID() int         { return s.Pid }

func (Untouched) Stage() Stage      { return StageUntouched }
func (AskedToExit) Stage() Stage    { return StageAskedToExit }
func (ForciblyKilled) Stage() Stage { return StageForciblyKilled }
func (Failed) Stage() Stage         { return StageFailed }

func (s Untouched) String() string   { return fmt.Sprintf("untouched(pid=%d)", s.Pid) }
func (s AskedToExit) String() string { return fmt.Sprintf("asked_to_exit(pid=%d)", s.Pid) }
func (s ForciblyKilled) String() string {
	return fmt.Sprintf("forcibly_killed(pid=%d,sent_at=%s)", s.Pid, s.SentAt.Format(time.RFC3339))
}
func (s Failed) String() string { return fmt.Sprintf("failed(pid=%d,cause=%v)", s.Pid, s.Cause) }

func (Untouched) orphanState()      {}
func (AskedToExit) orphanState()    {}
func (ForciblyKilled) orphanState() {}
func (Failed) orphanState()         {}
