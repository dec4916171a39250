package reaper

import (
	"time"

	"github.com/smazurov/pidone/internal/command"
	"github.com/smazurov/pidone/internal/orphan"
)

// Snapshot is an immutable view of the loop state for readers on other
// goroutines. It is replaced wholesale, never modified after publication.
type Snapshot struct {
	Taken         time.Time
	Started       time.Time
	Commands      []CommandStatus
	Dropped       []DroppedCommand
	Orphans       []OrphanStatus
	OrphanCounts  map[string]int
	KnownChildren int
	Reaped        uint64
}

// CommandStatus describes a supervised command and its live pid.
type CommandStatus struct {
	Name             string
	Path             string
	Args             string
	PID              int
	Spawns           int
	SpawnLimit       int
	Limited          bool
	RestartOnSuccess bool
	RestartOnError   bool
	RestartOnSignal  bool
}

// DroppedCommand is a command that is no longer supervised.
type DroppedCommand struct {
	Name    string
	LastPID int
	Spawns  int
	Code    string
	Reason  string
	At      time.Time
}

// OrphanStatus describes one orphan record.
type OrphanStatus struct {
	PID      int
	Stage    string
	KilledAt time.Time
	Error    string
}

func commandStatus(e command.Entry) CommandStatus {
	p := e.Command.Policy()
	return CommandStatus{
		Name:             e.Command.Name(),
		Path:             e.Command.Path(),
		Args:             e.Command.Args(),
		PID:              e.PID,
		Spawns:           e.Command.Spawns(),
		SpawnLimit:       p.SpawnLimit,
		Limited:          p.Limited,
		RestartOnSuccess: p.RestartOnSuccess,
		RestartOnError:   p.RestartOnError,
		RestartOnSignal:  p.RestartOnSignal,
	}
}

func orphanStatus(s orphan.State) OrphanStatus {
	st := OrphanStatus{PID: s.PID(), Stage: s.Stage().String()}
	switch v := s.(type) {
	case orphan.ForciblyKilled:
		st.KilledAt = v.SentAt
	case orphan.Failed:
		st.Error = errorString(v.Cause)
	}
	return st
}

func droppedCommand(c *command.Command, pid int, err error, at time.Time) DroppedCommand {
	return DroppedCommand{
		Name:    c.Name(),
		LastPID: pid,
		Spawns:  c.Spawns(),
		Code:    command.ErrorCode(err),
		Reason:  errorString(err),
		At:      at,
	}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
