package events

// Event type constants for kelindar/event.
const (
	TypeProcessReaped uint32 = iota + 1
	TypeOrphanStateChanged
	TypeCommandSpawned
	TypeCommandRekeyed
	TypeCommandDropped
	TypeSignalReceived
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ProcessReapedEvent is published for every child collected by wait.
type ProcessReapedEvent struct {
	PID         int    `json:"pid" example:"4242" doc:"Pid of the reaped process"`
	Carcass     string `json:"carcass" example:"(pid=4242,exit=0)" doc:"Rendered exit record"`
	Termination string `json:"termination" example:"exited_zero" enum:"exited_zero,exited_non_zero,signaled" doc:"How the process ended"`
	Command     string `json:"command,omitempty" example:"sshd" doc:"Supervised command the pid belonged to"`
	Orphan      bool   `json:"orphan" doc:"Whether the pid was a tracked orphan"`
	Timestamp   string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Reap timestamp"`
}

// Type returns the event type identifier for ProcessReapedEvent.
func (e ProcessReapedEvent) Type() uint32 { return TypeProcessReaped }

// OrphanStateChangedEvent is published when an orphan moves to a new stage.
type OrphanStateChangedEvent struct {
	PID       int    `json:"pid" example:"4243" doc:"Orphan pid"`
	From      string `json:"from" example:"untouched" doc:"Previous stage"`
	To        string `json:"to" example:"asked_to_exit" doc:"New stage"`
	Error     string `json:"error,omitempty" example:"no such process" doc:"Signal failure, set when To is failed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Transition timestamp"`
}

// Type returns the event type identifier for OrphanStateChangedEvent.
func (e OrphanStateChangedEvent) Type() uint32 { return TypeOrphanStateChanged }

// CommandSpawnedEvent is published after a command process was started.
type CommandSpawnedEvent struct {
	Command   string `json:"command" example:"sshd" doc:"Command name"`
	PID       int    `json:"pid" example:"4244" doc:"Pid of the new process"`
	Spawns    int    `json:"spawns" example:"2" doc:"Spawns so far, this one included"`
	Restart   bool   `json:"restart" doc:"False for the initial launch"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Spawn timestamp"`
}

// Type returns the event type identifier for CommandSpawnedEvent.
func (e CommandSpawnedEvent) Type() uint32 { return TypeCommandSpawned }

// CommandRekeyedEvent is published when a command daemonized and is now
// tracked under the pid of its forked child.
type CommandRekeyedEvent struct {
	Command   string `json:"command" example:"nginx" doc:"Command name"`
	OldPID    int    `json:"old_pid" example:"4244" doc:"Pid that exited"`
	NewPID    int    `json:"new_pid" example:"4245" doc:"Pid now tracked"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Rekey timestamp"`
}

// Type returns the event type identifier for CommandRekeyedEvent.
func (e CommandRekeyedEvent) Type() uint32 { return TypeCommandRekeyed }

// CommandDroppedEvent is published when a command stops being supervised.
type CommandDroppedEvent struct {
	Command   string `json:"command" example:"sshd" doc:"Command name"`
	PID       int    `json:"pid" example:"4244" doc:"Last pid of the command"`
	Code      string `json:"code" example:"SPAWN_LIMIT_REACHED" enum:"SPAWN_FAILED,SPAWN_LIMIT_REACHED,MUST_NOT_RESPAWN" doc:"Reason code"`
	Error     string `json:"error" doc:"Reason"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Drop timestamp"`
}

// Type returns the event type identifier for CommandDroppedEvent.
func (e CommandDroppedEvent) Type() uint32 { return TypeCommandDropped }

// SignalReceivedEvent is published for every signal the init loop handles.
type SignalReceivedEvent struct {
	Signal    string `json:"signal" example:"SIGCHLD" doc:"Signal name"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Receive timestamp"`
}

// Type returns the event type identifier for SignalReceivedEvent.
func (e SignalReceivedEvent) Type() uint32 { return TypeSignalReceived }
