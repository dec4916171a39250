package models

import "time"

// Health check models
type HealthData struct {
	Status   string    `json:"status" example:"ok" doc:"Service status"`
	Message  string    `json:"message" example:"API is healthy" doc:"Status message"`
	PID      int       `json:"pid" example:"1" doc:"Pid of the init process"`
	Started  time.Time `json:"started" doc:"When supervision began"`
	Uptime   string    `json:"uptime" example:"3 minutes ago" doc:"Human readable start time"`
	Children int       `json:"children" example:"4" doc:"Known children of the init process"`
	Reaped   uint64    `json:"reaped" example:"17" doc:"Processes reaped since start"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27" doc:"Build date"`
	Modified  bool   `json:"modified" doc:"Whether the working tree was dirty at build time"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go version"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Command models
type CommandInfo struct {
	Name             string `json:"name" example:"sshd" doc:"Command name"`
	Path             string `json:"path" example:"/usr/sbin/sshd" doc:"Executable path"`
	Args             string `json:"args" example:"-D -e" doc:"Argument string"`
	PID              int    `json:"pid" example:"42" doc:"Pid currently supervised for the command"`
	Spawns           int    `json:"spawns" example:"1" doc:"Number of launches so far"`
	SpawnLimit       *int   `json:"spawn_limit,omitempty" example:"10" doc:"Maximum launches, absent when unlimited"`
	RestartOnSuccess bool   `json:"restart_on_success" doc:"Restart after exit status zero"`
	RestartOnError   bool   `json:"restart_on_error" doc:"Restart after a non-zero exit status"`
	RestartOnSignal  bool   `json:"restart_on_signal" doc:"Restart after death by signal"`
}

type DroppedCommandInfo struct {
	Name    string    `json:"name" example:"sshd" doc:"Command name"`
	LastPID int       `json:"last_pid" example:"42" doc:"Last pid the command ran as"`
	Spawns  int       `json:"spawns" example:"10" doc:"Launches before the command was dropped"`
	Code    string    `json:"code" example:"spawn_limit_reached" doc:"Refusal code"`
	Reason  string    `json:"reason" example:"sshd: spawn limit reached (10)" doc:"Refusal message"`
	At      time.Time `json:"at" doc:"When the command was dropped"`
}

type CommandsData struct {
	Commands []CommandInfo        `json:"commands" doc:"Supervised commands ordered by name"`
	Dropped  []DroppedCommandInfo `json:"dropped" doc:"Commands no longer supervised"`
	Count    int                  `json:"count" example:"2" doc:"Number of supervised commands"`
}

type CommandsResponse struct {
	Body CommandsData
}

// Orphan models
type OrphanInfo struct {
	PID      int        `json:"pid" example:"4243" doc:"Orphan pid"`
	Stage    string     `json:"stage" example:"asked_to_exit" doc:"Termination stage"`
	KilledAt *time.Time `json:"killed_at,omitempty" doc:"When SIGKILL was sent"`
	Error    string     `json:"error,omitempty" example:"no such process" doc:"Signal failure for failed orphans"`
}

type OrphansData struct {
	Orphans []OrphanInfo   `json:"orphans" doc:"Tracked orphans ordered by pid"`
	Counts  map[string]int `json:"counts" doc:"Number of orphans per stage"`
}

type OrphansResponse struct {
	Body OrphansData
}
