package command

import (
	"errors"
	"fmt"

	"github.com/smazurov/pidone/internal/process"
)

// Error codes for spawn refusals and failures.
const (
	ErrCodeSpawnFailed       = "SPAWN_FAILED"
	ErrCodeSpawnLimitReached = "SPAWN_LIMIT_REACHED"
	ErrCodeMustNotRespawn    = "MUST_NOT_RESPAWN"
)

// Error is returned when a command is not (re)started.
// Code selects which of the other fields are meaningful:
//   - SPAWN_FAILED: Cause holds the OS error
//   - SPAWN_LIMIT_REACHED: Limit holds the exhausted limit
//   - MUST_NOT_RESPAWN: Termination holds the refused exit kind
type Error struct {
	Code        string
	Command     string
	Limit       int
	Termination process.Termination
	Cause       error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeSpawnLimitReached:
		return fmt.Sprintf("%s: %s: spawn limit (%d) reached", e.Code, e.Command, e.Limit)
	case ErrCodeMustNotRespawn:
		return fmt.Sprintf("%s: %s: previous process %s, no need to respawn", e.Code, e.Command, e.Termination)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: spawning command failed: %v", e.Code, e.Command, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Command)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorCode returns the code of a command Error in err's chain, or "".
func ErrorCode(err error) string {
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		return cmdErr.Code
	}
	return ""
}

func spawnFailed(name string, cause error) *Error {
	return &Error{Code: ErrCodeSpawnFailed, Command: name, Cause: cause}
}

func spawnLimitReached(name string, limit int) *Error {
	return &Error{Code: ErrCodeSpawnLimitReached, Command: name, Limit: limit}
}

func mustNotRespawn(name string, t process.Termination) *Error {
	return &Error{Code: ErrCodeMustNotRespawn, Command: name, Termination: t}
}
