package process

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/smazurov/pidone/internal/logging"
)

// LogParser parses a line of command output and returns its log level and message.
type LogParser func(line string) (level, msg string)

// StartRequest describes a process to start.
type StartRequest struct {
	Name          string   // label used in logs
	Path          string   // executable
	Args          []string // arguments, already split
	CaptureOutput bool     // route stdout/stderr into the output logger
}

// Spawner starts processes and hands back their pid without waiting on them.
// Terminated children are collected by the Reaper, never by the Spawner.
type Spawner struct {
	logger       logging.Logger
	outputLogger logging.Logger // logger for captured output (nil = use logger)
	logParser    LogParser      // nil = every line at info level
}

// NewSpawner creates a spawner.
func NewSpawner(logger logging.Logger) *Spawner {
	return &Spawner{logger: logger}
}

// SetOutputLogger sets the logger and parser used for captured command output.
func (s *Spawner) SetOutputLogger(logger logging.Logger, parser LogParser) {
	s.outputLogger = logger
	s.logParser = parser
}

// SplitArgs splits an argument string on whitespace. Quoting is not supported.
func SplitArgs(args string) []string {
	return strings.Fields(args)
}

// Start launches the process described by req and returns its pid.
func (s *Spawner) Start(req StartRequest) (int, error) {
	if req.Path == "" {
		return 0, fmt.Errorf("empty command path")
	}

	cmd := exec.Command(req.Path, req.Args...)

	var stdout, stderr io.ReadCloser
	if req.CaptureOutput {
		var err error
		if stdout, err = cmd.StdoutPipe(); err != nil {
			return 0, fmt.Errorf("failed to create stdout pipe: %w", err)
		}
		if stderr, err = cmd.StderrPipe(); err != nil {
			return 0, fmt.Errorf("failed to create stderr pipe: %w", err)
		}
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid
	s.logger.Debug("Process started", "name", req.Name, "pid", pid, "path", req.Path, "args", req.Args)

	if req.CaptureOutput {
		go s.streamOutput(stdout, req.Name, pid, "stdout")
		go s.streamOutput(stderr, req.Name, pid, "stderr")
	}

	// The exit status belongs to the reaper, drop our handle on the process.
	if err := cmd.Process.Release(); err != nil {
		s.logger.Debug("Failed to release process handle", "pid", pid, "error", err)
	}

	return pid, nil
}

// streamOutput forwards each line of reader to the output logger until EOF.
func (s *Spawner) streamOutput(reader io.ReadCloser, name string, pid int, source string) {
	defer reader.Close()

	logger := s.outputLogger
	if logger == nil {
		logger = s.logger
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		level, msg := "info", scanner.Text()
		if s.logParser != nil {
			level, msg = s.logParser(msg)
		}

		switch level {
		case "fatal", "error":
			logger.Error(msg, "command", name, "pid", pid, "source", source)
		case "warning", "warn":
			logger.Warn(msg, "command", name, "pid", pid, "source", source)
		case "debug", "trace":
			logger.Debug(msg, "command", name, "pid", pid, "source", source)
		default:
			logger.Info(msg, "command", name, "pid", pid, "source", source)
		}
	}

	if err := scanner.Err(); err != nil {
		s.logger.Warn("Error reading output", "command", name, "source", source, "error", err)
	}
}

// ParseLevelPrefix extracts a leading "[level]" or "level:" marker from a
// line of output. Lines without a recognised marker are logged at info.
func ParseLevelPrefix(line string) (level, msg string) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "[") {
		if end := strings.Index(trimmed, "]"); end > 1 {
			if lvl, ok := normalizeLevel(trimmed[1:end]); ok {
				return lvl, strings.TrimSpace(trimmed[end+1:])
			}
		}
	}
	if idx := strings.Index(trimmed, ":"); idx > 0 {
		if lvl, ok := normalizeLevel(trimmed[:idx]); ok {
			return lvl, strings.TrimSpace(trimmed[idx+1:])
		}
	}
	return "info", line
}

func normalizeLevel(s string) (string, bool) {
	switch strings.ToLower(s) {
	case "fatal", "panic", "crit", "critical":
		return "fatal", true
	case "error", "err":
		return "error", true
	case "warning", "warn":
		return "warning", true
	case "info", "notice":
		return "info", true
	case "debug":
		return "debug", true
	case "trace":
		return "trace", true
	}
	return "", false
}
