package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/pidone/internal/command"
	"github.com/smazurov/pidone/internal/logging"
)

// CommandConfig is one [[commands]] entry.
type CommandConfig struct {
	Name             string `toml:"name"`
	Path             string `toml:"path"`
	Args             string `toml:"args"`
	RestartOnSuccess bool   `toml:"restart_on_success"`
	RestartOnError   bool   `toml:"restart_on_error"`
	RestartOnSignal  bool   `toml:"restart_on_signal"`
	SpawnLimit       *int   `toml:"spawn_limit"`
	LogOutput        bool   `toml:"log_output"`
}

// commandsFile is the part of the TOML file holding commands.
type commandsFile struct {
	Commands []CommandConfig `toml:"commands"`
}

// LoadCommands reads the [[commands]] array of a TOML file.
// An empty path yields no commands.
func LoadCommands(path string) ([]CommandConfig, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read commands file %s: %w", path, err)
	}
	return ParseCommands(data)
}

// ParseCommands decodes and validates [[commands]] entries.
func ParseCommands(data []byte) ([]CommandConfig, error) {
	var file commandsFile
	if err := toml.Unmarshal(data, &file); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("failed to parse commands at line %d column %d: %w", row, col, err)
		}
		return nil, fmt.Errorf("failed to parse commands: %w", err)
	}

	if err := ValidateCommands(file.Commands); err != nil {
		return nil, err
	}
	return file.Commands, nil
}

// ValidateCommands checks every entry and that names are unique.
// Names default to the executable base name before the check.
func ValidateCommands(cmds []CommandConfig) error {
	seen := make(map[string]int, len(cmds))
	for i := range cmds {
		c := &cmds[i]
		if strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("command %d: path is required", i+1)
		}
		if c.SpawnLimit != nil && *c.SpawnLimit < 0 {
			return fmt.Errorf("command %d (%s): spawn_limit must not be negative", i+1, c.Path)
		}
		if c.Name == "" {
			c.Name = filepath.Base(c.Path)
		}
		if prev, dup := seen[c.Name]; dup {
			return fmt.Errorf("command %d: name %q already used by command %d", i+1, c.Name, prev)
		}
		seen[c.Name] = i + 1
	}
	return nil
}

// ParseExec turns a "path args..." string into a command that restarts on
// error and on signal.
func ParseExec(line string) (CommandConfig, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return CommandConfig{}, errors.New("exec: empty command line")
	}

	path := fields[0]
	return CommandConfig{
		Name:            filepath.Base(path),
		Path:            path,
		Args:            strings.Join(fields[1:], " "),
		RestartOnError:  true,
		RestartOnSignal: true,
	}, nil
}

// Build creates the persistent command for c.
func (c CommandConfig) Build(starter command.Starter, logger logging.Logger) *command.Command {
	opts := []command.Option{
		command.WithName(c.Name),
		command.WithRestartOnSuccess(c.RestartOnSuccess),
		command.WithRestartOnError(c.RestartOnError),
		command.WithRestartOnSignal(c.RestartOnSignal),
		command.WithOutputCapture(c.LogOutput),
	}
	if c.SpawnLimit != nil {
		opts = append(opts, command.WithSpawnLimit(*c.SpawnLimit))
	}
	return command.New(c.Path, c.Args, starter, logger, opts...)
}

// BuildCommands creates persistent commands for all entries.
func BuildCommands(cmds []CommandConfig, starter command.Starter, logger logging.Logger) []*command.Command {
	out := make([]*command.Command, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Build(starter, logger))
	}
	return out
}
