package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/smazurov/pidone/cmd"
	"github.com/smazurov/pidone/internal/api"
	"github.com/smazurov/pidone/internal/command"
	"github.com/smazurov/pidone/internal/config"
	"github.com/smazurov/pidone/internal/events"
	"github.com/smazurov/pidone/internal/logging"
	"github.com/smazurov/pidone/internal/metrics"
	"github.com/smazurov/pidone/internal/orphan"
	"github.com/smazurov/pidone/internal/process"
	"github.com/smazurov/pidone/internal/reaper"
	"github.com/smazurov/pidone/internal/systemd"
	"github.com/smazurov/pidone/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string

	// Supervision settings
	Commands  string        `toml:"init.commands_file" env:"COMMANDS_FILE"`
	Exec      string        `toml:"init.exec" env:"EXEC"`
	Tick      time.Duration `toml:"init.tick" env:"TICK"`
	Subreaper bool          `toml:"init.subreaper" env:"SUBREAPER"`
	Proc      string        `toml:"init.proc" env:"PROC"`

	// Status API settings
	Listen       string `toml:"api.listen" env:"API_LISTEN"`
	AuthUsername string `toml:"api.username" env:"API_USERNAME"`
	AuthPassword string `toml:"api.password" env:"API_PASSWORD"`

	// Logging settings
	LoggingLevel  string `toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `toml:"logging.format" env:"LOGGING_FORMAT"`
	WatchConfig   bool   `toml:"logging.watch" env:"LOGGING_WATCH"`
}

func main() {
	root, _ := newRootCmd()
	root.AddCommand(cmd.CreateChildrenCmd())
	root.AddCommand(cmd.CreateCheckCmd())
	root.AddCommand(cmd.CreateVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pidone:", err)
		os.Exit(1)
	}
}

// newRootCmd builds the root command with its flags bound to the returned
// options. Flag names must match the field names as config.LoadConfig
// derives them, otherwise env and TOML values override the CLI.
func newRootCmd() (*cobra.Command, *Options) {
	opts := &Options{}

	root := &cobra.Command{
		Use:   "pidone [flags] [-- path args...]",
		Short: "Minimal init: reaps zombies, terminates orphans, supervises commands",
		Long: `pidone runs as PID 1 (or as a child subreaper) and collects every terminated child, ` +
			`asks orphaned descendants to exit with SIGTERM before SIGKILL, and restarts ` +
			`configured commands according to their restart policy and spawn limit.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, args []string) error {
			if err := loadOptions(c, opts, args); err != nil {
				return err
			}
			return run(c, opts)
		},
	}

	flags := root.Flags()
	flags.StringVarP(&opts.Config, "config", "c", "/etc/pidone.toml", "Path to configuration file")
	flags.StringVar(&opts.Commands, "commands", "", "Commands file, defaults to the configuration file")
	flags.StringVar(&opts.Exec, "exec", "", "Extra command \"path args\" restarted on error and signal")
	flags.DurationVar(&opts.Tick, "tick", reaper.DefaultTick, "Orphan escalation interval")
	flags.BoolVar(&opts.Subreaper, "subreaper", true, "Become a child subreaper when not PID 1")
	flags.StringVar(&opts.Proc, "proc", "/proc", "procfs mount point")
	flags.StringVar(&opts.Listen, "listen", "", "Status API address, disabled when empty")
	flags.StringVar(&opts.AuthUsername, "auth-username", "", "Status API basic auth username")
	flags.StringVar(&opts.AuthPassword, "auth-password", "", "Status API basic auth password")
	flags.StringVar(&opts.LoggingLevel, "logging-level", "info", "Global logging level (debug, info, warn, error)")
	flags.StringVar(&opts.LoggingFormat, "logging-format", "text", "Logging format (text, json)")
	flags.BoolVar(&opts.WatchConfig, "watch-config", true, "Reload log levels when the configuration file changes")

	return root, opts
}

// loadOptions resolves opts from the command line, the environment and the
// configuration file. Trailing arguments stand in for --exec and count as
// set on the command line.
func loadOptions(c *cobra.Command, opts *Options, args []string) error {
	if len(args) > 0 && !c.Flags().Changed("exec") {
		if err := c.Flags().Set("exec", strings.Join(args, " ")); err != nil {
			return err
		}
	}
	return config.LoadConfig(opts, c)
}

func run(c *cobra.Command, opts *Options) error {
	loggingConfig, err := config.LoadLoggingConfig(opts.Config)
	if err != nil {
		return err
	}
	loggingConfig.Level = opts.LoggingLevel
	loggingConfig.Format = opts.LoggingFormat
	if _, ok := logging.ParseLevel(loggingConfig.Level); !ok {
		return fmt.Errorf("invalid logging level %q", loggingConfig.Level)
	}
	logging.Initialize(loggingConfig)
	logger := logging.GetLogger("main")
	logger.Info("Starting", "version", version.Get().Version, "pid", os.Getpid())

	cmdConfigs, err := loadCommands(opts)
	if err != nil {
		return err
	}

	if pid := os.Getpid(); pid != 1 && opts.Subreaper {
		if subErr := process.SetSubreaper(); subErr != nil {
			logger.Warn("Failed to become child subreaper, orphans will not be reparented here", "error", subErr)
		}
		logger.Info("Child subreaper state", "pid", pid, "subreaper", process.IsSubreaper())
	}

	tracker, err := process.NewTrackerAt(opts.Proc, logging.GetLogger("process"))
	if err != nil {
		return err
	}

	// Trap signals before the first child exists so no SIGCHLD is lost.
	signals := reaper.NewSignalSource()
	defer signals.Stop()

	spawner := process.NewSpawner(logging.GetLogger("process"))
	spawner.SetOutputLogger(logging.GetLogger("output"), process.ParseLevelPrefix)
	commands := config.BuildCommands(cmdConfigs, spawner, logging.GetLogger("command"))

	bus := events.New()
	defer metrics.Subscribe(bus)()

	stages := make([]string, 0, len(orphan.Stages))
	for _, s := range orphan.Stages {
		stages = append(stages, s.String())
	}

	r := reaper.New(reaper.Options{
		Tick:     opts.Tick,
		Zombies:  process.NewReaper(logging.GetLogger("process")),
		Tree:     tracker,
		Signals:  signals,
		Signaler: orphan.KillSignaler{},
		Registry: command.NewRegistry(logging.GetLogger("command")),
		Bus:      bus,
		Logger:   logging.GetLogger("reaper"),
		OnSnapshot: func(s *reaper.Snapshot) {
			metrics.SetOrphans(stages, s.OrphanCounts)
			metrics.SetSupervised(len(s.Commands))
		},
	})
	r.Start(commands)

	notifier := systemd.NewNotifier(logging.GetLogger("main"))
	notifier.Ready()
	notifier.Status(fmt.Sprintf("supervising %d command(s)", len(r.Snapshot().Commands)))

	if opts.WatchConfig && fileExists(opts.Config) {
		watcher := config.NewLevelWatcher(opts.Config, logging.GetLogger("config"))
		if watchErr := watcher.Start(); watchErr != nil {
			logger.Warn("Config watcher disabled", "error", watchErr)
		} else {
			defer watcher.Stop()
		}
	}

	// SIGINT and SIGTERM are only logged, so nothing cancels this context
	// in production. It exists for the errgroup and for embedding.
	g, ctx := errgroup.WithContext(c.Context())

	g.Go(func() error {
		return r.Run(ctx)
	})
	g.Go(func() error {
		return notifier.RunWatchdog(ctx)
	})
	if opts.Listen != "" {
		srv := api.NewServer(&api.Options{
			Snapshot:          r.Snapshot,
			EventBus:          bus,
			PrometheusHandler: metrics.Handler(),
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			PID:               os.Getpid(),
		})
		g.Go(func() error {
			// A broken status API must not take the init process down.
			if serveErr := srv.Serve(ctx, opts.Listen); serveErr != nil {
				logger.Error("Status API stopped", "addr", opts.Listen, "error", serveErr)
			}
			return nil
		})
	}

	return g.Wait()
}

// loadCommands reads the configured commands and appends the --exec one.
// The configuration file doubles as the commands file when it exists.
func loadCommands(opts *Options) ([]config.CommandConfig, error) {
	path := opts.Commands
	if path == "" && fileExists(opts.Config) {
		path = opts.Config
	}

	cmds, err := config.LoadCommands(path)
	if err != nil {
		return nil, err
	}
	if opts.Exec != "" {
		c, execErr := config.ParseExec(opts.Exec)
		if execErr != nil {
			return nil, execErr
		}
		cmds = append(cmds, c)
		if err := config.ValidateCommands(cmds); err != nil {
			return nil, err
		}
	}
	return cmds, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
