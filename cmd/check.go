package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/smazurov/pidone/internal/config"
)

// CreateCheckCmd creates the check command.
func CreateCheckCmd() *cobra.Command {
	var exec string

	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a configuration file",
		Long: `Parses the [logging] section and the [[commands]] entries of a TOML file ` +
			`and prints the commands pidone would supervise, without starting any of them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			if _, err := config.LoadLoggingConfig(path); err != nil {
				return err
			}
			cmds, err := config.LoadCommands(path)
			if err != nil {
				return err
			}
			if exec != "" {
				c, execErr := config.ParseExec(exec)
				if execErr != nil {
					return execErr
				}
				cmds = append(cmds, c)
				if err := config.ValidateCommands(cmds); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			ok := color.New(color.FgGreen).SprintFunc()
			bold := color.New(color.Bold).SprintFunc()
			fmt.Fprintf(out, "%s: %s, %d command(s)\n", path, ok("ok"), len(cmds))
			for _, c := range cmds {
				limit := "unlimited"
				if c.SpawnLimit != nil {
					limit = fmt.Sprintf("%d spawns", *c.SpawnLimit)
				}
				fmt.Fprintf(out, "  %s: %s %s (success=%t error=%t signal=%t, %s)\n",
					bold(c.Name), c.Path, c.Args, c.RestartOnSuccess, c.RestartOnError, c.RestartOnSignal, limit)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&exec, "exec", "", "Also validate an extra \"path args\" command")
	return cmd
}
