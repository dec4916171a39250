package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/smazurov/pidone/internal/logging"
	"github.com/smazurov/pidone/internal/process"
)

// CreateChildrenCmd creates the children command.
func CreateChildrenCmd() *cobra.Command {
	var procRoot string

	cmd := &cobra.Command{
		Use:   "children [pid]",
		Short: "List the direct children of a process",
		Long: `Reads the process table and prints the live children of pid (default 1), ` +
			`the same scan the supervisor uses to find orphans.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("invalid pid %q", args[0])
				}
				pid = n
			}

			tracker, err := process.NewTrackerAt(procRoot, logging.GetLogger("process"))
			if err != nil {
				return err
			}
			return printChildren(cmd, tracker.Describe(tracker.ChildrenOf(pid)), time.Now())
		},
	}

	cmd.Flags().StringVar(&procRoot, "proc", "/proc", "procfs mount point")
	return cmd
}

func printChildren(cmd *cobra.Command, infos []process.Info, now time.Time) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PID\tSTATE\tSTARTED\tCOMMAND")
	for _, info := range infos {
		started := "-"
		if !info.Started.IsZero() {
			started = humanize.RelTime(info.Started, now, "ago", "from now")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", info.PID, info.State, started, info.Comm)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "no children")
	}
	return nil
}

