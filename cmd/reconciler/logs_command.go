package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reconciler/internal/logs"
	"reconciler/internal/store"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs [run-id]",
		Short: "Show the JSON log of a run (latest run by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var runID string
			err = ctx.withStore(func(st *store.Store) error {
				if len(args) == 1 {
					run, err := resolveRun(cmd, st, args[0])
					if err != nil {
						return err
					}
					runID = run.ID
					return nil
				}
				runs, err := st.ListRuns(cmd.Context(), 1)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					return fmt.Errorf("no runs recorded")
				}
				runID = runs[0].ID
				return nil
			})
			if err != nil {
				return err
			}

			path := cfg.RunLogPath(runID)
			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				if len(tail) == 0 {
					fmt.Fprintf(out, "No log lines in %s\n", path)
				}
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, 250*time.Millisecond, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	return cmd
}
