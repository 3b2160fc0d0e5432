package main

import (
	"github.com/spf13/cobra"
)

const (
	groupReconcile = "reconcile"
	groupInspect   = "inspect"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "reconciler",
		Short:         "Reconcile a record table against an external registry",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.AddGroup(
		&cobra.Group{ID: groupReconcile, Title: "Reconciliation:"},
		&cobra.Group{ID: groupInspect, Title: "Run history and diagnostics:"},
	)

	grouped := []struct {
		group string
		cmd   *cobra.Command
	}{
		{groupReconcile, newRunCommand(ctx)},
		{groupReconcile, newRecordsCommand(ctx)},
		{groupInspect, newHistoryCommand(ctx)},
		{groupInspect, newReportCommand(ctx)},
		{groupInspect, newStatusCommand(ctx)},
		{groupInspect, newLogsCommand(ctx)},
	}
	for _, entry := range grouped {
		entry.cmd.GroupID = entry.group
		rootCmd.AddCommand(entry.cmd)
	}
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
