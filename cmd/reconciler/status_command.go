package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reconciler/internal/preflight"
	"reconciler/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, readiness checks, and record counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			configDetail := ctx.configPath
			if !ctx.configSeen {
				configDetail += " (not found, using defaults)"
			}
			fmt.Fprintln(out, renderStatusLine("Config", statusInfo, configDetail, colorize))
			fmt.Fprintln(out, renderStatusLine("Failure limit", statusInfo, fmt.Sprintf("%d", cfg.Run.FailureLimit), colorize))
			fmt.Fprintln(out, renderStatusLine("API key", statusInfo, yesNo(cfg.Registry.APIKey != ""), colorize))
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Checks", colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, check := range results {
				kind := statusOK
				if !check.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
			}
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Records", colorize) {
				fmt.Fprintln(out, line)
			}
			return ctx.withStore(func(st *store.Store) error {
				total, resolved, err := st.Counts(cmd.Context())
				if err != nil {
					return err
				}
				pendingKind := statusInfo
				if total > 0 && total == resolved {
					pendingKind = statusOK
				}
				fmt.Fprintln(out, renderStatusLine("Total", statusInfo, fmt.Sprintf("%d", total), colorize))
				fmt.Fprintln(out, renderStatusLine("Unresolved", pendingKind, fmt.Sprintf("%d", total-resolved), colorize))

				runs, err := st.ListRuns(cmd.Context(), 1)
				if err != nil {
					return err
				}
				if len(runs) == 1 {
					last := runs[0]
					detail := fmt.Sprintf("%s started %s", last.ID, last.StartedAt.Local().Format("2006-01-02 15:04"))
					if last.Finished() {
						detail += ", " + humanize(last.StopReason)
					}
					fmt.Fprintln(out, renderStatusLine("Last run", statusInfo, detail, colorize))
				}
				if failed := preflight.Failed(results); len(failed) > 0 {
					return fmt.Errorf("%d readiness checks failed", len(failed))
				}
				return nil
			})
		},
	}
}
