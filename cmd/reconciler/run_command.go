package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reconciler/internal/reconcile"
	"reconciler/internal/runner"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var withPreflight bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile unresolved records until the table is exhausted or the failure limit is hit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			result, err := runner.Run(cmd.Context(), cfg, runner.Options{
				Preflight:     withPreflight,
				HandleSignals: true,
			})
			if len(result.Preflight) > 0 && err != nil {
				for _, line := range renderSectionHeader("Preflight", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, check := range result.Preflight {
					kind := statusOK
					if !check.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
				}
			}
			if err != nil {
				return err
			}

			printRunSummary(cmd, result, colorize)
			if result.Summary.StopReason == reconcile.StopFailureLimit {
				return fmt.Errorf("run stopped after %d consecutive failures", result.Summary.ConsecutiveFailures)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withPreflight, "preflight", false, "Run readiness checks before starting and abort if any fail")
	return cmd
}

func printRunSummary(cmd *cobra.Command, result runner.Result, colorize bool) {
	out := cmd.OutOrStdout()
	summary := result.Summary
	for _, line := range renderSectionHeader("Run "+result.RunID, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Stop reason", stopReasonKind(summary.StopReason), humanize(string(summary.StopReason)), colorize))

	failureKind := statusOK
	if summary.TotalFailures > 0 {
		failureKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Records", statusInfo, fmt.Sprintf("%d processed, %d reused", summary.RecordsProcessed, summary.Reused), colorize))
	fmt.Fprintln(out, renderStatusLine("Failures", failureKind,
		fmt.Sprintf("%d total, %d consecutive at stop", summary.TotalFailures, summary.ConsecutiveFailures), colorize))
	fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, summary.Duration.Round(time.Millisecond).String(), colorize))
	logKind := statusOK
	switch {
	case result.Errors > 0:
		logKind = statusError
	case result.Warnings > 0:
		logKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Log issues", logKind,
		fmt.Sprintf("%d warnings, %d errors", result.Warnings, result.Errors), colorize))
	if strings.TrimSpace(result.RunLogPath) != "" {
		fmt.Fprintln(out, renderStatusLine("Run log", statusInfo, result.RunLogPath, colorize))
	}
}
