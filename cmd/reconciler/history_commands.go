package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reconciler/internal/reconcile"
	"reconciler/internal/store"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				runs, err := st.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					stop := "running"
					duration := "-"
					if run.Finished() {
						stop = humanize(run.StopReason)
						duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
					}
					rows = append(rows, []string{
						run.ID,
						run.StartedAt.Local().Format("2006-01-02 15:04:05"),
						stop,
						strconv.Itoa(run.RecordsProcessed),
						strconv.Itoa(run.TotalFailures),
						duration,
					})
				}
				fmt.Fprintln(out, renderTable([]tableColumn{
					left("Run", 0), left("Started", 0), left("Stop", 0), right("Records"), right("Failures"), right("Duration"),
				}, rows))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	return cmd
}

func newReportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "report <run-id>",
		Short: "Show every record handled by a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				run, err := resolveRun(cmd, st, args[0])
				if err != nil {
					return err
				}
				reports, err := st.ListReports(cmd.Context(), run.ID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Run "+run.ID, colorize) {
					fmt.Fprintln(out, line)
				}
				if run.Finished() {
					fmt.Fprintln(out, renderStatusLine("Stop reason",
						stopReasonKind(reconcile.StopReason(run.StopReason)), humanize(run.StopReason), colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Stop reason", statusWarn, "not recorded", colorize))
				}
				fmt.Fprintln(out, renderStatusLine("Records", statusInfo,
					fmt.Sprintf("%d processed, %d failed", run.RecordsProcessed, run.TotalFailures), colorize))
				if len(reports) == 0 {
					return nil
				}
				fmt.Fprintln(out)

				rows := make([][]string, 0, len(reports))
				for _, report := range reports {
					rows = append(rows, []string{
						strconv.Itoa(report.Position),
						report.Key,
						humanize(report.Tier),
						reportOutcome(report),
						dash(report.Status),
						dash(report.DocumentRef),
					})
				}
				fmt.Fprintln(out, renderTable([]tableColumn{
					right("Pos"), left("Key", 32), left("Tier", 0), left("Outcome", 0), left("Status", 24), left("Document", 40),
				}, rows))
				return nil
			})
		},
	}
}

// resolveRun finds a run by full id or unique prefix.
func resolveRun(cmd *cobra.Command, st *store.Store, id string) (store.Run, error) {
	id = strings.TrimSpace(id)
	if run, err := st.GetRun(cmd.Context(), id); err == nil {
		return run, nil
	}
	runs, err := st.ListRuns(cmd.Context(), 0)
	if err != nil {
		return store.Run{}, err
	}
	var matches []store.Run
	for _, run := range runs {
		if strings.HasPrefix(run.ID, id) {
			matches = append(matches, run)
		}
	}
	switch len(matches) {
	case 0:
		return store.Run{}, fmt.Errorf("run %q not found", id)
	case 1:
		return matches[0], nil
	default:
		return store.Run{}, fmt.Errorf("run prefix %q is ambiguous (%d matches)", id, len(matches))
	}
}

func reportOutcome(report store.Report) string {
	switch {
	case report.Failed:
		return fmt.Sprintf("failed in %s: %s", report.FailedState, truncate(report.ErrorMessage, 48))
	case report.Reused:
		return "reused"
	case report.MultipleCandidates:
		return "annotated (multiple)"
	default:
		return "annotated"
	}
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
