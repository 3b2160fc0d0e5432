package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reconciler/internal/store"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	recordsCmd := &cobra.Command{
		Use:   "records",
		Short: "Manage the record table",
	}

	recordsCmd.AddCommand(newRecordsImportCommand(ctx))
	recordsCmd.AddCommand(newRecordsListCommand(ctx))
	recordsCmd.AddCommand(newRecordsResetCommand(ctx))

	return recordsCmd
}

func newRecordsImportCommand(ctx *commandContext) *cobra.Command {
	var column int
	var skipHeader bool

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Append record keys from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if column < 1 {
				return fmt.Errorf("--column must be 1 or greater, got %d", column)
			}
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer file.Close()

			keys, err := readKeys(file, column-1, skipHeader)
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			return ctx.withStore(func(st *store.Store) error {
				inserted, err := st.ImportRecords(cmd.Context(), keys)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records from %s\n", inserted, args[0])
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&column, "column", 1, "1-based CSV column holding the record key")
	cmd.Flags().BoolVar(&skipHeader, "header", false, "Skip the first CSV row")
	return cmd
}

// readKeys returns the values of column from every CSV row. Rows too short to
// carry the column are skipped.
func readKeys(r io.Reader, column int, skipHeader bool) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var keys []string
	first := true
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if first && skipHeader {
			first = false
			continue
		}
		first = false
		if column >= len(row) {
			continue
		}
		if key := strings.TrimSpace(row[column]); key != "" {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func newRecordsListCommand(ctx *commandContext) *cobra.Command {
	var unresolvedOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the record table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				records, err := st.ListRecords(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					if unresolvedOnly && rec.Resolved {
						continue
					}
					committed := "-"
					if rec.CommittedAt != nil {
						committed = rec.CommittedAt.Local().Format("2006-01-02 15:04")
					}
					rows = append(rows, []string{
						strconv.Itoa(rec.Position),
						rec.Key,
						yesNo(rec.Resolved),
						flattenNote(rec.Note),
						committed,
					})
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No records")
					return nil
				}
				fmt.Fprintln(out, renderTable([]tableColumn{
					right("Pos"), left("Key", 40), left("Resolved", 0), left("Note", 60), left("Committed", 0),
				}, rows))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&unresolvedOnly, "unresolved", false, "Only show records not yet resolved")
	return cmd
}

func newRecordsResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear every resolved flag so the next run starts from the top",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				cleared, err := st.ResetResolved(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d records\n", cleared)
				return nil
			})
		},
	}
}

// flattenNote joins note lines for single-row display.
func flattenNote(note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return "-"
	}
	return strings.ReplaceAll(note, "\n", " | ")
}
