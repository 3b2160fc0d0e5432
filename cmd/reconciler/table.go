package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// tableColumn describes one table column. Cells longer than width runes are cut
// with an ellipsis; a zero width leaves them whole.
type tableColumn struct {
	title string
	align text.Align
	width int
}

func left(title string, width int) tableColumn { return tableColumn{title: title, align: text.AlignLeft, width: width} }

func right(title string) tableColumn { return tableColumn{title: title, align: text.AlignRight} }

func renderTable(columns []tableColumn, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.title
		configs[i] = table.ColumnConfig{Number: i + 1, Align: col.align, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		cells := make(table.Row, len(columns))
		for i, col := range columns {
			value := ""
			if i < len(row) {
				value = truncate(row[i], col.width)
			}
			cells[i] = value
		}
		tw.AppendRow(cells)
	}
	return tw.Render()
}

// truncate shortens s to at most width runes, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}
