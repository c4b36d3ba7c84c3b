package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// emptyCell stands in for values an entity does not have yet.
const emptyCell = "-"

// column describes one table column. Numeric columns are right aligned;
// a positive Wrap soft-wraps long values such as errors and missing-field lists.
type column struct {
	Title   string
	Numeric bool
	Wrap    int
}

func columns(titles ...string) []column {
	cols := make([]column, len(titles))
	for i, title := range titles {
		cols[i] = column{Title: title}
	}
	return cols
}

func renderTable(cols []column, rows [][]string) string {
	if len(cols) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, col := range cols {
		header[i] = col.Title
		cfg := table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if col.Numeric {
			cfg.Align = text.AlignRight
		}
		if col.Wrap > 0 {
			cfg.WidthMax = col.Wrap
			cfg.WidthMaxEnforcer = text.WrapSoft
		}
		configs[i] = cfg
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(cols))
		for i := range cols {
			cell := ""
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			if cell == "" {
				cell = emptyCell
			}
			r[i] = cell
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}
