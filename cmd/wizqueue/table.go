package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one table column. maxWidth wraps long free-text cells;
// zero leaves the column unbounded.
type column struct {
	title    string
	numeric  bool
	maxWidth int
}

var (
	queueColumns = []column{
		{title: "Pos", numeric: true},
		{title: "ID", numeric: true},
		{title: "Product", maxWidth: 40},
		{title: "Qty", numeric: true},
		{title: "Status"},
		{title: "Priority", numeric: true},
		{title: "Invoice", numeric: true},
		{title: "Notes", maxWidth: 30},
	}
	statusColumns = []column{
		{title: "Status"},
		{title: "Count", numeric: true},
	}
	invoiceColumns = []column{
		{title: "ID", numeric: true},
		{title: "Filename", maxWidth: 48},
		{title: "State"},
		{title: "Products", numeric: true},
		{title: "Uploaded"},
	}
	productColumns = []column{
		{title: "Product", maxWidth: 40},
		{title: "Details", maxWidth: 40},
		{title: "Qty", numeric: true},
	}
	migrationColumns = []column{
		{title: "Migration"},
		{title: "Applied"},
	}
)

// renderTable lays rows out under columns. Short rows are padded with
// empty cells and extra cells are ignored.
func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, 0, len(columns))
	configs := make([]table.ColumnConfig, 0, len(columns))
	for i, col := range columns {
		header = append(header, col.title)
		cfg := table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft, WidthMax: col.maxWidth}
		if col.numeric {
			cfg.Align = text.AlignRight
		}
		configs = append(configs, cfg)
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		cells := make(table.Row, len(columns))
		for i := range cells {
			cells[i] = ""
			if i < len(row) {
				cells[i] = row[i]
			}
		}
		tw.AppendRow(cells)
	}
	return tw.Render() + "\n"
}
