package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"redline/internal/services"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable lays out rows under headers. Short rows are padded so every
// line carries the full column count; headers keep their literal casing.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, 0, len(headers))
	for _, h := range headers {
		header = append(header, h)
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, 0, len(headers))
		for i := range headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			r = append(r, cell)
		}
		tw.AppendRow(r)
	}

	var configs []table.ColumnConfig
	for i, align := range aligns {
		if align != alignRight {
			continue
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignRight,
			AlignHeader: text.AlignRight,
		})
	}
	if len(configs) > 0 {
		tw.SetColumnConfigs(configs)
	}

	return tw.Render()
}

// statusCell renders a job status for a table cell, coloring it when the
// output supports ANSI. A missing status renders as a dash.
func statusCell(status services.JobStatus, colorize bool) string {
	if status == "" {
		return "-"
	}
	if !colorize {
		return string(status)
	}
	switch status {
	case services.JobCompleted:
		return ansiGreen + string(status) + ansiReset
	case services.JobFailed:
		return ansiRed + string(status) + ansiReset
	case services.JobPending, services.JobProcessing:
		return ansiYellow + string(status) + ansiReset
	}
	return string(status)
}
