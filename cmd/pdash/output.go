package main

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
)

// tableData is the --output table form of a result.
type tableData struct {
	headers []string
	rows    [][]string
}

// maxCellWidth bounds long titles in table output.
const maxCellWidth = 60

// print writes v as indented JSON, or t as a table when --output table was
// given and the command has a table form.
func (a *app) print(v any, t *tableData) error {
	if a.output == "table" && t != nil {
		fmt.Fprintln(a.stdout, renderTable(t, terminalWidth(a.stdout)))
		return nil
	}
	return a.printJSON(v)
}

// printJSON outputs data as JSON to stdout
func (a *app) printJSON(v any) error {
	encoder := json.NewEncoder(a.stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to output JSON: %w", err)
	}
	return nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

func renderTable(t *tableData, width int) string {
	rows := make([][]string, len(t.rows))
	for i, r := range t.rows {
		rows[i] = make([]string, len(r))
		for j, c := range r {
			rows[i][j] = ansi.Truncate(c, maxCellWidth, "…")
		}
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(t.headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	if width > 0 {
		tbl = tbl.Width(width)
	}
	return tbl.String()
}
