package console

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	tableTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#50FA7B"))

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#BD93F9"))

	tableCellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8F8F2"))

	tableBorderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6272A4"))

	tableTotalStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#50FA7B"))
)

// TableConfig represents configuration for table rendering
type TableConfig struct {
	Headers   []string
	Rows      [][]string
	Title     string
	ShowTotal bool
	TotalRow  []string
}

// RenderTable renders a formatted table. Columns are padded to their widest
// cell; the last column is not padded.
func RenderTable(config TableConfig) string {
	if len(config.Headers) == 0 {
		return ""
	}

	var output strings.Builder
	if config.Title != "" {
		output.WriteString(applyStyle(tableTitleStyle, config.Title))
		output.WriteString("\n")
	}

	colWidths := make([]int, len(config.Headers))
	for i, header := range config.Headers {
		colWidths[i] = lipgloss.Width(header)
	}
	allRows := config.Rows
	if config.ShowTotal && len(config.TotalRow) > 0 {
		allRows = append(allRows[:len(allRows):len(allRows)], config.TotalRow)
	}
	for _, row := range allRows {
		for i, cell := range row {
			if i < len(colWidths) {
				colWidths[i] = max(colWidths[i], lipgloss.Width(cell))
			}
		}
	}

	separator := make([]string, len(colWidths))
	for i, width := range colWidths {
		separator[i] = strings.Repeat("-", width)
	}

	output.WriteString(renderTableRow(config.Headers, colWidths, tableHeaderStyle))
	output.WriteString(renderTableRow(separator, colWidths, tableBorderStyle))
	for _, row := range config.Rows {
		output.WriteString(renderTableRow(row, colWidths, tableCellStyle))
	}
	if config.ShowTotal && len(config.TotalRow) > 0 {
		output.WriteString(renderTableRow(separator, colWidths, tableBorderStyle))
		output.WriteString(renderTableRow(config.TotalRow, colWidths, tableTotalStyle))
	}
	return output.String()
}

// renderTableRow renders a single table row terminated by a newline.
func renderTableRow(cells []string, colWidths []int, style lipgloss.Style) string {
	var row strings.Builder
	last := min(len(cells), len(colWidths)) - 1
	for i := 0; i <= last; i++ {
		cell := cells[i]
		if i < last {
			cell += strings.Repeat(" ", colWidths[i]-lipgloss.Width(cell))
		}
		row.WriteString(applyStyle(style, cell))
		if i < last {
			row.WriteString(applyStyle(tableBorderStyle, " | "))
		}
	}
	row.WriteString("\n")
	return row.String()
}
