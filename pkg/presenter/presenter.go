// Package presenter turns execution results into human and machine output.
// Every transform is a pure function of the result: no I/O, no hidden state,
// identical output for identical input.
package presenter

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tabular-ai/tabular-engine/pkg/models"
)

// summaryPreviewRows is the number of rows enumerated in a multi-row summary
// before deferring to the table view.
const summaryPreviewRows = 5

// aggregateHints mark column names whose single value reads as a sentence.
var aggregateHints = []string{"count", "sum", "avg"}

// Presenter renders ExecutionResults. Zero values fall back to defaults of
// 100 table rows and 40-character cells.
type Presenter struct {
	maxTableRows int
	maxCellWidth int
}

// New creates a presenter with the given table bounds.
func New(maxTableRows, maxCellWidth int) *Presenter {
	if maxTableRows <= 0 {
		maxTableRows = 100
	}
	if maxCellWidth <= 0 {
		maxCellWidth = 40
	}
	return &Presenter{maxTableRows: maxTableRows, maxCellWidth: maxCellWidth}
}

// Summarize renders a natural-language summary of the result.
func (p *Presenter) Summarize(result *models.ExecutionResult) string {
	if !result.Success {
		if result.Error != "" {
			return fmt.Sprintf("The query could not be executed: %s", result.Error)
		}
		return "The query could not be executed."
	}

	if result.RowCount == 0 {
		return "No rows matched your question."
	}

	var b strings.Builder

	switch {
	case result.RowCount == 1 && len(result.Columns) == 1 && isAggregateName(result.Columns[0].Name):
		col := result.Columns[0]
		value := result.Rows[0][col.Name]
		b.WriteString(fmt.Sprintf("The %s is %s.", humanize(col.Name), value.String()))

	case result.RowCount == 1:
		b.WriteString("Found 1 matching row:\n")
		for _, col := range result.Columns {
			b.WriteString(fmt.Sprintf("- %s: %s\n", humanize(col.Name), result.Rows[0][col.Name].String()))
		}

	default:
		b.WriteString(fmt.Sprintf("Found %d rows.", result.RowCount))
		preview := result.Rows
		if len(preview) > summaryPreviewRows {
			preview = preview[:summaryPreviewRows]
		}
		for i, row := range preview {
			b.WriteString(fmt.Sprintf("\n%d. %s", i+1, rowLine(result.Columns, row)))
		}
		if remaining := result.RowCount - len(preview); remaining > 0 {
			b.WriteString(fmt.Sprintf("\n...and %d more rows. See the table view for the full result.", remaining))
		}
	}

	if result.Limited {
		b.WriteString(fmt.Sprintf("\nNote: results were capped at %d rows; the true total may be larger.", result.RowCount))
	}

	return strings.TrimRight(b.String(), "\n")
}

// RenderTable renders a fixed-width, pipe-delimited table view.
func (p *Presenter) RenderTable(result *models.ExecutionResult) string {
	if !result.Success || len(result.Columns) == 0 {
		return ""
	}

	rows := result.Rows
	hidden := 0
	if len(rows) > p.maxTableRows {
		hidden = len(rows) - p.maxTableRows
		rows = rows[:p.maxTableRows]
	}

	widths := make([]int, len(result.Columns))
	cells := make([][]string, len(rows))
	for i, col := range result.Columns {
		widths[i] = utf8.RuneCountInString(col.Name)
	}
	for r, row := range rows {
		cells[r] = make([]string, len(result.Columns))
		for i, col := range result.Columns {
			cell := p.truncate(row[col.Name].String())
			cells[r][i] = cell
			if w := utf8.RuneCountInString(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		if widths[i] > p.maxCellWidth {
			widths[i] = p.maxCellWidth
		}
	}

	var b strings.Builder
	for i, col := range result.Columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(pad(p.truncate(col.Name), widths[i]))
	}
	b.WriteByte('\n')
	for i, w := range widths {
		if i > 0 {
			b.WriteString("-+-")
		}
		b.WriteString(strings.Repeat("-", w))
	}
	for _, row := range cells {
		b.WriteByte('\n')
		for i, cell := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(pad(cell, widths[i]))
		}
	}
	if hidden > 0 {
		b.WriteString(fmt.Sprintf("\n%d more rows not shown", hidden))
	}

	return b.String()
}

// RenderCSV renders the rows as CSV with a header line. Every field is
// double-quoted and embedded quotes are doubled, so consumers never need to
// sniff quoting rules.
func (p *Presenter) RenderCSV(result *models.ExecutionResult) string {
	if !result.Success || len(result.Columns) == 0 {
		return ""
	}

	var b strings.Builder
	for i, col := range result.Columns {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(csvField(col.Name))
	}
	for _, row := range result.Rows {
		b.WriteByte('\n')
		for i, col := range result.Columns {
			if i > 0 {
				b.WriteByte(',')
			}
			value := row[col.Name]
			if value.IsNull() {
				b.WriteString(`""`)
				continue
			}
			b.WriteString(csvField(value.String()))
		}
	}
	return b.String()
}

// RenderJSON renders the row array as JSON. Object keys serialize in sorted
// order, so the output is deterministic.
func (p *Presenter) RenderJSON(result *models.ExecutionResult) (string, error) {
	if !result.Success {
		return "", fmt.Errorf("cannot render a failed result")
	}
	rows := result.Rows
	if rows == nil {
		rows = []models.Row{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal rows: %w", err)
	}
	return string(data), nil
}

// rowLine renders one row as "col: value" pairs in column order.
func rowLine(columns []models.ColumnInfo, row models.Row) string {
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, fmt.Sprintf("%s: %s", humanize(col.Name), row[col.Name].String()))
	}
	return strings.Join(parts, ", ")
}

// truncate and pad count runes, not bytes, so multi-byte cells keep their
// alignment and are never cut mid-rune.
func (p *Presenter) truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= p.maxCellWidth {
		return s
	}
	if p.maxCellWidth <= 3 {
		return string(runes[:p.maxCellWidth])
	}
	return string(runes[:p.maxCellWidth-3]) + "..."
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func csvField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func humanize(columnName string) string {
	return strings.ReplaceAll(columnName, "_", " ")
}

func isAggregateName(columnName string) bool {
	lower := strings.ToLower(columnName)
	for _, hint := range aggregateHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
