package cli

import (
	"strings"
)

// Table is a plain-text table with dynamic column widths. Cells may carry ANSI
// colour sequences; widths are measured on the visible text only.
type Table struct {
	headers []string
	rows    [][]string
	padding int
}

// NewTable creates a new table with the given headers.
func NewTable(headers []string) *Table {
	return &Table{
		headers: headers,
		rows:    make([][]string, 0),
		padding: 2,
	}
}

// AddRow adds a row to the table, padding or truncating it to the header count.
func (t *Table) AddRow(row []string) {
	newRow := make([]string, len(t.headers))
	copy(newRow, row)
	t.rows = append(t.rows, newRow)
}

// Render formats and returns the table as a string.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	colWidths := make([]int, len(t.headers))
	for i, h := range t.headers {
		colWidths[i] = visibleWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := visibleWidth(cell); w > colWidths[i] {
				colWidths[i] = w
			}
		}
	}

	sep := strings.Repeat(" ", t.padding)
	var result strings.Builder
	writeLine := func(cells []string) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = padRight(c, colWidths[i])
		}
		result.WriteString(strings.TrimRight(strings.Join(parts, sep), " "))
		result.WriteString("\n")
	}

	writeLine(t.headers)
	rule := make([]string, len(t.headers))
	for i, w := range colWidths {
		rule[i] = strings.Repeat("-", w)
	}
	writeLine(rule)
	for _, row := range t.rows {
		writeLine(row)
	}

	return result.String()
}

// padRight pads s with spaces on the right until its visible width reaches width.
func padRight(s string, width int) string {
	w := visibleWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// visibleWidth counts the runes of s outside ANSI CSI escape sequences.
func visibleWidth(s string) int {
	n := 0
	inEscape := false
	for i, r := range s {
		switch {
		case inEscape:
			// CSI sequences end with a byte in the range '@' to '~'.
			if r >= '@' && r <= '~' && !(r == '[' && i > 0 && s[i-1] == '\033') {
				inEscape = false
			}
		case r == '\033':
			inEscape = true
		default:
			n++
		}
	}
	return n
}
