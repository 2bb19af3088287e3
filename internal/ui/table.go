package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Alignment specifies how text should be aligned within a column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// Column defines a table column with a header, width, and alignment.
type Column struct {
	Header string
	Width  int
	Align  Alignment
}

// Table renders borderless, fixed-width rows for terminal listings.
type Table struct {
	columns []Column
	rows    [][]string
	indent  int
}

func NewTable() *Table {
	return &Table{indent: 2}
}

func (t *Table) AddColumn(header string, width int, align Alignment) *Table {
	t.columns = append(t.columns, Column{Header: header, Width: width, Align: align})
	return t
}

// AddRow adds a row of values. Missing cells render empty.
func (t *Table) AddRow(values ...string) *Table {
	t.rows = append(t.rows, values)
	return t
}

// truncate shortens value to width, marking the cut with "...".
func truncate(value string, width int) string {
	if lipgloss.Width(value) <= width {
		return value
	}
	r := []rune(value)
	if width <= 3 {
		return string(r[:min(width, len(r))])
	}
	return string(r[:width-3]) + "..."
}

// Render returns the formatted table as a string.
func (t *Table) Render() string {
	if len(t.columns) == 0 {
		return ""
	}

	headers := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = truncate(col.Header, col.Width)
	}

	rows := make([][]string, len(t.rows))
	for r, row := range t.rows {
		cells := make([]string, len(t.columns))
		for i, col := range t.columns {
			if i < len(row) {
				cells[i] = truncate(row[i], col.Width)
			}
		}
		rows[r] = cells
	}

	tbl := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			c := t.columns[col]
			style := lipgloss.NewStyle().Width(c.Width)
			if col < len(t.columns)-1 {
				style = style.Width(c.Width + 2).PaddingRight(2)
			}
			if c.Align == AlignRight {
				style = style.Align(lipgloss.Right)
			}
			if row == table.HeaderRow {
				style = style.Inherit(headerStyle)
			}
			return style
		})

	indent := strings.Repeat(" ", t.indent)
	var b strings.Builder
	for line := range strings.SplitSeq(tbl.Render(), "\n") {
		b.WriteString(indent)
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
	}
	return b.String()
}
