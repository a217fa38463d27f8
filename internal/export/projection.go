// Package export projects the visible rows of a list view into display
// tables and writes them as CSV or PDF.
package export

import "time"

// Column describes one exported column.
type Column[T any] struct {
	Header string
	Cell   func(rec T, f *Formatter) string
}

// Table is a flat, display-formatted projection of a list view.
type Table struct {
	Title       string     `json:"title"`
	Columns     []string   `json:"columns"`
	Rows        [][]string `json:"rows"`
	Locale      string     `json:"locale"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// Project formats records in the given order. Callers pass the rows of the
// current view, so the table holds exactly the visible records.
func Project[T any](title string, records []T, columns []Column[T], f *Formatter) Table {
	table := Table{
		Title:       title,
		Columns:     make([]string, len(columns)),
		Rows:        make([][]string, 0, len(records)),
		Locale:      f.Locale(),
		GeneratedAt: time.Now().UTC(),
	}
	for i, col := range columns {
		table.Columns[i] = col.Header
	}
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = col.Cell(rec, f)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
