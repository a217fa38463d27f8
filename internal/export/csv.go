package export

import (
	"encoding/csv"
	"io"
)

// WriteCSV serialises the table with a header row.
func WriteCSV(w io.Writer, table Table) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(table.Columns); err != nil {
		return err
	}
	for _, row := range table.Rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
