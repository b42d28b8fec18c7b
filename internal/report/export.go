package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"ledgerdash/internal/core"
)

// ExportFilename is the suggested name of the filtered download.
const ExportFilename = "filtered_transactions.csv"

// ExportColumns returns the export columns present in t, in export order.
func ExportColumns(t *core.Table) []string {
	var cols []string
	for _, c := range core.ExportColumns {
		if t.Has(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// WriteCSV writes the export columns of t as UTF-8 CSV with a header row.
// Nulls are written as empty fields.
func WriteCSV(w io.Writer, t *core.Table) error {
	cols := ExportColumns(t)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(cols))
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		for j, c := range cols {
			record[j] = t.Text(r, c)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
