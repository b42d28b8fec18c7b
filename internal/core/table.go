package core

import "github.com/shopspring/decimal"

// Table is the in-memory transaction table. It is never mutated once built;
// filters return new tables sharing row storage.
type Table struct {
	columns   []string
	index     map[string]int
	rows      []Row
	dateTyped bool
}

// NewTable builds a table from a header and rows. Amount cells are expected to
// be typed already; the date column stays text until MarkDatesParsed.
func NewTable(columns []string, rows []Row) *Table {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	return &Table{columns: columns, index: index, rows: rows}
}

// Columns returns the header in file order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Has reports whether the table carries the named column.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Row returns row i.
func (t *Table) Row(i int) Row { return t.rows[i] }

// Rows returns a copy of the row slice.
func (t *Table) Rows() []Row {
	return append([]Row(nil), t.rows...)
}

// DatesParsed reports whether the date column holds timestamps.
func (t *Table) DatesParsed() bool { return t.dateTyped }

// MarkDatesParsed returns a table with the same schema whose date column is
// typed, holding the given rows.
func (t *Table) MarkDatesParsed(rows []Row) *Table {
	out := t.WithRows(rows)
	out.dateTyped = true
	return out
}

// WithRows returns a table with the same schema holding rows.
func (t *Table) WithRows(rows []Row) *Table {
	return &Table{columns: t.columns, index: t.index, rows: rows, dateTyped: t.dateTyped}
}

// Filter returns the rows for which keep is true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	rows := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return t.WithRows(rows)
}

// Value returns the textual value of col in r and whether it is non-null.
// Typed columns are rendered from their typed value.
func (t *Table) Value(r Row, col string) (string, bool) {
	i, ok := t.index[col]
	if !ok {
		return "", false
	}
	switch {
	case col == ColDate && t.dateTyped:
		if !r.Date.Valid {
			return "", false
		}
		return FormatDate(r.Date.Time), true
	case col == ColAmount:
		if !r.Amount.Valid {
			return "", false
		}
		return r.Amount.Decimal.String(), true
	}
	cell := r.Cell(i)
	if IsMissing(cell) {
		return "", false
	}
	return cell, true
}

// Text is Value without the null flag.
func (t *Table) Text(r Row, col string) string {
	v, _ := t.Value(r, col)
	return v
}

// AmountOf returns the amount of r with nulls read as zero.
func AmountOf(r Row) decimal.Decimal {
	if !r.Amount.Valid {
		return decimal.Zero
	}
	return r.Amount.Decimal
}
