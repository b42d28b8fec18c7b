package ingest

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	// ColumnType is the inferred type of one column.
	ColumnType struct {
		Name string
		Type string
	}

	// ColumnCount is a per-column counter.
	ColumnCount struct {
		Name  string
		Count int
	}

	// IDCheck summarizes transaction_id uniqueness. Nothing is repaired.
	IDCheck struct {
		Unique     int
		Duplicated int
	}

	// AmountStats mirrors a describe() of the amount column, taken after
	// duplicates are dropped and before negative amounts are.
	AmountStats struct {
		Count    int
		Mean     float64
		Std      float64
		Min      decimal.Decimal
		Q1       decimal.Decimal
		Median   decimal.Decimal
		Q3       decimal.Decimal
		Max      decimal.Decimal
		Negative int
		Invalid  int
	}

	// DateCheck reports the date range and the dates that failed to parse.
	DateCheck struct {
		Min      time.Time
		Max      time.Time
		HasRange bool
		Invalid  int
	}

	// CategoricalSummary lists the distinct non-null values of a column in
	// first-seen order.
	CategoricalSummary struct {
		Column   string
		Distinct int
		Values   []string
	}

	// Diagnostics is the structured outcome of Validate. Optional checks are
	// nil when their column is absent.
	Diagnostics struct {
		Source         string
		RowsIn         int
		Columns        int
		ColumnTypes    []ColumnType
		Missing        []ColumnCount
		DuplicateRows  int
		TransactionIDs *IDCheck
		Amount         *AmountStats
		Dates          *DateCheck
		Categorical    []CategoricalSummary
		RowsOut        int
	}
)

// MissingTotal sums the per-column missing counts.
func (d Diagnostics) MissingTotal() int {
	total := 0
	for _, m := range d.Missing {
		total += m.Count
	}
	return total
}

// DroppedNegatives is the number of rows removed for a negative amount.
func (d Diagnostics) DroppedNegatives() int {
	if d.Amount == nil {
		return 0
	}
	return d.Amount.Negative
}

// InvalidDates is the number of null dates left after cleaning.
func (d Diagnostics) InvalidDates() int {
	if d.Dates == nil {
		return 0
	}
	return d.Dates.Invalid
}

// LogArgs flattens the headline counters for structured logging.
func (d Diagnostics) LogArgs() []any {
	args := []any{
		"source", d.Source,
		"rows_in", d.RowsIn,
		"rows_out", d.RowsOut,
		"columns", d.Columns,
		"missing_values", d.MissingTotal(),
		"duplicate_rows", d.DuplicateRows,
		"negative_amounts", d.DroppedNegatives(),
		"invalid_dates", d.InvalidDates(),
	}
	if d.TransactionIDs != nil {
		args = append(args, "duplicated_transaction_ids", d.TransactionIDs.Duplicated)
	}
	if d.Amount != nil {
		args = append(args, "invalid_amounts", d.Amount.Invalid)
	}
	return args
}
