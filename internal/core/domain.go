package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Recognized ledger columns. Any other column is carried through untouched.
const (
	ColDate            = "date"
	ColAmount          = "amount"
	ColCategory        = "category"
	ColMerchant        = "merchant"
	ColPaymentMethod   = "payment_method"
	ColAccountType     = "account_type"
	ColTransactionType = "transaction_type"
	ColDescription     = "description"
	ColTransactionID   = "transaction_id"
)

// CategoricalColumns are summarized by distinct values during validation.
var CategoricalColumns = []string{
	ColCategory,
	ColMerchant,
	ColPaymentMethod,
	ColAccountType,
	ColTransactionType,
}

// ExportColumns is the column order of the filtered CSV download.
var ExportColumns = []string{
	ColDate,
	ColMerchant,
	ColAmount,
	ColCategory,
	ColPaymentMethod,
	ColAccountType,
	ColTransactionType,
	ColDescription,
}

// missingTokens are cell values read as null.
var missingTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"-NaN": {},
	"-nan": {},
	"NULL": {},
	"null": {},
	"None": {},
	"#N/A": {},
	"<NA>": {},
}

// IsMissing reports whether a raw cell value stands for a null.
func IsMissing(s string) bool {
	_, ok := missingTokens[strings.TrimSpace(s)]
	return ok
}

type (
	// NullTime is a timestamp that may be null (NaT).
	NullTime struct {
		Time  time.Time
		Valid bool
	}

	// Row is one ledger line. Cells hold the raw text aligned to the table
	// header; Date and Amount hold the typed values of the recognized columns.
	Row struct {
		cells  []string
		Date   NullTime
		Amount decimal.NullDecimal
	}
)

// NewRow wraps raw cells. The slice is owned by the row afterwards.
func NewRow(cells []string) Row {
	return Row{cells: cells}
}

// Cell returns the raw text at column position i.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r.cells) {
		return ""
	}
	return r.cells[i]
}

// Width returns the number of raw cells.
func (r Row) Width() int { return len(r.cells) }

// ValidTime builds a non-null NullTime.
func ValidTime(t time.Time) NullTime { return NullTime{Time: t, Valid: true} }

// Day truncates the timestamp to its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// FormatDate renders a timestamp as YYYY-MM-DD, adding the clock when it is
// not midnight.
func FormatDate(t time.Time) string {
	if t.Equal(Day(t)) {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.DateTime)
}
