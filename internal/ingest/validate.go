package ingest

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledgerdash/internal/core"
)

// Validate runs the data quality checks in order on a cleaned table and
// returns the repaired table with its diagnostics. Exact duplicate rows and
// rows with a negative amount are dropped; everything else is only reported.
func Validate(t *core.Table) (*core.Table, Diagnostics) {
	d := Diagnostics{
		RowsIn:  t.Len(),
		Columns: t.Width(),
	}

	for _, col := range t.Columns() {
		d.ColumnTypes = append(d.ColumnTypes, ColumnType{Name: col, Type: inferType(t, col)})
		d.Missing = append(d.Missing, ColumnCount{Name: col, Count: countMissing(t, col)})
	}

	t, d.DuplicateRows = DropDuplicates(t)

	if t.Has(core.ColTransactionID) {
		d.TransactionIDs = checkIDs(t)
	}

	if t.Has(core.ColAmount) {
		d.Amount = describeAmounts(t)
		if d.Amount.Negative > 0 {
			t = DropNegativeAmounts(t)
		}
	}

	if t.Has(core.ColDate) {
		d.Dates = checkDates(t)
	}

	for _, col := range core.CategoricalColumns {
		if t.Has(col) {
			d.Categorical = append(d.Categorical, summarizeColumn(t, col))
		}
	}

	d.RowsOut = t.Len()
	return t, d
}

// DropDuplicates removes exact duplicate rows, keeping the first occurrence.
// It returns the table and the number of rows removed.
func DropDuplicates(t *core.Table) (*core.Table, int) {
	cols := t.Columns()
	seen := make(map[string]struct{}, t.Len())
	dropped := 0
	out := t.Filter(func(r core.Row) bool {
		key := rowKey(t, cols, r)
		if _, ok := seen[key]; ok {
			dropped++
			return false
		}
		seen[key] = struct{}{}
		return true
	})
	return out, dropped
}

// DropNegativeAmounts removes rows whose amount is below zero. Null amounts
// are kept.
//
// This is a business rule of this ledger: every transaction is recorded as a
// positive spend. Ledgers that carry refunds or credits as negative amounts
// lose those rows here.
func DropNegativeAmounts(t *core.Table) *core.Table {
	return t.Filter(func(r core.Row) bool {
		return !r.Amount.Valid || !r.Amount.Decimal.IsNegative()
	})
}

const nullKey = "\x00"

// rowKey normalizes a row so that equal typed values compare equal even when
// their source text differs ("100" and "100.0").
func rowKey(t *core.Table, cols []string, r core.Row) string {
	var b strings.Builder
	for i, col := range cols {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		switch {
		case col == core.ColDate && t.DatesParsed():
			if r.Date.Valid {
				b.WriteString(r.Date.Time.Format(time.RFC3339Nano))
			} else {
				b.WriteString(nullKey)
			}
		default:
			if v, ok := t.Value(r, col); ok {
				b.WriteString(v)
			} else {
				b.WriteString(nullKey)
			}
		}
	}
	return b.String()
}

func countMissing(t *core.Table, col string) int {
	n := 0
	for _, r := range t.Rows() {
		if _, ok := t.Value(r, col); !ok {
			n++
		}
	}
	return n
}

func inferType(t *core.Table, col string) string {
	switch {
	case col == core.ColDate && t.DatesParsed():
		return "datetime"
	case col == core.ColAmount:
		return "decimal"
	}

	isInt, isFloat, isBool, nonNull := true, true, true, false
	for _, r := range t.Rows() {
		v, ok := t.Value(r, col)
		if !ok {
			continue
		}
		nonNull = true
		v = strings.TrimSpace(v)
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			isInt = false
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			isFloat = false
		}
		if _, err := strconv.ParseBool(v); err != nil || isNumeric(v) {
			isBool = false
		}
		if !isInt && !isFloat && !isBool {
			break
		}
	}
	switch {
	case !nonNull:
		return "empty"
	case isInt:
		return "int"
	case isFloat:
		return "float"
	case isBool:
		return "bool"
	default:
		return "string"
	}
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func checkIDs(t *core.Table) *IDCheck {
	seen := make(map[string]struct{}, t.Len())
	present := 0
	for _, r := range t.Rows() {
		id, ok := t.Value(r, core.ColTransactionID)
		if !ok {
			continue
		}
		present++
		seen[id] = struct{}{}
	}
	return &IDCheck{Unique: len(seen), Duplicated: present - len(seen)}
}

func describeAmounts(t *core.Table) *AmountStats {
	s := &AmountStats{}
	var values []decimal.Decimal
	for _, r := range t.Rows() {
		if !r.Amount.Valid {
			s.Invalid++
			continue
		}
		values = append(values, r.Amount.Decimal)
		if r.Amount.Decimal.IsNegative() {
			s.Negative++
		}
	}
	s.Count = len(values)
	if s.Count == 0 {
		return s
	}

	slices.SortFunc(values, func(a, b decimal.Decimal) int { return a.Cmp(b) })
	s.Min = values[0]
	s.Max = values[len(values)-1]
	s.Q1 = quantile(values, decimal.NewFromFloat(0.25))
	s.Median = quantile(values, decimal.NewFromFloat(0.5))
	s.Q3 = quantile(values, decimal.NewFromFloat(0.75))

	sum := decimal.Sum(values[0], values[1:]...)
	mean := sum.Div(decimal.NewFromInt(int64(s.Count)))
	s.Mean = mean.InexactFloat64()
	if s.Count > 1 {
		var sq float64
		for _, v := range values {
			diff := v.Sub(mean).InexactFloat64()
			sq += diff * diff
		}
		s.Std = math.Sqrt(sq / float64(s.Count-1))
	}
	return s
}

// quantile interpolates linearly between the closest ranks of sorted values.
func quantile(sorted []decimal.Decimal, q decimal.Decimal) decimal.Decimal {
	pos := q.Mul(decimal.NewFromInt(int64(len(sorted) - 1)))
	lo := pos.Floor()
	frac := pos.Sub(lo)
	i := int(lo.IntPart())
	if i+1 >= len(sorted) || frac.IsZero() {
		return sorted[i]
	}
	return sorted[i].Add(sorted[i+1].Sub(sorted[i]).Mul(frac))
}

func checkDates(t *core.Table) *DateCheck {
	c := &DateCheck{}
	for _, r := range t.Rows() {
		if !r.Date.Valid {
			c.Invalid++
			continue
		}
		ts := r.Date.Time
		if !c.HasRange || ts.Before(c.Min) {
			c.Min = ts
		}
		if !c.HasRange || ts.After(c.Max) {
			c.Max = ts
		}
		c.HasRange = true
	}
	return c
}

func summarizeColumn(t *core.Table, col string) CategoricalSummary {
	s := CategoricalSummary{Column: col}
	seen := make(map[string]struct{})
	for _, r := range t.Rows() {
		v, ok := t.Value(r, col)
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		s.Values = append(s.Values, v)
	}
	s.Distinct = len(s.Values)
	return s
}
