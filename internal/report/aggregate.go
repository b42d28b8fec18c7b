package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ledgerdash/internal/core"
)

// Summary holds the headline metrics of a subset.
type Summary struct {
	Transactions   int
	Total          decimal.Decimal
	Months         int
	MonthlyAverage decimal.Decimal
}

// Summarize counts rows, sums amounts and averages the calendar month totals
// of rows with a valid date. Null amounts count as zero.
func Summarize(t *core.Table) Summary {
	s := Summary{Transactions: t.Len(), Total: decimal.Zero, MonthlyAverage: decimal.Zero}
	months := make(map[time.Time]decimal.Decimal)
	for _, r := range t.Rows() {
		amount := core.AmountOf(r)
		s.Total = s.Total.Add(amount)
		if r.Date.Valid {
			key := MonthBucketer{}.Bucket(r.Date.Time)
			months[key] = months[key].Add(amount)
		}
	}
	s.Months = len(months)
	if s.Months == 0 {
		return s
	}
	sum := decimal.Zero
	for _, v := range months {
		sum = sum.Add(v)
	}
	s.MonthlyAverage = sum.Div(decimal.NewFromInt(int64(s.Months)))
	return s
}

// groupSum totals amounts by the value of col. Rows with a null key are left
// out.
func groupSum(t *core.Table, col string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	if !t.Has(col) {
		return out
	}
	for _, r := range t.Rows() {
		key, ok := t.Value(r, col)
		if !ok {
			continue
		}
		out[key] = out[key].Add(core.AmountOf(r))
	}
	return out
}

// byAmountDesc orders groups by total, largest first, then by name.
func byAmountDesc(groups map[string]decimal.Decimal) []core.CategoryAmount {
	out := toList(groups)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// byName orders groups alphabetically.
func byName(groups map[string]decimal.Decimal) []core.CategoryAmount {
	out := toList(groups)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func toList(groups map[string]decimal.Decimal) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(groups))
	for name, amount := range groups {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	return out
}

// ByCategory totals amounts per category, largest first.
func ByCategory(t *core.Table) []core.CategoryAmount {
	return byAmountDesc(groupSum(t, core.ColCategory))
}

// TopCategory returns the category with the largest total, if any.
func TopCategory(t *core.Table) (core.CategoryAmount, bool) {
	cats := ByCategory(t)
	if len(cats) == 0 {
		return core.CategoryAmount{}, false
	}
	return cats[0], true
}

// TopMerchants returns the n merchants with the largest totals.
func TopMerchants(t *core.Table, n int) []core.CategoryAmount {
	return head(byAmountDesc(groupSum(t, core.ColMerchant)), n)
}

// ByPaymentMethod totals amounts per payment method, ordered by method name.
func ByPaymentMethod(t *core.Table) []core.CategoryAmount {
	return byName(groupSum(t, core.ColPaymentMethod))
}

// MerchantsInCategory totals the merchants of one category, largest first.
func MerchantsInCategory(t *core.Table, category string) []core.CategoryAmount {
	if !t.Has(core.ColCategory) {
		return nil
	}
	sub := t.Filter(func(r core.Row) bool {
		c, ok := t.Value(r, core.ColCategory)
		return ok && c == category
	})
	return byAmountDesc(groupSum(sub, core.ColMerchant))
}

func head(in []core.CategoryAmount, n int) []core.CategoryAmount {
	if n >= 0 && len(in) > n {
		return in[:n]
	}
	return in
}

// TimeSeries totals amounts per time bucket. Buckets run contiguously from
// the first to the last one holding data; empty buckets are zero. Rows with
// a null date are left out.
func TimeSeries(t *core.Table, b Bucketer) []core.TrendPoint {
	sums := make(map[time.Time]decimal.Decimal)
	var first, last time.Time
	for _, r := range t.Rows() {
		if !r.Date.Valid {
			continue
		}
		label := b.Bucket(r.Date.Time)
		if len(sums) == 0 || label.Before(first) {
			first = label
		}
		if len(sums) == 0 || label.After(last) {
			last = label
		}
		sums[label] = sums[label].Add(core.AmountOf(r))
	}
	if len(sums) == 0 {
		return nil
	}

	var out []core.TrendPoint
	for label := first; !label.After(last); label = b.Next(label) {
		out = append(out, core.TrendPoint{Date: label, Amount: sums[label]})
	}
	return out
}

// TopCategoryTrend returns weekly totals for the k categories with the
// largest totals. Only weeks in which a category has rows are reported.
func TopCategoryTrend(t *core.Table, k int) []core.CategoryTrendPoint {
	top := head(ByCategory(t), k)
	if len(top) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(top))
	for _, c := range top {
		wanted[c.Name] = struct{}{}
	}

	type groupKey struct {
		week     time.Time
		category string
	}
	sums := make(map[groupKey]decimal.Decimal)
	for _, r := range t.Rows() {
		if !r.Date.Valid {
			continue
		}
		c, ok := t.Value(r, core.ColCategory)
		if !ok {
			continue
		}
		if _, in := wanted[c]; !in {
			continue
		}
		key := groupKey{week: WeekBucketer{}.Bucket(r.Date.Time), category: c}
		sums[key] = sums[key].Add(core.AmountOf(r))
	}

	out := make([]core.CategoryTrendPoint, 0, len(sums))
	for key, amount := range sums {
		out = append(out, core.CategoryTrendPoint{Date: key.week, Category: key.category, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Negatives returns the rows with a negative amount.
func Negatives(t *core.Table) *core.Table {
	return t.Filter(func(r core.Row) bool {
		return r.Amount.Valid && r.Amount.Decimal.IsNegative()
	})
}

// Head returns the first limit rows of t. A negative limit keeps every row.
func Head(t *core.Table, limit int) *core.Table {
	if limit < 0 || t.Len() <= limit {
		return t
	}
	return t.WithRows(t.Rows()[:limit])
}
