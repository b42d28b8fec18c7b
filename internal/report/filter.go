// Package report derives every dashboard view from a cleaned transaction
// table. Nothing here mutates its input: filters and views build new values.
package report

import (
	"slices"
	"strings"
	"time"

	"ledgerdash/internal/core"
)

// Filter selects a subset of transactions. Start and End are calendar days;
// End is inclusive. A zero Start or End leaves that side open. A non-empty
// Categories is authoritative. An empty one selects every category unless
// CategoriesSet marks it as an explicit, empty selection.
type Filter struct {
	Start         time.Time
	End           time.Time
	Categories    []string
	CategoriesSet bool
}

// SelectCategories makes cats the authoritative category selection.
func (f *Filter) SelectCategories(cats []string) {
	f.Categories = cats
	f.CategoriesSet = true
}

func (f Filter) categoryFilter() bool {
	return f.CategoriesSet || len(f.Categories) > 0
}

// DefaultFilter spans the full date range of t and every category in it.
func DefaultFilter(t *core.Table) Filter {
	f := Filter{Categories: Categories(t)}
	if lo, hi, ok := DateRange(t); ok {
		f.Start = core.Day(lo)
		f.End = core.Day(hi)
	}
	return f
}

// Key identifies the filter for caching.
func (f Filter) Key() string {
	cats := slices.Clone(f.Categories)
	slices.Sort(cats)
	sel := "*"
	if f.categoryFilter() {
		sel = "=" + strings.Join(cats, "\x1f")
	}
	return dayKey(f.Start) + "|" + dayKey(f.End) + "|" + sel
}

func dayKey(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateOnly)
}

// Apply returns the rows of t matching f. Tables without a date column skip
// the date range; tables without a category column skip the category set.
// Rows with a null date are outside every date range.
func Apply(t *core.Table, f Filter) *core.Table {
	hasDate := t.Has(core.ColDate) && t.DatesParsed()
	hasCategory := t.Has(core.ColCategory) && f.categoryFilter()

	var lo, hi time.Time
	if !f.Start.IsZero() {
		lo = core.Day(f.Start)
	}
	if !f.End.IsZero() {
		hi = core.Day(f.End).AddDate(0, 0, 1)
	}

	selected := make(map[string]struct{}, len(f.Categories))
	for _, c := range f.Categories {
		selected[c] = struct{}{}
	}

	return t.Filter(func(r core.Row) bool {
		if hasDate {
			if !r.Date.Valid {
				return false
			}
			if !lo.IsZero() && r.Date.Time.Before(lo) {
				return false
			}
			if !hi.IsZero() && !r.Date.Time.Before(hi) {
				return false
			}
		}
		if hasCategory {
			c, ok := t.Value(r, core.ColCategory)
			if !ok {
				return false
			}
			if _, in := selected[c]; !in {
				return false
			}
		}
		return true
	})
}

// Categories returns the distinct non-null categories of t, sorted.
func Categories(t *core.Table) []string {
	return distinct(t, core.ColCategory)
}

func distinct(t *core.Table, col string) []string {
	if !t.Has(col) {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.Rows() {
		v, ok := t.Value(r, col)
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// DateRange returns the earliest and latest valid dates of t.
func DateRange(t *core.Table) (lo, hi time.Time, ok bool) {
	if !t.DatesParsed() {
		return lo, hi, false
	}
	for _, r := range t.Rows() {
		if !r.Date.Valid {
			continue
		}
		d := r.Date.Time
		if !ok || d.Before(lo) {
			lo = d
		}
		if !ok || d.After(hi) {
			hi = d
		}
		ok = true
	}
	return lo, hi, ok
}
