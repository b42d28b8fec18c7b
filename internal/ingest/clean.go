package ingest

import (
	"strings"
	"time"

	"ledgerdash/internal/core"
)

// dateLayouts are tried in order. Slash dates are read month first.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	time.DateTime,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	"20060102",
}

// ParseDate parses a date cell with the known layouts. Timestamps carrying a
// zone are converted to UTC; the others are read as UTC.
func ParseDate(s string) (time.Time, bool) {
	if core.IsMissing(s) {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Clean parses the date column, if present, into timestamps. Values that do
// not parse become null. No other column is touched and the input table is
// left as is.
func Clean(t *core.Table) *core.Table {
	if !t.Has(core.ColDate) {
		return t
	}
	idx := indexOf(t.Columns(), core.ColDate)
	rows := t.Rows()
	for i := range rows {
		if ts, ok := ParseDate(rows[i].Cell(idx)); ok {
			rows[i].Date = core.ValidTime(ts)
		} else {
			rows[i].Date = core.NullTime{}
		}
	}
	return t.MarkDatesParsed(rows)
}
