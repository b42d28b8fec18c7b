package report

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Granularity names a time bucketing of the trend view.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// Bucketer maps timestamps onto labeled time buckets. Labels are calendar
// days at midnight in the timestamp's location.
type Bucketer interface {
	// Bucket returns the label of the bucket holding t.
	Bucket(t time.Time) time.Time
	// Next returns the label of the bucket after label.
	Next(label time.Time) time.Time
}

// DayBucketer labels each day with itself.
type DayBucketer struct{}

func (DayBucketer) Bucket(t time.Time) time.Time { return midnight(t) }

func (DayBucketer) Next(label time.Time) time.Time { return label.AddDate(0, 0, 1) }

// WeekBucketer groups Monday through Sunday and labels the week with its
// Sunday.
type WeekBucketer struct{}

func (WeekBucketer) Bucket(t time.Time) time.Time {
	d := midnight(t)
	return d.AddDate(0, 0, (7-int(d.Weekday()))%7)
}

func (WeekBucketer) Next(label time.Time) time.Time { return label.AddDate(0, 0, 7) }

// MonthBucketer labels each calendar month with its last day.
type MonthBucketer struct{}

func (MonthBucketer) Bucket(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location())
}

func (MonthBucketer) Next(label time.Time) time.Time {
	return time.Date(label.Year(), label.Month()+2, 0, 0, 0, 0, 0, label.Location())
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

var (
	bucketersMu sync.RWMutex
	bucketers   = map[Granularity]Bucketer{
		Daily:   DayBucketer{},
		Weekly:  WeekBucketer{},
		Monthly: MonthBucketer{},
	}
	granularities = []Granularity{Daily, Weekly, Monthly}
)

// GetBucketer returns the bucketer registered for g.
func GetBucketer(g Granularity) (Bucketer, error) {
	bucketersMu.RLock()
	defer bucketersMu.RUnlock()
	b, ok := bucketers[g]
	if !ok {
		return nil, fmt.Errorf("unknown granularity: %q", g)
	}
	return b, nil
}

// RegisterBucketer adds or replaces the bucketer for g.
func RegisterBucketer(g Granularity, b Bucketer) {
	bucketersMu.Lock()
	defer bucketersMu.Unlock()
	if _, ok := bucketers[g]; !ok {
		granularities = append(granularities, g)
	}
	bucketers[g] = b
}

// Granularities lists the registered names in registration order, finest
// built-in first.
func Granularities() []Granularity {
	bucketersMu.RLock()
	defer bucketersMu.RUnlock()
	return slices.Clone(granularities)
}

// Label is the display name of g.
func (g Granularity) Label() string {
	if g == "" {
		return ""
	}
	return strings.ToUpper(string(g[:1])) + string(g[1:])
}
