package report

import (
	"strconv"

	"ledgerdash/internal/core"
)

// Options tunes the views assembled by Build.
type Options struct {
	Granularity   Granularity
	TopCategories int
	TopMerchants  int
	RowLimit      int
	// Detail is the category whose merchants are broken down. Empty picks
	// the top category.
	Detail string
}

// DefaultOptions matches the stock dashboard layout.
func DefaultOptions() Options {
	return Options{
		Granularity:   Monthly,
		TopCategories: 5,
		TopMerchants:  10,
		RowLimit:      300,
	}
}

// Key identifies the options for caching.
func (o Options) Key() string {
	return string(o.Granularity) + "|" + strconv.Itoa(o.TopCategories) + "|" +
		strconv.Itoa(o.TopMerchants) + "|" + strconv.Itoa(o.RowLimit) + "|" + o.Detail
}

// Dashboard is every view of one filtered subset.
type Dashboard struct {
	Filter  Filter
	Options Options

	// Filtered is the whole matching subset; Rows is its displayed head.
	Filtered *core.Table
	Rows     *core.Table

	Summary         Summary
	Categories      []core.CategoryAmount
	TopCategory     core.CategoryAmount
	HasTopCategory  bool
	Trend           []core.TrendPoint
	CategoryTrend   []core.CategoryTrendPoint
	Merchants       []core.CategoryAmount
	PaymentMethods  []core.CategoryAmount
	Detail          string
	DetailMerchants []core.CategoryAmount
	Negatives       *core.Table
}

// Empty reports whether the filter matched nothing.
func (d *Dashboard) Empty() bool { return d.Filtered.Len() == 0 }

// Build filters t and computes every view. It fails only for an unknown
// granularity.
func Build(t *core.Table, f Filter, opts Options) (*Dashboard, error) {
	if opts.Granularity == "" {
		opts.Granularity = Monthly
	}
	bucketer, err := GetBucketer(opts.Granularity)
	if err != nil {
		return nil, err
	}

	filtered := Apply(t, f)
	d := &Dashboard{
		Filter:         f,
		Options:        opts,
		Filtered:       filtered,
		Rows:           Head(filtered, opts.RowLimit),
		Summary:        Summarize(filtered),
		Categories:     ByCategory(filtered),
		Trend:          TimeSeries(filtered, bucketer),
		CategoryTrend:  TopCategoryTrend(filtered, opts.TopCategories),
		Merchants:      TopMerchants(filtered, opts.TopMerchants),
		PaymentMethods: ByPaymentMethod(filtered),
		Negatives:      Negatives(filtered),
	}
	d.TopCategory, d.HasTopCategory = TopCategory(filtered)

	d.Detail = opts.Detail
	if d.Detail == "" && d.HasTopCategory {
		d.Detail = d.TopCategory.Name
	}
	if d.Detail != "" {
		d.DetailMerchants = MerchantsInCategory(filtered, d.Detail)
	}
	return d, nil
}
