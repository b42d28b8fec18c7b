// Package http provides HTTP server and handler implementations.
//
// This file turns dashboard query strings into report filters and options.
// Invalid values never fail a request: they fall back to the defaults of the
// loaded dataset.
package http

import (
	"net/url"
	"slices"
	"strings"

	"ledgerdash/internal/core"
	"ledgerdash/internal/report"
)

// Query parameter names shared by the page, partials, API and download.
const (
	ParamStart         = "start"
	ParamEnd           = "end"
	ParamCategory      = "category"
	ParamCategoriesSet = "categories_set"
	ParamView          = "view"
	ParamDetail        = "detail"
)

// FilterParams is a parsed dashboard request.
type FilterParams struct {
	Filter  report.Filter
	Options report.Options
}

// ParseFilterParams reads the dashboard parameters from query against the
// table they will be applied to. Without any category parameter every
// category is selected; with the categories_set marker the listed categories
// are authoritative, even when there are none.
func ParseFilterParams(query url.Values, table *core.Table, defaults report.Options) FilterParams {
	def := report.DefaultFilter(table)
	f := report.Filter{Start: def.Start, End: def.End, Categories: def.Categories}

	if t, ok := parseDay(query.Get(ParamStart)); ok {
		f.Start = t
	}
	if t, ok := parseDay(query.Get(ParamEnd)); ok {
		f.End = t
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start) {
		f.Start, f.End = f.End, f.Start
	}

	values, listed := query[ParamCategory]
	if listed || query.Get(ParamCategoriesSet) != "" {
		f.SelectCategories(cleanList(values))
	}

	opts := defaults
	if v := report.Granularity(strings.ToLower(strings.TrimSpace(query.Get(ParamView)))); v != "" {
		if _, err := report.GetBucketer(v); err == nil {
			opts.Granularity = v
		}
	}
	if opts.Granularity == "" {
		opts.Granularity = report.Monthly
	}
	opts.Detail = sanitizeInput(query.Get(ParamDetail))

	return FilterParams{Filter: f, Options: opts}
}

// Encode renders the parameters back into a query string that ParseFilterParams
// reads to the same values.
func (p FilterParams) Encode() string {
	q := url.Values{}
	if !p.Filter.Start.IsZero() {
		q.Set(ParamStart, formatDay(p.Filter.Start))
	}
	if !p.Filter.End.IsZero() {
		q.Set(ParamEnd, formatDay(p.Filter.End))
	}
	q.Set(ParamCategoriesSet, "1")
	for _, c := range p.Filter.Categories {
		q.Add(ParamCategory, c)
	}
	if p.Options.Granularity != "" {
		q.Set(ParamView, string(p.Options.Granularity))
	}
	if p.Options.Detail != "" {
		q.Set(ParamDetail, p.Options.Detail)
	}
	return q.Encode()
}

// CacheKey identifies the parameters for the view cache.
func (p FilterParams) CacheKey() string {
	return p.Filter.Key() + "#" + p.Options.Key()
}

// cleanList sanitizes values, dropping blanks and repeats. Category names are
// matched exactly, so surrounding spaces are kept.
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = sanitizeInput(v)
		if strings.TrimSpace(v) == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
