package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"

	"ledgerdash/internal/core"
	"ledgerdash/internal/dataset"
	"ledgerdash/internal/log"
	"ledgerdash/internal/render"
	"ledgerdash/internal/report"
)

type option struct {
	Value    string
	Label    string
	Selected bool
}

type amountRow struct {
	Name   string
	Amount string
	Width  int
}

type trendRow struct {
	Date     string
	Category string
	Amount   string
}

// dashboardView is the template data of the dashboard partial.
type dashboardView struct {
	Version     uint64
	PartialURL  template.URL
	APIURL      template.URL
	DownloadURL template.URL

	Start, End     string
	MinDate        string
	MaxDate        string
	Categories     []option
	Views          []option
	DetailOptions  []option
	SelectedCount  int
	CategoryCount  int
	Empty          bool
	Transactions   int
	Total          string
	MonthlyAverage string
	Months         int
	HasTop         bool
	TopCategory    amountRow

	CategoryRows    []amountRow
	TrendRows       []amountRow
	CategoryTrend   []trendRow
	Merchants       []amountRow
	PaymentMethods  []amountRow
	Detail          string
	DetailMerchants []amountRow

	Negatives int
	Columns   []string
	Rows      [][]string
	RowsTotal int
}

// snapshot returns the loaded ledger or writes a 503.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (*dataset.Snapshot, bool) {
	snap, err := s.store.Get(r.Context())
	if err != nil {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Dataset unavailable", err,
			log.ComponentDataset, log.OpLoad,
			log.NewFields().
				WithRequestID(RequestIDFromContext(r.Context())).
				WithClientIP(extractClientIP(r)))
		ServiceUnavailableError("The transaction data could not be loaded.").Write(w)
		return nil, false
	}
	return snap, true
}

// dashboard builds the views for p, reusing a cached result for the same
// dataset version.
func (s *Server) dashboard(ctx context.Context, snap *dataset.Snapshot, p FilterParams) (*report.Dashboard, error) {
	key := strconv.FormatUint(snap.Version, 10) + "#" + p.CacheKey()
	if d, ok := s.views.Get(key); ok {
		return d, nil
	}
	d, err := report.Build(snap.Table, p.Filter, p.Options)
	if err != nil {
		return nil, fmt.Errorf("build dashboard: %w", err)
	}
	s.views.Set(key, d)
	log.FromContext(ctx).WithComponent(log.ComponentReport).DebugContext(ctx, "Dashboard computed",
		log.NewFields().
			WithOperation(log.OpFilter).
			WithFilter(formatDay(p.Filter.Start), formatDay(p.Filter.End), len(p.Filter.Categories), string(p.Options.Granularity)).
			ToSlice()...)
	return d, nil
}

// load parses the request and computes its dashboard, writing the error
// response itself when that fails.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (*dataset.Snapshot, FilterParams, *report.Dashboard, bool) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError(http.MethodGet).Write(w)
		return nil, FilterParams{}, nil, false
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return nil, FilterParams{}, nil, false
	}
	params := ParseFilterParams(r.URL.Query(), snap.Table, s.opts.Report)
	d, err := s.dashboard(r.Context(), snap, params)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard build failed", log.FieldError, err)
		InternalServerError("Could not compute the dashboard.").Write(w)
		return nil, FilterParams{}, nil, false
	}
	return snap, params, d, true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	snap, params, d, ok := s.load(w, r)
	if !ok {
		return
	}
	s.execute(w, r, "index.html", s.buildView(snap, params, d))
}

// handleDashboardPartial renders the dashboard fragment swapped in by HTMX.
func (s *Server) handleDashboardPartial(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	snap, params, d, ok := s.load(w, r)
	if !ok {
		return
	}
	w.Header().Set("HX-Push-Url", "/?"+params.Encode())
	s.execute(w, r, "dashboard", s.buildView(snap, params, d))
}

// execute renders into a buffer so a failing template never leaves a
// half-written page.
func (s *Server) execute(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err, log.FieldTemplate, name)
		InternalServerError("Rendering failed.").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) buildView(snap *dataset.Snapshot, p FilterParams, d *report.Dashboard) dashboardView {
	v := dashboardView{
		Version:        snap.Version,
		Start:          formatDay(p.Filter.Start),
		End:            formatDay(p.Filter.End),
		SelectedCount:  len(p.Filter.Categories),
		Empty:          d.Empty(),
		Transactions:   d.Summary.Transactions,
		Total:          s.formatAmount(d.Summary.Total),
		MonthlyAverage: s.formatAmount(d.Summary.MonthlyAverage),
		Months:         d.Summary.Months,
		HasTop:         d.HasTopCategory,
		Detail:         d.Detail,
		Negatives:      d.Negatives.Len(),
		RowsTotal:      d.Filtered.Len(),
	}
	q := p.Encode()
	v.PartialURL = template.URL("/ui/dashboard?" + q)
	v.APIURL = template.URL("/api/dashboard?" + q)
	v.DownloadURL = template.URL("/download?" + q)
	if lo, hi, ok := report.DateRange(snap.Table); ok {
		v.MinDate, v.MaxDate = formatDay(core.Day(lo)), formatDay(core.Day(hi))
	}

	all := report.Categories(snap.Table)
	v.CategoryCount = len(all)
	for _, c := range all {
		v.Categories = append(v.Categories, option{Value: c, Label: c, Selected: slices.Contains(p.Filter.Categories, c)})
	}
	for _, g := range report.Granularities() {
		v.Views = append(v.Views, option{Value: string(g), Label: g.Label(), Selected: g == d.Options.Granularity})
	}
	for _, c := range report.Categories(d.Filtered) {
		v.DetailOptions = append(v.DetailOptions, option{Value: c, Label: c, Selected: c == d.Detail})
	}

	if d.HasTopCategory {
		v.TopCategory = amountRow{Name: d.TopCategory.Name, Amount: s.formatAmount(d.TopCategory.Amount)}
	}
	v.CategoryRows = s.amountRows(d.Categories)
	v.Merchants = s.amountRows(d.Merchants)
	v.PaymentMethods = s.amountRows(d.PaymentMethods)
	v.DetailMerchants = s.amountRows(d.DetailMerchants)

	trend := make([]core.CategoryAmount, 0, len(d.Trend))
	for _, pt := range d.Trend {
		trend = append(trend, core.CategoryAmount{Name: formatDay(pt.Date), Amount: pt.Amount})
	}
	v.TrendRows = s.amountRows(trend)
	for _, pt := range d.CategoryTrend {
		v.CategoryTrend = append(v.CategoryTrend, trendRow{Date: formatDay(pt.Date), Category: pt.Category, Amount: s.formatAmount(pt.Amount)})
	}

	v.Columns = report.ExportColumns(d.Rows)
	for _, r := range d.Rows.Rows() {
		row := make([]string, len(v.Columns))
		for i, c := range v.Columns {
			row[i] = d.Rows.Text(r, c)
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}

// amountRows formats items and scales their bars against the largest amount.
func (s *Server) amountRows(items []core.CategoryAmount) []amountRow {
	top := decimal.Zero
	for _, it := range items {
		if it.Amount.GreaterThan(top) {
			top = it.Amount
		}
	}
	rows := make([]amountRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, amountRow{Name: it.Name, Amount: s.formatAmount(it.Amount), Width: barWidth(it.Amount, top)})
	}
	return rows
}

type apiAmount struct {
	Name   string      `json:"name"`
	Amount json.Number `json:"amount"`
}

type apiTrendPoint struct {
	Date     string      `json:"date"`
	Category string      `json:"category,omitempty"`
	Amount   json.Number `json:"amount"`
}

type apiSummary struct {
	Transactions   int         `json:"transactions"`
	Total          json.Number `json:"total"`
	Months         int         `json:"months"`
	MonthlyAverage json.Number `json:"monthly_average"`
}

type apiFilter struct {
	Start      string   `json:"start,omitempty"`
	End        string   `json:"end,omitempty"`
	Categories []string `json:"categories"`
}

type apiDashboard struct {
	Version         uint64          `json:"version"`
	Currency        string          `json:"currency"`
	Filter          apiFilter       `json:"filter"`
	Granularity     string          `json:"granularity"`
	Summary         apiSummary      `json:"summary"`
	TopCategory     *apiAmount      `json:"top_category"`
	Categories      []apiAmount     `json:"categories"`
	Trend           []apiTrendPoint `json:"trend"`
	CategoryTrend   []apiTrendPoint `json:"category_trend"`
	Merchants       []apiAmount     `json:"merchants"`
	PaymentMethods  []apiAmount     `json:"payment_methods"`
	Detail          string          `json:"detail,omitempty"`
	DetailMerchants []apiAmount     `json:"detail_merchants"`
	Negatives       int             `json:"negatives"`
}

func number(d decimal.Decimal) json.Number { return json.Number(d.StringFixed(2)) }

func apiAmounts(items []core.CategoryAmount) []apiAmount {
	out := make([]apiAmount, 0, len(items))
	for _, it := range items {
		out = append(out, apiAmount{Name: it.Name, Amount: number(it.Amount)})
	}
	return out
}

// handleDashboardAPI serves the chart data of the current filter as JSON.
func (s *Server) handleDashboardAPI(w http.ResponseWriter, r *http.Request) {
	snap, params, d, ok := s.load(w, r)
	if !ok {
		return
	}

	resp := apiDashboard{
		Version:  snap.Version,
		Currency: s.opts.Currency,
		Filter: apiFilter{
			Start:      formatDay(params.Filter.Start),
			End:        formatDay(params.Filter.End),
			Categories: append([]string{}, params.Filter.Categories...),
		},
		Granularity: string(d.Options.Granularity),
		Summary: apiSummary{
			Transactions:   d.Summary.Transactions,
			Total:          number(d.Summary.Total),
			Months:         d.Summary.Months,
			MonthlyAverage: number(d.Summary.MonthlyAverage),
		},
		Categories:      apiAmounts(d.Categories),
		Trend:           make([]apiTrendPoint, 0, len(d.Trend)),
		CategoryTrend:   make([]apiTrendPoint, 0, len(d.CategoryTrend)),
		Merchants:       apiAmounts(d.Merchants),
		PaymentMethods:  apiAmounts(d.PaymentMethods),
		Detail:          d.Detail,
		DetailMerchants: apiAmounts(d.DetailMerchants),
		Negatives:       d.Negatives.Len(),
	}
	if d.HasTopCategory {
		resp.TopCategory = &apiAmount{Name: d.TopCategory.Name, Amount: number(d.TopCategory.Amount)}
	}
	for _, p := range d.Trend {
		resp.Trend = append(resp.Trend, apiTrendPoint{Date: formatDay(p.Date), Amount: number(p.Amount)})
	}
	for _, p := range d.CategoryTrend {
		resp.CategoryTrend = append(resp.CategoryTrend, apiTrendPoint{Date: formatDay(p.Date), Category: p.Category, Amount: number(p.Amount)})
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode dashboard", log.FieldError, err)
	}
}

// handleDownload streams the filtered rows as CSV.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	_, _, d, ok := s.load(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, d.Filtered); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "CSV export failed",
			log.FieldOperation, log.OpExport, log.FieldError, err)
		InternalServerError("Export failed.").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.ExportFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Filtered transactions exported",
		log.FieldOperation, log.OpExport, log.FieldRows, d.Filtered.Len())
}

// handleDiagnostics renders the validation report of the loaded ledger.
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError(http.MethodGet).Write(w)
		return
	}
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	body, err := render.HTML(render.DiagnosticsMarkdown(snap.Diagnostics))
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Diagnostics rendering failed",
			log.FieldOperation, log.OpRender, log.FieldError, err)
		InternalServerError("Rendering failed.").Write(w)
		return
	}
	data := struct {
		Version  uint64
		LoadedAt string
		Body     template.HTML
	}{
		Version:  snap.Version,
		LoadedAt: snap.LoadedAt.Format("2006-01-02 15:04:05"),
		// goldmark escapes raw HTML in the markdown unless told otherwise.
		Body: template.HTML(body),
	}
	s.execute(w, r, "diagnostics.html", data)
}

// handleReload drops the cached ledger and computed views and loads the
// file again.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError(http.MethodPost).Write(w)
		return
	}
	logger := log.FromContext(r.Context())

	snap, err := s.store.Reload(r.Context())
	s.views.Purge()
	if err != nil {
		logger.ErrorContext(r.Context(), "Dataset reload failed", log.FieldOperation, log.OpReload, log.FieldError, err)
		ServiceUnavailableError("Reload failed: the transaction data could not be loaded.").
			TriggerErrorNotification("Reload failed").
			Write(w)
		return
	}

	rows := snap.Table.Len()
	logger.InfoContext(r.Context(), "Dataset reloaded",
		log.FieldOperation, log.OpReload, log.FieldVersion, snap.Version, log.FieldRows, rows)
	NewHTMXResponse().
		TriggerDatasetReloaded(snap.Version, rows).
		TriggerSuccessNotification(fmt.Sprintf("Reloaded %d transactions", rows)).
		BodyHTML(`<span class="success">Data reloaded</span>`).
		Write(w)
}
