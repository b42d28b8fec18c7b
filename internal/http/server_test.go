package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledgerdash/internal/dataset"
	"ledgerdash/internal/report"
)

const testLedger = `date,amount,category,merchant,payment_method,account_type,transaction_type,description,transaction_id
2023-01-05,100.00,Food,Grocer,Card,Checking,Debit,weekly shop,t1
2023-01-20,50.00,Travel,Airline,Card,Credit,Debit,flight,t2
2023-02-03,25.50,Food,Cafe,Cash,Checking,Debit,coffee,t3
2023-02-10,-10.00,Food,Cafe,Cash,Checking,Refund,refund,t4
`

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func writeLedger(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write ledger: %v", err)
	}
	return path
}

func newTestServer(t *testing.T, path string, opts Options) *Server {
	t.Helper()
	opts.Report = report.DefaultOptions()
	if opts.ViewCacheTTL == 0 {
		opts.ViewCacheTTL = time.Minute
	}
	srv := NewServer(":0", dataset.New(path, dataset.Options{}), opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func do(srv *Server, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "203.0.113.7:4000"
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexPage(t *testing.T) {
	srv := newTestServer(t, writeLedger(t, testLedger), Options{})

	rr := do(srv, http.MethodGet, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{
		"Financial Transactions Dashboard",
		`value="Food"`,
		`value="Travel"`,
		"$175.50",
		"Download filtered CSV",
		"Merchant &amp; Payment",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}
	if got := rr.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" || rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("security headers missing")
	}
	if !strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_") {
		t.Errorf("X-Request-ID = %q", rr.Header().Get("X-Request-ID"))
	}
}

func TestUnknownPath(t *testing.T) {
	srv := newTestServer(t, writeLedger(t, testLedger), Options{})
	if rr := do(srv, http.MethodGet, "/nope"); rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestDashboardPartial(t *testing.T) {
	srv := newTestServer(t, writeLedger(t, testLedger), Options{})

	t.Run("category filter", func(t *testing.T) {
		rr := do(srv, http.MethodGet, "/ui/dashboard?categories_set=1&category=Travel")
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		body := rr.Body.String()
		if !strings.Contains(body, `id="dashboard"`) || strings.Contains(body, "<html") {
			t.Error("expected the bare dashboard fragment")
		}
		if !strings.Contains(body, "Airline") || strings.Contains(body, "Grocer") {
			t.Error("merchants not filtered by category")
		}
		if !strings.Contains(rr.Header().Get("HX-Push-Url"), "category=Travel") {
			t.Errorf("HX-Push-Url = %q", rr.Header().Get("HX-Push-Url"))
		}
	})

	t.Run("empty selection", func(t *testing.T) {
		rr := do(srv, http.MethodGet, "/ui/dashboard?categories_set=1")
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "No transactions match the current filters.") {
			t.Error("missing empty notice")
		}
	})
}

type apiResponse struct {
	Version uint64 `json:"version"`
	Summary struct {
		Transactions   int         `json:"transactions"`
		Total          json.Number `json:"total"`
		MonthlyAverage json.Number `json:"monthly_average"`
	} `json:"summary"`
	TopCategory *struct {
		Name   string      `json:"name"`
		Amount json.Number `json:"amount"`
	} `json:"top_category"`
	Categories []struct {
		Name   string      `json:"name"`
		Amount json.Number `json:"amount"`
	} `json:"categories"`
	Trend []struct {
		Date   string      `json:"date"`
		Amount json.Number `json:"amount"`
	} `json:"trend"`
	Merchants []struct {
		Name string `json:"name"`
	} `json:"merchants"`
	Negatives int `json:"negatives"`
}

func getAPI(t *testing.T, srv *Server, query string) apiResponse {
	t.Helper()
	rr := do(srv, http.MethodGet, "/api/dashboard"+query)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var resp apiResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestDashboardAPI(t *testing.T) {
	srv := newTestServer(t, writeLedger(t, testLedger), Options{})

	resp := getAPI(t, srv, "")
	if resp.Version != 1 {
		t.Errorf("version = %d, want 1", resp.Version)
	}
	if resp.Summary.Transactions != 3 || resp.Summary.Total != "175.50" {
		t.Errorf("summary = %+v", resp.Summary)
	}
	if resp.Summary.MonthlyAverage != "87.75" {
		t.Errorf("monthly average = %s, want 87.75", resp.Summary.MonthlyAverage)
	}
	if resp.TopCategory == nil || resp.TopCategory.Name != "Food" || resp.TopCategory.Amount != "125.50" {
		t.Errorf("top category = %+v", resp.TopCategory)
	}
	if len(resp.Categories) != 2 || resp.Categories[1].Name != "Travel" {
		t.Errorf("categories = %+v", resp.Categories)
	}
	if len(resp.Trend) != 2 || resp.Trend[0].Date != "2023-01-31" || resp.Trend[0].Amount != "150.00" {
		t.Errorf("trend = %+v", resp.Trend)
	}
	if resp.Negatives != 0 {
		t.Errorf("negatives = %d, the pipeline drops them", resp.Negatives)
	}

	filtered := getAPI(t, srv, "?start=2023-02-01")
	if filtered.Summary.Transactions != 1 || filtered.Summary.Total != "25.50" {
		t.Errorf("date filtered summary = %+v", filtered.Summary)
	}

	empty := getAPI(t, srv, "?categories_set=1")
	if empty.Summary.Transactions != 0 || empty.TopCategory != nil || empty.Categories == nil || len(empty.Categories) != 0 {
		t.Errorf("empty selection = %+v", empty)
	}
}

func TestDashboardViewCache(t *testing.T) {
	srv := newTestServer(t, writeLedger(t, testLedger), Options{})

	getAPI(t, srv, "?view=weekly")
	getAPI(t, srv, "?view=weekly")
	stats := srv.views.Stats()
	if stats.Hits != 1 || stats.Size != 1 {
		t.Errorf("cache stats = %+v, want one entry hit once", stats)
	}
}

func TestDownload(t *testing.T) {
	srv := newTestServer(t, writeLedger(t, testLedger), Options{})

	rr := do(srv, http.MethodGet, "/download?categories_set=1&category=Food")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "text/csv; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename="filtered_transactions.csv"` {
		t.Errorf("Content-Disposition = %q", got)
	}

	records, err := csv.NewReader(rr.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header and 2 rows", len(records))
	}
	want := "date,merchant,amount,category,payment_method,account_type,transaction_type,description"
	if got := strings.Join(records[0], ","); got != want {
		t.Errorf("header = %s", got)
	}
	for _, rec := range records[1:] {
		if rec[3] != "Food" {
			t.Errorf("unexpected category in %v", rec)
		}
	}
}

func TestDiagnosticsPage(t *testing.T) {
	srv := newTestServer(t, writeLedger(t, testLedger), Options{})

	rr := do(srv, http.MethodGet, "/diagnostics")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Data Quality Report") || !strings.Contains(body, "<table>") {
		t.Error("diagnostics body missing rendered markdown")
	}
	if !strings.Contains(body, "Dataset version 1") {
		t.Error("diagnostics body missing version")
	}
}

func TestReload(t *testing.T) {
	path := writeLedger(t, testLedger)
	srv := newTestServer(t, path, Options{})

	if rr := do(srv, http.MethodGet, "/api/dashboard"); rr.Code != http.StatusOK {
		t.Fatalf("warm-up status = %d", rr.Code)
	}
	if err := os.WriteFile(path, []byte(testLedger+"2023-03-01,5.00,Fun,Arcade,Card,Checking,Debit,games,t5\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	rr := do(srv, http.MethodPost, "/reload")
	if rr.Code != http.StatusOK {
		t.Fatalf("reload status = %d", rr.Code)
	}
	trigger := rr.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, `"dataset:reloaded"`) || !strings.Contains(trigger, `"version":2`) || !strings.Contains(trigger, `"rows":4`) {
		t.Errorf("HX-Trigger = %s", trigger)
	}
	if srv.views.Size() != 0 {
		t.Error("reload should purge computed views")
	}

	resp := getAPI(t, srv, "")
	if resp.Version != 2 || resp.Summary.Transactions != 4 {
		t.Errorf("after reload = %+v", resp)
	}

	if rr := do(srv, http.MethodGet, "/reload"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /reload status = %d, want 405", rr.Code)
	}
}

func TestReloadRateLimit(t *testing.T) {
	srv := newTestServer(t, writeLedger(t, testLedger), Options{ReloadLimit: 2})

	for i := 0; i < 2; i++ {
		if rr := do(srv, http.MethodPost, "/reload"); rr.Code != http.StatusOK {
			t.Fatalf("reload %d status = %d", i, rr.Code)
		}
	}
	rr := do(srv, http.MethodPost, "/reload")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Error("missing Retry-After")
	}
	if !strings.Contains(do(srv, http.MethodGet, "/metrics").Body.String(), "rate_limit_hits_total 1\n") {
		t.Error("rate limit hit not counted")
	}
}

func TestMissingLedger(t *testing.T) {
	srv := newTestServer(t, filepath.Join(t.TempDir(), "absent.csv"), Options{})

	for _, path := range []string{"/", "/ui/dashboard", "/api/dashboard", "/download", "/diagnostics"} {
		rr := do(srv, http.MethodGet, path)
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", path, rr.Code)
		}
	}
	if rr := do(srv, http.MethodPost, "/reload"); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("reload status = %d, want 503", rr.Code)
	}
	if rr := do(srv, http.MethodGet, "/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d, want 503", rr.Code)
	}
	if rr := do(srv, http.MethodGet, "/healthz"); rr.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rr.Code)
	}
}

func TestHealthReadyMetrics(t *testing.T) {
	srv := newTestServer(t, writeLedger(t, testLedger), Options{})

	if rr := do(srv, http.MethodGet, "/healthz"); rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rr.Code, rr.Body.String())
	}
	if rr := do(srv, http.MethodGet, "/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before load = %d, want 503", rr.Code)
	}
	do(srv, http.MethodGet, "/")
	if rr := do(srv, http.MethodGet, "/readyz"); rr.Code != http.StatusOK {
		t.Errorf("readyz after load = %d", rr.Code)
	}

	body := do(srv, http.MethodGet, "/metrics").Body.String()
	for _, want := range []string{
		"dataset_loaded 1\n",
		"dataset_version 1\n",
		"dataset_rows 3\n",
		"view_cache_entries 1\n",
		"http_requests_total 4\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestSuspiciousRequestCounted(t *testing.T) {
	srv := newTestServer(t, writeLedger(t, testLedger), Options{})

	req := httptest.NewRequest(http.MethodGet, "/?start=../../etc/passwd", nil)
	req.Header.Set("User-Agent", "sqlmap/1.7")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("suspicious requests are logged, not blocked: status = %d", rr.Code)
	}
	if !strings.Contains(do(srv, http.MethodGet, "/metrics").Body.String(), "suspicious_requests_total 1\n") {
		t.Error("suspicious request not counted")
	}
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, writeLedger(t, testLedger), Options{})
	for _, path := range []string{"/static/style.css", "/static/charts.js"} {
		rr := do(srv, http.MethodGet, path)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
		if rr.Header().Get("Cache-Control") == "" {
			t.Errorf("%s missing Cache-Control", path)
		}
	}
}
