package http

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once templates are parsed and the ledger is loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusServiceUnavailable)
		return
	}
	if _, ok := s.store.Loaded(); !ok {
		http.Error(w, "dataset not loaded", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics writes counters as plain key value lines.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError(http.MethodGet).Write(w)
		return
	}

	status := s.store.Status()
	views := s.views.Stats()
	loaded := 0
	if status.Loaded {
		loaded = 1
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	lines := []struct {
		name  string
		value any
	}{
		{"uptime_seconds", int64(time.Since(s.startedAt).Seconds())},
		{"http_requests_total", atomic.LoadInt64(&s.requests.total)},
		{"http_server_errors_total", atomic.LoadInt64(&s.requests.serverErrors)},
		{"http_request_duration_ms_avg", fmt.Sprintf("%.3f", s.requests.averageMillis())},
		{"rate_limit_hits_total", atomic.LoadInt64(&s.security.rateLimitHits)},
		{"rate_limit_active_clients", s.rateLimiter.activeClients()},
		{"suspicious_requests_total", atomic.LoadInt64(&s.security.suspiciousRequests)},
		{"view_cache_entries", views.Size},
		{"view_cache_hits_total", views.Hits},
		{"view_cache_misses_total", views.Misses},
		{"view_cache_evictions_total", views.Evictions},
		{"dataset_loaded", loaded},
		{"dataset_version", status.Version},
		{"dataset_loads_total", status.Loads},
		{"dataset_rows", status.Rows},
	}
	for _, l := range lines {
		_, _ = fmt.Fprintf(w, "%s %v\n", l.name, l.value)
	}
}
