package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"ledgerdash/internal/cache"
	"ledgerdash/internal/core"
	"ledgerdash/internal/dataset"
	"ledgerdash/internal/log"
	"ledgerdash/internal/report"
	appweb "ledgerdash/web"
)

// Options configures the dashboard server.
type Options struct {
	Logger   *log.Logger
	Currency string
	Report   report.Options

	ViewCacheSize int
	ViewCacheTTL  time.Duration

	// ReloadLimit is the number of POST requests a client may send per minute.
	ReloadLimit int
}

type Server struct {
	http.Server
	templates *template.Template
	store     *dataset.Store

	// Computed dashboards keyed by dataset version and request parameters.
	views  *cache.LRUCache[*report.Dashboard]
	caches *cache.Manager

	rateLimiter *rateLimiter
	security    *securityMetrics
	requests    requestMetrics

	logger       *log.Logger
	opts         Options
	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, store *dataset.Store, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Currency == "" {
		opts.Currency = core.DefaultCurrency
	}
	if opts.Report.Granularity == "" {
		opts.Report = report.DefaultOptions()
	}
	if opts.ViewCacheSize <= 0 {
		opts.ViewCacheSize = 100
	}
	if opts.ReloadLimit <= 0 {
		opts.ReloadLimit = 60
	}

	mux := http.NewServeMux()
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		store:       store,
		views:       cache.NewLRUCache[*report.Dashboard](opts.ViewCacheSize, opts.ViewCacheTTL),
		caches:      cache.NewManager(opts.Logger),
		rateLimiter: newRateLimiter(opts.ReloadLimit, time.Minute),
		security:    &securityMetrics{},
		logger:      logger,
		opts:        opts,
		startedAt:   time.Now(),
	}
	s.caches.Register(s.views)
	if opts.ViewCacheTTL > 0 {
		s.caches.StartCleanup(opts.ViewCacheTTL)
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("/ui/dashboard", s.withSecurityHeaders(s.handleDashboardPartial))
	mux.HandleFunc("/api/dashboard", s.withSecurityHeaders(s.handleDashboardAPI))
	mux.HandleFunc("/download", s.withSecurityHeaders(s.handleDownload))
	mux.HandleFunc("/diagnostics", s.withSecurityHeaders(s.handleDiagnostics))
	mux.HandleFunc("/reload", s.withSecurityHeaders(s.handleReload))

	s.Handler = s.trace(mux)
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
