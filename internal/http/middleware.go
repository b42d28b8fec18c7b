package http

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"ledgerdash/internal/log"
)

type requestIDKey struct{}

// RequestIDFromContext returns the request ID assigned by the trace middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestMetrics tracks request counts and latency.
type requestMetrics struct {
	total        int64
	serverErrors int64
	totalMicros  int64
}

func (m *requestMetrics) averageMillis() float64 {
	n := atomic.LoadInt64(&m.total)
	if n == 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&m.totalMicros)) / float64(n) / 1000
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// trace assigns a request ID, hands the handlers a logger carrying it and
// logs the start and end of every request.
func (s *Server) trace(next http.Handler) http.Handler {
	structured := log.NewStructuredLogger(s.logger)
	scoped := log.Middleware(s.logger)(log.RequestIDMiddleware(func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	})(next))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		w.Header().Set("X-Request-ID", requestID)
		structured.LogHTTPStart(ctx, r, clientIP)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		scoped.ServeHTTP(rw, r)

		elapsed := time.Since(start)
		atomic.AddInt64(&s.requests.total, 1)
		atomic.AddInt64(&s.requests.totalMicros, elapsed.Microseconds())
		if rw.statusCode >= 500 {
			atomic.AddInt64(&s.requests.serverErrors, 1)
		}
		structured.LogHTTPEnd(ctx, r, rw.statusCode, elapsed.Milliseconds(), clientIP)
	})
}

// withSecurityHeaders adds security headers, flags suspicious requests and
// rate limits POST requests.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)
		logger := log.FromContext(r.Context())
		setSecurityHeaders(w.Header())

		if detectSuspiciousRequest(r, s.security) {
			logger.WithComponent(log.ComponentSecurity).WarnContext(r.Context(), "Suspicious request",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.security) {
			logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		next(w, r)
	}
}
