package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestJSONHandlerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentIngest, Handler: NewHandler(&buf, "json", slog.LevelInfo)})

	logger.Info("Dataset loaded", FieldRows, 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log output is not JSON: %v (%s)", err, buf.String())
	}
	if record[FieldComponent] != ComponentIngest {
		t.Errorf("component = %v, want %s", record[FieldComponent], ComponentIngest)
	}
	if record[FieldRows] != float64(3) {
		t.Errorf("rows = %v, want 3", record[FieldRows])
	}
}

func TestTextHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentApp, Handler: NewHandler(&buf, "text", slog.LevelWarn)})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestMiddlewareStoresLogger(t *testing.T) {
	logger := Discard().WithComponent(ComponentHTTP)

	var got *Logger
	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got != logger {
		t.Fatal("expected the middleware logger in the request context")
	}
	if FromContext(context.Background()).Component() != ComponentApp {
		t.Error("expected default logger outside a request")
	}
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithComponent(ComponentReport).
		WithFilter("2024-01-01", "2024-01-31", 2, "weekly").
		WithError(nil)

	if _, ok := fields[FieldError]; ok {
		t.Error("nil error should not add a field")
	}
	if len(fields.ToSlice()) != 2*len(fields) {
		t.Errorf("ToSlice length = %d, want %d", len(fields.ToSlice()), 2*len(fields))
	}
	if fields[FieldGranularity] != "weekly" {
		t.Errorf("granularity = %v", fields[FieldGranularity])
	}
}
