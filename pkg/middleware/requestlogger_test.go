package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"github.com/harunzafer/fastsvelte/pkg/logger"
)

func newTestLogger(w *bytes.Buffer) *slog.Logger {
	return logger.NewWithWriter("test-svc", "info", w)
}

func decodeLastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var out map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestRequestLogger_StoresLoggerInContext(t *testing.T) {
	var buf bytes.Buffer
	base := newTestLogger(&buf)

	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("handler log")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	if buf.Len() == 0 {
		t.Fatal("expected log output from context logger")
	}
}

func TestRequestLogger_IncludesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("test")
	}))

	ctx := logger.WithCorrelationID(context.Background(), "corr-test-123")
	req := httptest.NewRequest(http.MethodGet, "/test", nil).WithContext(ctx)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := decodeLastLine(t, &buf)
	if got := out["correlation_id"]; got != "corr-test-123" {
		t.Errorf("correlation_id = %v, want %q", got, "corr-test-123")
	}
}

func TestRequestLogger_IncludesTraceFields(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("test")
	}))

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil).WithContext(ctx))

	out := decodeLastLine(t, &buf)
	if got := out["trace_id"]; got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace_id = %v", got)
	}
	if got := out["span_id"]; got != "00f067aa0ba902b7" {
		t.Errorf("span_id = %v", got)
	}
}

func TestRequestLogger_NoIdentity_OmitsUserID(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("test")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	out := decodeLastLine(t, &buf)
	if _, ok := out["user_id"]; ok {
		t.Error("user_id should be omitted for anonymous requests")
	}
}

func TestRequestLogging_GeneratesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	handler := RequestLogging(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notes", nil))

	if seen == "" {
		t.Fatal("expected correlation id in context")
	}
	if got := rec.Header().Get(CorrelationHeader); got != seen {
		t.Errorf("response header = %q, want %q", got, seen)
	}

	out := decodeLastLine(t, &buf)
	if out["msg"] != "http request" {
		t.Errorf("msg = %v", out["msg"])
	}
	if out["status"] != float64(http.StatusCreated) {
		t.Errorf("status = %v, want 201", out["status"])
	}
}

func TestRequestLogging_ReusesValidInboundID(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogging(newTestLogger(&buf))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(CorrelationHeader); got != "abc-123" {
		t.Errorf("correlation id = %q, want abc-123", got)
	}
}

func TestRequestLogging_ReplacesMalformedInboundID(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogging(newTestLogger(&buf))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "bad id\nwith newline")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	got := rec.Header().Get(CorrelationHeader)
	if got == "" || got == "bad id\nwith newline" {
		t.Errorf("expected generated correlation id, got %q", got)
	}
}

func TestRequestLogging_ProbeAtDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogging(newTestLogger(&buf))(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if buf.Len() != 0 {
		t.Errorf("probe request should not be logged at info level, got %s", buf.String())
	}
}

func TestRecovery_ReturnsInternalError(t *testing.T) {
	var buf bytes.Buffer
	handler := Recovery(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"INTERNAL_ERROR"`)) {
		t.Errorf("body = %s, want INTERNAL_ERROR code", rec.Body.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("panic recovered")) {
		t.Error("expected panic to be logged")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		realIP string
		remote string
		want   string
	}{
		{name: "forwarded first valid", xff: "garbage, 203.0.113.7, 10.0.0.1", remote: "10.0.0.2:1234", want: "203.0.113.7"},
		{name: "real ip", realIP: "198.51.100.4", remote: "10.0.0.2:1234", want: "198.51.100.4"},
		{name: "remote addr", remote: "192.0.2.1:5555", want: "192.0.2.1"},
		{name: "remote without port", remote: "192.0.2.1", want: "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
