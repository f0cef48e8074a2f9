package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	return exporter
}

func TestTraceQuery_Success(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQuery(context.Background(), "GetSession", "SELECT id FROM session WHERE id = $1")
	end(nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "db.GetSession", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)

	attrs := map[string]string{}
	for _, a := range spans[0].Attributes {
		attrs[string(a.Key)] = a.Value.Emit()
	}
	assert.Equal(t, "postgresql", attrs["db.system"])
	assert.Equal(t, "GetSession", attrs["db.operation"])
}

func TestTraceQuery_Error(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQuery(context.Background(), "UpsertUsage", "INSERT INTO org_usage")
	end(errors.New("connection refused"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.NotEmpty(t, spans[0].Events)
}

func TestSlowQueryLogging(t *testing.T) {
	setupTestTracer(t)
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	var buf bytes.Buffer
	SetSlowQueryLogging(time.Nanosecond, slog.New(slog.NewJSONHandler(&buf, nil)))

	_, end := TraceQuery(context.Background(), "DeleteOldSessions", "DELETE FROM session")
	end(errors.New("lock timeout"))

	out := buf.String()
	assert.Contains(t, out, "slow query detected")
	assert.Contains(t, out, "DeleteOldSessions")
	assert.Contains(t, out, "lock timeout")
}

func TestSlowQueryLogging_BelowThreshold(t *testing.T) {
	setupTestTracer(t)
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	var buf bytes.Buffer
	SetSlowQueryLogging(time.Hour, slog.New(slog.NewJSONHandler(&buf, nil)))

	_, end := TraceQuery(context.Background(), "Fast", "SELECT 1")
	end(nil)

	assert.Empty(t, buf.String())
}
