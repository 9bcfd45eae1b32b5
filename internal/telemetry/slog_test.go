package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestTraceHandlerWithoutSpan(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewTraceHandler(slog.NewJSONHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "no span here")

	line := logLine(t, &buf)
	assert.Equal(t, "no span here", line["msg"])
	assert.NotContains(t, line, "trace_id")
	assert.NotContains(t, line, "span_id")
}

func TestTraceHandlerInjectsTraceContext(t *testing.T) {
	t.Parallel()

	traceID := trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	spanID := trace.SpanID{0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	var buf bytes.Buffer
	logger := slog.New(NewTraceHandler(slog.NewJSONHandler(&buf, nil)))

	logger.InfoContext(ctx, "correlated")

	line := logLine(t, &buf)
	assert.Equal(t, traceID.String(), line["trace_id"])
	assert.Equal(t, spanID.String(), line["span_id"])
}

func TestTraceHandlerWithAttrsKeepsInjection(t *testing.T) {
	t.Parallel()

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0xff, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
		SpanID:  trace.SpanID{0xff, 1, 2, 3, 4, 5, 6, 7},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	var buf bytes.Buffer
	logger := slog.New(NewTraceHandler(slog.NewJSONHandler(&buf, nil))).
		With("component", "bootstrap").
		WithGroup("run")

	logger.InfoContext(ctx, "grouped", "id", "run-1")

	line := logLine(t, &buf)
	assert.Equal(t, "bootstrap", line["component"])
	run, ok := line["run"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "run-1", run["id"])
	// trace fields end up inside the open group, still present in the record
	assert.Equal(t, sc.TraceID().String(), run["trace_id"])
}
