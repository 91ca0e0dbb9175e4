package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestTraceContextHandlerWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	handler := NewTraceContextHandler(slog.NewJSONHandler(&buf, nil))
	logger := slog.New(handler)

	logger.InfoContext(context.Background(), "no span here")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}
	if record["msg"] != "no span here" {
		t.Errorf("Expected message to pass through, got %v", record["msg"])
	}
	if _, ok := record["trace_id"]; ok {
		t.Error("Expected no trace_id without an active span")
	}
}

func TestTraceContextHandlerWithSpan(t *testing.T) {
	var buf bytes.Buffer
	handler := NewTraceContextHandler(slog.NewJSONHandler(&buf, nil))
	logger := slog.New(handler)

	traceID, _ := trace.TraceIDFromHex("0123456789abcdef0123456789abcdef")
	spanID, _ := trace.SpanIDFromHex("0123456789abcdef")
	spanContext := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanContext)

	logger.InfoContext(ctx, "inside span")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}
	if record["trace_id"] != traceID.String() {
		t.Errorf("Expected trace_id '%s', got %v", traceID, record["trace_id"])
	}
	if record["span_id"] != spanID.String() {
		t.Errorf("Expected span_id '%s', got %v", spanID, record["span_id"])
	}
}

func TestTraceContextHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	handler := NewTraceContextHandler(slog.NewJSONHandler(&buf, nil))
	logger := slog.New(handler).With("agent", "test-agent")

	logger.Info("with attrs")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}
	if record["agent"] != "test-agent" {
		t.Errorf("Expected attribute to survive wrapping, got %v", record["agent"])
	}
}

func TestNewAgentMetrics(t *testing.T) {
	metrics, err := NewAgentMetrics()
	if err != nil {
		t.Fatalf("NewAgentMetrics failed: %v", err)
	}

	// Counters record against the global provider; with no provider
	// installed these are no-ops and must not panic.
	ctx := context.Background()
	metrics.RecordReceived(ctx, "test-agent")
	metrics.RecordReply(ctx, "test-agent")
	metrics.RecordCompletionFailure(ctx, "test-agent")
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(slog.LevelInfo)
	if logger == nil {
		t.Fatal("Expected a logger")
	}
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Expected info level to be enabled")
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug level to be disabled")
	}
}
