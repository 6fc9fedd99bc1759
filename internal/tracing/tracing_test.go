package tracing

import (
	"context"
	"errors"
	"os"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs an in-memory exporter and the W3C propagator
// so spans and task headers can be inspected.
func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return exporter
}

func TestGetVersion(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected string
	}{
		{name: "with SERVICE_VERSION set", envValue: "v1.2.3", expected: "v1.2.3"},
		{name: "with SERVICE_VERSION unset", envValue: "", expected: "dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("SERVICE_VERSION", tt.envValue)
			} else {
				os.Unsetenv("SERVICE_VERSION")
			}

			if got := getVersion(); got != tt.expected {
				t.Errorf("getVersion() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGetInstanceID(t *testing.T) {
	tests := []struct {
		name     string
		hostname string
		expected string
	}{
		{name: "with HOSTNAME set", hostname: "fxhooks-worker-abc123", expected: "fxhooks-worker-abc123"},
		{name: "with HOSTNAME unset", hostname: "", expected: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.hostname != "" {
				t.Setenv("HOSTNAME", tt.hostname)
			} else {
				os.Unsetenv("HOSTNAME")
			}

			if got := getInstanceID(); got != tt.expected {
				t.Errorf("getInstanceID() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGetOTLPEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected string
	}{
		{name: "unset falls back to localhost", envValue: "", expected: "localhost:4318"},
		{name: "bare host:port passed through", envValue: "collector:4318", expected: "collector:4318"},
		{name: "http scheme stripped", envValue: "http://collector:4318", expected: "collector:4318"},
		{name: "https scheme stripped", envValue: "https://collector:4318", expected: "collector:4318"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", tt.envValue)
			} else {
				os.Unsetenv("OTEL_EXPORTER_OTLP_ENDPOINT")
			}

			if got := getOTLPEndpoint(); got != tt.expected {
				t.Errorf("getOTLPEndpoint() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestStartSpanRecordsAttributes(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx, span := StartSpan(context.Background(), "dispatch.Publish",
		attribute.String("event_type", "user.registered"),
		attribute.Int("fanout", 2),
	)
	if oteltrace.SpanFromContext(ctx) == nil {
		t.Fatal("StartSpan() span not found in returned context")
	}
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Name != "dispatch.Publish" {
		t.Errorf("span name = %q, want dispatch.Publish", spans[0].Name)
	}

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range spans[0].Attributes {
		attrs[kv.Key] = kv.Value
	}
	if attrs["event_type"].AsString() != "user.registered" {
		t.Errorf("event_type attribute = %v", attrs["event_type"])
	}
	if attrs["fanout"].AsInt64() != 2 {
		t.Errorf("fanout attribute = %v", attrs["fanout"])
	}
}

func TestAddSpanEvent(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx, span := StartSpan(context.Background(), "worker.delivery")
	AddSpanEvent(ctx, "http.send_webhook", attribute.Int("attempt", 1))
	span.End()

	// Must not panic on a context without a span
	AddSpanEvent(context.Background(), "no-op")

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if len(spans[0].Events) != 1 || spans[0].Events[0].Name != "http.send_webhook" {
		t.Errorf("span events = %+v, want one http.send_webhook event", spans[0].Events)
	}
}

func TestSetSpanError(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx, span := StartSpan(context.Background(), "worker.delivery")
	SetSpanError(ctx, errors.New("connection refused"))
	span.End()

	// Nil error and span-less context must both be no-ops
	SetSpanError(ctx, nil)
	SetSpanError(context.Background(), errors.New("ignored"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status.Code)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected a recorded error event on the span")
	}
}

func TestGetTraceID(t *testing.T) {
	setupTestTracer(t)

	if got := GetTraceID(context.Background()); got != "" {
		t.Errorf("GetTraceID() = %q for context without span, want empty", got)
	}

	ctx, span := StartSpan(context.Background(), "worker.delivery")
	defer span.End()

	traceID := GetTraceID(ctx)
	if traceID == "" {
		t.Fatal("GetTraceID() returned empty string for context with span")
	}
	if len(traceID) != 32 {
		t.Errorf("trace ID length = %d, want 32 hex chars", len(traceID))
	}
}

func TestPropagateTraceToTask(t *testing.T) {
	setupTestTracer(t)

	// Without an active span the carrier stays empty.
	if headers := PropagateTraceToTask(context.Background()); len(headers) != 0 {
		t.Errorf("headers for spanless context = %v, want empty", headers)
	}

	ctx, span := StartSpan(context.Background(), "dispatch.Publish")
	defer span.End()

	headers := PropagateTraceToTask(ctx)
	if _, ok := headers["traceparent"]; !ok {
		t.Errorf("task headers %v missing traceparent", headers)
	}
}

func TestExtractTraceFromTask(t *testing.T) {
	setupTestTracer(t)

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{name: "nil headers", headers: nil},
		{name: "empty headers", headers: map[string]string{}},
		{
			name: "valid trace context",
			headers: map[string]string{
				"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
			},
		},
		{
			name:    "malformed trace context",
			headers: map[string]string{"traceparent": "not-a-traceparent"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Must never panic, whatever was stored on the task
			if ctx := ExtractTraceFromTask(context.Background(), tt.headers); ctx == nil {
				t.Error("ExtractTraceFromTask() returned nil context")
			}
		})
	}
}

// TestTaskHeaderRoundTrip covers the dispatcher-to-worker handoff: the
// trace started at publish time must be the one the delivery attempt
// continues after the task passed through a queue backend.
func TestTaskHeaderRoundTrip(t *testing.T) {
	setupTestTracer(t)

	ctx, span := StartSpan(context.Background(), "dispatch.Publish")
	defer span.End()

	originalTraceID := GetTraceID(ctx)
	if originalTraceID == "" {
		t.Fatal("failed to get trace ID from publish context")
	}

	headers := PropagateTraceToTask(ctx)
	if len(headers) == 0 {
		t.Fatal("PropagateTraceToTask() returned empty headers")
	}

	workerCtx := ExtractTraceFromTask(context.Background(), headers)
	workerCtx, childSpan := StartSpan(workerCtx, "worker.delivery")
	defer childSpan.End()

	if got := GetTraceID(workerCtx); got != originalTraceID {
		t.Errorf("trace ID changed across the queue: publish=%s, delivery=%s", originalTraceID, got)
	}
}

func TestTracerNameConstant(t *testing.T) {
	expected := "github.com/cambista/fxhooks"
	if TracerName != expected {
		t.Errorf("TracerName constant = %q, want %q", TracerName, expected)
	}
}
