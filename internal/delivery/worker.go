package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cambista/fxhooks/internal/clock"
	"github.com/cambista/fxhooks/internal/endpoint"
	"github.com/cambista/fxhooks/internal/ledger"
	"github.com/cambista/fxhooks/internal/logging"
	"github.com/cambista/fxhooks/internal/metrics"
	"github.com/cambista/fxhooks/internal/signature"
	"github.com/cambista/fxhooks/internal/tracing"
)

// Config bounds the worker's retry and HTTP behavior.
type Config struct {
	MaxAttempts     int
	BackoffSchedule []time.Duration
	JitterPercent   float64
	AttemptTimeout  time.Duration
	SignatureHeader string
	EventHeader     string
	IDHeader        string
}

// DefaultConfig returns worker settings matching the documented retry
// contract: 3 attempts, 1s/2s gaps, 10s per-attempt timeout.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     DefaultMaxAttempts,
		BackoffSchedule: DefaultBackoffSchedule(),
		AttemptTimeout:  10 * time.Second,
		SignatureHeader: signature.SignatureHeader,
		EventHeader:     signature.EventHeader,
		IDHeader:        signature.IDHeader,
	}
}

// envelope is the JSON body POSTed to endpoints.
type envelope struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// Worker consumes delivery tasks from the queue, performs the signed
// HTTP attempt and owns every task state transition after pending.
type Worker struct {
	registry *endpoint.Registry
	ledger   *ledger.Ledger
	queue    Queue
	client   *http.Client
	clock    clock.Clock
	logger   *logging.Logger
	cfg      Config
}

// NewWorker wires a delivery worker. A nil client gets a default one
// bounded by the configured per-attempt timeout.
func NewWorker(reg *endpoint.Registry, led *ledger.Ledger, q Queue, client *http.Client, clk clock.Clock, logger *logging.Logger, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if len(cfg.BackoffSchedule) == 0 {
		cfg.BackoffSchedule = DefaultBackoffSchedule()
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	if cfg.SignatureHeader == "" {
		cfg.SignatureHeader = signature.SignatureHeader
	}
	if cfg.EventHeader == "" {
		cfg.EventHeader = signature.EventHeader
	}
	if cfg.IDHeader == "" {
		cfg.IDHeader = signature.IDHeader
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.AttemptTimeout}
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = logging.New("fxhooks-worker")
	}
	return &Worker{
		registry: reg,
		ledger:   led,
		queue:    q,
		client:   client,
		clock:    clk,
		logger:   logger,
		cfg:      cfg,
	}
}

// Run consumes tasks until the context is canceled or the queue is
// closed. Tasks within one worker are processed in dequeue order; run
// several workers for parallelism at the cost of cross-task ordering.
func (w *Worker) Run(ctx context.Context) {
	for {
		t, err := w.queue.Dequeue(ctx)
		if err != nil {
			if !errors.Is(err, ErrQueueClosed) && !errors.Is(err, context.Canceled) {
				w.logger.Plain().WithError(err).Error("dequeue failed")
			}
			return
		}
		w.process(ctx, t)
	}
}

// process runs a single delivery attempt for t.
func (w *Worker) process(ctx context.Context, t Task) {
	ctx = tracing.ExtractTraceFromTask(ctx, t.TraceHeaders)
	ctx, span := tracing.StartSpan(ctx, "worker.delivery",
		attribute.String("task_id", t.ID),
		attribute.String("endpoint_id", t.EndpointID),
		attribute.String("event_type", t.EventType),
		attribute.Int("attempt", t.Attempt),
	)
	defer span.End()

	// The registry is re-consulted before every attempt, including
	// retries, so removal or deactivation turns scheduled retries into
	// no-ops without an HTTP call.
	ep, err := w.registry.Get(ctx, t.EndpointID)
	if errors.Is(err, endpoint.ErrNotFound) {
		w.abandon(ctx, t, "endpoint_removed")
		return
	}
	if err != nil {
		tracing.SetSpanError(ctx, err)
		w.abandon(ctx, t, "registry_unavailable")
		return
	}
	if !ep.Active {
		w.abandon(ctx, t, "endpoint_inactive")
		return
	}

	t.Attempt++
	t.NextRetryAt = nil

	now := w.clock.Now().UTC()
	body, err := json.Marshal(envelope{
		ID:        t.ID,
		Event:     t.EventType,
		Data:      t.Payload,
		Timestamp: now.Format(time.RFC3339),
	})
	if err != nil {
		tracing.SetSpanError(ctx, err)
		w.terminalFailure(ctx, t, ep, 0, err, "bad_payload", 0)
		return
	}

	tracing.AddSpanEvent(ctx, "http.send_webhook")
	reqCtx, cancel := context.WithTimeout(ctx, w.cfg.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		tracing.SetSpanError(ctx, err)
		w.terminalFailure(ctx, t, ep, 0, err, "bad_request", 0)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(w.cfg.SignatureHeader, signature.Sign(t.Payload, ep.Secret))
	req.Header.Set(w.cfg.EventHeader, t.EventType)
	req.Header.Set(w.cfg.IDHeader, t.ID)
	if traceID := tracing.GetTraceID(ctx); traceID != "" {
		req.Header.Set("X-Trace-Id", traceID)
	}

	start := time.Now()
	resp, doErr := w.client.Do(req)
	latency := time.Since(start)
	status := 0
	if doErr == nil {
		status = resp.StatusCode
		_ = resp.Body.Close()
	}

	span.SetAttributes(
		attribute.Int("http.status_code", status),
		attribute.Int64("http.latency_ms", latency.Milliseconds()),
	)

	if doErr == nil && status >= 200 && status < 300 {
		w.succeed(ctx, t, ep, status, latency)
		return
	}

	reason := classifyReason(doErr, status)
	span.SetAttributes(attribute.String("failure_reason", reason))

	if t.Attempt < w.cfg.MaxAttempts {
		w.scheduleRetry(ctx, t, ep, status, doErr, reason, latency)
		return
	}
	w.terminalFailure(ctx, t, ep, status, doErr, reason, latency)
}

func (w *Worker) succeed(ctx context.Context, t Task, ep endpoint.Endpoint, status int, latency time.Duration) {
	tracing.AddSpanEvent(ctx, "delivery.success")
	t.Status = StatusSent
	w.ledger.Append(ledger.Entry{
		ID:         uuid.NewString(),
		TaskID:     t.ID,
		EndpointID: ep.ID,
		EventType:  t.EventType,
		URL:        ep.URL,
		Status:     ledger.StatusSent,
		Attempt:    t.Attempt,
		HTTPStatus: status,
		Duration:   latency,
		At:         w.clock.Now().UTC(),
	})
	if err := w.registry.RecordSuccess(ctx, ep.ID); err != nil && !errors.Is(err, endpoint.ErrNotFound) {
		w.logger.WithContext(ctx).WithTask(t.ID).WithEndpoint(ep.ID).WithError(err).Error("record success failed")
	}
	metrics.RecordDelivery("sent", latency.Seconds())
}

func (w *Worker) scheduleRetry(ctx context.Context, t Task, ep endpoint.Endpoint, status int, doErr error, reason string, latency time.Duration) {
	delay := computeDelay(t.Attempt, w.cfg.BackoffSchedule, w.cfg.JitterPercent)
	next := w.clock.Now().UTC().Add(delay)
	t.Status = StatusRetrying
	t.NextRetryAt = &next

	tracing.AddSpanEvent(ctx, "delivery.requeue",
		attribute.Int("attempt", t.Attempt),
		attribute.String("delay", delay.String()),
	)
	w.logger.WithContext(ctx).WithTask(t.ID).WithEndpoint(ep.ID).WithFields(map[string]any{
		"attempt": t.Attempt,
		"delay":   delay.String(),
		"reason":  reason,
	}).Info("requeue delivery")

	w.ledger.Append(ledger.Entry{
		ID:         uuid.NewString(),
		TaskID:     t.ID,
		EndpointID: ep.ID,
		EventType:  t.EventType,
		URL:        ep.URL,
		Status:     ledger.StatusRetrying,
		Attempt:    t.Attempt,
		HTTPStatus: status,
		Error:      errString(doErr),
		Reason:     reason,
		Duration:   latency,
		At:         w.clock.Now().UTC(),
	})
	metrics.RecordRetry(reason)
	metrics.RecordDelivery("retrying", latency.Seconds())

	if err := w.queue.Enqueue(ctx, t, delay); err != nil {
		w.logger.WithContext(ctx).WithTask(t.ID).WithError(err).Error("requeue failed, task dropped to terminal failure")
		w.terminalFailure(ctx, t, ep, status, doErr, "requeue_failed", 0)
	}
}

func (w *Worker) terminalFailure(ctx context.Context, t Task, ep endpoint.Endpoint, status int, doErr error, reason string, latency time.Duration) {
	tracing.AddSpanEvent(ctx, "delivery.failed", attribute.Int("attempt", t.Attempt))
	t.Status = StatusFailed
	w.ledger.Append(ledger.Entry{
		ID:         uuid.NewString(),
		TaskID:     t.ID,
		EndpointID: ep.ID,
		EventType:  t.EventType,
		URL:        ep.URL,
		Status:     ledger.StatusFailed,
		Attempt:    t.Attempt,
		HTTPStatus: status,
		Error:      errString(doErr),
		Reason:     reason,
		At:         w.clock.Now().UTC(),
	})

	// Emit a replayable dead-letter record alongside the ledger entry.
	dl := NewDeadLetter(t, status, errString(doErr), reason, w.clock.Now())
	w.logger.WithContext(ctx).WithTask(t.ID).WithEndpoint(ep.ID).WithFields(map[string]any{
		"dead_letter": dl,
	}).Error("delivery failed terminally")

	deactivated, err := w.registry.RecordFailure(ctx, ep.ID)
	if err != nil && !errors.Is(err, endpoint.ErrNotFound) {
		w.logger.WithContext(ctx).WithTask(t.ID).WithEndpoint(ep.ID).WithError(err).Error("record failure failed")
	}
	if deactivated {
		metrics.RecordDeactivation()
		w.logger.WithContext(ctx).WithEndpoint(ep.ID).Warn("endpoint deactivated after consecutive failures")
	}
	metrics.RecordDelivery("failed", latency.Seconds())
}

// abandon terminates a task whose endpoint vanished or went inactive
// between scheduling and this attempt. No HTTP call is made and the
// endpoint's failure counter is left alone.
func (w *Worker) abandon(ctx context.Context, t Task, reason string) {
	tracing.AddSpanEvent(ctx, "delivery.abandoned", attribute.String("reason", reason))
	t.Status = StatusFailed
	w.ledger.Append(ledger.Entry{
		ID:         uuid.NewString(),
		TaskID:     t.ID,
		EndpointID: t.EndpointID,
		EventType:  t.EventType,
		Status:     ledger.StatusFailed,
		Attempt:    t.Attempt,
		Reason:     reason,
		At:         w.clock.Now().UTC(),
	})
	metrics.RecordDelivery("abandoned", 0)
	w.logger.WithContext(ctx).WithTask(t.ID).WithEndpoint(t.EndpointID).WithField("reason", reason).Info("task abandoned")
}
