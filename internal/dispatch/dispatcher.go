package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cambista/fxhooks/internal/clock"
	"github.com/cambista/fxhooks/internal/delivery"
	"github.com/cambista/fxhooks/internal/endpoint"
	"github.com/cambista/fxhooks/internal/logging"
	"github.com/cambista/fxhooks/internal/metrics"
	"github.com/cambista/fxhooks/internal/tracing"
)

// ErrEmptyEventType rejects a publish with no event type; everything
// else about a publish is fire-and-forget.
var ErrEmptyEventType = errors.New("event type must not be empty")

// Dispatcher fans published events out to delivery tasks, one per
// matching active endpoint. It never waits for deliveries: a publish
// returns as soon as every task is on the queue.
type Dispatcher struct {
	registry *endpoint.Registry
	queue    delivery.Queue
	clock    clock.Clock
	logger   *logging.Logger
}

func NewDispatcher(registry *endpoint.Registry, queue delivery.Queue, clk clock.Clock, logger *logging.Logger) *Dispatcher {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = logging.New("fxhooks")
	}
	return &Dispatcher{registry: registry, queue: queue, clock: clk, logger: logger}
}

// Publish enqueues one delivery task per active endpoint subscribed to
// eventType and returns the fan-out count. An event with no matching
// endpoints is a successful no-op. The error return covers caller-side
// problems only (bad input, registry unavailable); individual enqueue
// failures are logged and reduce the count.
func (d *Dispatcher) Publish(ctx context.Context, eventType string, data any) (int, error) {
	if eventType == "" {
		return 0, ErrEmptyEventType
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("marshal event data: %w", err)
	}

	ctx, span := tracing.StartSpan(ctx, "dispatch.Publish")
	defer span.End()

	matches, err := d.registry.MatchingActive(ctx, eventType)
	if err != nil {
		return 0, fmt.Errorf("match endpoints: %w", err)
	}

	metrics.RecordEventPublished(eventType)

	headers := tracing.PropagateTraceToTask(ctx)
	fanout := 0
	for _, ep := range matches {
		t := delivery.Task{
			ID:           uuid.NewString(),
			EventType:    eventType,
			Payload:      payload,
			EndpointID:   ep.ID,
			Status:       delivery.StatusPending,
			CreatedAt:    d.clock.Now().UTC(),
			TraceHeaders: headers,
		}
		if err := d.queue.Enqueue(ctx, t, 0); err != nil {
			d.logger.Plain().WithTask(t.ID).WithEventType(eventType).WithEndpoint(ep.ID).
				WithError(err).Error("enqueue delivery task failed")
			continue
		}
		fanout++
	}

	d.logger.Plain().WithEventType(eventType).WithField("fanout", fanout).Debug("event published")
	return fanout, nil
}
