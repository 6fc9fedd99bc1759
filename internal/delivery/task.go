package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Status of a delivery task. A task is created pending, cycles through
// retrying while attempts remain, and terminates as sent or failed.
type Status string

const (
	StatusPending  Status = "pending"
	StatusSent     Status = "sent"
	StatusFailed   Status = "failed"
	StatusRetrying Status = "retrying"
)

// Task is one event being delivered to one endpoint, including all of
// its retry attempts. Tasks are created by the dispatcher at publish
// time and mutated only by the delivery worker.
type Task struct {
	ID           string            `json:"id"`
	EventType    string            `json:"event_type"`
	Payload      json.RawMessage   `json:"payload"`
	EndpointID   string            `json:"endpoint_id"`
	Status       Status            `json:"status"`
	Attempt      int               `json:"attempt"`
	NextRetryAt  *time.Time        `json:"next_retry_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	TraceHeaders map[string]string `json:"trace_headers,omitempty"` // OTel trace propagation headers
}

var (
	// ErrQueueClosed is returned by Dequeue once the queue is closed
	// and drained.
	ErrQueueClosed = errors.New("delivery queue closed")

	// ErrCancelUnsupported is returned by queue backends that cannot
	// remove scheduled tasks eagerly; the worker's pre-attempt active
	// check makes their retries no-ops instead.
	ErrCancelUnsupported = errors.New("queue does not support cancellation")
)

// Queue is the delay queue feeding the delivery workers. Enqueue with a
// positive delay schedules the task to become dequeueable after that
// delay; retries re-enter the same queue the original task came from.
type Queue interface {
	Enqueue(ctx context.Context, t Task, delay time.Duration) error
	Dequeue(ctx context.Context) (Task, error)
	CancelEndpoint(ctx context.Context, endpointID string) error
	Close() error
}
