package delivery

import "time"

const DeadLetterType = "delivery.dead_letter"

// DeadLetter is the structured record emitted when a task exhausts its
// attempt budget. It carries the full task snapshot so a failed
// delivery can be replayed by re-enqueueing the embedded task.
type DeadLetter struct {
	Type       string `json:"type"`    // "delivery.dead_letter"
	Version    string `json:"version"` // schema version
	At         string `json:"at"`      // RFC3339 time the record was emitted
	Reason     string `json:"reason"`  // failure bucket, see classifyReason
	Attempt    int    `json:"attempt"` // attempt count at terminal failure
	HTTPStatus int    `json:"http_status,omitempty"`
	LastError  string `json:"last_error,omitempty"`
	Task       Task   `json:"task"` // full delivery snapshot
}

func NewDeadLetter(t Task, httpStatus int, lastErr, reason string, at time.Time) DeadLetter {
	return DeadLetter{
		Type:       DeadLetterType,
		Version:    "v1",
		At:         at.UTC().Format(time.RFC3339Nano),
		Reason:     reason,
		Attempt:    t.Attempt,
		HTTPStatus: httpStatus,
		LastError:  lastErr,
		Task:       t,
	}
}
