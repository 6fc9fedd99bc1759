package ledger

import (
	"sync"
	"time"
)

// Outcome of a delivery attempt as recorded in the ledger.
type Status string

const (
	StatusSent     Status = "sent"
	StatusFailed   Status = "failed"
	StatusRetrying Status = "retrying"
)

// Terminal reports whether the status ends a task's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

// Entry is an immutable record of one delivery attempt outcome.
type Entry struct {
	ID         string        `json:"id"`
	TaskID     string        `json:"task_id"`
	EndpointID string        `json:"endpoint_id"`
	EventType  string        `json:"event_type"`
	URL        string        `json:"url"`
	Status     Status        `json:"status"`
	Attempt    int           `json:"attempt"`
	HTTPStatus int           `json:"http_status,omitempty"`
	Error      string        `json:"error,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Duration   time.Duration `json:"duration_ns,omitempty"`
	At         time.Time     `json:"at"`
}

// DefaultCapacity bounds ledger memory when no cap is configured.
const DefaultCapacity = 1000

// Ledger is an append-only, size-bounded log of delivery outcomes. It
// keeps cumulative terminal counters that survive eviction, so stats
// keep counting attempts after old entries age out of the ring.
type Ledger struct {
	mu      sync.RWMutex
	entries []Entry // ring buffer
	head    int     // next write position
	size    int
	cap     int

	total      uint64 // terminal entries recorded
	successful uint64
	failed     uint64
}

// New returns a Ledger retaining at most capacity entries.
func New(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{entries: make([]Entry, capacity), cap: capacity}
}

// Append records an entry, evicting the oldest once the cap is hit.
func (l *Ledger) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.head] = e
	l.head = (l.head + 1) % l.cap
	if l.size < l.cap {
		l.size++
	}

	if e.Status.Terminal() {
		l.total++
		if e.Status == StatusSent {
			l.successful++
		} else {
			l.failed++
		}
	}
}

// Recent returns up to limit entries, newest first. limit <= 0 returns
// everything retained.
func (l *Ledger) Recent(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > l.size {
		limit = l.size
	}
	out := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (l.head - i + l.cap) % l.cap
		out = append(out, l.entries[idx])
	}
	return out
}

// Len returns the number of retained entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Totals returns cumulative terminal attempt counts: total, successful
// and failed. One event fanned to three endpoints yields three counts.
func (l *Ledger) Totals() (total, successful, failed uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total, l.successful, l.failed
}
