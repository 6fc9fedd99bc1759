package endpoint

import (
	"context"
	"errors"
	"time"
)

// Registration and update failures surfaced synchronously to management
// callers. Delivery failures are never reported through these.
var (
	ErrNotFound      = errors.New("endpoint not found")
	ErrInvalidURL    = errors.New("invalid endpoint url")
	ErrEmptyEventSet = errors.New("at least one event type is required")
	ErrDuplicateURL  = errors.New("endpoint url already registered")
)

// Endpoint is a registered webhook delivery target.
type Endpoint struct {
	ID                  string     `json:"id"`
	URL                 string     `json:"url"`
	Events              []string   `json:"events"`
	Secret              string     `json:"secret,omitempty"`
	Active              bool       `json:"active"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	CreatedAt           time.Time  `json:"created_at"`
	LastUsedAt          *time.Time `json:"last_used_at,omitempty"`
}

// Subscribed reports whether the endpoint is subscribed to eventType.
func (e Endpoint) Subscribed(eventType string) bool {
	for _, ev := range e.Events {
		if ev == eventType {
			return true
		}
	}
	return false
}

// Patch is a partial endpoint update. Nil fields are left untouched.
type Patch struct {
	URL    *string  `json:"url,omitempty"`
	Events []string `json:"events,omitempty"`
	Active *bool    `json:"active,omitempty"`
	Secret *string  `json:"secret,omitempty"`
}

// Store is the persistence abstraction behind the registry. Get returns
// ErrNotFound for unknown ids; implementations return copies, never
// shared pointers.
type Store interface {
	Put(ctx context.Context, ep Endpoint) error
	Get(ctx context.Context, id string) (Endpoint, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Endpoint, error)
}
