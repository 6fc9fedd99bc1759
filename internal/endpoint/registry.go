package endpoint

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/cambista/fxhooks/internal/clock"
)

// Registry is the single source of truth for endpoint state. All
// mutations are serialized through its mutex so delivery workers and
// management calls cannot race on active flags or failure counters.
type Registry struct {
	mu      sync.Mutex
	store   Store
	clock   clock.Clock
	tracker Tracker
}

// NewRegistry builds a Registry on top of the given store.
func NewRegistry(store Store, clk clock.Clock, tracker Tracker) *Registry {
	if clk == nil {
		clk = clock.Real()
	}
	return &Registry{store: store, clock: clk, tracker: tracker}
}

// generateSecret generates a random base64-encoded string of n bytes
func generateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Add registers a new endpoint. The secret is generated when omitted.
// Registering a URL that is already present is rejected.
func (r *Registry) Add(ctx context.Context, rawURL string, events []string, secret string) (Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := validateURL(rawURL); err != nil {
		return Endpoint{}, err
	}
	if len(events) == 0 {
		return Endpoint{}, ErrEmptyEventSet
	}

	existing, err := r.store.List(ctx)
	if err != nil {
		return Endpoint{}, fmt.Errorf("list endpoints: %w", err)
	}
	for _, ep := range existing {
		if ep.URL == rawURL {
			return Endpoint{}, ErrDuplicateURL
		}
	}

	if secret == "" {
		secret, err = generateSecret(32) // 256-bit
		if err != nil {
			return Endpoint{}, err
		}
	}

	ep := Endpoint{
		ID:        uuid.NewString(),
		URL:       rawURL,
		Events:    append([]string(nil), events...),
		Secret:    secret,
		Active:    true,
		CreatedAt: r.clock.Now().UTC(),
	}
	if err := r.store.Put(ctx, ep); err != nil {
		return Endpoint{}, fmt.Errorf("persist endpoint: %w", err)
	}
	return ep, nil
}

// Remove deletes an endpoint. Pending tasks addressed to it are
// abandoned by the delivery worker's pre-attempt check; callers holding
// a cancellable queue should also cancel eagerly.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.store.Get(ctx, id); err != nil {
		return err
	}
	return r.store.Delete(ctx, id)
}

// Update applies a partial update. Reactivating an endpoint resets its
// consecutive-failure counter.
func (r *Registry) Update(ctx context.Context, id string, patch Patch) (Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ep, err := r.store.Get(ctx, id)
	if err != nil {
		return Endpoint{}, err
	}

	if patch.URL != nil {
		if err := validateURL(*patch.URL); err != nil {
			return Endpoint{}, err
		}
		ep.URL = *patch.URL
	}
	if patch.Events != nil {
		if len(patch.Events) == 0 {
			return Endpoint{}, ErrEmptyEventSet
		}
		ep.Events = append([]string(nil), patch.Events...)
	}
	if patch.Secret != nil && *patch.Secret != "" {
		ep.Secret = *patch.Secret
	}
	if patch.Active != nil {
		if *patch.Active && !ep.Active {
			ep.ConsecutiveFailures = 0
		}
		ep.Active = *patch.Active
	}

	if err := r.store.Put(ctx, ep); err != nil {
		return Endpoint{}, fmt.Errorf("persist endpoint: %w", err)
	}
	return ep, nil
}

// Get returns the endpoint with the given id.
func (r *Registry) Get(ctx context.Context, id string) (Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Get(ctx, id)
}

// List returns all registered endpoints in unspecified order.
func (r *Registry) List(ctx context.Context) ([]Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.List(ctx)
}

// MatchingActive returns every active endpoint subscribed to eventType.
// Callers must not depend on ordering.
func (r *Registry) MatchingActive(ctx context.Context, eventType string) ([]Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Endpoint
	for _, ep := range all {
		if ep.Active && ep.Subscribed(eventType) {
			out = append(out, ep)
		}
	}
	return out, nil
}

// RecordSuccess resets the endpoint's failure counter after a
// successful delivery.
func (r *Registry) RecordSuccess(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ep, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	r.tracker.OnSuccess(&ep, r.clock.Now().UTC())
	return r.store.Put(ctx, ep)
}

// RecordFailure counts a terminal delivery failure and reports whether
// the endpoint was auto-deactivated by crossing the failure threshold.
func (r *Registry) RecordFailure(ctx context.Context, id string) (deactivated bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ep, err := r.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	deactivated = r.tracker.OnFailure(&ep, r.clock.Now().UTC())
	if err := r.store.Put(ctx, ep); err != nil {
		return false, err
	}
	return deactivated, nil
}

func validateURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
