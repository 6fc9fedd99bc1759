package store

import (
	"context"
	"sync"

	"github.com/cambista/fxhooks/internal/endpoint"
)

// Memory is an in-process endpoint store. It is the default backend for
// embedded use and tests; the registry layers its own mutation ordering
// on top, this mutex only guards the map itself.
type Memory struct {
	mu        sync.RWMutex
	endpoints map[string]endpoint.Endpoint
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{endpoints: make(map[string]endpoint.Endpoint)}
}

func (m *Memory) Put(_ context.Context, ep endpoint.Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ep.Events = append([]string(nil), ep.Events...)
	m.endpoints[ep.ID] = ep
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (endpoint.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ep, ok := m.endpoints[id]
	if !ok {
		return endpoint.Endpoint{}, endpoint.ErrNotFound
	}
	ep.Events = append([]string(nil), ep.Events...)
	return ep, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.endpoints[id]; !ok {
		return endpoint.ErrNotFound
	}
	delete(m.endpoints, id)
	return nil
}

func (m *Memory) List(_ context.Context) ([]endpoint.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]endpoint.Endpoint, 0, len(m.endpoints))
	for _, ep := range m.endpoints {
		ep.Events = append([]string(nil), ep.Events...)
		out = append(out, ep)
	}
	return out, nil
}

// Ping satisfies the health handler's prober interface.
func (m *Memory) Ping(_ context.Context) error { return nil }
