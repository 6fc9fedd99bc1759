package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/cambista/fxhooks/internal/clock"
	"github.com/cambista/fxhooks/internal/delivery"
)

// Memory is an in-process delay queue keyed by ready time. It is the
// default queue for embedded use and for deterministic tests: the
// injected Clock drives retry timing, so no busy-waiting and no real
// sleeps are needed.
type Memory struct {
	mu     sync.Mutex
	items  itemHeap
	seq    uint64
	clock  clock.Clock
	wake   chan struct{}
	closed bool
}

type item struct {
	task    delivery.Task
	readyAt time.Time
	seq     uint64 // FIFO tiebreak for equal ready times
}

type itemHeap []item

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].readyAt.Equal(h[j].readyAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].readyAt.Before(h[j].readyAt)
}
func (h itemHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)        { *h = append(*h, x.(item)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// NewMemory returns an empty in-process delay queue.
func NewMemory(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.Real()
	}
	return &Memory{clock: clk, wake: make(chan struct{})}
}

func (m *Memory) Enqueue(_ context.Context, t delivery.Task, delay time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return delivery.ErrQueueClosed
	}
	m.seq++
	heap.Push(&m.items, item{task: t, readyAt: m.clock.Now().Add(delay), seq: m.seq})
	m.broadcast()
	return nil
}

// Dequeue blocks until a task becomes ready, the context is canceled
// or the queue is closed.
func (m *Memory) Dequeue(ctx context.Context) (delivery.Task, error) {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return delivery.Task{}, delivery.ErrQueueClosed
		}
		var timer <-chan time.Time
		if len(m.items) > 0 {
			now := m.clock.Now()
			if !m.items[0].readyAt.After(now) {
				it := heap.Pop(&m.items).(item)
				m.mu.Unlock()
				return it.task, nil
			}
			timer = m.clock.After(m.items[0].readyAt.Sub(now))
		}
		wake := m.wake
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return delivery.Task{}, ctx.Err()
		case <-wake:
		case <-timer:
		}
	}
}

// CancelEndpoint drops every scheduled task addressed to endpointID,
// including pending retries whose timers have not fired yet.
func (m *Memory) CancelEndpoint(_ context.Context, endpointID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.items[:0]
	for _, it := range m.items {
		if it.task.EndpointID != endpointID {
			kept = append(kept, it)
		}
	}
	m.items = kept
	heap.Init(&m.items)
	return nil
}

// Len reports the number of scheduled tasks, ready or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.broadcast()
	return nil
}

// broadcast wakes every blocked Dequeue. Caller holds the mutex.
func (m *Memory) broadcast() {
	close(m.wake)
	m.wake = make(chan struct{})
}
