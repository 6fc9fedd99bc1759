// Package service wires the endpoint registry, dispatcher, delivery
// workers and delivery ledger into one embeddable webhook subsystem.
// Callers construct a Service with their choice of store and queue
// backends, Start it, publish events, and Stop it on shutdown.
package service

import (
	"context"
	"net/http"
	"sync"

	"github.com/cambista/fxhooks/internal/clock"
	"github.com/cambista/fxhooks/internal/delivery"
	"github.com/cambista/fxhooks/internal/dispatch"
	"github.com/cambista/fxhooks/internal/endpoint"
	"github.com/cambista/fxhooks/internal/ledger"
	"github.com/cambista/fxhooks/internal/logging"
	"github.com/cambista/fxhooks/internal/queue"
	"github.com/cambista/fxhooks/internal/store"
)

// Options configures a Service. Zero values select sane defaults: an
// in-memory store and queue, one worker, the stock delivery config and
// a 1000-entry ledger.
type Options struct {
	Store            endpoint.Store
	Queue            delivery.Queue
	Clock            clock.Clock
	Logger           *logging.Logger
	HTTPClient       *http.Client
	Workers          int
	LedgerCapacity   int
	FailureThreshold int
	Delivery         delivery.Config
}

// Stats is a point-in-time snapshot of the subsystem.
type Stats struct {
	TotalEndpoints   int    `json:"total_endpoints"`
	ActiveEndpoints  int    `json:"active_endpoints"`
	TotalEvents      uint64 `json:"total_events"`
	SuccessfulEvents uint64 `json:"successful_events"`
	FailedEvents     uint64 `json:"failed_events"`
}

// Service is the top-level facade over the webhook subsystem.
type Service struct {
	registry   *endpoint.Registry
	dispatcher *dispatch.Dispatcher
	ledger     *ledger.Ledger
	queue      delivery.Queue
	workers    int
	worker     *delivery.Worker
	logger     *logging.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

// New assembles a Service from the given options.
func New(opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logging.New("fxhooks")
	}
	if opts.Store == nil {
		opts.Store = store.NewMemory()
	}
	if opts.Queue == nil {
		opts.Queue = queue.NewMemory(opts.Clock)
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.LedgerCapacity <= 0 {
		opts.LedgerCapacity = ledger.DefaultCapacity
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = endpoint.DefaultFailureThreshold
	}

	reg := endpoint.NewRegistry(opts.Store, opts.Clock, endpoint.NewTracker(opts.FailureThreshold))
	led := ledger.New(opts.LedgerCapacity)

	return &Service{
		registry:   reg,
		dispatcher: dispatch.NewDispatcher(reg, opts.Queue, opts.Clock, opts.Logger),
		ledger:     led,
		queue:      opts.Queue,
		workers:    opts.Workers,
		worker:     delivery.NewWorker(reg, led, opts.Queue, opts.HTTPClient, opts.Clock, opts.Logger, opts.Delivery),
		logger:     opts.Logger,
	}
}

// Start launches the delivery worker pool. It returns immediately.
func (s *Service) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)
		for i := 0; i < s.workers; i++ {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.worker.Run(ctx)
			}()
		}
		s.logger.Plain().WithField("workers", s.workers).Info("delivery workers started")
	})
}

// Stop closes the queue and waits for in-flight deliveries to finish.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		s.queue.Close()
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		s.logger.Plain().Info("delivery workers stopped")
	})
}

// AddEndpoint registers a webhook endpoint subscribed to the given
// event types. An empty secret means one is generated.
func (s *Service) AddEndpoint(ctx context.Context, url string, events []string, secret string) (endpoint.Endpoint, error) {
	return s.registry.Add(ctx, url, events, secret)
}

// RemoveEndpoint deletes the endpoint and cancels any scheduled
// deliveries to it. Backends that cannot cancel eagerly still converge:
// the worker re-checks registration before every attempt.
func (s *Service) RemoveEndpoint(ctx context.Context, id string) error {
	if err := s.registry.Remove(ctx, id); err != nil {
		return err
	}
	if err := s.queue.CancelEndpoint(ctx, id); err != nil && err != delivery.ErrCancelUnsupported {
		s.logger.Plain().WithEndpoint(id).WithError(err).Warn("cancel scheduled deliveries failed")
	}
	return nil
}

// UpdateEndpoint applies a partial update to an endpoint.
func (s *Service) UpdateEndpoint(ctx context.Context, id string, patch endpoint.Patch) (endpoint.Endpoint, error) {
	return s.registry.Update(ctx, id, patch)
}

// GetEndpoint returns a single endpoint by id.
func (s *Service) GetEndpoint(ctx context.Context, id string) (endpoint.Endpoint, error) {
	return s.registry.Get(ctx, id)
}

// ListEndpoints returns every registered endpoint.
func (s *Service) ListEndpoints(ctx context.Context) ([]endpoint.Endpoint, error) {
	return s.registry.List(ctx)
}

// Publish fans the event out to all matching active endpoints and
// returns how many deliveries were scheduled. It never blocks on
// delivery.
func (s *Service) Publish(ctx context.Context, eventType string, data any) (int, error) {
	return s.dispatcher.Publish(ctx, eventType, data)
}

// GetEventLog returns up to limit most recent delivery log entries,
// newest first. limit <= 0 means all retained entries.
func (s *Service) GetEventLog(limit int) []ledger.Entry {
	return s.ledger.Recent(limit)
}

// GetStats returns a snapshot of endpoint and delivery counters. The
// event counters are cumulative: they survive ledger eviction.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	eps, err := s.registry.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{TotalEndpoints: len(eps)}
	for _, ep := range eps {
		if ep.Active {
			st.ActiveEndpoints++
		}
	}
	st.TotalEvents, st.SuccessfulEvents, st.FailedEvents = s.ledger.Totals()
	return st, nil
}
