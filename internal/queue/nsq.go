package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nsqio/go-nsq"

	"github.com/cambista/fxhooks/internal/delivery"
	"github.com/cambista/fxhooks/internal/logging"
)

// NSQConfig carries the addresses and names an NSQ-backed queue needs.
type NSQConfig struct {
	NsqdTCPAddr    string
	LookupHTTPAddr string
	Topic          string
	Channel        string
	MaxInFlight    int
}

// NSQ adapts an nsqd topic to the Queue interface. Delayed enqueues
// use DeferredPublish so nsqd holds the message until its retry time;
// the consumer feeds ready messages into a channel that Dequeue reads.
//
// Per-endpoint cancellation is not possible on this backend: messages
// already published to nsqd cannot be selectively withdrawn, so
// CancelEndpoint reports ErrCancelUnsupported and stale tasks are
// discarded by the worker's pre-attempt endpoint check instead.
type NSQ struct {
	producer *nsq.Producer
	consumer *nsq.Consumer
	topic    string
	tasks    chan delivery.Task
	done     chan struct{}
	logger   *logging.Logger

	closeOnce sync.Once
}

// NewNSQ connects a producer and a consumer and starts feeding tasks.
func NewNSQ(cfg NSQConfig, logger *logging.Logger) (*NSQ, error) {
	if cfg.Topic == "" {
		cfg.Topic = "fxhooks_deliveries"
	}
	if cfg.Channel == "" {
		cfg.Channel = "worker"
	}
	if cfg.MaxInFlight == 0 {
		cfg.MaxInFlight = 1000
	}
	if logger == nil {
		logger = logging.New("fxhooks")
	}

	prod, err := nsq.NewProducer(cfg.NsqdTCPAddr, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("nsq producer: %w", err)
	}

	conf := nsq.NewConfig()
	conf.MaxInFlight = cfg.MaxInFlight
	consumer, err := nsq.NewConsumer(cfg.Topic, cfg.Channel, conf)
	if err != nil {
		prod.Stop()
		return nil, fmt.Errorf("nsq consumer: %w", err)
	}

	q := &NSQ{
		producer: prod,
		consumer: consumer,
		topic:    cfg.Topic,
		tasks:    make(chan delivery.Task),
		done:     make(chan struct{}),
		logger:   logger,
	}

	consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
		var t delivery.Task
		if err := json.Unmarshal(m.Body, &t); err != nil {
			logger.Plain().WithError(err).Warn("dropping undecodable queue message")
			return nil // finish it, redelivery will not help
		}
		select {
		case q.tasks <- t:
			return nil
		case <-q.done:
			m.RequeueWithoutBackoff(0)
			return nil
		}
	}))

	// Connecting directly to nsqd forces channel creation instead of
	// the channel being lazily created on first publish.
	if err := consumer.ConnectToNSQD(cfg.NsqdTCPAddr); err != nil {
		prod.Stop()
		return nil, fmt.Errorf("connect to nsqd: %w", err)
	}
	if cfg.LookupHTTPAddr != "" {
		if err := consumer.ConnectToNSQLookupd(cfg.LookupHTTPAddr); err != nil {
			consumer.Stop()
			prod.Stop()
			return nil, fmt.Errorf("connect to lookupd: %w", err)
		}
	}

	return q, nil
}

func (q *NSQ) Enqueue(_ context.Context, t delivery.Task, delay time.Duration) error {
	select {
	case <-q.done:
		return delivery.ErrQueueClosed
	default:
	}
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if delay > 0 {
		if err := q.producer.DeferredPublish(q.topic, delay, body); err != nil {
			return fmt.Errorf("deferred publish: %w", err)
		}
		return nil
	}
	if err := q.producer.Publish(q.topic, body); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (q *NSQ) Dequeue(ctx context.Context) (delivery.Task, error) {
	select {
	case t := <-q.tasks:
		return t, nil
	case <-ctx.Done():
		return delivery.Task{}, ctx.Err()
	case <-q.done:
		return delivery.Task{}, delivery.ErrQueueClosed
	}
}

func (q *NSQ) CancelEndpoint(context.Context, string) error {
	return delivery.ErrCancelUnsupported
}

func (q *NSQ) Close() error {
	q.closeOnce.Do(func() {
		close(q.done)
		q.consumer.Stop()
		<-q.consumer.StopChan
		q.producer.Stop()
	})
	return nil
}
