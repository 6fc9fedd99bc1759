package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cambista/fxhooks/internal/clock"
	"github.com/cambista/fxhooks/internal/delivery"
)

const (
	defaultRedisKey     = "fxhooks:delivery_queue"
	defaultPollInterval = 250 * time.Millisecond
)

// Redis is a delay queue backed by a sorted set scored by ready time
// in unix nanoseconds. Members become visible to Dequeue once the
// clock passes their score, so retries survive a process restart.
type Redis struct {
	client *redis.Client
	key    string
	clock  clock.Clock
	poll   time.Duration
	done   chan struct{}
}

// NewRedis builds a queue on top of an existing client. The caller
// retains ownership of the connection; Close only stops dequeuers.
func NewRedis(client *redis.Client, clk clock.Clock) *Redis {
	if clk == nil {
		clk = clock.Real()
	}
	return &Redis{
		client: client,
		key:    defaultRedisKey,
		clock:  clk,
		poll:   defaultPollInterval,
		done:   make(chan struct{}),
	}
}

func (q *Redis) Enqueue(ctx context.Context, t delivery.Task, delay time.Duration) error {
	select {
	case <-q.done:
		return delivery.ErrQueueClosed
	default:
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	score := float64(q.clock.Now().Add(delay).UnixNano())
	if err := q.client.ZAdd(ctx, q.key, redis.Z{Score: score, Member: string(data)}).Err(); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// Dequeue polls the sorted set for the oldest ready member. The
// member is claimed with ZRem; a zero removal count means another
// worker won the race and the poll simply repeats.
func (q *Redis) Dequeue(ctx context.Context) (delivery.Task, error) {
	for {
		select {
		case <-q.done:
			return delivery.Task{}, delivery.ErrQueueClosed
		default:
		}

		now := float64(q.clock.Now().UnixNano())
		results, err := q.client.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
			Min:    "-inf",
			Max:    fmt.Sprintf("%f", now),
			Offset: 0,
			Count:  1,
		}).Result()
		if err != nil {
			return delivery.Task{}, fmt.Errorf("poll queue: %w", err)
		}

		if len(results) > 0 {
			member := results[0]
			removed, err := q.client.ZRem(ctx, q.key, member).Result()
			if err != nil {
				return delivery.Task{}, fmt.Errorf("claim task: %w", err)
			}
			if removed > 0 {
				var t delivery.Task
				if err := json.Unmarshal([]byte(member), &t); err != nil {
					return delivery.Task{}, fmt.Errorf("unmarshal task: %w", err)
				}
				return t, nil
			}
			// Lost the claim race, try the next member immediately.
			continue
		}

		select {
		case <-ctx.Done():
			return delivery.Task{}, ctx.Err()
		case <-q.done:
			return delivery.Task{}, delivery.ErrQueueClosed
		case <-q.clock.After(q.poll):
		}
	}
}

// CancelEndpoint scans the set and removes every member addressed to
// endpointID. Members that fail to decode are left in place.
func (q *Redis) CancelEndpoint(ctx context.Context, endpointID string) error {
	members, err := q.client.ZRange(ctx, q.key, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("scan queue: %w", err)
	}
	for _, member := range members {
		var t delivery.Task
		if err := json.Unmarshal([]byte(member), &t); err != nil {
			continue
		}
		if t.EndpointID == endpointID {
			if err := q.client.ZRem(ctx, q.key, member).Err(); err != nil {
				return fmt.Errorf("remove task: %w", err)
			}
		}
	}
	return nil
}

func (q *Redis) Close() error {
	select {
	case <-q.done:
	default:
		close(q.done)
	}
	return nil
}
