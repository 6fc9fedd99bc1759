package delivery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"
)

func TestComputeDelaySchedule(t *testing.T) {
	schedule := DefaultBackoffSchedule()

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"first retry", 1, 1 * time.Second},
		{"second retry", 2, 2 * time.Second},
		{"third retry", 3, 4 * time.Second},
		{"beyond schedule clamps to last", 7, 4 * time.Second},
		{"zero attempt clamps to first", 0, 1 * time.Second},
		{"negative attempt clamps to first", -3, 1 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeDelay(tt.attempt, schedule, 0)
			if got != tt.want {
				t.Errorf("computeDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestComputeDelayJitterBounds(t *testing.T) {
	schedule := []time.Duration{10 * time.Second}
	for i := 0; i < 100; i++ {
		got := computeDelay(1, schedule, 0.2)
		if got < 8*time.Second || got > 12*time.Second {
			t.Fatalf("jittered delay %v outside [8s, 12s]", got)
		}
	}
}

func TestComputeDelayEmptySchedule(t *testing.T) {
	if got := computeDelay(1, nil, 0); got != time.Second {
		t.Errorf("empty schedule fallback: got %v, want 1s", got)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyReason(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		want   string
	}{
		{"net timeout", &net.OpError{Op: "dial", Err: timeoutErr{}}, 0, "timeout"},
		{"context deadline", context.DeadlineExceeded, 0, "timeout"},
		{"wrapped deadline", fmt.Errorf("do: %w", context.DeadlineExceeded), 0, "timeout"},
		{"connection refused", errors.New("dial tcp 127.0.0.1:9: connect: connection refused"), 0, "connection_refused"},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "nope.invalid"}, 0, "dns_error"},
		{"other transport error", errors.New("EOF"), 0, "network"},
		{"server error", nil, 503, "http_5xx"},
		{"rate limited", nil, 429, "http_429"},
		{"client error", nil, 404, "http_4xx"},
		{"unexpected status", nil, 302, "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyReason(tt.err, tt.status); got != tt.want {
				t.Errorf("classifyReason(%v, %d) = %q, want %q", tt.err, tt.status, got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.AttemptTimeout != 10*time.Second {
		t.Errorf("AttemptTimeout = %v, want 10s", cfg.AttemptTimeout)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(cfg.BackoffSchedule) != len(want) {
		t.Fatalf("schedule length = %d, want %d", len(cfg.BackoffSchedule), len(want))
	}
	for i := range want {
		if cfg.BackoffSchedule[i] != want[i] {
			t.Errorf("schedule[%d] = %v, want %v", i, cfg.BackoffSchedule[i], want[i])
		}
	}
}
