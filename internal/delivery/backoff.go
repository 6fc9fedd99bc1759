package delivery

import (
	"math/rand"
	"strings"
	"time"
)

// Retry defaults: three attempts per task, exponential gaps of
// 2^(n-1) seconds between them.
const DefaultMaxAttempts = 3

// DefaultBackoffSchedule returns the attempt-indexed retry delays.
func DefaultBackoffSchedule() []time.Duration {
	return []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
}

// computeDelay maps a 1-based attempt count onto the backoff schedule,
// clamping to the last entry, and applies +/- jitterPct jitter.
func computeDelay(attempt int, schedule []time.Duration, jitterPct float64) time.Duration {
	if len(schedule) == 0 {
		schedule = []time.Duration{time.Second}
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(schedule) {
		idx = len(schedule) - 1
	}
	base := schedule[idx]
	if jitterPct <= 0 {
		return base
	}
	j := 1 + (rand.Float64()*2-1)*jitterPct
	if j < 0.1 {
		j = 0.1
	}
	return time.Duration(float64(base) * j)
}

// classifyReason buckets a delivery failure for metrics and the ledger.
func classifyReason(doErr error, status int) string {
	if doErr != nil {
		errLower := strings.ToLower(doErr.Error())
		if strings.Contains(errLower, "timeout") || strings.Contains(errLower, "deadline exceeded") {
			return "timeout"
		}
		if strings.Contains(errLower, "connection refused") {
			return "connection_refused"
		}
		if strings.Contains(errLower, "no such host") || strings.Contains(errLower, "dns") {
			return "dns_error"
		}
		return "network"
	}
	if status >= 500 {
		return "http_5xx"
	}
	if status == 429 {
		return "http_429"
	}
	if status >= 400 {
		return "http_4xx"
	}
	return "other"
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
