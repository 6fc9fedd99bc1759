package endpoint

import "time"

// DefaultFailureThreshold is the consecutive-failure count at which an
// endpoint is automatically deactivated.
const DefaultFailureThreshold = 10

// Tracker holds the endpoint health policy: consecutive delivery
// failures deactivate an endpoint once the threshold is crossed, a
// single success resets the counter. There is no automatic
// reactivation; a manual Update with active=true resets the counter.
type Tracker struct {
	Threshold int
}

// NewTracker returns a Tracker with the given threshold, falling back
// to DefaultFailureThreshold for non-positive values.
func NewTracker(threshold int) Tracker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	return Tracker{Threshold: threshold}
}

// OnSuccess records a successful delivery to ep.
func (t Tracker) OnSuccess(ep *Endpoint, now time.Time) {
	ep.ConsecutiveFailures = 0
	ep.LastUsedAt = &now
}

// OnFailure records a terminal delivery failure to ep and reports
// whether the endpoint was deactivated by this failure.
func (t Tracker) OnFailure(ep *Endpoint, now time.Time) bool {
	ep.ConsecutiveFailures++
	ep.LastUsedAt = &now
	if ep.ConsecutiveFailures >= t.Threshold && ep.Active {
		ep.Active = false
		return true
	}
	return false
}
