package endpoint

import (
	"testing"
	"time"
)

func TestTrackerDeactivatesAtThreshold(t *testing.T) {
	tr := NewTracker(3)
	ep := Endpoint{Active: true}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if tr.OnFailure(&ep, now) {
		t.Error("deactivated on first failure")
	}
	if tr.OnFailure(&ep, now) {
		t.Error("deactivated on second failure")
	}
	if !tr.OnFailure(&ep, now) {
		t.Error("not deactivated at threshold")
	}
	if ep.Active {
		t.Error("active flag not cleared")
	}
	if ep.ConsecutiveFailures != 3 {
		t.Errorf("counter: got %d, want 3", ep.ConsecutiveFailures)
	}
}

func TestTrackerSuccessResets(t *testing.T) {
	tr := NewTracker(3)
	ep := Endpoint{Active: true, ConsecutiveFailures: 2}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tr.OnSuccess(&ep, now)
	if ep.ConsecutiveFailures != 0 {
		t.Errorf("counter: got %d, want 0", ep.ConsecutiveFailures)
	}
	if ep.LastUsedAt == nil || !ep.LastUsedAt.Equal(now) {
		t.Errorf("LastUsedAt: got %v", ep.LastUsedAt)
	}

	// The streak is consecutive: failures after a success start over.
	if tr.OnFailure(&ep, now) {
		t.Error("deactivated immediately after reset")
	}
}

func TestTrackerZeroThresholdUsesDefault(t *testing.T) {
	tr := NewTracker(0)
	if tr.Threshold != DefaultFailureThreshold {
		t.Errorf("threshold: got %d, want %d", tr.Threshold, DefaultFailureThreshold)
	}
}
