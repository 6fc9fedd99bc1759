package dispatch

// Event types emitted by the platform. Endpoints subscribe to any
// subset of these; publishing an unknown type is permitted so new
// producers can roll out ahead of this list.
const (
	EventUserRegistered      = "user.registered"
	EventUserSuspended       = "user.suspended"
	EventKYCStatusChanged    = "kyc.status_changed"
	EventTransactionComplete = "transaction.completed"
	EventTransactionFailed   = "transaction.failed"
	EventExchangeRateUpdated = "exchange_rate.updated"
)

// KnownEventTypes lists every predefined event type, in a stable order
// suitable for CLI help output and API discovery responses.
func KnownEventTypes() []string {
	return []string{
		EventUserRegistered,
		EventUserSuspended,
		EventKYCStatusChanged,
		EventTransactionComplete,
		EventTransactionFailed,
		EventExchangeRateUpdated,
	}
}

// Known reports whether eventType is one of the predefined types.
func Known(eventType string) bool {
	for _, t := range KnownEventTypes() {
		if t == eventType {
			return true
		}
	}
	return false
}
