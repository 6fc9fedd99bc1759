package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxhooks_events_published_total",
			Help: "Total number of events published.",
		},
		[]string{"event_type"},
	)

	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxhooks_deliveries_total",
			Help: "Total number of delivery attempts by outcome.",
		},
		[]string{"status"}, // sent, failed, retrying, abandoned
	)

	RetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxhooks_retries_total",
			Help: "Total number of delivery retries by reason.",
		},
		[]string{"reason"}, // e.g. http_5xx, timeout, network, other
	)

	EndpointDeactivationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fxhooks_endpoint_deactivations_total",
			Help: "Total number of endpoints auto-deactivated after consecutive failures.",
		},
	)

	DeliveryLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fxhooks_delivery_latency_seconds",
			Help:    "Latency of webhook HTTP delivery attempts.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(EventsPublishedTotal, DeliveriesTotal, RetriesTotal, EndpointDeactivationsTotal, DeliveryLatency)
}

// RecordEventPublished increments the published-event counter.
func RecordEventPublished(eventType string) {
	EventsPublishedTotal.WithLabelValues(eventType).Inc()
}

// RecordDelivery counts one delivery attempt outcome and its latency.
func RecordDelivery(status string, latencySeconds float64) {
	DeliveriesTotal.WithLabelValues(status).Inc()
	if latencySeconds > 0 {
		DeliveryLatency.Observe(latencySeconds)
	}
}

// RecordRetry counts a scheduled retry by failure reason.
func RecordRetry(reason string) {
	RetriesTotal.WithLabelValues(reason).Inc()
}

// RecordDeactivation counts an automatic endpoint deactivation.
func RecordDeactivation() {
	EndpointDeactivationsTotal.Inc()
}
