// Package monitoring exposes Prometheus metrics for the assistant.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors tracked across all sessions.
type Metrics struct {
	TurnsTotal          prometheus.Counter
	ModelFailuresTotal  prometheus.Counter
	ExtractedItemsTotal prometheus.Counter
	PriceFallbacksTotal prometheus.Counter
	OrdersTotal         prometheus.Counter
	ActiveSessions      prometheus.Gauge
	ModelLatency        prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TurnsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "concierge_turns_total",
			Help: "Number of conversational turns processed.",
		}),
		ModelFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "concierge_model_failures_total",
			Help: "Number of turns where the language model produced no reply.",
		}),
		ExtractedItemsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "concierge_extracted_items_total",
			Help: "Number of item quantities extracted from user utterances.",
		}),
		PriceFallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "concierge_price_fallbacks_total",
			Help: "Number of menu items priced with the default unit price.",
		}),
		OrdersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "concierge_orders_finalized_total",
			Help: "Number of orders finalized.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "concierge_active_sessions",
			Help: "Number of live sessions.",
		}),
		ModelLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "concierge_model_latency_seconds",
			Help:    "Latency of language model completions.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.TurnsTotal,
		m.ModelFailuresTotal,
		m.ExtractedItemsTotal,
		m.PriceFallbacksTotal,
		m.OrdersTotal,
		m.ActiveSessions,
		m.ModelLatency,
	)
	return m
}
