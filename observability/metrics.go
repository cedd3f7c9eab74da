// Package observability groups the Prometheus instruments of the service.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all instruments for the turn pipeline.
type Metrics struct {
	TurnsTotal           prometheus.Counter
	DegradedAnswers      prometheus.Counter
	PersistFailures      prometheus.Counter
	HistoryFetchFailures prometheus.Counter
	TurnDuration         prometheus.Histogram
}

// NewMetrics registers all instruments under the given namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		TurnsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Turns processed, including degraded ones.",
		}),
		DegradedAnswers: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_answers_total",
			Help:      "Turns answered with a textual error instead of a generation result.",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Turn recorder upserts that failed.",
		}),
		HistoryFetchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_fetch_failures_total",
			Help:      "Persisted-history fetches that degraded to an empty set.",
		}),
		TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "End-to-end turn latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
	}
}

// ObserveTurn records one completed turn.
func (m *Metrics) ObserveTurn(d time.Duration) {
	m.TurnsTotal.Inc()
	m.TurnDuration.Observe(d.Seconds())
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
