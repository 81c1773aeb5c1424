package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AuthEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photoshare_auth_events_total",
			Help: "Session lifecycle operations by outcome.",
		},
		[]string{"op", "outcome"},
	)
	HashDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photoshare_hash_duration_seconds",
			Help:    "Time spent in adaptive hash and verify calls.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"op"},
	)
	RefreshCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photoshare_refresh_candidates",
			Help:    "Active refresh records verified per redemption.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)
)

func Register(registry *prometheus.Registry) {
	registry.MustRegister(AuthEvents, HashDuration, RefreshCandidates)
}

func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func ObserveAuth(op, outcome string) {
	AuthEvents.WithLabelValues(op, outcome).Inc()
}

func ObserveHash(op string, elapsed time.Duration) {
	HashDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}
