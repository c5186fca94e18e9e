package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricSequenceMatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edgeroute",
		Name:      "sequence_matches_total",
		Help:      "Completed secret sequences by sequence id.",
	}, []string{"sequence"})
	metricUnlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edgeroute",
		Name:      "achievements_unlocked_total",
		Help:      "Achievement unlocks by achievement id.",
	}, []string{"achievement"})
	metricInputs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edgeroute",
		Name:      "input_events_total",
		Help:      "Input events received by kind.",
	}, []string{"kind"})
	metricInputsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "edgeroute",
		Name:      "input_events_rejected_total",
		Help:      "Input events rejected by the per-session rate limit.",
	})
	metricActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "edgeroute",
		Name:      "sessions_active",
		Help:      "Number of live easter-egg sessions.",
	})
)

func SequenceMatched(id string) {
	metricSequenceMatches.WithLabelValues(id).Inc()
}

func AchievementUnlocked(id string) {
	metricUnlocks.WithLabelValues(id).Inc()
}

func InputReceived(kind string) {
	metricInputs.WithLabelValues(kind).Inc()
}

func InputRejected() {
	metricInputsRejected.Inc()
}

func SetActiveSessions(n int) {
	metricActiveSessions.Set(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
