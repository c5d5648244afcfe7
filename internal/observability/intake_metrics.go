package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Intake pipeline collectors. Label values come from closed sets (intents,
// priorities, stage names, warning kinds) so cardinality stays bounded.
var (
	intakeMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_messages_total",
			Help: "Inbound resident messages processed, by classified intent and priority.",
		},
		[]string{"intent", "priority"},
	)

	intakeFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intake_classification_fallbacks_total",
			Help: "Messages that fell back to the conservative verdict because classification failed.",
		},
	)

	intakeWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_dispatch_warnings_total",
			Help: "Non-fatal dispatch failures, by kind.",
		},
		[]string{"kind"},
	)

	intakeStage = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intake_stage_duration_seconds",
			Help:    "Duration of each intake stage in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(intakeMessages, intakeFallbacks, intakeWarnings, intakeStage)
}

// CountIntake records one processed message.
func CountIntake(intent, priority string) {
	intakeMessages.WithLabelValues(intent, priority).Inc()
}

// CountClassificationFallback records one classifier fallback.
func CountClassificationFallback() { intakeFallbacks.Inc() }

// CountDispatchWarning records one dispatch warning of the given kind.
func CountDispatchWarning(kind string) {
	intakeWarnings.WithLabelValues(kind).Inc()
}

// ObserveStage records how long an intake stage took since start.
func ObserveStage(stage string, start time.Time) {
	intakeStage.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
