// Package metrics exposes the engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	candlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_generator_candles_total",
			Help: "Native candles received, by outcome",
		},
		[]string{"outcome"},
	)

	evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_generator_evaluations_total",
			Help: "Strategy evaluations by detection path",
		},
		[]string{"strategy", "path"},
	)

	skipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_generator_evaluation_skips_total",
			Help: "Evaluations skipped, by reason",
		},
		[]string{"reason"},
	)

	signalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_generator_signals_total",
			Help: "Signals emitted, by action",
		},
		[]string{"action"},
	)

	publishFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_generator_publish_failures_total",
			Help: "Failed bus publishes, by channel",
		},
		[]string{"channel"},
	)

	reconcileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_generator_reconcile_total",
			Help: "Reconciliation runs, by outcome",
		},
		[]string{"outcome"},
	)

	inPosition = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "signal_generator_in_position",
			Help: "1 while the engine holds a position",
		},
	)

	sessionResetsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signal_generator_session_resets_total",
			Help: "Session-start resets",
		},
	)
)

// RecordCandle counts a received candle with its outcome.
func RecordCandle(outcome string) {
	candlesTotal.WithLabelValues(outcome).Inc()
}

// RecordEvaluation counts a strategy invocation.
func RecordEvaluation(strategy, path string) {
	evaluationsTotal.WithLabelValues(strategy, path).Inc()
}

// RecordSkip counts a skipped evaluation.
func RecordSkip(reason string) {
	skipsTotal.WithLabelValues(reason).Inc()
}

// RecordSignal counts an emitted signal.
func RecordSignal(action string) {
	signalsTotal.WithLabelValues(action).Inc()
}

// RecordPublishFailure counts a failed publish.
func RecordPublishFailure(channel string) {
	publishFailuresTotal.WithLabelValues(channel).Inc()
}

// RecordReconcile counts a reconciliation outcome.
func RecordReconcile(outcome string) {
	reconcileTotal.WithLabelValues(outcome).Inc()
}

// SetInPosition updates the in-position gauge.
func SetInPosition(open bool) {
	if open {
		inPosition.Set(1)
		return
	}
	inPosition.Set(0)
}

// RecordSessionReset counts a session reset.
func RecordSessionReset() {
	sessionResetsTotal.Inc()
}
