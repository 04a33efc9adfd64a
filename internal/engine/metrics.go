package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTurns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "call_turns_total",
		Help: "Total turns processed",
	})

	metricSessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "call_sessions_started_total",
		Help: "Total sessions started",
	})

	metricSessionsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "call_sessions_ended_total",
		Help: "Total sessions ended, by first reason code",
	}, []string{"reason"})

	metricActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "call_actions_total",
		Help: "Decision actions taken",
	}, []string{"action"})

	metricExtractFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "call_extract_fallbacks_total",
		Help: "Turns where provider extraction fell back to the rule-based extractor",
	})

	metricWordingFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "call_wording_fallbacks_total",
		Help: "Turns where provider wording fell back to templates",
	})

	metricSilenceTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "call_silence_timeouts_total",
		Help: "Sessions closed by the silence watchdog",
	})

	metricFinalScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "call_final_score",
		Help:    "Opportunity score at call end",
		Buckets: prometheus.LinearBuckets(0, 1, 11),
	})

	metricTurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "call_turn_duration_ms",
		Help:    "Wall time to process one turn (ms)",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14),
	})
)
