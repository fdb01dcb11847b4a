package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VoiceSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_sessions_active",
		Help: "Number of voice sessions currently playing",
	})

	VoiceSessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_sessions_started_total",
		Help: "Total number of voice sessions started",
	}, []string{"trigger"})

	VoiceSessionsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_sessions_ended_total",
		Help: "Total number of voice sessions ended",
	}, []string{"reason"})

	VoiceConnectDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voice_connect_duration_seconds",
		Help:    "Duration of voice channel joins",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	LibraryReconcileChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_reconcile_changes_total",
		Help: "Registry entries and library directories changed by reconciliation",
	}, []string{"kind"})

	OperatorCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "operator_commands_total",
		Help: "Total number of operator commands handled",
	}, []string{"command", "status"})
)
