package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesTotal counts coordinator outcomes by status
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_messages_total",
			Help: "Total number of cross-chain messages handled by the coordinator",
		},
		[]string{"status"},
	)

	// SubmissionDuration tracks the time from preflight to receipt
	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_submission_duration_seconds",
			Help:    "Destination submission duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	// BlocksProcessed counts blocks processed on each chain
	BlocksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_blocks_processed_total",
			Help: "Total number of blocks processed",
		},
		[]string{"chain"},
	)

	// EventsDetected counts events detected on each chain
	EventsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_events_detected_total",
			Help: "Total number of bridge events detected",
		},
		[]string{"chain", "event_type"},
	)

	// EventsSkipped counts detected deposits that were dropped
	EventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_events_skipped_total",
			Help: "Total number of detected deposits dropped before submission",
		},
		[]string{"chain", "reason"},
	)

	// TransactionsSent counts transactions sent to each chain
	TransactionsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_transactions_sent_total",
			Help: "Total number of transactions sent",
		},
		[]string{"chain", "status"},
	)

	// PreflightFailures counts aborted submissions by failing check
	PreflightFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_preflight_failures_total",
			Help: "Total number of submissions aborted by a preflight check",
		},
		[]string{"check"},
	)

	// Confirmations counts destination confirmation events by kind
	Confirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_confirmations_total",
			Help: "Total number of destination confirmation events observed",
		},
		[]string{"kind"},
	)

	// ErrorsTotal counts errors by type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// GasUsed tracks gas used for destination transactions
	GasUsed = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_gas_used",
			Help:    "Gas used for destination transactions",
			Buckets: []float64{21000, 50000, 100000, 200000, 300000, 500000},
		},
		[]string{"operation"},
	)

	// LastProcessedBlock tracks the last processed block number
	LastProcessedBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bridge_last_processed_block",
			Help: "Last processed block number by chain",
		},
		[]string{"chain"},
	)

	// RelayerRunning is 1 while the orchestrator is running
	RelayerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_relayer_running",
			Help: "Whether the relayer orchestrator is running",
		},
	)
)
