// Package metrics holds the Prometheus collectors of the bridge service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "usdc_bridge"

var (
	// TransfersCreated counts accepted transfers by method and source/destination chain.
	TransfersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transfers_created_total",
		Help:      "Transfers created, by method and chain pair.",
	}, []string{"method", "source", "destination"})

	// TransferTransitions counts applied state transitions.
	TransferTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transfer_transitions_total",
		Help:      "Applied transfer state transitions.",
	}, []string{"method", "from", "to"})

	// TransferRejections counts requests refused by validation or transition guards.
	TransferRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transfer_rejections_total",
		Help:      "Transfer operations rejected, by operation and error code.",
	}, []string{"operation", "code"})

	// PollOutcomes counts poll results: advanced, unchanged, throttled, error.
	PollOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transfer_polls_total",
		Help:      "Transfer polls by outcome.",
	}, []string{"status", "outcome"})

	// CollaboratorDuration tracks latency of calls to signers, chain observers and attestation APIs.
	CollaboratorDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "collaborator_request_duration_seconds",
		Help:      "Latency of external collaborator calls.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"collaborator", "operation", "result"})

	// ActiveTransfers is the number of non-terminal transfers seen by the last poller run.
	ActiveTransfers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_transfers",
		Help:      "Non-terminal transfers found by the last poller run.",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// ObserveCollaborator records the latency of one collaborator call.
func ObserveCollaborator(collaborator, operation string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	CollaboratorDuration.WithLabelValues(collaborator, operation, result).Observe(time.Since(start).Seconds())
}
