// Package metrics provides Prometheus metrics for the attendance service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "salahstreak"

var registry = prometheus.NewRegistry()

// GetRegistry returns the registry all service metrics are registered on.
func GetRegistry() *prometheus.Registry {
	return registry
}

var (
	// Ingest pipeline.
	punchesAccepted = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "punches_accepted_total",
		Help:      "Punch records accepted for ingestion.",
	})
	punchesDuplicate = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "punches_duplicate_total",
		Help:      "Punch records acknowledged as replays of seen record IDs.",
	})
	punchesUnmatched = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "punches_unmatched_total",
		Help:      "Punch records whose identifier matched no participant.",
	})
	punchesStored = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "punches_stored_total",
		Help:      "Punch records persisted as check-ins.",
	})
	ingestQueueSize = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ingest_queue_size",
		Help:      "Punch records currently buffered for ingestion.",
	})
	ingestBackpressure = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_backpressure_total",
		Help:      "Punch records rejected because the ingest queue was full.",
	})

	// Scoring.
	scoringRuns = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scoring_runs_total",
		Help:      "Completed score-processing runs.",
	})
	scoringRunErrors = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scoring_run_errors_total",
		Help:      "Score-processing runs aborted by an error.",
	})
	scoringRunDuration = promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scoring_run_duration_seconds",
		Help:      "Duration of score-processing runs.",
		Buckets:   prometheus.DefBuckets,
	})
	scoreRowsWritten = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "score_rows_written_total",
		Help:      "Score rows created or overwritten.",
	})

	// Rounds.
	roundsCreated = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rounds_created_total",
		Help:      "Competition rounds created.",
	})
	roundsCompleted = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rounds_completed_total",
		Help:      "Competition rounds moved to completed.",
	})
	winnersSelected = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "winners_selected_total",
		Help:      "Winner rows committed by round completion.",
	})

	// HTTP surface.
	httpRequests = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method, and status.",
	}, []string{"endpoint", "method", "status"})
	httpRequestDuration = promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by endpoint and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "method"})
)

func RecordPunchAccepted()        { punchesAccepted.Inc() }
func RecordPunchDuplicate()       { punchesDuplicate.Inc() }
func RecordPunchUnmatched()       { punchesUnmatched.Inc() }
func RecordPunchStored()          { punchesStored.Inc() }
func UpdateIngestQueueSize(n int) { ingestQueueSize.Set(float64(n)) }
func RecordIngestBackpressure()   { ingestBackpressure.Inc() }

func RecordScoringRun(d time.Duration) {
	scoringRuns.Inc()
	scoringRunDuration.Observe(d.Seconds())
}
func RecordScoringRunError()  { scoringRunErrors.Inc() }
func AddScoreRowsWritten(n int) { scoreRowsWritten.Add(float64(n)) }

func RecordRoundCreated()   { roundsCreated.Inc() }
func RecordRoundCompleted() { roundsCompleted.Inc() }
func AddWinnersSelected(n int) { winnersSelected.Add(float64(n)) }

func RecordHTTPRequest(endpoint, method, status string) {
	httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method string, d time.Duration) {
	httpRequestDuration.WithLabelValues(endpoint, method).Observe(d.Seconds())
}
