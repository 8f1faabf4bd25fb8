// Package metrics holds the Prometheus collectors shared by the scoring run and
// the job runner.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	SymbolsProcessed prometheus.Counter
	SymbolsFailed    *prometheus.CounterVec
	APICalls         prometheus.Counter
	ScoresGenerated  prometheus.Counter
	SignalsGenerated prometheus.Counter
	ScoreValue       prometheus.Histogram

	Runs        *prometheus.CounterVec
	RunDuration prometheus.Histogram

	Jobs        *prometheus.CounterVec
	JobRetries  *prometheus.CounterVec
	QueueDepth  prometheus.Gauge
	HealthScore prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SymbolsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scoring_symbols_processed_total",
			Help: "Symbols scored successfully",
		}),
		SymbolsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoring_symbols_failed_total",
			Help: "Symbols that could not be scored, by reason",
		}, []string{"reason"}),
		APICalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scoring_provider_api_calls_total",
			Help: "Upstream data-provider calls",
		}),
		ScoresGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scoring_scores_generated_total",
			Help: "Scores appended to history",
		}),
		SignalsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scoring_signals_generated_total",
			Help: "Significant-move signals raised",
		}),
		ScoreValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scoring_score_value",
			Help:    "Distribution of final scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoring_runs_total",
			Help: "Closed runs by final status",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scoring_run_duration_seconds",
			Help:    "Wall time of a run",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		Jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoring_jobs_total",
			Help: "Executed queue items by action and outcome",
		}, []string{"action", "outcome"}),
		JobRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoring_job_retries_total",
			Help: "Queue items re-enqueued after a transient failure",
		}, []string{"action"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scoring_queue_depth",
			Help: "Items waiting in the job queue",
		}),
		HealthScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scoring_health_score",
			Help: "Health score 0-100",
		}),
	}

	reg.MustRegister(
		m.SymbolsProcessed,
		m.SymbolsFailed,
		m.APICalls,
		m.ScoresGenerated,
		m.SignalsGenerated,
		m.ScoreValue,
		m.Runs,
		m.RunDuration,
		m.Jobs,
		m.JobRetries,
		m.QueueDepth,
		m.HealthScore,
	)
	return m
}
