// Package observability provides Prometheus metrics and structured logging.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	BarsIngested       prometheus.Counter
	CandidatesIngested prometheus.Counter
	FilesSkipped       prometheus.Counter
	RowErrors          *prometheus.CounterVec

	// Simulation metrics
	EpisodesSimulated prometheus.Counter
	CandidatesSkipped *prometheus.CounterVec
	TradeEvents       *prometheus.CounterVec
	ExitReasons       *prometheus.CounterVec
	StocksAdjusted    prometheus.Counter
	SupportResolved   prometheus.Counter

	// Run metrics
	RunsTotal       *prometheus.CounterVec
	PhaseDuration   *prometheus.HistogramVec
	ReportsWritten  *prometheus.CounterVec
	PortfolioProfit prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "breakout_backtest"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Ingestion metrics
		BarsIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "bars_ingested_total",
			Help:      "Total number of daily bars loaded",
		}),
		CandidatesIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "candidates_ingested_total",
			Help:      "Total number of breakout candidates loaded",
		}),
		FilesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "files_skipped_total",
			Help:      "Total number of source files skipped as already ingested",
		}),
		RowErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "row_errors_total",
			Help:      "Total number of rows rejected by kind",
		}, []string{"kind"}),

		// Simulation metrics
		EpisodesSimulated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "episodes_total",
			Help:      "Total number of episodes simulated to completion",
		}),
		CandidatesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "candidates_skipped_total",
			Help:      "Total number of candidates skipped by reason",
		}, []string{"reason"}),
		TradeEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "trade_events_total",
			Help:      "Total number of fills by trade type",
		}, []string{"trade_type"}),
		ExitReasons: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "exits_total",
			Help:      "Total number of terminal exits by reason",
		}, []string{"reason"}),
		StocksAdjusted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "stocks_adjusted_total",
			Help:      "Total number of stock histories back-adjusted",
		}),
		SupportResolved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "support_resolved_total",
			Help:      "Total number of candidates whose support level was derived from bars",
		}),

		// Run metrics
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by status",
		}, []string{"phase", "status"}),
		PhaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "phase_duration_seconds",
			Help:      "Backtest phase duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"phase"}),
		ReportsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "reports_written_total",
			Help:      "Total number of report files written by format",
		}, []string{"format"}),
		PortfolioProfit: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "portfolio_profit",
			Help:      "Portfolio profit of the most recent run",
		}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful backtest run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordSkip records a skipped candidate.
func (m *Metrics) RecordSkip(reason string) {
	m.CandidatesSkipped.WithLabelValues(reason).Inc()
}

// RecordEpisode records one completed episode and its fills.
func (m *Metrics) RecordEpisode(buys, sells int, exitReason string) {
	m.EpisodesSimulated.Inc()
	m.TradeEvents.WithLabelValues("BUY").Add(float64(buys))
	m.TradeEvents.WithLabelValues("SELL").Add(float64(sells))
	if exitReason != "" {
		m.ExitReasons.WithLabelValues(exitReason).Inc()
	}
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordRun records a run phase.
func (m *Metrics) RecordRun(phase, status string, durationSeconds float64) {
	m.RunsTotal.WithLabelValues(phase, status).Inc()
	m.PhaseDuration.WithLabelValues(phase).Observe(durationSeconds)
}
