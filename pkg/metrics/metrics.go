// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// SessionsStarted tracks quote sessions initialized.
	SessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_sessions_started_total",
			Help: "Quote sessions initialized",
		},
		[]string{"company_id"},
	)

	// SessionsActive tracks sessions currently held in the store.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quote_sessions_active",
			Help: "Quote sessions currently active",
		},
	)

	// StepsCompleted tracks successful step transitions by step id.
	StepsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_steps_completed_total",
			Help: "Successful dialogue step transitions",
		},
		[]string{"step"},
	)

	// ValidationFailures tracks rejected inputs by step id.
	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_validation_failures_total",
			Help: "Inputs rejected by step validators",
		},
		[]string{"step"},
	)

	// LoopsDetected tracks loop-recovery responses emitted.
	LoopsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quote_loops_detected_total",
			Help: "Repeated-input loops detected",
		},
	)

	// StuckSessions tracks sessions flagged as stuck.
	StuckSessions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quote_sessions_stuck_total",
			Help: "Sessions flagged as stuck",
		},
	)

	// FallbacksApplied tracks fallback defaults applied after retry exhaustion.
	FallbacksApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_fallbacks_applied_total",
			Help: "Fallback defaults applied after retry exhaustion",
		},
		[]string{"step"},
	)

	// QuotesFinalized tracks completed quotes by completion mode.
	QuotesFinalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotes_finalized_total",
			Help: "Quotes finalized",
		},
		[]string{"company_id", "mode"},
	)

	// QuoteValue tracks the distribution of final quote amounts.
	QuoteValue = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quote_final_price_dollars",
			Help:    "Final quoted price in dollars",
			Buckets: []float64{250, 500, 1000, 2500, 5000, 10000, 25000, 50000},
		},
	)

	// SessionsExpired tracks sessions removed by expiry cleanup.
	SessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quote_sessions_expired_total",
			Help: "Sessions removed by expiry cleanup",
		},
	)

	// LLMEnrichmentDuration tracks prompt-enrichment latency.
	LLMEnrichmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_enrichment_duration_seconds",
			Help:    "Prompt enrichment latency",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10},
		},
		[]string{"provider", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordFinalized records a finalized quote and its value.
func RecordFinalized(companyID, mode string, finalPrice float64) {
	QuotesFinalized.WithLabelValues(companyID, mode).Inc()
	QuoteValue.Observe(finalPrice)
}

// RecordEnrichment records one LLM prompt-enrichment attempt.
func RecordEnrichment(provider, status string, seconds float64) {
	LLMEnrichmentDuration.WithLabelValues(provider, status).Observe(seconds)
}
