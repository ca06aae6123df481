package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice QA service
type Metrics struct {
	// Submission metrics
	SubmissionsAccepted prometheus.Counter
	SubmissionsRejected *prometheus.CounterVec

	// Dispatch pipeline metrics
	QueueDepth    prometheus.Gauge
	StageDuration *prometheus.HistogramVec
	StageFailures *prometheus.CounterVec
	JobsCompleted *prometheus.CounterVec

	// Question cache metrics
	CacheEntries   prometheus.Gauge
	CacheEvictions prometheus.Counter

	// Store metrics
	RecordsSaved *prometheus.CounterVec
	StoreErrors  prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Submission metrics
		SubmissionsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceqa_submissions_accepted_total",
			Help: "Total number of recording submissions accepted for processing",
		}),
		SubmissionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceqa_submissions_rejected_total",
			Help: "Total number of recording submissions rejected before processing",
		}, []string{"reason"}),

		// Dispatch pipeline metrics
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voiceqa_dispatch_queue_depth",
			Help: "Current number of jobs waiting in the dispatch queue",
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voiceqa_pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~2 minutes
		}, []string{"stage"}),
		StageFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceqa_pipeline_stage_failures_total",
			Help: "Total number of pipeline stage failures",
		}, []string{"stage"}),
		JobsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceqa_jobs_completed_total",
			Help: "Total number of jobs finished, by terminal outcome",
		}, []string{"outcome"}),

		// Question cache metrics
		CacheEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voiceqa_question_cache_entries",
			Help: "Current number of in-flight questions in the cache",
		}),
		CacheEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceqa_question_cache_evictions_total",
			Help: "Total number of cache entries evicted by the janitor",
		}),

		// Store metrics
		RecordsSaved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceqa_records_saved_total",
			Help: "Total number of conversation records written, by state",
		}, []string{"state"}),
		StoreErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceqa_store_errors_total",
			Help: "Total number of store operation failures",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceqa_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voiceqa_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceqa_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordSubmissionAccepted increments the accepted submissions counter
func (m *Metrics) RecordSubmissionAccepted() {
	m.SubmissionsAccepted.Inc()
}

// RecordSubmissionRejected increments the rejected submissions counter
func (m *Metrics) RecordSubmissionRejected(reason string) {
	m.SubmissionsRejected.WithLabelValues(reason).Inc()
}

// SetQueueDepth sets the current dispatch queue depth
func (m *Metrics) SetQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}

// RecordStageDuration records the duration of one pipeline stage
func (m *Metrics) RecordStageDuration(stage string, durationSeconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordStageFailure increments the failure counter for a pipeline stage
func (m *Metrics) RecordStageFailure(stage string) {
	m.StageFailures.WithLabelValues(stage).Inc()
}

// RecordJobCompleted records a job reaching a terminal outcome
func (m *Metrics) RecordJobCompleted(outcome string) {
	m.JobsCompleted.WithLabelValues(outcome).Inc()
}

// SetCacheEntries sets the current question cache size
func (m *Metrics) SetCacheEntries(count int) {
	m.CacheEntries.Set(float64(count))
}

// RecordCacheEvictions adds to the eviction counter after a janitor sweep
func (m *Metrics) RecordCacheEvictions(count int) {
	m.CacheEvictions.Add(float64(count))
}

// RecordRecordSaved increments the saved records counter for a state
func (m *Metrics) RecordRecordSaved(state string) {
	m.RecordsSaved.WithLabelValues(state).Inc()
}

// RecordStoreError increments the store errors counter
func (m *Metrics) RecordStoreError() {
	m.StoreErrors.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
