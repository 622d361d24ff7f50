package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// JobTypeFeedback labels the feedback pipeline in the job metrics.
const JobTypeFeedback = "feedback"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider, operation and outcome",
		},
		[]string{"provider", "operation", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"provider", "operation"},
	)
	PromptTokens = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_prompt_tokens",
			Help:    "Prompt size in tokens",
			Buckets: prometheus.ExponentialBuckets(256, 2, 10),
		},
		[]string{"operation"},
	)

	JobsEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_enqueued_total",
			Help: "Total number of jobs enqueued",
		},
		[]string{"type"},
	)
	JobsProcessing = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jobs_processing",
			Help: "Number of jobs currently processing",
		},
		[]string{"type"},
	)
	JobsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_completed_total",
			Help: "Total number of jobs completed",
		},
		[]string{"type"},
	)
	JobsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_failed_total",
			Help: "Total number of jobs failed by failure code",
		},
		[]string{"type", "code"},
	)
	StuckJobsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_stuck_failed_total",
			Help: "Processing entries failed by the stuck-job sweeper",
		},
	)
	QueueRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_records_processed_total",
			Help: "Records handled by the feedback consumer by result code",
		},
		[]string{"topic", "code"},
	)
	SubmissionsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_submissions_rejected_total",
			Help: "Submissions rejected before a job was registered",
		},
		[]string{"code"},
	)

	ParseDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_parse_degraded_total",
			Help: "Completed parses that were empty, had no summary or carried anomalies",
		},
		[]string{"reason"},
	)
	FeedbackScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feedback_score",
			Help:    "Distribution of overall interview scores ([0,10])",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
	)
	FeedbackItemsHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feedback_items",
			Help:    "Number of feedback items per parsed completion",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	PersistenceCompensationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_persistence_compensations_total",
			Help: "Compensating deletes after a child insert failed, by outcome",
		},
		[]string{"outcome"},
	)
	OrphanedAggregates = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedback_orphaned_aggregates",
			Help: "Interview detail rows without a summary past the grace period",
		},
	)
)

var registerOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AIRequestsTotal,
			AIRequestDuration,
			PromptTokens,
			JobsEnqueuedTotal,
			JobsProcessing,
			JobsCompletedTotal,
			JobsFailedTotal,
			StuckJobsFailedTotal,
			QueueRecordsTotal,
			SubmissionsRejectedTotal,
			ParseDegradedTotal,
			FeedbackScoreHistogram,
			FeedbackItemsHistogram,
			PersistenceCompensationsTotal,
			OrphanedAggregates,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveAIRequest records one completion call.
func ObserveAIRequest(provider, operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	AIRequestsTotal.WithLabelValues(provider, operation, outcome).Inc()
	AIRequestDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
}

func EnqueueJob(jobType string) {
	JobsEnqueuedTotal.WithLabelValues(jobType).Inc()
}

func StartProcessingJob(jobType string) {
	JobsProcessing.WithLabelValues(jobType).Inc()
}

func CompleteJob(jobType string) {
	JobsProcessing.WithLabelValues(jobType).Dec()
	JobsCompletedTotal.WithLabelValues(jobType).Inc()
}

func FailJob(jobType, code string) {
	JobsProcessing.WithLabelValues(jobType).Dec()
	JobsFailedTotal.WithLabelValues(jobType, code).Inc()
}

// ObserveFeedback records the shape of a parsed aggregate.
func ObserveFeedback(items int, score int, scoreOK bool, degraded []string) {
	FeedbackItemsHistogram.Observe(float64(items))
	if scoreOK && score >= 0 && score <= 10 {
		FeedbackScoreHistogram.Observe(float64(score))
	}
	for _, reason := range degraded {
		ParseDegradedTotal.WithLabelValues(reason).Inc()
	}
}
