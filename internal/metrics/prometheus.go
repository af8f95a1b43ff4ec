package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Submission queue metrics
	submissionQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "submission_queue_depth",
			Help: "Current length of a contest's submission queue",
		},
		[]string{"contest_id"},
	)

	batchesProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submission_batches_processed_total",
			Help: "Total number of submission batches processed",
		},
		[]string{"status"},
	)

	batchProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "submission_batch_processing_duration_seconds",
			Help:    "Duration of leaderboard aggregator batch processing",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"contest_id"},
	)

	// Grading worker metrics
	gradingPassDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grading_pass_duration_seconds",
			Help:    "Duration of a grading worker's rating-update pass over one contest",
			Buckets: []float64{.01, .05, .1, .5, 1, 2, 5, 10, 30},
		},
		[]string{"contest_id"},
	)

	contestsGradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contests_graded_total",
			Help: "Total number of contests graded by the rating engine",
		},
		[]string{"status"},
	)

	ratingDelta = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rating_delta",
			Help:    "Distribution of per-user rating deltas applied by a grading pass",
			Buckets: []float64{-200, -100, -50, -25, -10, 0, 10, 25, 50, 100, 200},
		},
		[]string{"contest_id"},
	)

	// Database metrics
	databaseConnectionsInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_in_use",
			Help: "Number of database connections currently in use",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		submissionQueueDepth,
		batchesProcessedTotal,
		batchProcessingDuration,
		gradingPassDuration,
		contestsGradedTotal,
		ratingDelta,
		databaseConnectionsInUse,
		databaseConnectionsIdle,
		databaseQueryDuration,
	)
}

// MetricsHandler returns a Prometheus HTTP handler for the metrics endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// HTTPMiddleware records request count and latency per method/endpoint/status.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(wrapper.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// QueueMetrics records submission-queue depth and batch-processing outcomes.
type QueueMetrics struct{}

func NewQueueMetrics() *QueueMetrics {
	return &QueueMetrics{}
}

func (qm *QueueMetrics) SetQueueDepth(contestID string, depth int64) {
	submissionQueueDepth.WithLabelValues(contestID).Set(float64(depth))
}

func (qm *QueueMetrics) IncrementBatchesProcessed(status string) {
	batchesProcessedTotal.WithLabelValues(status).Inc()
}

func (qm *QueueMetrics) ObserveBatchDuration(contestID string, duration time.Duration) {
	batchProcessingDuration.WithLabelValues(contestID).Observe(duration.Seconds())
}

// GradingMetrics records grading-pass outcomes and rating deltas.
type GradingMetrics struct{}

func NewGradingMetrics() *GradingMetrics {
	return &GradingMetrics{}
}

func (gm *GradingMetrics) ObservePassDuration(contestID string, duration time.Duration) {
	gradingPassDuration.WithLabelValues(contestID).Observe(duration.Seconds())
}

func (gm *GradingMetrics) IncrementContestsGraded(status string) {
	contestsGradedTotal.WithLabelValues(status).Inc()
}

func (gm *GradingMetrics) ObserveRatingDelta(contestID string, delta int) {
	ratingDelta.WithLabelValues(contestID).Observe(float64(delta))
}

// DatabaseMetrics records connection-pool and query-latency stats.
type DatabaseMetrics struct{}

func NewDatabaseMetrics() *DatabaseMetrics {
	return &DatabaseMetrics{}
}

func (dm *DatabaseMetrics) SetConnectionsInUse(count int) {
	databaseConnectionsInUse.Set(float64(count))
}

func (dm *DatabaseMetrics) SetConnectionsIdle(count int) {
	databaseConnectionsIdle.Set(float64(count))
}

func (dm *DatabaseMetrics) ObserveQueryDuration(operation string, duration time.Duration) {
	databaseQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
