package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "obix_build_info",
			Help: "Build information",
		},
		[]string{"component", "date", "sha", "version"},
	)

	clientRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obix_client_requests_total",
			Help: "Number of oBIX requests sent by the client",
		},
		[]string{"method", "outcome"},
	)

	clientRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "obix_client_request_duration_seconds",
			Help:    "Round trip time of oBIX requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	clientErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obix_client_errors_total",
			Help: "Errors recorded in client error histories",
		},
		[]string{"status"},
	)

	batchSubmits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obix_batch_submits_total",
			Help: "Number of batch submissions",
		},
		[]string{"outcome"},
	)

	batchItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obix_batch_items_total",
			Help: "Batch items submitted per operation",
		},
		[]string{"op"},
	)

	batchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "obix_batch_size",
			Help:    "Number of items per submitted batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	serverRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obix_sim_requests_total",
			Help: "Requests served by the oBIX simulator",
		},
		[]string{"op", "outcome"},
	)
)

// Register registers all metrics with the provided registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(buildInfo, clientRequests, clientRequestDuration, clientErrors, batchSubmits, batchItems, batchSize, serverRequests)
}

// SetBuildInfo sets the build info metric for a binary.
func SetBuildInfo(component, version, sha, date string) {
	buildInfo.WithLabelValues(component, date, sha, version).Set(1)
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordRequest increments the client request counter.
func RecordRequest(method string, success bool) {
	clientRequests.WithLabelValues(method, outcome(success)).Inc()
}

// ObserveRequestDuration records the duration of a client request.
func ObserveRequestDuration(method string, d time.Duration) {
	clientRequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordError counts an error recorded with the given status name.
func RecordError(status string) {
	clientErrors.WithLabelValues(status).Inc()
}

// RecordBatch counts a batch submission and its size.
func RecordBatch(items int, success bool) {
	batchSubmits.WithLabelValues(outcome(success)).Inc()
	batchSize.Observe(float64(items))
}

// RecordBatchItem counts one batch item of the given operation.
func RecordBatchItem(op string) {
	batchItems.WithLabelValues(op).Inc()
}

// RecordServed counts a request handled by the simulator.
func RecordServed(op string, success bool) {
	serverRequests.WithLabelValues(op, outcome(success)).Inc()
}
