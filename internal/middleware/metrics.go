package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Message metrics
	messagesAdded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messenger_messages_added_total",
		Help: "Total number of messages appended to the log",
	}, []string{"type"})

	messagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messenger_sends_total",
		Help: "Total number of user sends",
	}, []string{"kind"})

	// Speech metrics
	utterancesSpoken = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messenger_utterances_spoken_total",
		Help: "Total number of utterance chunks handed to speech output",
	})

	dictationToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messenger_dictation_toggles_total",
		Help: "Total number of speech input toggles",
	}, []string{"direction"})

	// Attachment metrics
	attachmentsEncoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messenger_attachments_encoded_total",
		Help: "Total number of attachment encode attempts",
	}, []string{"status"})

	attachmentEncodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "messenger_attachment_encode_duration_seconds",
		Help:    "Duration of attachment encoding",
		Buckets: prometheus.DefBuckets,
	})

	// Rate limit metrics
	rateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messenger_rate_limit_exceeded_total",
		Help: "Total number of rate limit exceeded events",
	}, []string{"client"})

	// Storage metrics
	storageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messenger_storage_operations_total",
		Help: "Total number of storage operations",
	}, []string{"operation", "status"})

	storageOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "messenger_storage_operation_duration_seconds",
		Help:    "Duration of storage operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// Active sessions gauge
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "messenger_active_sessions",
		Help: "Number of mounted widget sessions",
	})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordMessageAdded records a message appended to the log
func (m *Metrics) RecordMessageAdded(msgType string) {
	messagesAdded.WithLabelValues(msgType).Inc()
}

// RecordSend records a user send; kind is "text" or "image"
func (m *Metrics) RecordSend(kind string) {
	messagesSent.WithLabelValues(kind).Inc()
}

// RecordUtterance records one spoken chunk
func (m *Metrics) RecordUtterance() {
	utterancesSpoken.Inc()
}

// RecordDictationToggle records a speech input toggle
func (m *Metrics) RecordDictationToggle(started bool) {
	direction := "stop"
	if started {
		direction = "start"
	}
	dictationToggles.WithLabelValues(direction).Inc()
}

// RecordAttachmentEncode records an attachment encode attempt
func (m *Metrics) RecordAttachmentEncode(status string, duration time.Duration) {
	attachmentsEncoded.WithLabelValues(status).Inc()
	attachmentEncodeDuration.Observe(duration.Seconds())
}

// RecordRateLimitExceeded records a rate limit exceeded event
func (m *Metrics) RecordRateLimitExceeded(client string) {
	rateLimitExceeded.WithLabelValues(client).Inc()
}

// RecordStorageOperation records a storage operation
func (m *Metrics) RecordStorageOperation(operation, status string, duration time.Duration) {
	storageOperations.WithLabelValues(operation, status).Inc()
	storageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetActiveSessions sets the number of mounted sessions
func (m *Metrics) SetActiveSessions(count float64) {
	activeSessions.Set(count)
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
