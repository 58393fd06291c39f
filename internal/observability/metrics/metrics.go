// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_interview_session"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal  *prometheus.CounterVec
	SessionsActive prometheus.Gauge

	// Turn metrics
	StateTransitions *prometheus.CounterVec
	TurnsTotal       *prometheus.CounterVec
	TurnLatency      prometheus.Histogram
	QuestionsAsked   prometheus.Histogram

	// Playback metrics
	PlaybackOutcomes *prometheus.CounterVec

	// Capture metrics
	CaptureRestarts  *prometheus.CounterVec
	CaptureFaults    prometheus.Counter
	CaptureFragments *prometheus.CounterVec

	// Frame metrics
	FramesSampled prometheus.Counter
	FramesDropped *prometheus.CounterVec
	FrameUploads  *prometheus.CounterVec
	FrameBytes    prometheus.Histogram

	// Dialogue metrics
	DialogueRequests *prometheus.CounterVec
	DialogueLatency  *prometheus.HistogramVec

	// Kafka publish metrics
	KafkaPublishTotal  *prometheus.CounterVec
	KafkaPublishErrors *prometheus.CounterVec

	// gRPC metrics
	GRPCRequests *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of interview sessions by outcome",
		}, []string{"outcome"}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently running interview sessions",
		}),

		StateTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Turn state machine transitions",
		}, []string{"from", "to"}),
		TurnsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Submitted turns by result",
		}, []string{"result"}),
		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_seconds",
			Help:      "Time from answer submission to dialogue response",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		QuestionsAsked: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "questions_per_session",
			Help:      "Question count reached when a session ends",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}),

		PlaybackOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_outcomes_total",
			Help:      "How question playback settled",
		}, []string{"outcome"}),

		CaptureRestarts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_restarts_total",
			Help:      "Speech recognition restarts",
		}, []string{"reason"}),
		CaptureFaults: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_faults_total",
			Help:      "Speech capture faults after exhausted restarts",
		}),
		CaptureFragments: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_fragments_total",
			Help:      "Transcript fragments received from the recognizer",
		}, []string{"type"}),

		FramesSampled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sampled_total",
			Help:      "Camera frames sampled",
		}),
		FramesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Camera frames dropped before upload",
		}, []string{"reason"}),
		FrameUploads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_uploads_total",
			Help:      "Frame upload attempts by result",
		}, []string{"result"}),
		FrameBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_bytes",
			Help:      "Encoded frame size in bytes",
			Buckets:   prometheus.ExponentialBuckets(4096, 2, 8),
		}),

		DialogueRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialogue_requests_total",
			Help:      "Dialogue service calls",
		}, []string{"op", "result"}),
		DialogueLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dialogue_latency_seconds",
			Help:      "Dialogue service call latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"op"}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic"}),

		GRPCRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "gRPC unary calls served",
		}, []string{"method", "code"}),
	}
}

// RecordSessionStart records a session entering the turn loop.
func (m *Metrics) RecordSessionStart() {
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session finishing with the given outcome.
func (m *Metrics) RecordSessionEnd(outcome string, questions int) {
	m.SessionsActive.Dec()
	m.SessionsTotal.WithLabelValues(outcome).Inc()
	m.QuestionsAsked.Observe(float64(questions))
}

// RecordTransition records a turn state change.
func (m *Metrics) RecordTransition(from, to string) {
	m.StateTransitions.WithLabelValues(from, to).Inc()
}

// RecordTurn records a turn result with its round-trip latency.
func (m *Metrics) RecordTurn(result string, latencySeconds float64) {
	m.TurnsTotal.WithLabelValues(result).Inc()
	if latencySeconds > 0 {
		m.TurnLatency.Observe(latencySeconds)
	}
}

// RecordPlayback records how an utterance settled.
func (m *Metrics) RecordPlayback(outcome string) {
	m.PlaybackOutcomes.WithLabelValues(outcome).Inc()
}

// RecordCaptureRestart records a recognition restart.
func (m *Metrics) RecordCaptureRestart(reason string) {
	m.CaptureRestarts.WithLabelValues(reason).Inc()
}

// RecordCaptureFault records a non-recoverable capture fault.
func (m *Metrics) RecordCaptureFault() {
	m.CaptureFaults.Inc()
}

// RecordFragment records a transcript fragment of the given type (interim, final).
func (m *Metrics) RecordFragment(kind string) {
	m.CaptureFragments.WithLabelValues(kind).Inc()
}

// RecordFrameSampled records a sampled and encoded frame.
func (m *Metrics) RecordFrameSampled(bytes int) {
	m.FramesSampled.Inc()
	m.FrameBytes.Observe(float64(bytes))
}

// RecordFrameDropped records a frame that was not uploaded.
func (m *Metrics) RecordFrameDropped(reason string) {
	m.FramesDropped.WithLabelValues(reason).Inc()
}

// RecordFrameUpload records a frame upload attempt.
func (m *Metrics) RecordFrameUpload(err error) {
	if err != nil {
		m.FrameUploads.WithLabelValues("error").Inc()
		return
	}
	m.FrameUploads.WithLabelValues("ok").Inc()
}

// RecordDialogue records a dialogue service call.
func (m *Metrics) RecordDialogue(op string, err error, latencySeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.DialogueRequests.WithLabelValues(op, result).Inc()
	m.DialogueLatency.WithLabelValues(op).Observe(latencySeconds)
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
}

// RecordKafkaError records failed Kafka deliveries.
func (m *Metrics) RecordKafkaError(topic string, count int) {
	m.KafkaPublishErrors.WithLabelValues(topic).Add(float64(count))
}

// RecordGRPC records a served unary gRPC call.
func (m *Metrics) RecordGRPC(method, code string) {
	m.GRPCRequests.WithLabelValues(method, code).Inc()
}
