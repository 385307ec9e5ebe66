package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CameraCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visora",
		Name:      "camera_commands_total",
		Help:      "Camera commands by action and outcome",
	}, []string{"action", "outcome"})

	CameraBroadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visora",
		Name:      "camera_broadcasts_total",
		Help:      "Camera event deliveries by outcome",
	}, []string{"outcome"})

	BroadcastQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "visora",
		Name:      "broadcast_queue_depth",
		Help:      "Number of camera events waiting for delivery",
	})

	ProbeAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visora",
		Name:      "face_probe_attempts_total",
		Help:      "Face probe attempts by result",
	}, []string{"result"})

	FramesCaptured = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visora",
		Name:      "frames_captured_total",
		Help:      "Total number of frames captured",
	}, []string{"face"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "visora",
		Name:      "inference_duration_seconds",
		Help:      "Duration of ML inference stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	RemoteCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "visora",
		Name:      "remote_call_duration_seconds",
		Help:      "Duration of calls to external services",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service", "operation", "status"})

	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visora",
		Name:      "tool_calls_total",
		Help:      "Assistant tool invocations by tool and outcome",
	}, []string{"tool", "outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "visora",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "visora",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
