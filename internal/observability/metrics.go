package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "brandtrack",
		Name:      "frames_processed_total",
		Help:      "Total number of video frames run through the logo detector",
	}, []string{"type"})

	LogosDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "brandtrack",
		Name:      "logos_detected_total",
		Help:      "Total number of brand logo detections above threshold",
	}, []string{"brand"})

	AnalysesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "brandtrack",
		Name:      "analyses_completed_total",
		Help:      "Total number of completed video analyses",
	}, []string{"type", "result"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "brandtrack",
		Name:      "analysis_duration_seconds",
		Help:      "End-to-end duration of one video analysis",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	}, []string{"type"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "brandtrack",
		Name:      "inference_duration_seconds",
		Help:      "Duration of ML inference stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "brandtrack",
		Name:      "notifications_created_total",
		Help:      "Total number of notification events written to inboxes",
	}, []string{"type"})

	NotificationsPushed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "brandtrack",
		Name:      "notifications_pushed_total",
		Help:      "Real-time push attempts by outcome",
	}, []string{"outcome"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "brandtrack",
		Name:      "queue_depth",
		Help:      "Number of pending analysis jobs in queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "brandtrack",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "brandtrack",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
