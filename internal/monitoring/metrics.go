package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors. Each instance owns its
// own registry so tests and multiple pipelines never collide on the default
// registerer.
type Metrics struct {
	registry *prometheus.Registry

	FramesProcessed    prometheus.Counter
	Detections         prometheus.Counter
	InvalidDetections  prometheus.Counter
	Violations         prometheus.Counter
	EvidenceCaptures   prometheus.Counter
	EvidenceFrames     prometheus.Counter
	EvidenceErrors     prometheus.Counter
	TracksEvicted      prometheus.Counter
	ActiveTracks       prometheus.Gauge
	FrameProcessingSec prometheus.Histogram
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FramesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "speedcam_frames_processed_total",
			Help: "Frames run through the orchestrator",
		}),
		Detections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "speedcam_detections_total",
			Help: "Valid detections applied to vehicle tracks",
		}),
		InvalidDetections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "speedcam_detections_invalid_total",
			Help: "Detections rejected at the collaborator boundary",
		}),
		Violations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "speedcam_violations_total",
			Help: "Sampling events classified as violations inside the region",
		}),
		EvidenceCaptures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "speedcam_evidence_captures_total",
			Help: "Evidence buffer flushes handed to storage",
		}),
		EvidenceFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "speedcam_evidence_frames_total",
			Help: "Frames persisted by evidence flushes",
		}),
		EvidenceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "speedcam_evidence_errors_total",
			Help: "Evidence flushes that failed in storage",
		}),
		TracksEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "speedcam_tracks_evicted_total",
			Help: "Tracks removed after exceeding the idle TTL",
		}),
		ActiveTracks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "speedcam_tracks_active",
			Help: "Tracks currently held in the registry",
		}),
		FrameProcessingSec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "speedcam_frame_processing_seconds",
			Help:    "Wall time spent processing one frame",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}

	m.registry.MustRegister(
		m.FramesProcessed,
		m.Detections,
		m.InvalidDetections,
		m.Violations,
		m.EvidenceCaptures,
		m.EvidenceFrames,
		m.EvidenceErrors,
		m.TracksEvicted,
		m.ActiveTracks,
		m.FrameProcessingSec,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
