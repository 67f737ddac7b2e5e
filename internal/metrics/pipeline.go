// Package metrics provides Prometheus metrics for the frame pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Failure reasons recorded by RecordDetectionFailure.
const (
	ReasonError   = "error"
	ReasonTimeout = "timeout"
)

// PipelineMetrics contains Prometheus metrics for one or more pipeline runs.
// A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	registry *prometheus.Registry

	framesRead             prometheus.Counter
	framesSampled          prometheus.Counter
	framesWritten          prometheus.Counter
	detectionFailures      *prometheus.CounterVec
	classificationFailures prometheus.Counter
	framesByPhase          *prometheus.CounterVec
	coastedFrames          prometheus.Counter
	expiredTracks          prometheus.Counter
	pendingResults         prometheus.Gauge
	taskDuration           prometheus.Histogram
}

// NewPipelineMetrics creates and registers new pipeline metrics
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.framesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_frames_read_total",
		Help: "Total number of frames read from the source",
	})
	m.framesSampled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_frames_sampled_total",
		Help: "Total number of frames submitted for detection",
	})
	m.framesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_frames_written_total",
		Help: "Total number of frames written to the sink",
	})
	m.detectionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_detection_failures_total",
			Help: "Total number of frames whose detection failed or timed out",
		},
		[]string{"reason"}, // reason: error, timeout
	)
	m.classificationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_classification_failures_total",
		Help: "Total number of face regions left unlabeled after a classifier failure",
	})
	m.framesByPhase = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_track_phase_frames_total",
			Help: "Frames written per tracking phase",
		},
		[]string{"phase"}, // phase: idle, tracking, coasting, expired
	)
	m.coastedFrames = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_coasted_frames_total",
		Help: "Frames rendered with a coasted box",
	})
	m.expiredTracks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_expired_tracks_total",
		Help: "Tracks cleared after exceeding the coasting tolerance",
	})
	m.pendingResults = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_pending_results",
		Help: "Results waiting in the ordering buffer",
	})
	m.taskDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_task_duration_seconds",
		Help:    "Time taken by the per-frame detection task",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})
}

// Describe implements prometheus.Collector
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.framesRead.Describe(ch)
	m.framesSampled.Describe(ch)
	m.framesWritten.Describe(ch)
	m.detectionFailures.Describe(ch)
	m.classificationFailures.Describe(ch)
	m.framesByPhase.Describe(ch)
	m.coastedFrames.Describe(ch)
	m.expiredTracks.Describe(ch)
	m.pendingResults.Describe(ch)
	m.taskDuration.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.framesRead.Collect(ch)
	m.framesSampled.Collect(ch)
	m.framesWritten.Collect(ch)
	m.detectionFailures.Collect(ch)
	m.classificationFailures.Collect(ch)
	m.framesByPhase.Collect(ch)
	m.coastedFrames.Collect(ch)
	m.expiredTracks.Collect(ch)
	m.pendingResults.Collect(ch)
	m.taskDuration.Collect(ch)
}

// Registry returns the registry the metrics were registered with.
func (m *PipelineMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *PipelineMetrics) RecordFrameRead() {
	if m == nil {
		return
	}
	m.framesRead.Inc()
}

func (m *PipelineMetrics) RecordFrameSampled() {
	if m == nil {
		return
	}
	m.framesSampled.Inc()
}

// RecordFrameWritten counts a written frame under the phase of its track state.
func (m *PipelineMetrics) RecordFrameWritten(phase string) {
	if m == nil {
		return
	}
	m.framesWritten.Inc()
	m.framesByPhase.WithLabelValues(phase).Inc()
}

func (m *PipelineMetrics) RecordCoastedFrame() {
	if m == nil {
		return
	}
	m.coastedFrames.Inc()
}

func (m *PipelineMetrics) RecordExpiredTrack() {
	if m == nil {
		return
	}
	m.expiredTracks.Inc()
}

func (m *PipelineMetrics) RecordDetectionFailure(reason string) {
	if m == nil {
		return
	}
	m.detectionFailures.WithLabelValues(reason).Inc()
}

func (m *PipelineMetrics) RecordClassificationFailure() {
	if m == nil {
		return
	}
	m.classificationFailures.Inc()
}

func (m *PipelineMetrics) SetPendingResults(n int) {
	if m == nil {
		return
	}
	m.pendingResults.Set(float64(n))
}

func (m *PipelineMetrics) ObserveTaskDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.taskDuration.Observe(d.Seconds())
}
