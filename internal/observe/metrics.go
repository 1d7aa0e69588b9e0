// Package observe provides OpenTelemetry metrics for the segmentation
// pipeline. Metrics are recorded through the OTel Metrics API; a Prometheus
// exporter bridge is available via [InitProvider] so long-running callers
// can scrape a /metrics endpoint. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all quickcut metrics.
const meterName = "quickcut"

// Metrics holds all OpenTelemetry metric instruments for the pipeline.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// StageDuration tracks per-stage processing latency. Use with attribute:
	//   attribute.String("stage", ...)
	StageDuration metric.Float64Histogram

	// TracksProcessed counts completed pipeline runs by status. Use with:
	//   attribute.String("status", ...)
	TracksProcessed metric.Int64Counter

	// FramesAnalyzed counts signal frames extracted from audio.
	FramesAnalyzed metric.Int64Counter

	// WordsTranscribed counts ASR word tokens after normalization.
	WordsTranscribed metric.Int64Counter

	// FillersRemoved counts filler intervals carved out of keep segments.
	FillersRemoved metric.Int64Counter

	// SegmentsKept counts final keep segments per run.
	SegmentsKept metric.Int64Counter

	// AudioSecondsProcessed accumulates the duration of analyzed audio.
	AudioSecondsProcessed metric.Float64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Stage
// latency scales with track length, so the upper buckets reach into minutes
// for the ASR stage on long recordings.
var latencyBuckets = []float64{
	0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("quickcut.stage.duration",
		metric.WithDescription("Latency of each pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.TracksProcessed, err = m.Int64Counter("quickcut.tracks.processed",
		metric.WithDescription("Completed pipeline runs by status."),
	); err != nil {
		return nil, err
	}
	if met.FramesAnalyzed, err = m.Int64Counter("quickcut.frames.analyzed",
		metric.WithDescription("Signal frames extracted from audio."),
	); err != nil {
		return nil, err
	}
	if met.WordsTranscribed, err = m.Int64Counter("quickcut.words.transcribed",
		metric.WithDescription("ASR word tokens after timeline normalization."),
	); err != nil {
		return nil, err
	}
	if met.FillersRemoved, err = m.Int64Counter("quickcut.fillers.removed",
		metric.WithDescription("Filler intervals removed from keep segments."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsKept, err = m.Int64Counter("quickcut.segments.kept",
		metric.WithDescription("Final keep segments produced."),
	); err != nil {
		return nil, err
	}

	if met.AudioSecondsProcessed, err = m.Float64Counter("quickcut.audio.seconds",
		metric.WithDescription("Total duration of analyzed audio."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordStage records one stage completion with its latency.
func (m *Metrics) RecordStage(ctx context.Context, stage string, elapsed time.Duration) {
	m.StageDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordTrack records one completed pipeline run.
func (m *Metrics) RecordTrack(ctx context.Context, status string, audio time.Duration) {
	m.TracksProcessed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
	m.AudioSecondsProcessed.Add(ctx, audio.Seconds())
}
