package observe

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordStage(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordStage(ctx, "extract", 120*time.Millisecond)
	m.RecordStage(ctx, "extract", 80*time.Millisecond)
	m.RecordStage(ctx, "transcribe", 4*time.Second)

	rm := collect(t, reader)
	met := findMetric(rm, "quickcut.stage.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}

	for _, dp := range hist.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == "stage" && kv.Value.AsString() == "extract" {
				if dp.Count != 2 {
					t.Errorf("extract sample count = %d, want 2", dp.Count)
				}
				return
			}
		}
	}
	t.Error("data point with stage=extract not found")
}

func TestRecordTrack(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTrack(ctx, "ok", 90*time.Second)
	m.RecordTrack(ctx, "ok", 30*time.Second)
	m.RecordTrack(ctx, "error", 10*time.Second)

	rm := collect(t, reader)

	met := findMetric(rm, "quickcut.tracks.processed")
	if met == nil {
		t.Fatal("tracks metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("tracks metric is not a sum")
	}
	found := false
	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == "status" && kv.Value.AsString() == "ok" {
				if dp.Value != 2 {
					t.Errorf("ok track count = %d, want 2", dp.Value)
				}
				found = true
			}
		}
	}
	if !found {
		t.Error("data point with status=ok not found")
	}

	met = findMetric(rm, "quickcut.audio.seconds")
	if met == nil {
		t.Fatal("audio seconds metric not found")
	}
	fsum, ok := met.Data.(metricdata.Sum[float64])
	if !ok {
		t.Fatal("audio seconds metric is not a sum")
	}
	if len(fsum.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := fsum.DataPoints[0].Value; got != 130 {
		t.Errorf("audio seconds = %v, want 130", got)
	}
}

func TestPipelineCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.FramesAnalyzed.Add(ctx, 600)
	m.WordsTranscribed.Add(ctx, 42)
	m.FillersRemoved.Add(ctx, 3)
	m.SegmentsKept.Add(ctx, 7)

	rm := collect(t, reader)

	counters := []struct {
		name string
		want int64
	}{
		{"quickcut.frames.analyzed", 600},
		{"quickcut.words.transcribed", 42},
		{"quickcut.fillers.removed", 3},
		{"quickcut.segments.kept", 7},
	}

	for _, tc := range counters {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %q is not a sum", tc.name)
			}
			if len(sum.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", tc.name)
			}
			if got := sum.DataPoints[0].Value; got != tc.want {
				t.Errorf("counter value = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	// DefaultMetrics uses the global OTel provider so we just check
	// that repeated calls return the same pointer.
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
