package fusion_test

import (
	"testing"
	"time"

	"quickcut/internal/analysis"
	"quickcut/internal/fusion"
	"quickcut/internal/timeline"
)

func sec(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

var testPolicy = fusion.Policy{
	ThresholdDB:         -40,
	BorderlineBandDB:    3,
	MaxSpectralFlatness: 0.5,
	MaxZeroCrossingRate: 0.25,
}

// frames builds a contiguous 100 ms frame sequence from per-frame dB levels.
// Flatness and ZCR default to noise-like values so only the RMS rule fires.
func frames(dbs ...float64) []analysis.FrameFeature {
	out := make([]analysis.FrameFeature, len(dbs))
	for i, db := range dbs {
		out[i] = analysis.FrameFeature{
			Index:            i,
			Start:            time.Duration(i) * 100 * time.Millisecond,
			End:              time.Duration(i+1) * 100 * time.Millisecond,
			RMSDB:            db,
			SpectralFlatness: 0.9,
			ZeroCrossingRate: 0.5,
		}
	}
	return out
}

// checkPartition fails the test unless spans exactly partition [0, duration)
// with no gap, no overlap, and no two adjacent spans sharing a class.
func checkPartition(t *testing.T, spans []fusion.Span, duration time.Duration) {
	t.Helper()
	if len(spans) == 0 {
		t.Fatal("no spans")
	}
	if spans[0].Start != 0 {
		t.Errorf("first span starts at %v, want 0", spans[0].Start)
	}
	for i, s := range spans {
		if s.End <= s.Start {
			t.Errorf("span %d has non-positive duration: %+v", i, s)
		}
		if i > 0 {
			if s.Start != spans[i-1].End {
				t.Errorf("gap/overlap between span %d and %d: %v vs %v", i-1, i, spans[i-1].End, s.Start)
			}
			if s.IsSpeech == spans[i-1].IsSpeech {
				t.Errorf("adjacent spans %d and %d share classification", i-1, i)
			}
		}
	}
	if last := spans[len(spans)-1].End; last != duration {
		t.Errorf("last span ends at %v, want %v", last, duration)
	}
}

// ── partition invariant ──────────────────────────────────────────────────────

func TestFuse_PartitionsFullDuration(t *testing.T) {
	spans := fusion.Fuse(frames(-60, -30, -30, -60, -60), nil, sec(0.5), testPolicy)
	checkPartition(t, spans, sec(0.5))
	if len(spans) != 3 {
		t.Fatalf("span count: got %d, want 3: %+v", len(spans), spans)
	}
	if spans[0].IsSpeech || !spans[1].IsSpeech || spans[2].IsSpeech {
		t.Errorf("classification pattern wrong: %+v", spans)
	}
}

func TestFuse_NoFramesIsAllSilence(t *testing.T) {
	spans := fusion.Fuse(nil, nil, sec(2), testPolicy)
	checkPartition(t, spans, sec(2))
	if len(spans) != 1 || spans[0].IsSpeech {
		t.Fatalf("expected a single silence span, got %+v", spans)
	}
}

func TestFuse_ZeroDuration(t *testing.T) {
	if spans := fusion.Fuse(nil, nil, 0, testPolicy); spans != nil {
		t.Fatalf("expected nil for zero duration, got %+v", spans)
	}
}

// ── precedence ───────────────────────────────────────────────────────────────

func TestFuse_ASRAuthoritativeOverQuietFrames(t *testing.T) {
	// All frames far below threshold, but ASR says words at [0.1, 0.4).
	f := frames(-60, -60, -60, -60, -60)
	speech := []timeline.Interval{{Start: sec(0.1), End: sec(0.4)}}

	spans := fusion.Fuse(f, speech, sec(0.5), testPolicy)
	checkPartition(t, spans, sec(0.5))
	want := []fusion.Span{
		{Start: 0, End: sec(0.1), IsSpeech: false},
		{Start: sec(0.1), End: sec(0.4), IsSpeech: true},
		{Start: sec(0.4), End: sec(0.5), IsSpeech: false},
	}
	if len(spans) != len(want) {
		t.Fatalf("span count: got %d, want %d: %+v", len(spans), len(want), spans)
	}
	for i := range want {
		if spans[i] != want[i] {
			t.Errorf("span %d: got %+v, want %+v", i, spans[i], want[i])
		}
	}
}

func TestFuse_ASRBoundaryAtSubFrameResolution(t *testing.T) {
	// The ASR interval ends mid-frame; the speech/silence flip must land on
	// the word boundary, not the frame boundary.
	f := frames(-60, -60)
	speech := []timeline.Interval{{Start: sec(0.05), End: sec(0.15)}}

	spans := fusion.Fuse(f, speech, sec(0.2), testPolicy)
	checkPartition(t, spans, sec(0.2))
	if spans[1].Start != sec(0.05) || spans[1].End != sec(0.15) {
		t.Errorf("speech span: got %+v, want [0.05, 0.15)", spans[1])
	}
}

func TestFuse_FramesDecideOutsideASR(t *testing.T) {
	// Loud frames outside any ASR interval still count as speech.
	f := frames(-30, -30, -60)
	spans := fusion.Fuse(f, nil, sec(0.3), testPolicy)
	checkPartition(t, spans, sec(0.3))
	if !spans[0].IsSpeech {
		t.Errorf("loud frames should be speech: %+v", spans)
	}
}

// ── borderline band ──────────────────────────────────────────────────────────

func TestFuse_BorderlineTonalFrameIsSpeech(t *testing.T) {
	f := frames(-42) // within 3 dB below the -40 threshold
	f[0].SpectralFlatness = 0.2
	f[0].ZeroCrossingRate = 0.1

	spans := fusion.Fuse(f, nil, sec(0.1), testPolicy)
	if !spans[0].IsSpeech {
		t.Error("tonal borderline frame should classify as speech")
	}
}

func TestFuse_BorderlineNoisyFrameIsSilence(t *testing.T) {
	f := frames(-42)
	f[0].SpectralFlatness = 0.9 // broadband
	f[0].ZeroCrossingRate = 0.1

	spans := fusion.Fuse(f, nil, sec(0.1), testPolicy)
	if spans[0].IsSpeech {
		t.Error("noisy borderline frame should classify as silence")
	}
}

func TestFuse_BelowBandIsAlwaysSilence(t *testing.T) {
	f := frames(-50) // well below threshold - band
	f[0].SpectralFlatness = 0.1
	f[0].ZeroCrossingRate = 0.05

	spans := fusion.Fuse(f, nil, sec(0.1), testPolicy)
	if spans[0].IsSpeech {
		t.Error("frame below the borderline band must be silence regardless of shape")
	}
}

func TestFuse_HighZCRLowEnergyIsNoise(t *testing.T) {
	f := frames(-41)
	f[0].SpectralFlatness = 0.2
	f[0].ZeroCrossingRate = 0.6 // fricative-like hiss

	spans := fusion.Fuse(f, nil, sec(0.1), testPolicy)
	if spans[0].IsSpeech {
		t.Error("high-ZCR low-energy frame should classify as non-speech noise")
	}
}
