// Package fusion combines frame-level signal classifications with
// ASR-derived speech intervals into a single boolean timeline.
//
// The precedence rule is explicit rather than an ensemble vote: where an ASR
// speech interval covers a time point, that point is speech — word
// timestamps are ground truth. Outside ASR coverage the frame features
// decide, with the RMS threshold as the primary rule and spectral
// flatness/zero-crossing rate as a secondary signal in a borderline band
// just below the threshold. This keeps every classification deterministic
// and explainable from the inputs.
package fusion

import (
	"time"

	"quickcut/internal/analysis"
	"quickcut/internal/timeline"
)

// Span is a classified slice of the track timeline.
type Span struct {
	Start    time.Duration
	End      time.Duration
	IsSpeech bool
}

// Duration returns the span length.
func (s Span) Duration() time.Duration { return s.End - s.Start }

// Policy holds the frame classification thresholds.
type Policy struct {
	// ThresholdDB: frames at or above this RMS level are speech.
	ThresholdDB float64

	// BorderlineBandDB widens the decision downward: frames within this
	// band below ThresholdDB may still be speech when their spectral shape
	// looks tonal rather than noise-like.
	BorderlineBandDB float64

	// MaxSpectralFlatness: a borderline frame above this flatness is
	// broadband noise, not speech.
	MaxSpectralFlatness float64

	// MaxZeroCrossingRate: a borderline frame above this ZCR is
	// fricative-like noise, not speech.
	MaxZeroCrossingRate float64
}

// Fuse builds the boolean timeline for [0, duration) from frame features
// and ASR speech intervals. The result is contiguous: spans partition the
// full duration exactly once, with adjacent same-classification spans
// merged. An empty frame sequence yields a single non-speech span covering
// the whole track.
func Fuse(frames []analysis.FrameFeature, speech []timeline.Interval, duration time.Duration, p Policy) []Span {
	if duration <= 0 {
		return nil
	}

	var spans []Span
	push := func(start, end time.Duration, isSpeech bool) {
		if end <= start {
			return
		}
		if n := len(spans); n > 0 && spans[n-1].IsSpeech == isSpeech && spans[n-1].End == start {
			spans[n-1].End = end
			return
		}
		spans = append(spans, Span{Start: start, End: end, IsSpeech: isSpeech})
	}

	// Walk the frames in order; each frame's hop range gets exactly one
	// classification. ASR intervals are consumed in lockstep — both
	// sequences are time-ordered.
	si := 0
	var cursor time.Duration
	for _, f := range frames {
		start, end := f.Start, f.End
		if end > duration {
			end = duration
		}
		if start >= end {
			continue
		}
		// Advance past ASR intervals that ended before this frame.
		for si < len(speech) && speech[si].End <= start {
			si++
		}
		// Split the frame around ASR coverage so word boundaries are honored
		// at sub-frame resolution.
		t := start
		for t < end {
			if si < len(speech) && speech[si].Start < end && speech[si].End > t {
				iv := speech[si]
				if iv.Start > t {
					push(t, iv.Start, classifyFrame(f, p))
					t = iv.Start
				}
				covered := min(iv.End, end)
				push(t, covered, true)
				t = covered
				if iv.End <= end {
					si++
				}
			} else {
				push(t, end, classifyFrame(f, p))
				t = end
			}
		}
		cursor = end
	}

	// Tail not covered by any frame (or no frames at all) is silence.
	push(cursor, duration, false)

	return spans
}

// classifyFrame applies the frame-feature policy outside ASR coverage.
// The primary rule is the RMS threshold; the borderline band below it
// admits frames whose spectral flatness and ZCR look tonal and voice-like.
func classifyFrame(f analysis.FrameFeature, p Policy) bool {
	if f.RMSDB >= p.ThresholdDB {
		return true
	}
	if f.RMSDB >= p.ThresholdDB-p.BorderlineBandDB {
		return f.SpectralFlatness <= p.MaxSpectralFlatness &&
			f.ZeroCrossingRate <= p.MaxZeroCrossingRate
	}
	return false
}
