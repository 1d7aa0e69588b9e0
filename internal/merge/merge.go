// Package merge turns the fused speech/silence timeline into the final list
// of keep segments. Silence gaps shorter than the configured minimum are
// folded into the surrounding speech so natural pauses survive the cut,
// speech islands too short to be worth keeping are dropped, and tagged
// filler intervals are carved out of the segments that contain them.
package merge

import (
	"errors"
	"fmt"
	"time"

	"quickcut/internal/fusion"
	"quickcut/internal/timeline"
)

// ErrSegmentationInvariant reports a segment list that violates ordering,
// bounds, or overlap rules. Callers treat this as an internal pipeline bug,
// not a user input error.
var ErrSegmentationInvariant = errors.New("merge: segmentation invariant violated")

// Segment is a half-open keep range on the track timeline.
type Segment struct {
	Start time.Duration
	End   time.Duration
}

// Duration returns the segment length.
func (s Segment) Duration() time.Duration { return s.End - s.Start }

// Options holds the merge thresholds.
type Options struct {
	// MinSilence: silence gaps strictly shorter than this are folded into
	// the surrounding speech. A gap exactly this long stays a cut. Folding
	// applies to interior gaps only; leading and trailing silence is always
	// cut regardless of length.
	MinSilence time.Duration

	// MinSegment: speech segments shorter than this after gap folding are
	// dropped entirely.
	MinSegment time.Duration

	// MinPiece: pieces left over after filler subtraction shorter than
	// this are dropped rather than kept as audible slivers.
	MinPiece time.Duration
}

// Merge folds sub-threshold silence gaps and drops sub-minimum speech
// segments. The result is sorted, non-overlapping, and idempotent: merging
// an already-merged timeline changes nothing.
func Merge(spans []fusion.Span, opts Options) []Segment {
	var segs []Segment
	for _, sp := range spans {
		if !sp.IsSpeech {
			continue
		}
		if n := len(segs); n > 0 && sp.Start-segs[n-1].End < opts.MinSilence {
			segs[n-1].End = sp.End
			continue
		}
		segs = append(segs, Segment{Start: sp.Start, End: sp.End})
	}

	kept := segs[:0]
	for _, s := range segs {
		if s.Duration() < opts.MinSegment {
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// SubtractFillers removes filler intervals from the keep segments. A filler
// splits the segment containing it; resulting pieces shorter than minPiece
// are dropped. Fillers must be sorted and non-overlapping, which
// timeline.FillerIntervals guarantees.
func SubtractFillers(segs []Segment, fillers []timeline.Interval, minPiece time.Duration) []Segment {
	if len(fillers) == 0 {
		return segs
	}

	var out []Segment
	keep := func(s Segment) {
		if s.Duration() >= minPiece && s.Duration() > 0 {
			out = append(out, s)
		}
	}

	fi := 0
	for _, s := range segs {
		cur := s
		for fi < len(fillers) && fillers[fi].End <= cur.Start {
			fi++
		}
		for j := fi; j < len(fillers) && fillers[j].Start < cur.End; j++ {
			f := fillers[j]
			if f.Start > cur.Start {
				keep(Segment{Start: cur.Start, End: f.Start})
			}
			cur.Start = min(f.End, cur.End)
		}
		keep(cur)
	}
	return out
}

// Validate checks the final segment list: positive durations, strictly
// increasing non-overlapping order, and every segment inside [0, duration].
func Validate(segs []Segment, duration time.Duration) error {
	for i, s := range segs {
		switch {
		case s.Start < 0 || s.End > duration:
			return fmt.Errorf("%w: segment %d [%v, %v) outside track [0, %v)",
				ErrSegmentationInvariant, i, s.Start, s.End, duration)
		case s.End <= s.Start:
			return fmt.Errorf("%w: segment %d [%v, %v) has non-positive duration",
				ErrSegmentationInvariant, i, s.Start, s.End)
		case i > 0 && s.Start < segs[i-1].End:
			return fmt.Errorf("%w: segment %d starts at %v before segment %d ends at %v",
				ErrSegmentationInvariant, i, s.Start, i-1, segs[i-1].End)
		}
	}
	return nil
}
