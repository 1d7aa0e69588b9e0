// Package transition plans audio fades for the cut boundaries. Every keep
// segment gets a fade-in at its start and a fade-out at its end so the
// concatenated audio never clicks; the video stream is untouched.
package transition

import (
	"time"

	"quickcut/internal/merge"
)

// Directive describes the fades to apply to one keep segment when it is
// rendered. Zero-length fades mean a hard cut at that edge.
type Directive struct {
	Segment merge.Segment
	FadeIn  time.Duration
	FadeOut time.Duration
}

// Options holds the fade policy.
type Options struct {
	// FadeDuration is the requested fade length per edge. Short segments
	// get it clamped to half their duration so the two fades never overlap.
	FadeDuration time.Duration

	// FadeTrackEdges applies fades at the very start and end of the track
	// too. When false, a segment beginning at 0 gets no fade-in and a
	// segment ending at the track end gets no fade-out.
	FadeTrackEdges bool
}

// Plan produces one directive per keep segment. Segments must already be
// validated: sorted, non-overlapping, inside [0, trackEnd).
func Plan(segs []merge.Segment, trackEnd time.Duration, opts Options) []Directive {
	if len(segs) == 0 {
		return nil
	}
	out := make([]Directive, len(segs))
	for i, s := range segs {
		fade := min(opts.FadeDuration, s.Duration()/2)
		if fade < 0 {
			fade = 0
		}
		d := Directive{Segment: s, FadeIn: fade, FadeOut: fade}
		if !opts.FadeTrackEdges {
			if s.Start == 0 {
				d.FadeIn = 0
			}
			if s.End == trackEnd {
				d.FadeOut = 0
			}
		}
		out[i] = d
	}
	return out
}
