// Package export renders the segmentation result for the external
// video-assembly stage: a JSON plan document plus the ffmpeg invocations
// that would cut and concatenate the keep segments. The invocations are
// instructions for the caller; nothing in this package runs ffmpeg.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"quickcut/internal/pipeline"
)

// PlanSegment is one keep range in external float-seconds form.
type PlanSegment struct {
	Index   int     `json:"index"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	FadeIn  float64 `json:"fade_in"`
	FadeOut float64 `json:"fade_out"`
}

// PlanStats mirrors pipeline stats in float seconds.
type PlanStats struct {
	TrackDuration   float64 `json:"track_duration"`
	KeptDuration    float64 `json:"kept_duration"`
	RemovedDuration float64 `json:"removed_duration"`
	Words           int     `json:"words"`
	FillersRemoved  int     `json:"fillers_removed"`
	SegmentsKept    int     `json:"segments_kept"`
}

// Plan is the JSON document handed to the assembly stage.
type Plan struct {
	Input    string        `json:"input"`
	Segments []PlanSegment `json:"segments"`
	Stats    PlanStats     `json:"stats"`
}

// NewPlan converts a pipeline result into the external plan form.
func NewPlan(input string, res *pipeline.Result) *Plan {
	p := &Plan{
		Input:    input,
		Segments: make([]PlanSegment, len(res.Directives)),
		Stats: PlanStats{
			TrackDuration:   res.Stats.TrackDuration.Seconds(),
			KeptDuration:    res.Stats.KeptDuration.Seconds(),
			RemovedDuration: res.Stats.RemovedDuration.Seconds(),
			Words:           res.Stats.Words,
			FillersRemoved:  res.Stats.FillersRemoved,
			SegmentsKept:    res.Stats.SegmentsKept,
		},
	}
	for i, d := range res.Directives {
		p.Segments[i] = PlanSegment{
			Index:   i,
			Start:   d.Segment.Start.Seconds(),
			End:     d.Segment.End.Seconds(),
			FadeIn:  d.FadeIn.Seconds(),
			FadeOut: d.FadeOut.Seconds(),
		}
	}
	return p
}

// WriteJSON writes the plan as indented JSON.
func (p *Plan) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("export: encode plan: %w", err)
	}
	return nil
}

// Invocation is one ffmpeg command line the assembly stage should run.
type Invocation struct {
	Args   []string `json:"args"`
	Output string   `json:"output"`
}

// FFmpegInvocations builds one cut command per segment plus a final concat
// command. Each cut seeks on the input so segment timestamps restart at
// zero, applies the planned afade filters to the audio, and copies the
// video stream unmodified. The concat step uses the concat demuxer over
// the list written by ConcatList.
func FFmpegInvocations(p *Plan, outDir, output string) []Invocation {
	invs := make([]Invocation, 0, len(p.Segments)+1)
	ext := filepath.Ext(p.Input)
	if ext == "" {
		ext = ".mp4"
	}

	for _, s := range p.Segments {
		segOut := filepath.Join(outDir, fmt.Sprintf("segment_%03d%s", s.Index, ext))
		args := []string{
			"ffmpeg", "-hide_banner", "-y",
			"-ss", secondsArg(s.Start),
			"-to", secondsArg(s.End),
			"-i", p.Input,
		}
		if filter := afadeFilter(s); filter != "" {
			args = append(args, "-af", filter)
		}
		args = append(args, "-c:v", "copy", segOut)
		invs = append(invs, Invocation{Args: args, Output: segOut})
	}

	listPath := filepath.Join(outDir, "segments.txt")
	invs = append(invs, Invocation{
		Args: []string{
			"ffmpeg", "-hide_banner", "-y",
			"-f", "concat", "-safe", "0",
			"-i", listPath,
			"-c", "copy", output,
		},
		Output: output,
	})
	return invs
}

// ConcatList renders the concat demuxer file listing the cut segments in
// order. Write it next to the segment files as segments.txt.
func ConcatList(invs []Invocation) string {
	var b strings.Builder
	for _, inv := range invs[:max(len(invs)-1, 0)] {
		fmt.Fprintf(&b, "file '%s'\n", inv.Output)
	}
	return b.String()
}

// afadeFilter builds the audio fade chain for one segment. Fade times are
// relative to the cut segment, not the source track, because input seeking
// resets timestamps.
func afadeFilter(s PlanSegment) string {
	var parts []string
	if s.FadeIn > 0 {
		parts = append(parts, fmt.Sprintf("afade=t=in:st=0:d=%s", secondsArg(s.FadeIn)))
	}
	if s.FadeOut > 0 {
		start := s.End - s.Start - s.FadeOut
		parts = append(parts, fmt.Sprintf("afade=t=out:st=%s:d=%s", secondsArg(start), secondsArg(s.FadeOut)))
	}
	return strings.Join(parts, ",")
}

// secondsArg formats a time value for ffmpeg with millisecond precision.
func secondsArg(s float64) string {
	return fmt.Sprintf("%.3f", s)
}

// ReadPlan parses a plan document, for callers that post-process one.
func ReadPlan(r io.Reader) (*Plan, error) {
	var p Plan
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("export: decode plan: %w", err)
	}
	return &p, nil
}
