package export_test

import (
	"bytes"
	"slices"
	"strings"
	"testing"
	"time"

	"quickcut/internal/export"
	"quickcut/internal/merge"
	"quickcut/internal/pipeline"
	"quickcut/internal/transition"
)

func sec(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		Segments: []merge.Segment{
			{Start: sec(1), End: sec(3)},
			{Start: sec(4.2), End: sec(8)},
		},
		Directives: []transition.Directive{
			{Segment: merge.Segment{Start: sec(1), End: sec(3)}, FadeIn: sec(0.1), FadeOut: sec(0.1)},
			{Segment: merge.Segment{Start: sec(4.2), End: sec(8)}, FadeIn: sec(0.1), FadeOut: sec(0.1)},
		},
		Stats: pipeline.Stats{
			TrackDuration:   sec(10),
			KeptDuration:    sec(5.8),
			RemovedDuration: sec(4.2),
			Words:           2,
			SegmentsKept:    2,
		},
	}
}

func TestPlanRoundTrip(t *testing.T) {
	plan := export.NewPlan("talk.mp4", sampleResult())

	var buf bytes.Buffer
	if err := plan.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	got, err := export.ReadPlan(&buf)
	if err != nil {
		t.Fatalf("ReadPlan: %v", err)
	}
	if got.Input != "talk.mp4" {
		t.Errorf("input: got %q", got.Input)
	}
	if len(got.Segments) != 2 {
		t.Fatalf("segment count: got %d, want 2", len(got.Segments))
	}
	if got.Segments[1].Start != 4.2 || got.Segments[1].End != 8 {
		t.Errorf("segment 1: got [%v, %v], want [4.2, 8]", got.Segments[1].Start, got.Segments[1].End)
	}
	if got.Stats.KeptDuration != 5.8 {
		t.Errorf("kept duration: got %v, want 5.8", got.Stats.KeptDuration)
	}
}

func TestFFmpegInvocations(t *testing.T) {
	plan := export.NewPlan("talk.mp4", sampleResult())
	invs := export.FFmpegInvocations(plan, "out", "talk_cut.mp4")

	if len(invs) != 3 {
		t.Fatalf("invocation count: got %d, want 3 (2 cuts + concat)", len(invs))
	}

	cut := invs[0]
	wantPairs := map[string]string{
		"-ss":  "1.000",
		"-to":  "3.000",
		"-i":   "talk.mp4",
		"-c:v": "copy",
	}
	for flag, val := range wantPairs {
		i := slices.Index(cut.Args, flag)
		if i < 0 || i+1 >= len(cut.Args) {
			t.Fatalf("flag %s missing from %v", flag, cut.Args)
		}
		if cut.Args[i+1] != val {
			t.Errorf("flag %s: got %q, want %q", flag, cut.Args[i+1], val)
		}
	}

	i := slices.Index(cut.Args, "-af")
	if i < 0 {
		t.Fatalf("no -af in %v", cut.Args)
	}
	filter := cut.Args[i+1]
	if !strings.Contains(filter, "afade=t=in:st=0:d=0.100") {
		t.Errorf("fade-in missing from filter %q", filter)
	}
	// Segment is 2s long, so the fade-out starts at 1.9 in segment time.
	if !strings.Contains(filter, "afade=t=out:st=1.900:d=0.100") {
		t.Errorf("fade-out missing from filter %q", filter)
	}

	concat := invs[len(invs)-1]
	if concat.Output != "talk_cut.mp4" {
		t.Errorf("concat output: got %q", concat.Output)
	}
	if !slices.Contains(concat.Args, "concat") {
		t.Errorf("concat demuxer missing from %v", concat.Args)
	}
}

func TestFFmpegInvocations_HardCutHasNoFilter(t *testing.T) {
	res := sampleResult()
	for i := range res.Directives {
		res.Directives[i].FadeIn = 0
		res.Directives[i].FadeOut = 0
	}
	plan := export.NewPlan("talk.mp4", res)
	invs := export.FFmpegInvocations(plan, "out", "cut.mp4")

	if slices.Contains(invs[0].Args, "-af") {
		t.Errorf("hard cut should carry no audio filter: %v", invs[0].Args)
	}
}

func TestConcatList(t *testing.T) {
	plan := export.NewPlan("talk.mp4", sampleResult())
	invs := export.FFmpegInvocations(plan, "out", "cut.mp4")

	list := export.ConcatList(invs)
	lines := strings.Split(strings.TrimSpace(list), "\n")
	if len(lines) != 2 {
		t.Fatalf("line count: got %d, want 2: %q", len(lines), list)
	}
	if !strings.Contains(lines[0], "segment_000") || !strings.Contains(lines[1], "segment_001") {
		t.Errorf("segment order wrong: %q", list)
	}
}
