// Package pipeline orchestrates the segmentation stages: signal extraction,
// transcription, fusion, merging, and transition planning. Stages run
// synchronously in order; the context is checked between stages so a
// cancelled run stops at the next boundary instead of finishing wasted work.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"quickcut/internal/analysis"
	"quickcut/internal/config"
	"quickcut/internal/fusion"
	"quickcut/internal/merge"
	"quickcut/internal/observe"
	"quickcut/internal/progress"
	"quickcut/internal/timeline"
	"quickcut/internal/transition"
	"quickcut/pkg/asr"
	"quickcut/pkg/audio"
)

// Stats summarizes a completed run.
type Stats struct {
	TrackDuration   time.Duration `json:"track_duration_ns"`
	KeptDuration    time.Duration `json:"kept_duration_ns"`
	RemovedDuration time.Duration `json:"removed_duration_ns"`
	Frames          int           `json:"frames"`
	Words           int           `json:"words"`
	FillersRemoved  int           `json:"fillers_removed"`
	SegmentsKept    int           `json:"segments_kept"`
}

// Result is the full segmentation outcome for one track.
type Result struct {
	Segments   []merge.Segment        `json:"segments"`
	Directives []transition.Directive `json:"directives"`
	Words      []timeline.Word        `json:"words,omitempty"`
	Stats      Stats                  `json:"stats"`
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the structured logger. Default: slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithReporter sets the progress sink. Default: log-backed reporter.
func WithReporter(r progress.Reporter) Option {
	return func(p *Pipeline) { p.reporter = r }
}

// WithMetrics sets the metrics instance. Default: observe.DefaultMetrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// Pipeline runs the segmentation stages over one audio buffer at a time.
// It is safe for sequential reuse across tracks; concurrent Run calls on
// the same instance are fine as long as the ASR provider allows them.
type Pipeline struct {
	cfg      *config.Config
	provider asr.Provider

	log      *slog.Logger
	reporter progress.Reporter
	metrics  *observe.Metrics
}

// New creates a Pipeline over cfg and the given ASR provider.
func New(cfg *config.Config, provider asr.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, provider: provider}
	for _, o := range opts {
		o(p)
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	if p.reporter == nil {
		p.reporter = progress.NewLogReporter(p.log)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// stageOrder drives progress fractions; each completed stage advances the
// overall fraction by an equal share.
var stageOrder = []string{
	progress.StageExtract,
	progress.StageTranscribe,
	progress.StageFuse,
	progress.StageMerge,
	progress.StageTransition,
}

// Run executes the full pipeline on buf and returns the keep segments with
// their transition directives. Errors from any stage abort the run and
// propagate with their sentinel intact.
func (p *Pipeline) Run(ctx context.Context, buf *audio.Buffer) (*Result, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	duration := buf.Duration()
	seg := p.cfg.Segmentation

	// Stage 1: frame feature extraction.
	stage := p.beginStage(ctx, progress.StageExtract)
	frames, err := analysis.Extract(ctx, buf, analysis.Options{
		Hop:    seg.Hop(),
		Window: seg.Window(),
	})
	if err != nil {
		return p.fail(ctx, duration, fmt.Errorf("pipeline: extract: %w", err))
	}
	p.metrics.FramesAnalyzed.Add(ctx, int64(len(frames)))
	stage.done(fmt.Sprintf("%d frames", len(frames)))

	if err := ctx.Err(); err != nil {
		return p.fail(ctx, duration, err)
	}

	// Stage 2: transcription.
	stage = p.beginStage(ctx, progress.StageTranscribe)
	tokens, err := p.provider.Transcribe(ctx, buf)
	if err != nil {
		return p.fail(ctx, duration, fmt.Errorf("pipeline: transcribe: %w", err))
	}
	matcher := timeline.NewFillerMatcher(p.cfg.Fillers.Words, p.cfg.Fillers.FuzzyThreshold)
	words := timeline.Normalize(tokens, duration, matcher)
	p.metrics.WordsTranscribed.Add(ctx, int64(len(words)))
	stage.done(fmt.Sprintf("%d words", len(words)))

	if err := ctx.Err(); err != nil {
		return p.fail(ctx, duration, err)
	}

	// Stage 3: fuse signal frames with the word timeline.
	stage = p.beginStage(ctx, progress.StageFuse)
	speech := timeline.SpeechIntervals(words, seg.MergeGapDuration())
	spans := fusion.Fuse(frames, speech, duration, fusion.Policy{
		ThresholdDB:         seg.ThresholdDB,
		BorderlineBandDB:    seg.BorderlineBandDB,
		MaxSpectralFlatness: seg.MaxSpectralFlatness,
		MaxZeroCrossingRate: seg.MaxZeroCrossingRate,
	})
	stage.done(fmt.Sprintf("%d spans", len(spans)))

	if err := ctx.Err(); err != nil {
		return p.fail(ctx, duration, err)
	}

	// Stage 4: merge into keep segments and carve out fillers.
	stage = p.beginStage(ctx, progress.StageMerge)
	segs := merge.Merge(spans, merge.Options{
		MinSilence: seg.MinSilence(),
		MinSegment: seg.MinSegment(),
		MinPiece:   seg.MinPiece(),
	})
	fillers := timeline.FillerIntervals(words, p.cfg.Fillers.MergeGapDuration())
	carved := intersectingFillers(segs, fillers)
	segs = merge.SubtractFillers(segs, fillers, seg.MinPiece())
	if err := merge.Validate(segs, duration); err != nil {
		return p.fail(ctx, duration, err)
	}
	p.metrics.FillersRemoved.Add(ctx, int64(carved))
	p.metrics.SegmentsKept.Add(ctx, int64(len(segs)))
	stage.done(fmt.Sprintf("%d segments", len(segs)))

	if err := ctx.Err(); err != nil {
		return p.fail(ctx, duration, err)
	}

	// Stage 5: plan fades.
	stage = p.beginStage(ctx, progress.StageTransition)
	directives := transition.Plan(segs, duration, transition.Options{
		FadeDuration:   p.cfg.Transitions.Fade(),
		FadeTrackEdges: p.cfg.Transitions.FadeTrackEdges,
	})
	stage.done("")

	var kept time.Duration
	for _, s := range segs {
		kept += s.Duration()
	}

	res := &Result{
		Segments:   segs,
		Directives: directives,
		Words:      words,
		Stats: Stats{
			TrackDuration:   duration,
			KeptDuration:    kept,
			RemovedDuration: duration - kept,
			Frames:          len(frames),
			Words:           len(words),
			FillersRemoved:  carved,
			SegmentsKept:    len(segs),
		},
	}

	p.metrics.RecordTrack(ctx, "ok", duration)
	p.log.InfoContext(ctx, "segmentation complete",
		"track", duration,
		"kept", kept,
		"removed", duration-kept,
		"segments", len(segs),
	)
	return res, nil
}

// intersectingFillers counts filler intervals that overlap a keep segment.
// Fillers inside already-discarded silence do not count; both inputs are
// sorted, so one forward walk suffices.
func intersectingFillers(segs []merge.Segment, fillers []timeline.Interval) int {
	n, si := 0, 0
	for _, f := range fillers {
		for si < len(segs) && segs[si].End <= f.Start {
			si++
		}
		if si < len(segs) && segs[si].Start < f.End {
			n++
		}
	}
	return n
}

func (p *Pipeline) fail(ctx context.Context, duration time.Duration, err error) (*Result, error) {
	p.metrics.RecordTrack(ctx, "error", duration)
	return nil, err
}

// stageRun times one stage and emits its progress events.
type stageRun struct {
	p     *Pipeline
	ctx   context.Context
	name  string
	index int
	start time.Time
}

func (p *Pipeline) beginStage(ctx context.Context, name string) *stageRun {
	index := 0
	for i, n := range stageOrder {
		if n == name {
			index = i
			break
		}
	}
	p.reporter.Report(ctx, progress.Event{
		Stage:    name,
		Fraction: float64(index) / float64(len(stageOrder)),
	})
	return &stageRun{p: p, ctx: ctx, name: name, index: index, start: time.Now()}
}

func (s *stageRun) done(detail string) {
	elapsed := time.Since(s.start)
	s.p.metrics.RecordStage(s.ctx, s.name, elapsed)
	s.p.reporter.Report(s.ctx, progress.Event{
		Stage:    s.name,
		Done:     true,
		Fraction: float64(s.index+1) / float64(len(stageOrder)),
		Elapsed:  elapsed,
		Detail:   detail,
	})
}
