// Package progress reports pipeline stage progress to interested sinks.
// The pipeline emits one event per stage transition plus a final summary;
// sinks are fire-and-forget so a slow or broken sink never stalls analysis.
package progress

import (
	"context"
	"log/slog"
	"time"
)

// Stage names as reported in events.
const (
	StageDecode     = "decode"
	StageExtract    = "extract"
	StageTranscribe = "transcribe"
	StageFuse       = "fuse"
	StageMerge      = "merge"
	StageTransition = "transition"
)

// Event is a single progress update. Fraction is overall pipeline
// completion in [0, 1].
type Event struct {
	Stage    string        `json:"stage"`
	Done     bool          `json:"done"`
	Fraction float64       `json:"fraction"`
	Elapsed  time.Duration `json:"elapsed_ns,omitempty"`
	Detail   string        `json:"detail,omitempty"`
}

// Reporter receives progress events. Report must not block on slow
// consumers and must tolerate events after an error.
type Reporter interface {
	Report(ctx context.Context, ev Event)
}

// ── log reporter ─────────────────────────────────────────────────────────────

// LogReporter writes events to a structured logger.
type LogReporter struct {
	log *slog.Logger
}

var _ Reporter = (*LogReporter)(nil)

// NewLogReporter creates a reporter over log. A nil log uses slog.Default.
func NewLogReporter(log *slog.Logger) *LogReporter {
	if log == nil {
		log = slog.Default()
	}
	return &LogReporter{log: log}
}

// Report logs the event at debug for stage starts and info for completions.
func (r *LogReporter) Report(ctx context.Context, ev Event) {
	attrs := []any{"stage", ev.Stage}
	if ev.Detail != "" {
		attrs = append(attrs, "detail", ev.Detail)
	}
	if !ev.Done {
		r.log.DebugContext(ctx, "stage started", attrs...)
		return
	}
	attrs = append(attrs, "elapsed", ev.Elapsed)
	r.log.InfoContext(ctx, "stage finished", attrs...)
}

// ── fan-out ──────────────────────────────────────────────────────────────────

// Multi fans events out to several reporters.
type Multi []Reporter

var _ Reporter = (Multi)(nil)

// Report delivers the event to every reporter in order.
func (m Multi) Report(ctx context.Context, ev Event) {
	for _, r := range m {
		r.Report(ctx, ev)
	}
}
