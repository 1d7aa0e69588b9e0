// Package asr defines the Provider interface for offline batch speech
// recognition backends.
//
// The segmentation engine treats ASR as an authoritative black box: given the
// full audio track it returns an ordered list of recognised words with
// start/end timestamps. No streaming interface is required — a single batch
// call covering the whole track is sufficient, so Provider is deliberately a
// one-method interface.
//
// A missing or unreachable backend is a hard failure ([ErrUnavailable]).
// Without word-level timestamps the engine has no ground truth for speech
// boundaries and must refuse to process rather than silently degrade.
//
// Implementations must be safe for concurrent use; the engine may transcribe
// several tracks in parallel against one shared provider.
package asr

import (
	"context"
	"errors"
	"time"

	"quickcut/pkg/audio"
)

// ErrUnavailable is returned when no ASR backend or model is configured or
// the configured backend cannot be reached. Fatal; there is no fallback.
var ErrUnavailable = errors.New("asr: backend unavailable")

// Token is a single recognised word with its position on the track timeline.
type Token struct {
	// Text is the recognised word, as emitted by the backend.
	Text string

	// Start and End bound the word on the track timeline. Providers should
	// emit Start < End; the timeline normaliser drops tokens that violate it.
	Start time.Duration
	End   time.Duration

	// Confidence is the backend's word confidence (0.0–1.0). Zero when the
	// backend does not report one.
	Confidence float64
}

// Provider is the abstraction over any batch ASR backend.
type Provider interface {
	// Transcribe runs recognition over the full buffer and returns tokens
	// ordered by start time. Returns ErrUnavailable (possibly wrapped) when
	// the backend cannot be reached, and respects ctx cancellation.
	Transcribe(ctx context.Context, buf *audio.Buffer) ([]Token, error)
}
