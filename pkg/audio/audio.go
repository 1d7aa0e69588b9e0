// Package audio provides the immutable audio buffer consumed by the
// segmentation pipeline, plus WAV ingestion helpers for pre-extracted
// audio tracks.
//
// A Buffer holds mono samples normalised to [-1.0, 1.0]. It is created once
// by the external demuxer boundary (or by [DecodeWAV]) and is read-only for
// the rest of the run; every pipeline stage receives it by pointer but never
// mutates it.
package audio

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidAudio is returned when a buffer is empty or carries a
// non-positive sample rate. It is a hard failure: the pipeline refuses to
// start on malformed input.
var ErrInvalidAudio = errors.New("audio: invalid audio buffer")

// Buffer is a mono audio track. Samples are float64 in [-1.0, 1.0].
type Buffer struct {
	// Samples is the mono sample sequence. Never mutated after construction.
	Samples []float64

	// SampleRate in Hz. Must be positive.
	SampleRate int
}

// NewBuffer validates samples and rate and returns a Buffer.
// Returns ErrInvalidAudio for an empty sample slice or rate <= 0.
func NewBuffer(samples []float64, sampleRate int) (*Buffer, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrInvalidAudio)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidAudio, sampleRate)
	}
	return &Buffer{Samples: samples, SampleRate: sampleRate}, nil
}

// Duration returns the total track duration.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.Samples)) / float64(b.SampleRate) * float64(time.Second))
}

// Seconds returns the total track duration in seconds.
func (b *Buffer) Seconds() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Validate reports whether the buffer is usable by the pipeline.
// Returns ErrInvalidAudio (wrapped) when it is not.
func (b *Buffer) Validate() error {
	if b == nil || len(b.Samples) == 0 {
		return fmt.Errorf("%w: no samples", ErrInvalidAudio)
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidAudio, b.SampleRate)
	}
	return nil
}
