// This file contains the NativeProvider implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"quickcut/pkg/asr"
	"quickcut/pkg/audio"
)

// Compile-time assertion that NativeProvider satisfies asr.Provider.
var _ asr.Provider = (*NativeProvider)(nil)

// modelSampleRate is the sample rate whisper.cpp models are trained on.
// Buffers at any other rate are rejected; resampling belongs to the external
// demuxer boundary.
const modelSampleRate = 16000

// NativeProvider implements asr.Provider using the whisper.cpp Go bindings
// (CGO), eliminating server overhead entirely. The model is loaded once at
// startup and shared across concurrent Transcribe calls; each call creates
// its own whisper context.
type NativeProvider struct {
	model    whisperlib.Model
	language string

	// mu serialises context creation; whisper contexts are not thread-safe
	// but the model itself may be shared.
	mu sync.Mutex
}

// NativeOption is a functional option for configuring a NativeProvider.
type NativeOption func(*NativeProvider)

// WithNativeLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(p *NativeProvider) { p.language = lang }
}

// NewNative creates a NativeProvider that loads the whisper.cpp model from
// the given file path. An empty path or a load failure is reported as
// asr.ErrUnavailable — without a model there is no word oracle. The caller
// must call Close when the provider is no longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("%w: no whisper model path configured", asr.ErrUnavailable)
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: load model %q: %v", asr.ErrUnavailable, modelPath, err)
	}

	p := &NativeProvider{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model. Must be called when the provider is no
// longer needed.
func (p *NativeProvider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe runs whisper.cpp inference over the full buffer with token
// timestamps enabled and returns one asr.Token per recognised word piece,
// ordered by start time.
func (p *NativeProvider) Transcribe(ctx context.Context, buf *audio.Buffer) ([]asr.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context already cancelled: %w", err)
	}
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if buf.SampleRate != modelSampleRate {
		return nil, fmt.Errorf("%w: sample rate %d (whisper requires %d)",
			audio.ErrInvalidAudio, buf.SampleRate, modelSampleRate)
	}

	samples := make([]float32, len(buf.Samples))
	for i, s := range buf.Samples {
		samples[i] = float32(s)
	}

	p.mu.Lock()
	wctx, err := p.model.NewContext()
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: create context: %v", asr.ErrUnavailable, err)
	}

	if err := wctx.SetLanguage(p.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", p.language, "error", err)
	}
	wctx.SetTokenTimestamps(true)

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var tokens []asr.Token
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		for _, tok := range segment.Tokens {
			text := strings.TrimSpace(tok.Text)
			// Skip special markers like "[_BEG_]" and bare punctuation.
			if text == "" || strings.HasPrefix(text, "[") || strings.HasPrefix(text, "<") {
				continue
			}
			tokens = append(tokens, asr.Token{
				Text:       text,
				Start:      tok.Start,
				End:        tok.End,
				Confidence: float64(tok.P),
			})
		}
	}

	return tokens, nil
}
