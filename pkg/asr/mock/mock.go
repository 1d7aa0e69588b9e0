// Package mock provides a test double for the asr.Provider interface.
//
// Use Provider to feed scripted tokens into the pipeline and inspect which
// buffers were delivered.
//
// Example:
//
//	p := &mock.Provider{Tokens: []asr.Token{
//	    {Text: "hello", Start: time.Second, End: 1500 * time.Millisecond},
//	}}
//	tokens, _ := p.Transcribe(ctx, buf)
package mock

import (
	"context"
	"sync"

	"quickcut/pkg/asr"
	"quickcut/pkg/audio"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Buf is the buffer passed to Transcribe.
	Buf *audio.Buffer
}

// Provider is a mock implementation of asr.Provider.
type Provider struct {
	mu sync.Mutex

	// Tokens is returned (copied) from every Transcribe call.
	Tokens []asr.Token

	// TranscribeErr, if non-nil, is returned as the error from Transcribe.
	TranscribeErr error

	// TranscribeCalls records every call to Transcribe.
	TranscribeCalls []TranscribeCall
}

// Transcribe records the call and returns Tokens, TranscribeErr.
func (p *Provider) Transcribe(ctx context.Context, buf *audio.Buffer) ([]asr.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{Ctx: ctx, Buf: buf})
	if p.TranscribeErr != nil {
		return nil, p.TranscribeErr
	}
	out := make([]asr.Token, len(p.Tokens))
	copy(out, p.Tokens)
	return out, nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = nil
}

// Compile-time assertion that Provider satisfies asr.Provider.
var _ asr.Provider = (*Provider)(nil)
