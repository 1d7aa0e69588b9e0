// Package whisper provides asr.Provider implementations backed by
// whisper.cpp, the offline speech recognition engine the segmentation
// pipeline uses as its ground-truth word oracle.
//
// Two providers are available:
//
//   - Provider connects to a running whisper-server binary over HTTP
//     (POST /inference) and parses the word-level timestamps from its
//     verbose JSON response. The server runs on localhost; no network
//     beyond the local machine is required.
//   - NativeProvider (native.go) links whisper.cpp directly via the CGO
//     bindings and reads per-token timestamps from the inference context,
//     with no server process at all.
//
// Both operate strictly offline and in batch mode: the full track is
// submitted in one call, as the asr.Provider contract requires.
//
// Usage:
//
//	p, err := whisper.New("http://localhost:8080",
//	    whisper.WithLanguage("en"),
//	)
//	tokens, err := p.Transcribe(ctx, buf)
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"quickcut/pkg/asr"
	"quickcut/pkg/audio"
)

const (
	defaultLanguage = "en"
	defaultTimeout  = 5 * time.Minute
)

// Compile-time assertion that Provider implements asr.Provider.
var _ asr.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the whisper-server
// (e.g., "base.en", "small"). When empty the server uses whichever model it
// was started with — this is the default.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the BCP-47 language code sent to the whisper-server
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithHTTPClient replaces the HTTP client used to reach the server. Useful
// in tests and for callers that need custom timeouts.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements asr.Provider against a local whisper-server HTTP
// endpoint. Safe for concurrent use; each Transcribe call is independent.
type Provider struct {
	serverURL  string
	model      string
	language   string
	httpClient *http.Client
}

// New creates a Provider that connects to the whisper-server at serverURL
// (e.g., "http://localhost:8080"). serverURL must be non-empty; an empty URL
// means no backend is configured, which is reported as asr.ErrUnavailable.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("%w: no whisper server url configured", asr.ErrUnavailable)
	}
	p := &Provider{
		serverURL:  serverURL,
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// inferenceResponse mirrors the verbose JSON emitted by whisper-server when
// word-level timestamps are requested. Word times are seconds from track
// start.
type inferenceResponse struct {
	Text  string `json:"text"`
	Words []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Prob  float64 `json:"probability"`
	} `json:"words"`
}

// Transcribe encodes the buffer as WAV, POSTs it to the whisper-server
// /inference endpoint and converts the word list of the response into
// ordered tokens. A connection failure is reported as asr.ErrUnavailable so
// the caller can distinguish "backend missing" from a malformed response.
func (p *Provider) Transcribe(ctx context.Context, buf *audio.Buffer) ([]asr.Token, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	wav := audio.EncodeWAV(audio.SamplesToPCM(buf.Samples), buf.SampleRate, 1)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return nil, fmt.Errorf("whisper: write wav data: %w", err)
	}

	fields := map[string]string{
		"response_format": "verbose_json",
		"word_timestamps": "true",
	}
	if p.language != "" {
		fields["language"] = p.language
	}
	if p.model != "" {
		fields["model"] = p.model
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("whisper: write %s field: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	endpoint := p.serverURL + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", asr.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: server returned HTTP %d", asr.ErrUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whisper: read response body: %w", err)
	}

	var result inferenceResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	tokens := make([]asr.Token, 0, len(result.Words))
	for _, w := range result.Words {
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		tokens = append(tokens, asr.Token{
			Text:       text,
			Start:      secondsToDuration(w.Start),
			End:        secondsToDuration(w.End),
			Confidence: w.Prob,
		})
	}
	return tokens, nil
}

// secondsToDuration converts a floating-point second count into a Duration.
func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
