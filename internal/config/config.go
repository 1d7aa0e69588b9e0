// Package config provides the configuration schema and loader for the
// quickcut segmentation engine.
//
// All durations are expressed in seconds as floating-point values, matching
// how the thresholds are surfaced to users. Accessor methods convert to
// time.Duration for the pipeline. The configuration value is immutable once
// loaded; every stage receives it (or the slice of it that concerns the
// stage) by value.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// ASRBackend selects the speech recognition backend.
type ASRBackend string

const (
	// ASRWhisperServer talks to a local whisper-server binary over HTTP.
	ASRWhisperServer ASRBackend = "whisper-server"

	// ASRWhisperNative links whisper.cpp directly via CGO bindings.
	ASRWhisperNative ASRBackend = "whisper-native"
)

// IsValid reports whether b is a recognised ASR backend.
func (b ASRBackend) IsValid() bool {
	return b == ASRWhisperServer || b == ASRWhisperNative
}

// Config is the root configuration structure for quickcut.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	LogLevel     LogLevel           `yaml:"log_level"`
	ASR          ASRConfig          `yaml:"asr"`
	Segmentation SegmentationConfig `yaml:"segmentation"`
	Fillers      FillerConfig       `yaml:"fillers"`
	Transitions  TransitionConfig   `yaml:"transitions"`
	Progress     ProgressConfig     `yaml:"progress"`
}

// ASRConfig selects and configures the word-timestamp oracle. ASR is a hard
// requirement: a run with no usable backend fails rather than degrading to
// energy-only segmentation.
type ASRConfig struct {
	// Backend selects the ASR implementation.
	Backend ASRBackend `yaml:"backend"`

	// ServerURL is the local whisper-server endpoint
	// (e.g., "http://localhost:8080"). Required for the whisper-server backend.
	ServerURL string `yaml:"server_url"`

	// ModelPath is the whisper.cpp model file. Required for the
	// whisper-native backend.
	ModelPath string `yaml:"model_path"`

	// Model is the model identifier forwarded to whisper-server
	// (e.g., "base.en"). Optional; the server default applies when empty.
	Model string `yaml:"model"`

	// Language is the BCP-47 language code for recognition. Defaults to "en".
	Language string `yaml:"language"`
}

// SegmentationConfig holds the thresholds that drive frame classification
// and segment merging.
type SegmentationConfig struct {
	// ThresholdDB is the RMS level (dBFS) at or above which a frame counts
	// as speech outside ASR-covered ranges. Valid range: [-60, -20].
	ThresholdDB float64 `yaml:"threshold_db"`

	// MinSilenceDuration is the shortest silence run (seconds) that is cut.
	// Shorter runs are folded into the surrounding speech. A run exactly this
	// long is treated as silence. Valid range: [0.1, 5.0].
	MinSilenceDuration float64 `yaml:"min_silence_duration"`

	// MinSegmentDuration is the shortest speech run (seconds) worth keeping
	// after silence folding. Shorter runs are dropped as blips.
	MinSegmentDuration float64 `yaml:"min_segment_duration"`

	// MinKeepPiece is the shortest piece (seconds) a filler cut may leave
	// behind. A piece below this is dropped rather than kept as a sliver.
	MinKeepPiece float64 `yaml:"min_keep_piece"`

	// FrameHop is the analysis hop (seconds) between frame starts.
	FrameHop float64 `yaml:"frame_hop"`

	// FrameWindow is the analysis window length (seconds). Clamped up to
	// FrameHop when smaller.
	FrameWindow float64 `yaml:"frame_window"`

	// BorderlineBandDB is the width (dB) of the band below ThresholdDB in
	// which spectral shape and zero-crossing rate may still classify a frame
	// as speech. The RMS threshold remains the primary rule.
	BorderlineBandDB float64 `yaml:"borderline_band_db"`

	// MaxSpectralFlatness is the flatness above which a borderline frame is
	// considered broadband noise rather than tonal speech. Range (0, 1].
	MaxSpectralFlatness float64 `yaml:"max_spectral_flatness"`

	// MaxZeroCrossingRate is the ZCR above which a borderline low-energy
	// frame is classified as noise. Expressed as crossings per sample (0–1).
	MaxZeroCrossingRate float64 `yaml:"max_zero_crossing_rate"`

	// WordMergeGap is the largest gap (seconds) between recognised words
	// that is still bridged into one speech interval.
	WordMergeGap float64 `yaml:"word_merge_gap"`
}

// FillerConfig controls disfluency detection and excision.
type FillerConfig struct {
	// Words is the filler lexicon, matched case-insensitively.
	Words []string `yaml:"words"`

	// FuzzyThreshold is the Jaro-Winkler similarity above which a token is
	// treated as a stretched spelling of a filler word ("ummm", "uhhh").
	// Range [0, 1]; 0 disables fuzzy matching.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`

	// MergeGap is the largest gap (seconds) between adjacent filler ranges
	// that is still merged into one cut.
	MergeGap float64 `yaml:"merge_gap"`
}

// TransitionConfig controls the audio fades planned at segment boundaries.
// Fades apply to audio amplitude only; video frames are never faded.
type TransitionConfig struct {
	// FadeDuration is the nominal fade length (seconds). Each fade is
	// clamped to half its segment's duration. Valid range: [0.0, 1.0].
	FadeDuration float64 `yaml:"fade_duration"`

	// FadeTrackEdges keeps the first segment's fade-in and the last
	// segment's fade-out. When false (the default) those edge fades are
	// zeroed so the track does not open or close on an audible dip.
	FadeTrackEdges bool `yaml:"fade_track_edges"`
}

// ProgressConfig configures the optional external progress sink.
type ProgressConfig struct {
	// WebsocketURL, when set, streams stage progress events as JSON to the
	// given websocket endpoint (e.g., "ws://localhost:9090/progress").
	WebsocketURL string `yaml:"websocket_url"`
}

// Default returns the configuration defaults used when fields are absent
// from the YAML document.
func Default() Config {
	return Config{
		LogLevel: LogInfo,
		ASR: ASRConfig{
			Backend:  ASRWhisperServer,
			Language: "en",
		},
		Segmentation: SegmentationConfig{
			ThresholdDB:         -40.0,
			MinSilenceDuration:  0.5,
			MinSegmentDuration:  0.3,
			MinKeepPiece:        0.2,
			FrameHop:            0.1,
			FrameWindow:         0.1,
			BorderlineBandDB:    3.0,
			MaxSpectralFlatness: 0.5,
			MaxZeroCrossingRate: 0.25,
			WordMergeGap:        0.5,
		},
		Fillers: FillerConfig{
			Words:          []string{"um", "uh", "umm", "uhh", "erm", "er", "ah", "eh", "mm", "hmm"},
			FuzzyThreshold: 0.85,
			MergeGap:       0.25,
		},
		Transitions: TransitionConfig{
			FadeDuration:   0.1,
			FadeTrackEdges: false,
		},
	}
}

// seconds converts a float second count into a Duration.
func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// MinSilence returns MinSilenceDuration as a Duration.
func (s SegmentationConfig) MinSilence() time.Duration { return seconds(s.MinSilenceDuration) }

// MinSegment returns MinSegmentDuration as a Duration.
func (s SegmentationConfig) MinSegment() time.Duration { return seconds(s.MinSegmentDuration) }

// MinPiece returns MinKeepPiece as a Duration.
func (s SegmentationConfig) MinPiece() time.Duration { return seconds(s.MinKeepPiece) }

// Hop returns FrameHop as a Duration.
func (s SegmentationConfig) Hop() time.Duration { return seconds(s.FrameHop) }

// Window returns FrameWindow as a Duration, clamped up to the hop.
func (s SegmentationConfig) Window() time.Duration {
	w := seconds(s.FrameWindow)
	if h := s.Hop(); w < h {
		return h
	}
	return w
}

// MergeGapDuration returns WordMergeGap as a Duration.
func (s SegmentationConfig) MergeGapDuration() time.Duration { return seconds(s.WordMergeGap) }

// Fade returns FadeDuration as a Duration.
func (t TransitionConfig) Fade() time.Duration { return seconds(t.FadeDuration) }

// MergeGapDuration returns MergeGap as a Duration.
func (f FillerConfig) MergeGapDuration() time.Duration { return seconds(f.MergeGap) }
