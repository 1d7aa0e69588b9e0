package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when any configured parameter is outside its
// documented bounds. It is fatal and surfaced before processing starts.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults for absent
// fields, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns
// ErrInvalidConfig wrapping a joined error listing all failures found.
func Validate(cfg Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// ASR backend
	if !cfg.ASR.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("asr.backend %q is invalid; valid values: whisper-server, whisper-native", cfg.ASR.Backend))
	}
	switch cfg.ASR.Backend {
	case ASRWhisperServer:
		if cfg.ASR.ServerURL == "" {
			errs = append(errs, errors.New("asr.server_url is required for the whisper-server backend"))
		}
	case ASRWhisperNative:
		if cfg.ASR.ModelPath == "" {
			errs = append(errs, errors.New("asr.model_path is required for the whisper-native backend"))
		}
	}

	// Segmentation bounds
	seg := cfg.Segmentation
	if seg.ThresholdDB < -60.0 || seg.ThresholdDB > -20.0 {
		errs = append(errs, fmt.Errorf("segmentation.threshold_db %.1f is out of range [-60, -20]", seg.ThresholdDB))
	}
	if seg.MinSilenceDuration < 0.1 || seg.MinSilenceDuration > 5.0 {
		errs = append(errs, fmt.Errorf("segmentation.min_silence_duration %.2f is out of range [0.1, 5.0]", seg.MinSilenceDuration))
	}
	if seg.MinSegmentDuration <= 0 {
		errs = append(errs, fmt.Errorf("segmentation.min_segment_duration %.2f must be positive", seg.MinSegmentDuration))
	}
	if seg.MinKeepPiece < 0 {
		errs = append(errs, fmt.Errorf("segmentation.min_keep_piece %.2f must not be negative", seg.MinKeepPiece))
	}
	if seg.FrameHop <= 0 {
		errs = append(errs, fmt.Errorf("segmentation.frame_hop %.3f must be positive", seg.FrameHop))
	}
	if seg.FrameWindow < 0 {
		errs = append(errs, fmt.Errorf("segmentation.frame_window %.3f must not be negative", seg.FrameWindow))
	}
	if seg.BorderlineBandDB < 0 {
		errs = append(errs, fmt.Errorf("segmentation.borderline_band_db %.1f must not be negative", seg.BorderlineBandDB))
	}
	if seg.MaxSpectralFlatness <= 0 || seg.MaxSpectralFlatness > 1 {
		errs = append(errs, fmt.Errorf("segmentation.max_spectral_flatness %.2f is out of range (0, 1]", seg.MaxSpectralFlatness))
	}
	if seg.MaxZeroCrossingRate <= 0 || seg.MaxZeroCrossingRate > 1 {
		errs = append(errs, fmt.Errorf("segmentation.max_zero_crossing_rate %.2f is out of range (0, 1]", seg.MaxZeroCrossingRate))
	}
	if seg.WordMergeGap < 0 {
		errs = append(errs, fmt.Errorf("segmentation.word_merge_gap %.2f must not be negative", seg.WordMergeGap))
	}

	// Fillers
	if cfg.Fillers.FuzzyThreshold < 0 || cfg.Fillers.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("fillers.fuzzy_threshold %.2f is out of range [0, 1]", cfg.Fillers.FuzzyThreshold))
	}
	if cfg.Fillers.MergeGap < 0 {
		errs = append(errs, fmt.Errorf("fillers.merge_gap %.2f must not be negative", cfg.Fillers.MergeGap))
	}

	// Transitions
	if cfg.Transitions.FadeDuration < 0.0 || cfg.Transitions.FadeDuration > 1.0 {
		errs = append(errs, fmt.Errorf("transitions.fade_duration %.2f is out of range [0.0, 1.0]", cfg.Transitions.FadeDuration))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
