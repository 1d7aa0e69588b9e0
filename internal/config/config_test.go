package config_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"quickcut/internal/config"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
log_level: info

asr:
  backend: whisper-server
  server_url: http://localhost:8080
  model: base.en
  language: en

segmentation:
  threshold_db: -40
  min_silence_duration: 0.5
  min_segment_duration: 0.3
  min_keep_piece: 0.2
  frame_hop: 0.1
  frame_window: 0.1
  borderline_band_db: 3.0
  max_spectral_flatness: 0.5
  max_zero_crossing_rate: 0.25
  word_merge_gap: 0.5

fillers:
  words: [um, uh, hmm]
  fuzzy_threshold: 0.85
  merge_gap: 0.25

transitions:
  fade_duration: 0.1
  fade_track_edges: false
`

// ── YAML loading ─────────────────────────────────────────────────────────────

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LogLevel != config.LogInfo {
		t.Errorf("log_level: got %q, want %q", cfg.LogLevel, config.LogInfo)
	}
	if cfg.ASR.Backend != config.ASRWhisperServer {
		t.Errorf("asr.backend: got %q, want %q", cfg.ASR.Backend, config.ASRWhisperServer)
	}
	if cfg.Segmentation.ThresholdDB != -40 {
		t.Errorf("segmentation.threshold_db: got %.1f, want -40", cfg.Segmentation.ThresholdDB)
	}
	if got := cfg.Segmentation.MinSilence(); got != 500*time.Millisecond {
		t.Errorf("MinSilence: got %v, want 500ms", got)
	}
	if got := cfg.Transitions.Fade(); got != 100*time.Millisecond {
		t.Errorf("Fade: got %v, want 100ms", got)
	}
	if len(cfg.Fillers.Words) != 3 {
		t.Errorf("fillers.words: got %d entries, want 3", len(cfg.Fillers.Words))
	}
}

func TestLoadFromReader_EmptyUsesDefaults(t *testing.T) {
	// Defaults carry a whisper-server backend with no URL, which is the one
	// default that must be supplied by the user.
	_, err := config.LoadFromReader(strings.NewReader("{}"))
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for missing server_url, got %v", err)
	}

	cfg, err := config.LoadFromReader(strings.NewReader("asr: {server_url: http://localhost:8080}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Segmentation.ThresholdDB != -40.0 {
		t.Errorf("default threshold_db: got %.1f, want -40", cfg.Segmentation.ThresholdDB)
	}
	if cfg.Transitions.FadeTrackEdges {
		t.Error("default fade_track_edges should be false")
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("silence_treshold: -40\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

// ── Validation ───────────────────────────────────────────────────────────────

func validBase() config.Config {
	cfg := config.Default()
	cfg.ASR.ServerURL = "http://localhost:8080"
	return cfg
}

func TestValidate_ThresholdOutOfRange(t *testing.T) {
	for _, db := range []float64{-61, -19.9, 0} {
		cfg := validBase()
		cfg.Segmentation.ThresholdDB = db
		err := config.Validate(cfg)
		if !errors.Is(err, config.ErrInvalidConfig) {
			t.Errorf("threshold_db=%v: expected ErrInvalidConfig, got %v", db, err)
		}
	}
}

func TestValidate_ThresholdBoundsInclusive(t *testing.T) {
	for _, db := range []float64{-60, -20} {
		cfg := validBase()
		cfg.Segmentation.ThresholdDB = db
		if err := config.Validate(cfg); err != nil {
			t.Errorf("threshold_db=%v: unexpected error: %v", db, err)
		}
	}
}

func TestValidate_MinSilenceOutOfRange(t *testing.T) {
	for _, d := range []float64{0.05, 5.5, -1} {
		cfg := validBase()
		cfg.Segmentation.MinSilenceDuration = d
		if err := config.Validate(cfg); !errors.Is(err, config.ErrInvalidConfig) {
			t.Errorf("min_silence_duration=%v: expected ErrInvalidConfig, got %v", d, err)
		}
	}
}

func TestValidate_FadeOutOfRange(t *testing.T) {
	for _, d := range []float64{-0.1, 1.01} {
		cfg := validBase()
		cfg.Transitions.FadeDuration = d
		if err := config.Validate(cfg); !errors.Is(err, config.ErrInvalidConfig) {
			t.Errorf("fade_duration=%v: expected ErrInvalidConfig, got %v", d, err)
		}
	}
}

func TestValidate_InvalidBackend(t *testing.T) {
	cfg := validBase()
	cfg.ASR.Backend = "deepgram"
	if err := config.Validate(cfg); !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidate_NativeBackendNeedsModelPath(t *testing.T) {
	cfg := validBase()
	cfg.ASR.Backend = config.ASRWhisperNative
	cfg.ASR.ModelPath = ""
	err := config.Validate(cfg)
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "model_path") {
		t.Errorf("error should mention model_path, got: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validBase()
	cfg.Segmentation.ThresholdDB = 0
	cfg.Segmentation.MinSilenceDuration = 99
	cfg.Transitions.FadeDuration = 2
	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, want := range []string{"threshold_db", "min_silence_duration", "fade_duration"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error should mention %s, got: %v", want, err)
		}
	}
}

func TestWindow_ClampedToHop(t *testing.T) {
	cfg := config.Default()
	cfg.Segmentation.FrameHop = 0.1
	cfg.Segmentation.FrameWindow = 0.05
	if got := cfg.Segmentation.Window(); got != cfg.Segmentation.Hop() {
		t.Errorf("window below hop should clamp to hop, got %v", got)
	}
}
