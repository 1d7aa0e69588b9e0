// Command quickcut analyzes a speech recording and writes a cut plan: the
// keep segments, their audio fades, and the ffmpeg invocations an assembly
// stage would run. It never touches the video itself.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"quickcut/internal/config"
	"quickcut/internal/export"
	"quickcut/internal/observe"
	"quickcut/internal/pipeline"
	"quickcut/internal/progress"
	"quickcut/pkg/asr"
	"quickcut/pkg/asr/whisper"
	"quickcut/pkg/audio"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	inputWAV := flag.String("input", "", "path to the mono PCM WAV audio track to analyze")
	source := flag.String("source", "", "path to the source video the plan refers to (defaults to -input)")
	planPath := flag.String("out", "plan.json", "path for the JSON cut plan")
	segmentDir := flag.String("segment-dir", "segments", "directory the ffmpeg invocations write cut segments to")
	flag.Parse()

	if *inputWAV == "" {
		fmt.Fprintln(os.Stderr, "quickcut: -input is required")
		flag.Usage()
		return 2
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "quickcut: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "quickcut: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("quickcut starting",
		"config", *configPath,
		"input", *inputWAV,
		"asr_backend", cfg.ASR.Backend,
		"log_level", cfg.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	// ── ASR provider ──────────────────────────────────────────────────────────
	provider, closeProvider, err := buildProvider(cfg)
	if err != nil {
		slog.Error("failed to build ASR provider", "err", err)
		return 1
	}
	defer closeProvider()

	// ── Progress sinks ────────────────────────────────────────────────────────
	reporters := progress.Multi{progress.NewLogReporter(logger)}
	if cfg.Progress.WebsocketURL != "" {
		ws, err := progress.DialWebsocket(ctx, cfg.Progress.WebsocketURL, logger)
		if err != nil {
			slog.Warn("progress websocket unavailable, continuing without it", "err", err)
		} else {
			defer ws.Close()
			reporters = append(reporters, ws)
		}
	}

	// ── Decode input ──────────────────────────────────────────────────────────
	reporters.Report(ctx, progress.Event{Stage: progress.StageDecode})
	decodeStart := time.Now()
	buf, err := audio.DecodeWAVFile(*inputWAV)
	if err != nil {
		slog.Error("failed to decode input", "path", *inputWAV, "err", err)
		return 1
	}
	reporters.Report(ctx, progress.Event{
		Stage:   progress.StageDecode,
		Done:    true,
		Elapsed: time.Since(decodeStart),
		Detail:  buf.Duration().String(),
	})
	slog.Info("audio decoded", "duration", buf.Duration(), "sample_rate", buf.SampleRate)

	// ── Run the pipeline ──────────────────────────────────────────────────────
	p := pipeline.New(&cfg, provider,
		pipeline.WithLogger(logger),
		pipeline.WithReporter(reporters),
	)
	res, err := p.Run(ctx, buf)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("cancelled")
			return 1
		}
		slog.Error("segmentation failed", "err", err)
		return 1
	}

	// ── Write the plan ────────────────────────────────────────────────────────
	src := *source
	if src == "" {
		src = *inputWAV
	}
	if err := writePlan(*planPath, src, *segmentDir, res); err != nil {
		slog.Error("failed to write plan", "err", err)
		return 1
	}

	slog.Info("plan written",
		"path", *planPath,
		"segments", res.Stats.SegmentsKept,
		"kept", res.Stats.KeptDuration,
		"removed", res.Stats.RemovedDuration,
	)
	return 0
}

// buildProvider constructs the configured ASR backend. The returned close
// function releases backend resources and is safe to call on every path.
func buildProvider(cfg config.Config) (asr.Provider, func(), error) {
	switch cfg.ASR.Backend {
	case config.ASRWhisperServer:
		var opts []whisper.Option
		if cfg.ASR.Model != "" {
			opts = append(opts, whisper.WithModel(cfg.ASR.Model))
		}
		if cfg.ASR.Language != "" {
			opts = append(opts, whisper.WithLanguage(cfg.ASR.Language))
		}
		p, err := whisper.New(cfg.ASR.ServerURL, opts...)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {}, nil

	case config.ASRWhisperNative:
		var opts []whisper.NativeOption
		if cfg.ASR.Language != "" {
			opts = append(opts, whisper.WithNativeLanguage(cfg.ASR.Language))
		}
		p, err := whisper.NewNative(cfg.ASR.ModelPath, opts...)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {
			if err := p.Close(); err != nil {
				slog.Warn("whisper model close error", "err", err)
			}
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown ASR backend %q", cfg.ASR.Backend)
	}
}

// writePlan renders the JSON plan, the ffmpeg invocation list, and the
// concat file next to the plan.
func writePlan(path, source, segmentDir string, res *pipeline.Result) error {
	plan := export.NewPlan(source, res)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := plan.WriteJSON(f); err != nil {
		return err
	}

	output := strings.TrimSuffix(source, filepath.Ext(source)) + "_cut" + filepath.Ext(source)
	invs := export.FFmpegInvocations(plan, segmentDir, output)

	cmdsPath := strings.TrimSuffix(path, filepath.Ext(path)) + "_commands.json"
	cf, err := os.Create(cmdsPath)
	if err != nil {
		return err
	}
	defer cf.Close()
	enc := json.NewEncoder(cf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(invs); err != nil {
		return err
	}

	listPath := strings.TrimSuffix(path, filepath.Ext(path)) + "_segments.txt"
	return os.WriteFile(listPath, []byte(export.ConcatList(invs)), 0o644)
}

// newLogger builds the process logger for the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
