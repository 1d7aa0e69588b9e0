// Package analysis implements the frame-level signal extractor: per-frame
// RMS energy in dBFS, spectral flatness and centroid, and zero-crossing
// rate over a fixed analysis hop.
//
// Frames partition [0, duration) with no gaps. The final frame may be
// shorter than the nominal window and is still emitted so that downstream
// stages always see full-duration coverage. Frames are computed
// independently from the shared read-only buffer, so extraction fans out
// across workers and the results land in frame-index order regardless of
// which worker finishes first.
package analysis

import (
	"context"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"quickcut/pkg/audio"
)

// FloorDB is the dB level assigned to frames with zero energy. True digital
// silence would otherwise be -Inf.
const FloorDB = -60.0

// FrameFeature summarises one analysis frame.
type FrameFeature struct {
	// Index is the frame's position in the hop sequence, starting at 0.
	Index int

	// Start and End bound the frame on the track timeline. End - Start
	// equals the hop except for the final, possibly shorter frame.
	Start time.Duration
	End   time.Duration

	// RMSDB is the frame energy in dBFS, floored at FloorDB.
	RMSDB float64

	// SpectralFlatness is the Wiener entropy of the frame's power spectrum
	// in [0, 1]. Near 1 means broadband noise; tonal speech sits much lower.
	SpectralFlatness float64

	// SpectralCentroid is the power-weighted mean frequency in Hz.
	SpectralCentroid float64

	// ZeroCrossingRate is the fraction of adjacent sample pairs that change
	// sign, in [0, 1]. High ZCR with low energy indicates fricative-like
	// noise rather than silence.
	ZeroCrossingRate float64
}

// Options configures extraction.
type Options struct {
	// Hop is the stride between frame starts. Default 100 ms.
	Hop time.Duration

	// Window is the analysis window length. Clamped up to Hop.
	Window time.Duration

	// Workers bounds the parallel frame computation. Defaults to
	// runtime.GOMAXPROCS(0).
	Workers int
}

// framesPerTask is how many consecutive frames one worker task computes.
// Coarse tasks keep scheduling overhead negligible next to the FFT work.
const framesPerTask = 256

// Extract computes the ordered frame feature sequence for buf. It returns
// audio.ErrInvalidAudio for an empty buffer or non-positive sample rate, and
// stops early with ctx.Err() when cancelled.
func Extract(ctx context.Context, buf *audio.Buffer, opts Options) ([]FrameFeature, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	hop := opts.Hop
	if hop <= 0 {
		hop = 100 * time.Millisecond
	}
	window := opts.Window
	if window < hop {
		window = hop
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	rate := float64(buf.SampleRate)
	hopSamples := int(float64(hop) / float64(time.Second) * rate)
	if hopSamples <= 0 {
		hopSamples = 1
	}
	windowSamples := int(float64(window) / float64(time.Second) * rate)
	if windowSamples < hopSamples {
		windowSamples = hopSamples
	}

	total := len(buf.Samples)
	nFrames := (total + hopSamples - 1) / hopSamples
	features := make([]FrameFeature, nFrames)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for task := 0; task < nFrames; task += framesPerTask {
		first, last := task, min(task+framesPerTask, nFrames)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := first; i < last; i++ {
				start := i * hopSamples
				end := min(start+windowSamples, total)
				features[i] = frameFeature(i, buf.Samples[start:end], start, min(start+hopSamples, total), buf.SampleRate)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return features, nil
}

// frameFeature computes the feature vector for one frame. window is the
// analysis slice; startSample/endSample bound the frame's hop on the track.
func frameFeature(index int, window []float64, startSample, endSample, sampleRate int) FrameFeature {
	f := FrameFeature{
		Index: index,
		Start: sampleTime(startSample, sampleRate),
		End:   sampleTime(endSample, sampleRate),
	}

	f.RMSDB = rmsDB(window)
	f.ZeroCrossingRate = zeroCrossingRate(window)
	f.SpectralFlatness, f.SpectralCentroid = spectralShape(window, sampleRate)
	return f
}

// rmsDB returns the root-mean-square level of the window in dBFS, floored at
// FloorDB. Never returns -Inf or NaN.
func rmsDB(window []float64) float64 {
	if len(window) == 0 {
		return FloorDB
	}
	var sum float64
	for _, s := range window {
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(len(window)))
	if rms <= 0 {
		return FloorDB
	}
	db := 20 * math.Log10(rms)
	if db < FloorDB || math.IsNaN(db) {
		return FloorDB
	}
	return db
}

// zeroCrossingRate returns the fraction of adjacent sample pairs with
// opposite sign.
func zeroCrossingRate(window []float64) float64 {
	if len(window) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(window); i++ {
		if (window[i-1] >= 0) != (window[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(window)-1)
}

// spectralShape returns the spectral flatness (geometric over arithmetic
// mean of the power spectrum, DC bin excluded) and the power-weighted
// centroid frequency in Hz. A silent frame reports flatness 1 (pure noise
// floor, no tonal structure) and centroid 0.
func spectralShape(window []float64, sampleRate int) (flatness, centroid float64) {
	if len(window) < 4 {
		return 1, 0
	}
	spec := powerSpectrum(window)
	n := (len(spec) - 1) * 2
	binHz := float64(sampleRate) / float64(n)

	const eps = 1e-12
	var logSum, sum, weighted float64
	bins := 0
	for k := 1; k < len(spec); k++ {
		p := spec[k] + eps
		logSum += math.Log(p)
		sum += p
		weighted += p * float64(k) * binHz
		bins++
	}
	if bins == 0 || sum <= 0 {
		return 1, 0
	}
	geo := math.Exp(logSum / float64(bins))
	arith := sum / float64(bins)
	flatness = geo / arith
	if flatness > 1 {
		flatness = 1
	}
	centroid = weighted / sum
	return flatness, centroid
}

// sampleTime converts a sample offset into a track timestamp.
func sampleTime(sample, rate int) time.Duration {
	return time.Duration(float64(sample) / float64(rate) * float64(time.Second))
}
