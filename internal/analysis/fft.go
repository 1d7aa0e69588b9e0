package analysis

import "math"

// powerSpectrum returns the one-sided power spectrum of x after applying a
// Hann window. The input is zero-padded to the next power of two; the
// returned slice has n/2+1 bins where n is the padded length. Bin k maps to
// frequency k·sampleRate/n.
func powerSpectrum(x []float64) []float64 {
	n := nextPow2(len(x))
	re := make([]float64, n)
	im := make([]float64, n)

	// Hann window over the actual data length reduces spectral leakage.
	m := float64(len(x) - 1)
	for i, v := range x {
		w := 1.0
		if m > 0 {
			w = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/m))
		}
		re[i] = v * w
	}

	fft(re, im)

	spec := make([]float64, n/2+1)
	for k := range spec {
		spec[k] = re[k]*re[k] + im[k]*im[k]
	}
	return spec
}

// fft computes an in-place iterative radix-2 Cooley-Tukey transform over the
// complex sequence (re, im). len(re) must be a power of two.
func fft(re, im []float64) {
	n := len(re)
	if n <= 1 {
		return
	}

	// Bit-reversal permutation.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	for size := 2; size <= n; size <<= 1 {
		ang := -2 * math.Pi / float64(size)
		wr, wi := math.Cos(ang), math.Sin(ang)
		for start := 0; start < n; start += size {
			cr, ci := 1.0, 0.0
			for k := start; k < start+size/2; k++ {
				l := k + size/2
				tr := cr*re[l] - ci*im[l]
				ti := cr*im[l] + ci*re[l]
				re[l] = re[k] - tr
				im[l] = im[k] - ti
				re[k] += tr
				im[k] += ti
				cr, ci = cr*wr-ci*wi, cr*wi+ci*wr
			}
		}
	}
}

// nextPow2 returns the smallest power of two >= n (minimum 2).
func nextPow2(n int) int {
	p := 2
	for p < n {
		p <<= 1
	}
	return p
}
