// Package dsp implements the leaf signal-processing components of the
// quartet engine: spectral analysis with adaptive noise-floor tracking,
// voice activity detection, frequency-band stream separation, spectral
// noise reduction, and the final remix stage.
//
// Every component is a plain struct that owns its scratch buffers, is
// constructed once, and performs no allocation on the per-block path after
// the first call. None of them are safe for concurrent use — the engine
// drives them from a single real-time goroutine.
package dsp

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// noiseAlpha is the EMA learning rate for the noise-floor profile.
	// Small on purpose: the profile should track slow changes in the room,
	// not chase block-to-block variation.
	noiseAlpha = 0.01

	// quietBlockThreshold is how many consecutive voice-free blocks must
	// pass before the noise profile starts absorbing the current spectrum.
	// Guards the noise model against learning speech energy.
	quietBlockThreshold = 50

	// initialNoiseFloor seeds every profile bin at construction.
	initialNoiseFloor = 0.01
)

// SpectralAnalyzer windows incoming blocks into a fixed-size FFT frame,
// computes a magnitude spectrum, and maintains the adaptive noise-floor
// profile used by the noise reducer.
//
// The magnitude convention is |X[k]| / N for k in [0, N/2): downstream
// band-weighting thresholds are calibrated against it, so it must not
// change even if the FFT implementation does.
type SpectralAnalyzer struct {
	sampleRate int
	fftSize    int
	half       int

	fft    *fourier.FFT
	input  []float64    // zero-padded analysis frame, len fftSize
	coeffs []complex128 // FFT output, len fftSize/2+1

	spectrum []float64 // current magnitude spectrum, len half
	profile  []float64 // noise-floor estimate, len half, entries >= 0

	quietBlocks int // consecutive blocks without a voice decision
}

// NewSpectralAnalyzer creates an analyzer for the given sample rate and FFT
// size. The noise profile starts at a uniform floor and adapts over time.
func NewSpectralAnalyzer(sampleRate, fftSize int) *SpectralAnalyzer {
	half := fftSize / 2
	a := &SpectralAnalyzer{
		sampleRate: sampleRate,
		fftSize:    fftSize,
		half:       half,
		fft:        fourier.NewFFT(fftSize),
		input:      make([]float64, fftSize),
		coeffs:     make([]complex128, fftSize/2+1),
		spectrum:   make([]float64, half),
		profile:    make([]float64, half),
	}
	for k := range a.profile {
		a.profile[k] = initialNoiseFloor
	}
	return a
}

// Analyze computes the magnitude spectrum of block and returns the
// analyzer's internal spectrum slice. The returned slice is overwritten on
// the next call; consumers must read it within the same block.
//
// Blocks longer than the FFT size are truncated; shorter blocks are
// zero-padded. An empty block leaves the previous spectrum in place.
func (a *SpectralAnalyzer) Analyze(block []float32) []float64 {
	if len(block) == 0 {
		return a.spectrum
	}

	n := len(block)
	if n > a.fftSize {
		n = a.fftSize
	}
	for i := 0; i < n; i++ {
		a.input[i] = float64(block[i])
	}
	for i := n; i < a.fftSize; i++ {
		a.input[i] = 0
	}

	a.fft.Coefficients(a.coeffs, a.input)

	norm := float64(a.fftSize)
	for k := 0; k < a.half; k++ {
		a.spectrum[k] = cmplx.Abs(a.coeffs[k]) / norm
	}
	return a.spectrum
}

// Adapt advances the quiet-block streak from the current block's voice
// decision and, when adapt is set and the stream has been quiet for longer
// than the threshold, folds the current spectrum into the noise profile via
// an exponential moving average. Call once per processed block, after voice
// detection.
func (a *SpectralAnalyzer) Adapt(voiced, adapt bool) {
	if voiced {
		a.quietBlocks = 0
		return
	}
	a.quietBlocks++

	if !adapt || a.quietBlocks <= quietBlockThreshold {
		return
	}
	for k := range a.profile {
		a.profile[k] = (1-noiseAlpha)*a.profile[k] + noiseAlpha*a.spectrum[k]
	}
}

// Spectrum returns the analyzer's current magnitude spectrum. The slice is
// internal state: valid to read only until the next Analyze call.
func (a *SpectralAnalyzer) Spectrum() []float64 { return a.spectrum }

// NoiseProfile returns the live noise-floor profile. The slice is internal
// state owned by the analyzer; callers must not mutate it.
func (a *SpectralAnalyzer) NoiseProfile() []float64 { return a.profile }

// QuietBlocks returns the current length of the voice-free streak.
func (a *SpectralAnalyzer) QuietBlocks() int { return a.quietBlocks }
