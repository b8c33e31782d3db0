package dsp

import "math"

// Per-stream base reduction multipliers. Scaled by the configured ANC
// intensity to give each stream's maximum single-pass attenuation.
const (
	noiseReduction       = 0.9
	ambientReduction     = 0.5
	musicReduction       = 0.3
	voiceReductionActive = 0.2 // voice present: protect the speech stream
	voiceReductionIdle   = 0.6
)

// reduceEpsilon floors the |sample| denominator when deriving the
// spectral-subtraction factor, so silence does not divide by zero.
const reduceEpsilon = 0.001

// NoiseReducer applies spectral-subtraction-style attenuation to each
// separated stream in place, using the analyzer's noise-floor profile and a
// per-stream intensity policy driven by the voice decision.
type NoiseReducer struct {
	half int
}

// NewNoiseReducer creates a reducer for the given FFT size.
func NewNoiseReducer(fftSize int) *NoiseReducer {
	return &NoiseReducer{half: fftSize / 2}
}

// Reduce attenuates all four streams in place. intensity is the configured
// ANC intensity in [0, 1]; profile is the analyzer's live noise floor.
//
// A stream whose reduction amount is r is never attenuated below (1 - r) of
// its original magnitude in a single pass: the per-sample factor is clamped
// to r, which bounds worst-case attenuation on quiet input.
func (r *NoiseReducer) Reduce(streams *SeparatedStreams, d VoiceDecision, intensity float64, profile []float64) {
	voiceAmount := voiceReductionIdle
	if d.Voiced {
		voiceAmount = voiceReductionActive
	}

	r.reduceStream(streams.Noise, intensity*noiseReduction, profile)
	r.reduceStream(streams.Ambient, intensity*ambientReduction, profile)
	r.reduceStream(streams.Music, intensity*musicReduction, profile)
	r.reduceStream(streams.Voice, intensity*voiceAmount, profile)
}

// reduceStream applies the clamped spectral-subtraction factor to every
// sample of one stream. The noise level for a sample comes from the same
// position-to-bin mapping the separator uses.
func (r *NoiseReducer) reduceStream(stream []float32, amount float64, profile []float64) {
	if amount <= 0 || len(stream) == 0 {
		return
	}
	n := len(stream)
	for i, s := range stream {
		bin := i * r.half / n
		var noiseLevel float64
		if bin < len(profile) {
			noiseLevel = profile[bin]
		}

		factor := noiseLevel / math.Max(math.Abs(float64(s)), reduceEpsilon)
		if factor > amount {
			factor = amount
		}
		stream[i] = s * float32(1-factor)
	}
}
