package dsp

import "math"

const (
	// leakageFloor is the minimum weight any stream receives for any sample.
	// Separation is a soft weighting, not a gate: leaving a residual in
	// every stream avoids hard spectral holes in the remix.
	leakageFloor = 0.1

	// voicePeakHz is the centre of the voice weighting curve. Weight decays
	// linearly with distance from it, floored at voicePeakMinWeight.
	voicePeakHz        = 400.0
	voicePeakRangeHz   = 1000.0
	voicePeakMinWeight = 0.3

	// Band edges for the four streams, in Hz.
	musicBandLowHz    = 20.0
	musicBandHighHz   = 8000.0
	ambientBandLowHz  = 20.0
	ambientBandHighHz = 200.0
	noiseBandLowHz    = 8000.0

	// Fixed in-band weights.
	musicWeightLoud    = 0.9
	musicWeightQuiet   = 0.6
	musicLoudThreshold = 0.05
	ambientWeight      = 0.8
	noiseWeight        = 0.9
)

// SeparatedStreams holds the four weighted sub-streams produced from one
// block. The slices are scratch storage owned by the StreamSeparator and
// are overwritten on the next Separate call.
type SeparatedStreams struct {
	Voice   []float32
	Music   []float32
	Ambient []float32
	Noise   []float32
}

// StreamSeparator partitions a block into voice, music, ambient, and noise
// sub-streams using deterministic per-band weighting functions.
//
// There is no learned model here: each sample is assigned an approximate
// instantaneous frequency by mapping its position in the block onto the
// spectrum, and each stream scales the sample by a band-gated weight in
// [0.1, 1.0]. The mapping and the weight formulas are contract — downstream
// tests and the remix gains are calibrated against them.
type StreamSeparator struct {
	sampleRate int
	half       int
	streams    SeparatedStreams
}

// NewStreamSeparator creates a separator for the given sample rate and FFT
// size.
func NewStreamSeparator(sampleRate, fftSize int) *StreamSeparator {
	return &StreamSeparator{
		sampleRate: sampleRate,
		half:       fftSize / 2,
	}
}

// Separate splits block into four weighted sub-streams and returns them.
// The returned struct and its slices are reused across calls; consumers
// must finish with them before the next block.
func (s *StreamSeparator) Separate(block []float32, spectrum []float64) *SeparatedStreams {
	n := len(block)
	s.streams.Voice = resize(s.streams.Voice, n)
	s.streams.Music = resize(s.streams.Music, n)
	s.streams.Ambient = resize(s.streams.Ambient, n)
	s.streams.Noise = resize(s.streams.Noise, n)

	nyquist := float64(s.sampleRate) / 2
	for i := 0; i < n; i++ {
		// Approximate instantaneous frequency: position in the block mapped
		// proportionally onto the analysis bins.
		freqIndex := i * s.half / n
		frequency := float64(freqIndex) / float64(s.half) * nyquist
		var magnitude float64
		if freqIndex < len(spectrum) {
			magnitude = spectrum[freqIndex]
		}

		sample := block[i]
		s.streams.Voice[i] = sample * float32(voiceWeight(frequency, magnitude))
		s.streams.Music[i] = sample * float32(musicWeight(frequency, magnitude))
		s.streams.Ambient[i] = sample * float32(ambientBandWeight(frequency))
		s.streams.Noise[i] = sample * float32(noiseBandWeight(frequency))
	}
	return &s.streams
}

// voiceWeight peaks around 400 Hz within the 85–1100 Hz voice band and
// scales with spectral magnitude so that silent bins contribute little.
func voiceWeight(freq, magnitude float64) float64 {
	if freq < voiceBandLowHz || freq > voiceBandHighHz {
		return leakageFloor
	}
	w := 1 - math.Abs(freq-voicePeakHz)/voicePeakRangeHz
	if w < voicePeakMinWeight {
		w = voicePeakMinWeight
	}
	presence := magnitude * 5
	if presence > 1 {
		presence = 1
	}
	w *= presence
	if w < leakageFloor {
		w = leakageFloor
	}
	return w
}

// musicWeight covers the broad musical band, boosted where the spectrum
// actually carries energy.
func musicWeight(freq, magnitude float64) float64 {
	if freq < musicBandLowHz || freq > musicBandHighHz {
		return leakageFloor
	}
	if magnitude > musicLoudThreshold {
		return musicWeightLoud
	}
	return musicWeightQuiet
}

// ambientBandWeight covers low-frequency room tone.
func ambientBandWeight(freq float64) float64 {
	if freq < ambientBandLowHz || freq > ambientBandHighHz {
		return leakageFloor
	}
	return ambientWeight
}

// noiseBandWeight covers everything above the musical band.
func noiseBandWeight(freq float64) float64 {
	if freq < noiseBandLowHz {
		return leakageFloor
	}
	return noiseWeight
}

// resize returns s with length n, reusing capacity where possible.
func resize(s []float32, n int) []float32 {
	if cap(s) < n {
		return make([]float32, n)
	}
	return s[:n]
}
