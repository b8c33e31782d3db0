package dsp

import "math"

const (
	// historyLength is the size of the circular voice-presence buffer.
	// Confidence is always computed over the full window, so early blocks
	// read against implicit false entries.
	historyLength = 10

	// maxVoiceZCR rejects frames whose zero-crossing rate is too high to be
	// voiced speech. Fricatives and broadband noise cross far more often
	// than pitched vocal content.
	maxVoiceZCR = 0.3

	// voiceBandLowHz / voiceBandHighHz bound the analysis band used for the
	// spectral centroid. Roughly the fundamental range of human speech.
	voiceBandLowHz  = 85.0
	voiceBandHighHz = 1100.0
)

// VoiceDecision is the outcome of voice activity detection for one block.
type VoiceDecision struct {
	// Voiced is the binary decision for this block.
	Voiced bool

	// Confidence is the fraction of the history window flagged as voiced,
	// always in [0, 1].
	Confidence float64

	// Energy is the RMS level of the block.
	Energy float64

	// ZeroCrossingRate is the fraction of adjacent sample pairs that change
	// sign, in [0, 1].
	ZeroCrossingRate float64

	// SpectralCentroid is the magnitude-weighted mean bin index within the
	// voice band, or 0 when the band carries no energy.
	SpectralCentroid float64
}

// VoiceActivityDetector classifies blocks as voiced or unvoiced from three
// cheap features: RMS energy, zero-crossing rate, and the spectral centroid
// of the voice band. The thresholds deliberately favour precision over
// recall — a false positive merely skips one noise-profile update, while a
// false negative teaches the noise floor to cancel speech.
type VoiceActivityDetector struct {
	startBin int // first bin of the voice band
	endBin   int // one past the last bin of the voice band

	history  [historyLength]bool
	writeIdx int
}

// NewVoiceActivityDetector creates a detector whose voice band is mapped to
// spectrum bins for the given sample rate and FFT size.
func NewVoiceActivityDetector(sampleRate, fftSize int) *VoiceActivityDetector {
	half := fftSize / 2
	nyquist := float64(sampleRate) / 2
	startBin := int(voiceBandLowHz * float64(half) / nyquist)
	endBin := int(voiceBandHighHz * float64(half) / nyquist)
	if endBin > half {
		endBin = half
	}
	return &VoiceActivityDetector{
		startBin: startBin,
		endBin:   endBin,
	}
}

// Detect computes the block's features against the given magnitude spectrum
// and voice threshold, records the binary decision in the history window,
// and returns the full decision. Must be called exactly once per processed
// block so that confidence reflects block time.
func (v *VoiceActivityDetector) Detect(block []float32, spectrum []float64, threshold float64) VoiceDecision {
	d := VoiceDecision{
		Energy:           rms(block),
		ZeroCrossingRate: zeroCrossingRate(block),
		SpectralCentroid: v.bandCentroid(spectrum),
	}

	d.Voiced = d.Energy > threshold &&
		d.ZeroCrossingRate < maxVoiceZCR &&
		d.SpectralCentroid > float64(v.startBin)

	v.history[v.writeIdx] = d.Voiced
	v.writeIdx = (v.writeIdx + 1) % historyLength

	voicedCount := 0
	for _, voiced := range v.history {
		if voiced {
			voicedCount++
		}
	}
	d.Confidence = float64(voicedCount) / historyLength

	return d
}

// VoiceBand returns the detector's [start, end) bin range.
func (v *VoiceActivityDetector) VoiceBand() (startBin, endBin int) {
	return v.startBin, v.endBin
}

// bandCentroid computes the magnitude-weighted mean bin index restricted to
// the voice band. Returns 0 when the band is empty or carries no energy.
func (v *VoiceActivityDetector) bandCentroid(spectrum []float64) float64 {
	var weighted, total float64
	end := v.endBin
	if end > len(spectrum) {
		end = len(spectrum)
	}
	for k := v.startBin; k < end; k++ {
		weighted += float64(k) * spectrum[k]
		total += spectrum[k]
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// rms computes the root-mean-square level of a block. Empty blocks are 0.
func rms(block []float32) float64 {
	if len(block) == 0 {
		return 0
	}
	var sum float64
	for _, s := range block {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(block)))
}

// zeroCrossingRate counts sign changes between adjacent samples, normalised
// by len-1. Blocks shorter than two samples have no crossings.
func zeroCrossingRate(block []float32) float64 {
	if len(block) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(block); i++ {
		if (block[i] >= 0) != (block[i-1] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(block)-1)
}
