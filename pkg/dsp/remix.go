package dsp

// Fixed remix gains. They sum to 1.0 so that four identical full-weight
// streams reconstruct the input level exactly; keep that property when
// retuning.
const (
	GainVoice   = 0.4
	GainMusic   = 0.3
	GainAmbient = 0.2
	GainNoise   = 0.1
)

// Remixer recombines the four separated streams into an output block with
// fixed per-stream gains and a hard clipping guard. It holds no state: Mix
// reads the streams without mutating them, so repeated calls over the same
// input produce identical output.
type Remixer struct{}

// Mix sums the weighted streams into out, clamping each sample to [-1, 1].
// out must be at least as long as the streams; excess entries are zeroed.
func (Remixer) Mix(streams *SeparatedStreams, out []float32) {
	n := len(streams.Voice)
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		sum := streams.Voice[i]*GainVoice +
			streams.Music[i]*GainMusic +
			streams.Ambient[i]*GainAmbient +
			streams.Noise[i]*GainNoise
		if sum > 1 {
			sum = 1
		} else if sum < -1 {
			sum = -1
		}
		out[i] = sum
	}
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
}
