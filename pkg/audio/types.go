// Package audio provides the sample-format plumbing shared by the quartet
// engine and its host-side tooling: float32 block views, int16 PCM
// conversion, channel interleaving, and WAV file I/O.
//
// The engine itself operates on planar float32 blocks (one slice per
// channel, samples conceptually in [-1, 1]). Everything in this package
// exists to get audio into and out of that shape.
package audio

// Format describes the sample rate and channel count of an audio stream.
type Format struct {
	SampleRate int
	Channels   int
}

// Block is a planar view over one fixed-size chunk of audio: one sample
// slice per channel, all of equal length. A Block never owns its storage —
// it is valid only for the duration of the call it is passed to.
type Block [][]float32

// NewBlock allocates a Block with the given channel count and samples per
// channel. Intended for callers that drive the engine (tests, the CLI);
// the engine itself never allocates blocks.
func NewBlock(channels, samples int) Block {
	b := make(Block, channels)
	for ch := range b {
		b[ch] = make([]float32, samples)
	}
	return b
}

// Channels returns the number of channels in the block.
func (b Block) Channels() int { return len(b) }

// Samples returns the per-channel sample count, or 0 for an empty block.
func (b Block) Samples() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// Uniform reports whether every channel holds the same number of samples.
// The engine treats non-uniform blocks as malformed input.
func (b Block) Uniform() bool {
	if len(b) == 0 {
		return true
	}
	n := len(b[0])
	for _, ch := range b[1:] {
		if len(ch) != n {
			return false
		}
	}
	return true
}
