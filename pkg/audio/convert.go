package audio

// Conversion helpers between int16 PCM (the interchange format of WAV files
// and most capture APIs) and the engine's planar float32 representation.
//
// int16 → float32 divides by 32768 so that the most negative sample maps to
// exactly -1.0. float32 → int16 clamps first: the engine's clip guard keeps
// samples in [-1, 1], but input files make no such promise.

// SampleToFloat converts a single int16 PCM sample to float32 in [-1, 1).
func SampleToFloat(s int16) float32 {
	return float32(s) / 32768.0
}

// SampleToInt16 converts a float32 sample to int16 PCM, clamping to the
// representable range.
func SampleToInt16(s float32) int16 {
	v := s * 32768.0
	if v > 32767.0 {
		return 32767
	}
	if v < -32768.0 {
		return -32768
	}
	return int16(v)
}

// Deinterleave splits interleaved int PCM samples (as decoded by go-audio's
// IntBuffer) into a planar float32 Block with the given channel count.
// Trailing samples that do not fill a whole frame are dropped.
func Deinterleave(pcm []int, channels int) Block {
	if channels <= 0 {
		return nil
	}
	frames := len(pcm) / channels
	b := NewBlock(channels, frames)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			b[ch][i] = SampleToFloat(int16(pcm[i*channels+ch]))
		}
	}
	return b
}

// Interleave flattens a planar Block back into interleaved int PCM suitable
// for go-audio's IntBuffer. Samples are clamped to the int16 range.
func Interleave(b Block) []int {
	channels := b.Channels()
	if channels == 0 {
		return nil
	}
	frames := b.Samples()
	out := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out[i*channels+ch] = int(SampleToInt16(b[ch][i]))
		}
	}
	return out
}

// Downmix averages all channels of a block into a single mono slice,
// writing into dst if it has sufficient capacity. Useful for feeding a
// multi-channel file through a mono analysis path.
func Downmix(b Block, dst []float32) []float32 {
	frames := b.Samples()
	if cap(dst) < frames {
		dst = make([]float32, frames)
	}
	dst = dst[:frames]
	channels := float32(b.Channels())
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := range b {
			sum += b[ch][i]
		}
		dst[i] = sum / channels
	}
	return dst
}
