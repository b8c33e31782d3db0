package audio

import (
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ReadWAV decodes a PCM WAV file into a planar float32 Block and returns it
// together with the file's format. Only integer PCM files are supported;
// bit depths other than 16 are scaled through go-audio's int representation.
func ReadWAV(path string) (Block, Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Format{}, fmt.Errorf("audio: open %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, Format{}, fmt.Errorf("audio: %q is not a valid WAV file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, Format{}, fmt.Errorf("audio: decode %q: %w", path, err)
	}

	format := Format{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}

	// go-audio scales samples to the source bit depth; normalise to 16-bit
	// before converting so that SampleToFloat's 1/32768 scaling holds.
	pcm := buf.Data
	if dec.BitDepth != 16 {
		shift := int(dec.BitDepth) - 16
		pcm = make([]int, len(buf.Data))
		for i, s := range buf.Data {
			if shift > 0 {
				pcm[i] = s >> shift
			} else {
				pcm[i] = s << -shift
			}
		}
	}

	return Deinterleave(pcm, format.Channels), format, nil
}

// WriteWAV encodes a planar Block as a 16-bit PCM WAV file.
func WriteWAV(path string, b Block, format Format) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: create %q: %w", path, err)
	}

	enc := wav.NewEncoder(f, format.SampleRate, 16, format.Channels, 1)
	buf := &gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: format.Channels,
			SampleRate:  format.SampleRate,
		},
		Data:           Interleave(b),
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("audio: encode %q: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("audio: finalise %q: %w", path, err)
	}
	return f.Close()
}
