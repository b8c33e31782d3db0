package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestWAV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")

	format := Format{SampleRate: 48000, Channels: 2}
	in := NewBlock(2, 480)
	for ch := range in {
		for i := range in[ch] {
			in[ch][i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/48000))
		}
	}

	if err := WriteWAV(path, in, format); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}

	out, gotFormat, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	if gotFormat != format {
		t.Fatalf("format = %+v, want %+v", gotFormat, format)
	}
	if out.Channels() != in.Channels() || out.Samples() != in.Samples() {
		t.Fatalf("shape = %dx%d, want %dx%d", out.Channels(), out.Samples(), in.Channels(), in.Samples())
	}

	// One 16-bit quantisation step of slack.
	const tolerance = 1.0 / 32768
	for ch := range in {
		for i := range in[ch] {
			if diff := math.Abs(float64(out[ch][i] - in[ch][i])); diff > tolerance {
				t.Fatalf("sample [%d][%d] = %v, want %v ± %v", ch, i, out[ch][i], in[ch][i], tolerance)
			}
		}
	}
}

func TestReadWAV_MissingFile(t *testing.T) {
	if _, _, err := ReadWAV(filepath.Join(t.TempDir(), "absent.wav")); err == nil {
		t.Fatal("ReadWAV succeeded on a missing file")
	}
}

func TestReadWAV_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	if err := os.WriteFile(path, []byte("this is not a RIFF container"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadWAV(path); err == nil {
		t.Fatal("ReadWAV accepted a non-WAV file")
	}
}
