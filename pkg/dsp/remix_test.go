package dsp

import (
	"math"
	"testing"
)

func TestMix_GainsSumToUnity(t *testing.T) {
	if got := GainVoice + GainMusic + GainAmbient + GainNoise; math.Abs(got-1) > 1e-9 {
		t.Fatalf("gain sum = %v, want 1", got)
	}

	// Identical streams therefore reconstruct the value exactly.
	streams := testStreams(64, 0.5)
	out := make([]float32, 64)
	Remixer{}.Mix(streams, out)
	for i, v := range out {
		if math.Abs(float64(v-0.5)) > 1e-6 {
			t.Fatalf("out[%d] = %v, want 0.5", i, v)
		}
	}
}

func TestMix_ClampsToFullScale(t *testing.T) {
	streams := testStreams(8, 10)
	out := make([]float32, 8)
	Remixer{}.Mix(streams, out)
	for i, v := range out {
		if v != 1 {
			t.Fatalf("out[%d] = %v, want clamp at 1", i, v)
		}
	}

	streams = testStreams(8, -10)
	Remixer{}.Mix(streams, out)
	for i, v := range out {
		if v != -1 {
			t.Fatalf("out[%d] = %v, want clamp at -1", i, v)
		}
	}
}

func TestMix_Deterministic(t *testing.T) {
	streams := &SeparatedStreams{
		Voice:   []float32{0.1, -0.2, 0.3},
		Music:   []float32{0.4, 0.5, -0.6},
		Ambient: []float32{-0.7, 0.8, 0.9},
		Noise:   []float32{0.2, -0.1, 0.05},
	}
	first := make([]float32, 3)
	second := make([]float32, 3)
	Remixer{}.Mix(streams, first)
	Remixer{}.Mix(streams, second)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("out[%d] differs between identical calls: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestMix_ZeroesExcessOutput(t *testing.T) {
	streams := testStreams(4, 0.5)
	out := make([]float32, 8)
	for i := range out {
		out[i] = 9
	}
	Remixer{}.Mix(streams, out)
	for i := 4; i < len(out); i++ {
		if out[i] != 0 {
			t.Fatalf("out[%d] = %v, want 0 beyond stream length", i, out[i])
		}
	}
}

func TestMix_ShortOutputTruncates(t *testing.T) {
	streams := testStreams(8, 0.5)
	out := make([]float32, 4)
	Remixer{}.Mix(streams, out)
	for i, v := range out {
		if math.Abs(float64(v-0.5)) > 1e-6 {
			t.Fatalf("out[%d] = %v, want 0.5", i, v)
		}
	}
}
