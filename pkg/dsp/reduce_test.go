package dsp

import (
	"math"
	"math/rand"
	"testing"
)

func testStreams(n int, fill float32) *SeparatedStreams {
	mk := func() []float32 {
		s := make([]float32, n)
		for i := range s {
			s[i] = fill
		}
		return s
	}
	return &SeparatedStreams{Voice: mk(), Music: mk(), Ambient: mk(), Noise: mk()}
}

func flatProfile(half int, level float64) []float64 {
	p := make([]float64, half)
	for k := range p {
		p[k] = level
	}
	return p
}

func TestReduce_AttenuationBounded(t *testing.T) {
	r := NewNoiseReducer(testFFTSize)
	rng := rand.New(rand.NewSource(2))

	n := 1024
	streams := testStreams(n, 0)
	original := make([]float32, n)
	for i := range original {
		original[i] = rng.Float32()*2 - 1
		streams.Voice[i] = original[i]
		streams.Music[i] = original[i]
		streams.Ambient[i] = original[i]
		streams.Noise[i] = original[i]
	}

	// A huge noise level drives every factor to its clamp.
	profile := flatProfile(testFFTSize/2, 100)
	r.Reduce(streams, VoiceDecision{Voiced: false}, 1, profile)

	checks := []struct {
		name   string
		stream []float32
		amount float64
	}{
		{"noise", streams.Noise, noiseReduction},
		{"ambient", streams.Ambient, ambientReduction},
		{"music", streams.Music, musicReduction},
		{"voice", streams.Voice, voiceReductionIdle},
	}
	for _, c := range checks {
		for i, v := range c.stream {
			want := original[i] * float32(1-c.amount)
			if math.Abs(float64(v-want)) > 1e-6 {
				t.Fatalf("%s[%d] = %v, want %v at full clamp", c.name, i, v, want)
			}
		}
	}
}

func TestReduce_VoicedBlocksProtectSpeech(t *testing.T) {
	r := NewNoiseReducer(testFFTSize)
	profile := flatProfile(testFFTSize/2, 100)

	voiced := testStreams(64, 0.5)
	idle := testStreams(64, 0.5)
	r.Reduce(voiced, VoiceDecision{Voiced: true}, 1, profile)
	r.Reduce(idle, VoiceDecision{Voiced: false}, 1, profile)

	for i := range voiced.Voice {
		if math.Abs(float64(voiced.Voice[i])) <= math.Abs(float64(idle.Voice[i])) {
			t.Fatalf("voice[%d]: voiced %v not louder than idle %v", i, voiced.Voice[i], idle.Voice[i])
		}
	}
	// The non-voice streams ignore the decision.
	for i := range voiced.Noise {
		if voiced.Noise[i] != idle.Noise[i] {
			t.Fatalf("noise[%d] differs between voiced and idle", i)
		}
	}
}

func TestReduce_ZeroIntensityIsIdentity(t *testing.T) {
	r := NewNoiseReducer(testFFTSize)
	streams := testStreams(64, 0.7)
	r.Reduce(streams, VoiceDecision{}, 0, flatProfile(testFFTSize/2, 100))

	for i, v := range streams.Voice {
		if v != 0.7 {
			t.Fatalf("voice[%d] = %v after zero-intensity pass, want 0.7", i, v)
		}
	}
}

func TestReduce_QuietNoiseFloorBarelyTouchesLoudSamples(t *testing.T) {
	r := NewNoiseReducer(testFFTSize)

	// Loud sample, tiny noise floor: factor = level/|s| stays far below
	// the clamp, so attenuation is proportional to the floor.
	streams := testStreams(64, 0.8)
	level := 0.004
	r.Reduce(streams, VoiceDecision{}, 1, flatProfile(testFFTSize/2, level))

	wantFactor := level / 0.8
	for i, v := range streams.Noise {
		want := float32(0.8 * (1 - wantFactor))
		if math.Abs(float64(v-want)) > 1e-6 {
			t.Fatalf("noise[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestReduce_SilentSamplesStaySilent(t *testing.T) {
	r := NewNoiseReducer(testFFTSize)
	streams := testStreams(64, 0)
	r.Reduce(streams, VoiceDecision{}, 1, flatProfile(testFFTSize/2, 0.5))

	for i, v := range streams.Voice {
		if v != 0 {
			t.Fatalf("voice[%d] = %v, want 0", i, v)
		}
	}
}
