package config

import (
	"strings"
	"testing"
)

func TestLoadFromReader_EmptyKeepsDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	want := Default()
	if *cfg != *want {
		t.Fatalf("empty config = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadFromReader_MergesOverDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`
server:
  listen_addr: ":9090"
engine:
  buffer_size: 2048
anc:
  intensity: 0.8
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Fatalf("listen_addr = %q, want :9090", cfg.Server.ListenAddr)
	}
	if cfg.Engine.BufferSize != 2048 {
		t.Fatalf("buffer_size = %d, want 2048", cfg.Engine.BufferSize)
	}
	if cfg.ANC.Intensity != 0.8 {
		t.Fatalf("intensity = %v, want 0.8", cfg.ANC.Intensity)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Engine.SampleRate != 48000 {
		t.Fatalf("sample_rate = %d, want default 48000", cfg.Engine.SampleRate)
	}
	if cfg.Telemetry.StatsInterval != 1000 {
		t.Fatalf("stats_interval = %d, want default 1000", cfg.Telemetry.StatsInterval)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader(`
engine:
  fft_window: hann
`))
	if err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestValidate_ReportsAllStructuralErrors(t *testing.T) {
	cfg := Default()
	cfg.Engine.SampleRate = 0
	cfg.Engine.FFTSize = 1000 // not a power of two
	cfg.Telemetry.QueueCapacity = -1

	err := Validate(cfg)
	if err == nil {
		t.Fatal("invalid config passed validation")
	}
	for _, want := range []string{"sample_rate", "fft_size", "queue_capacity"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidate_PowerOfTwoFFT(t *testing.T) {
	for _, n := range []int{256, 512, 1024, 4096} {
		cfg := Default()
		cfg.Engine.FFTSize = n
		if err := Validate(cfg); err != nil {
			t.Fatalf("fft_size %d rejected: %v", n, err)
		}
	}
	for _, n := range []int{0, -1, 3, 1000, 1025} {
		cfg := Default()
		cfg.Engine.FFTSize = n
		if err := Validate(cfg); err == nil {
			t.Fatalf("fft_size %d accepted", n)
		}
	}
}

func TestValidate_ClampsBoundedValues(t *testing.T) {
	cfg := Default()
	cfg.ANC.Intensity = 1.7
	cfg.ANC.VoiceThreshold = -0.5

	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.ANC.Intensity != 1 {
		t.Fatalf("intensity = %v, want clamp to 1", cfg.ANC.Intensity)
	}
	if cfg.ANC.VoiceThreshold != 0 {
		t.Fatalf("voice_threshold = %v, want clamp to 0", cfg.ANC.VoiceThreshold)
	}
}

func TestValidate_LogLevel(t *testing.T) {
	cfg := Default()
	cfg.Server.LogLevel = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatal("invalid log level accepted")
	}

	cfg = Default()
	cfg.Server.LogLevel = ""
	if err := Validate(cfg); err != nil {
		t.Fatalf("empty log level rejected: %v", err)
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	for _, l := range []LogLevel{LogDebug, LogInfo, LogWarn, LogError} {
		if !l.IsValid() {
			t.Fatalf("%q reported invalid", l)
		}
	}
	if LogLevel("trace").IsValid() {
		t.Fatal("trace reported valid")
	}
}
