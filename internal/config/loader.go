package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path, merges it over [Default],
// and returns the validated result. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values and normalises
// the tolerated ones. Structural problems (bad sizes, bad enums) are
// errors, joined so every failure is reported at once; out-of-range bounded
// values are clamped with a warning, matching the engine's own
// configuration-fault policy.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Engine.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("engine.sample_rate %d must be positive", cfg.Engine.SampleRate))
	}
	if cfg.Engine.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("engine.buffer_size %d must be positive", cfg.Engine.BufferSize))
	}
	if cfg.Engine.FFTSize <= 0 || cfg.Engine.FFTSize&(cfg.Engine.FFTSize-1) != 0 {
		errs = append(errs, fmt.Errorf("engine.fft_size %d must be a positive power of two", cfg.Engine.FFTSize))
	}

	cfg.ANC.Intensity = clampWarn("anc.intensity", cfg.ANC.Intensity)
	cfg.ANC.VoiceThreshold = clampWarn("anc.voice_threshold", cfg.ANC.VoiceThreshold)

	if cfg.Telemetry.RealtimeInterval <= 0 {
		errs = append(errs, fmt.Errorf("telemetry.realtime_interval %d must be positive", cfg.Telemetry.RealtimeInterval))
	}
	if cfg.Telemetry.StatsInterval <= 0 {
		errs = append(errs, fmt.Errorf("telemetry.stats_interval %d must be positive", cfg.Telemetry.StatsInterval))
	}
	if cfg.Telemetry.QueueCapacity <= 0 {
		errs = append(errs, fmt.Errorf("telemetry.queue_capacity %d must be positive", cfg.Telemetry.QueueCapacity))
	}

	return errors.Join(errs...)
}

// clampWarn clamps v to [0, 1], logging a warning when it had to.
func clampWarn(field string, v float64) float64 {
	switch {
	case v < 0:
		slog.Warn("config value below range, clamping", "field", field, "value", v, "clamped", 0.0)
		return 0
	case v > 1:
		slog.Warn("config value above range, clamping", "field", field, "value", v, "clamped", 1.0)
		return 1
	}
	return v
}
