// Package config provides the YAML configuration schema, loader, and
// validation for the quartet server and CLI.
package config

// LogLevel controls log verbosity for the quartet process.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for quartet.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
	ANC       ANCConfig       `yaml:"anc"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds network and logging settings for the host bridge.
type ServerConfig struct {
	// ListenAddr is the TCP address the bridge listens on (e.g., ":8080").
	// Empty disables the bridge entirely — the CLI then runs offline only.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// EngineConfig holds the engine construction parameters.
type EngineConfig struct {
	// SampleRate of the audio stream in Hz.
	SampleRate int `yaml:"sample_rate"`

	// BufferSize is the samples per processing block.
	BufferSize int `yaml:"buffer_size"`

	// FFTSize is the spectral analysis frame size. Must be a power of two.
	FFTSize int `yaml:"fft_size"`
}

// ANCConfig holds the initial runtime settings of the pipeline. All of
// these can be changed later through control messages.
type ANCConfig struct {
	// Enabled switches the noise-reduction stage on.
	Enabled bool `yaml:"enabled"`

	// Intensity scales the per-stream reduction amounts, in [0, 1].
	// Out-of-range values are clamped, not rejected.
	Intensity float64 `yaml:"intensity"`

	// Adaptive lets the noise profile learn during quiet stretches.
	Adaptive bool `yaml:"adaptive"`

	// VoiceThreshold is the RMS energy floor for voice detection, in [0, 1].
	VoiceThreshold float64 `yaml:"voice_threshold"`
}

// TelemetryConfig tunes the engine's outbound message cadence and the
// queue sizes of the host protocol.
type TelemetryConfig struct {
	// RealtimeInterval is the number of blocks between visualization
	// snapshots.
	RealtimeInterval int `yaml:"realtime_interval"`

	// StatsInterval is the number of blocks between processing-time digests.
	StatsInterval int `yaml:"stats_interval"`

	// QueueCapacity bounds both the control inbox and the telemetry outbox.
	QueueCapacity int `yaml:"queue_capacity"`
}

// Default returns the configuration quartet runs with when no file is
// given: 48 kHz, 4096-sample blocks, 1024-point FFT, moderate ANC.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			LogLevel: LogInfo,
		},
		Engine: EngineConfig{
			SampleRate: 48000,
			BufferSize: 4096,
			FFTSize:    1024,
		},
		ANC: ANCConfig{
			Enabled:        true,
			Intensity:      0.5,
			Adaptive:       true,
			VoiceThreshold: 0.02,
		},
		Telemetry: TelemetryConfig{
			RealtimeInterval: 10,
			StatsInterval:    1000,
			QueueCapacity:    64,
		},
	}
}
