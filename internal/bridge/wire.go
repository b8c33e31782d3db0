package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/MrWong99/quartet/pkg/engine"
)

// JSON envelopes for the websocket protocol. Both directions use a
// top-level "type" tag mirroring the engine's message unions; field names
// are snake_case for the benefit of browser clients.

// Outbound message type tags.
const (
	typeReady           = "ready"
	typeRealtimeData    = "realtime_data"
	typeProcessingStats = "processing_stats"
	typeError           = "error"
)

// Inbound message type tags.
const (
	typeUpdateSettings    = "update_settings"
	typeEnableProcessing  = "enable_processing"
	typeSetANCIntensity   = "set_anc_intensity"
	typeSetVoiceThreshold = "set_voice_threshold"
)

type readyWire struct {
	Type       string `json:"type"`
	SampleRate int    `json:"sample_rate"`
	BufferSize int    `json:"buffer_size"`
}

type voiceWire struct {
	Voiced           bool    `json:"voiced"`
	Confidence       float64 `json:"confidence"`
	Energy           float64 `json:"energy"`
	ZeroCrossingRate float64 `json:"zcr"`
	SpectralCentroid float64 `json:"spectral_centroid"`
}

type realtimeWire struct {
	Type       string    `json:"type"`
	Timestamp  int64     `json:"timestamp_ms"`
	FrameCount uint64    `json:"frame_count"`
	Voice      voiceWire `json:"voice"`

	Voices   []float32 `json:"voice_stream"`
	Music    []float32 `json:"music_stream"`
	Ambient  []float32 `json:"ambient_stream"`
	Noise    []float32 `json:"noise_stream"`
	Spectrum []float64 `json:"spectrum"`
}

type statsWire struct {
	Type                  string  `json:"type"`
	Timestamp             int64   `json:"timestamp_ms"`
	FrameCount            uint64  `json:"frame_count"`
	AverageProcessingTime float64 `json:"average_processing_ms"`
	MaxProcessingTime     float64 `json:"max_processing_ms"`
	EstimatedCPUUsage     float64 `json:"estimated_cpu_usage"`
	SampleRate            int     `json:"sample_rate"`
	BufferSize            int     `json:"buffer_size"`
}

type errorWire struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// controlWire is the inbound superset envelope; which fields matter depends
// on the type tag. Pointer fields distinguish absent from zero.
type controlWire struct {
	Type string `json:"type"`

	// update_settings
	ANCEnabled     *bool    `json:"anc_enabled,omitempty"`
	ANCIntensity   *float64 `json:"anc_intensity,omitempty"`
	AdaptiveMode   *bool    `json:"adaptive_mode,omitempty"`
	VoiceThreshold *float64 `json:"voice_threshold,omitempty"`

	// enable_processing
	Enabled *bool `json:"enabled,omitempty"`

	// set_anc_intensity
	Intensity *float64 `json:"intensity,omitempty"`

	// set_voice_threshold
	Threshold *float64 `json:"threshold,omitempty"`
}

// encodeTelemetry converts an engine telemetry message into its JSON wire
// form.
func encodeTelemetry(msg engine.Message) ([]byte, error) {
	switch m := msg.(type) {
	case engine.Ready:
		return json.Marshal(readyWire{
			Type:       typeReady,
			SampleRate: m.SampleRate,
			BufferSize: m.BufferSize,
		})
	case engine.RealtimeData:
		return json.Marshal(realtimeWire{
			Type:       typeRealtimeData,
			Timestamp:  m.Timestamp.UnixMilli(),
			FrameCount: m.FrameCount,
			Voice: voiceWire{
				Voiced:           m.Voice.Voiced,
				Confidence:       m.Voice.Confidence,
				Energy:           m.Voice.Energy,
				ZeroCrossingRate: m.Voice.ZeroCrossingRate,
				SpectralCentroid: m.Voice.SpectralCentroid,
			},
			Voices:   m.Streams.Voice,
			Music:    m.Streams.Music,
			Ambient:  m.Streams.Ambient,
			Noise:    m.Streams.Noise,
			Spectrum: m.Spectrum,
		})
	case engine.Stats:
		return json.Marshal(statsWire{
			Type:                  typeProcessingStats,
			Timestamp:             m.Timestamp.UnixMilli(),
			FrameCount:            m.FrameCount,
			AverageProcessingTime: float64(m.AverageProcessingTime.Microseconds()) / 1000,
			MaxProcessingTime:     float64(m.MaxProcessingTime.Microseconds()) / 1000,
			EstimatedCPUUsage:     m.EstimatedCPUUsage,
			SampleRate:            m.SampleRate,
			BufferSize:            m.BufferSize,
		})
	case engine.ProcessingError:
		return json.Marshal(errorWire{Type: typeError, Message: m.Message})
	default:
		return nil, fmt.Errorf("bridge: unknown telemetry message %T", msg)
	}
}

// decodeControl parses an inbound JSON envelope into an engine control
// message.
func decodeControl(data []byte) (engine.ControlMessage, error) {
	var w controlWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("bridge: decode control message: %w", err)
	}

	switch w.Type {
	case typeUpdateSettings:
		return engine.UpdateSettings{
			ANCEnabled:     w.ANCEnabled,
			ANCIntensity:   w.ANCIntensity,
			AdaptiveMode:   w.AdaptiveMode,
			VoiceThreshold: w.VoiceThreshold,
		}, nil
	case typeEnableProcessing:
		if w.Enabled == nil {
			return nil, fmt.Errorf("bridge: %s requires \"enabled\"", typeEnableProcessing)
		}
		return engine.EnableProcessing{Enabled: *w.Enabled}, nil
	case typeSetANCIntensity:
		if w.Intensity == nil {
			return nil, fmt.Errorf("bridge: %s requires \"intensity\"", typeSetANCIntensity)
		}
		return engine.SetANCIntensity{Intensity: *w.Intensity}, nil
	case typeSetVoiceThreshold:
		if w.Threshold == nil {
			return nil, fmt.Errorf("bridge: %s requires \"threshold\"", typeSetVoiceThreshold)
		}
		return engine.SetVoiceThreshold{Threshold: *w.Threshold}, nil
	default:
		return nil, fmt.Errorf("bridge: unknown control type %q", w.Type)
	}
}
