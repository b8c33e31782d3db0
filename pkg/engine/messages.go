package engine

import (
	"time"

	"github.com/MrWong99/quartet/pkg/dsp"
)

// ── Inbound: host → engine ────────────────────────────────────────────────────

// ControlMessage is the tagged union of configuration messages a host may
// send to the engine. Messages are drained in FIFO order at the start of a
// block and applied atomically — a block never observes a half-applied
// update. Numeric fields are clamped to [0, 1] at apply time, never at send
// time.
type ControlMessage interface {
	controlMessage()
}

// UpdateSettings carries a partial settings update. Nil fields are left
// untouched.
type UpdateSettings struct {
	ANCEnabled     *bool
	ANCIntensity   *float64
	AdaptiveMode   *bool
	VoiceThreshold *float64
}

// EnableProcessing toggles the whole pipeline. Disabling switches the
// engine to pass-through without tearing down noise-profile or
// voice-history state.
type EnableProcessing struct {
	Enabled bool
}

// SetANCIntensity sets the adaptive-noise-cancellation intensity.
type SetANCIntensity struct {
	Intensity float64
}

// SetVoiceThreshold sets the RMS energy threshold for voice detection.
type SetVoiceThreshold struct {
	Threshold float64
}

func (UpdateSettings) controlMessage()    {}
func (EnableProcessing) controlMessage()  {}
func (SetANCIntensity) controlMessage()   {}
func (SetVoiceThreshold) controlMessage() {}

// ── Outbound: engine → host ───────────────────────────────────────────────────

// Message is the tagged union of telemetry messages the engine emits.
// Delivery is best-effort: the outbound queue is bounded and drops the
// oldest message on overflow, and processing correctness never depends on a
// message arriving.
type Message interface {
	telemetryMessage()
}

// Ready is emitted once at engine construction.
type Ready struct {
	SampleRate int
	BufferSize int
}

// StreamDigests holds a 32-sample evenly-strided down-sampling of each
// separated stream, compact enough for a UI level meter or waveform view.
type StreamDigests struct {
	Voice   []float32
	Music   []float32
	Ambient []float32
	Noise   []float32
}

// RealtimeData is the lightweight visualization snapshot emitted every few
// blocks: the lead channel's voice decision, stream digests, and the low
// end of the magnitude spectrum.
type RealtimeData struct {
	Timestamp  time.Time
	FrameCount uint64
	Voice      dsp.VoiceDecision
	Streams    StreamDigests
	Spectrum   []float64
}

// Stats is the periodic processing-time digest covering the last (at most)
// 100 blocks. The rolling duration window is cleared after each emission.
type Stats struct {
	FrameCount            uint64
	AverageProcessingTime time.Duration
	MaxProcessingTime     time.Duration

	// EstimatedCPUUsage is mean processing time as a percentage of the
	// real-time block period (bufferSize / sampleRate).
	EstimatedCPUUsage float64

	SampleRate int
	BufferSize int
	Timestamp  time.Time
}

// ProcessingError reports a fault recovered at a block boundary. The
// affected channel fell back to pass-through for that block only;
// processing continues normally afterwards.
type ProcessingError struct {
	Message string
}

func (Ready) telemetryMessage()           {}
func (RealtimeData) telemetryMessage()    {}
func (Stats) telemetryMessage()           {}
func (ProcessingError) telemetryMessage() {}
