// Package engine implements the per-block real-time pipeline of quartet:
// spectral analysis, voice activity detection, stream separation, adaptive
// noise reduction, and remix, plus the bounded message protocol that
// connects the pipeline to a non-real-time host.
//
// An [Engine] is constructed once and driven synchronously from a single
// dedicated audio callback goroutine via [Engine.Process]. All cross-thread
// interaction goes through the control [Inbox] and the telemetry [Outbox];
// the host must never touch engine state directly. Nothing on the Process
// path blocks, takes a lock shared with the host, or allocates beyond the
// small bounded telemetry snapshots.
package engine

import (
	"fmt"
	"time"

	"github.com/MrWong99/quartet/pkg/audio"
	"github.com/MrWong99/quartet/pkg/dsp"
)

// Construction defaults.
const (
	DefaultSampleRate = 48000
	DefaultBufferSize = 4096
	DefaultFFTSize    = 1024

	// DefaultRealtimeInterval is how many blocks pass between RealtimeData
	// snapshots; DefaultStatsInterval between Stats digests.
	DefaultRealtimeInterval = 10
	DefaultStatsInterval    = 1000
)

// Telemetry snapshot sizes.
const (
	digestSamples      = 32
	spectrumDigestBins = 128
)

// Settings is the engine's mutable runtime configuration. It changes only
// through control messages, applied between blocks. Bounded fields are
// clamped at the moment of assignment, so reads never need to re-validate.
type Settings struct {
	// Enabled switches the whole pipeline; false means pass-through.
	Enabled bool

	// ANCEnabled toggles the noise-reduction stage. Separation and remix
	// still run when it is off.
	ANCEnabled bool

	// ANCIntensity scales all per-stream reduction amounts, in [0, 1].
	ANCIntensity float64

	// VoiceThreshold is the RMS energy floor for voice detection, in [0, 1].
	VoiceThreshold float64

	// AdaptiveMode lets the noise profile learn from quiet stretches.
	AdaptiveMode bool
}

// DefaultSettings returns the settings a fresh engine starts with.
func DefaultSettings() Settings {
	return Settings{
		Enabled:        true,
		ANCEnabled:     true,
		ANCIntensity:   0.5,
		VoiceThreshold: 0.02,
		AdaptiveMode:   true,
	}
}

// Option configures an [Engine] during construction.
type Option func(*Engine)

// WithSampleRate sets the stream sample rate in Hz.
func WithSampleRate(hz int) Option {
	return func(e *Engine) {
		if hz > 0 {
			e.sampleRate = hz
		}
	}
}

// WithBufferSize sets the expected samples per block. Only the telemetry
// CPU estimate depends on it; Process accepts any uniform block length.
func WithBufferSize(samples int) Option {
	return func(e *Engine) {
		if samples > 0 {
			e.bufferSize = samples
		}
	}
}

// WithFFTSize sets the spectral analysis frame size. Must be a power of
// two for the FFT to be efficient; correctness holds for any positive even
// value.
func WithFFTSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.fftSize = n
		}
	}
}

// WithSettings overrides the initial runtime settings. Bounded fields are
// clamped exactly as a control message would be.
func WithSettings(s Settings) Option {
	return func(e *Engine) {
		s.ANCIntensity = clamp01(s.ANCIntensity)
		s.VoiceThreshold = clamp01(s.VoiceThreshold)
		e.settings = s
	}
}

// WithQueueCapacity sets the buffer size of both message queues.
func WithQueueCapacity(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.queueCapacity = n
		}
	}
}

// WithTelemetryIntervals sets the RealtimeData and Stats emission periods,
// in blocks.
func WithTelemetryIntervals(realtime, stats uint64) Option {
	return func(e *Engine) {
		if realtime > 0 {
			e.realtimeInterval = realtime
		}
		if stats > 0 {
			e.statsInterval = stats
		}
	}
}

// Engine is the block-processing pipeline. Construct with [New]; drive with
// [Engine.Process] from exactly one goroutine. The control inbox and the
// telemetry channel are the only surfaces other goroutines may touch.
type Engine struct {
	sampleRate    int
	bufferSize    int
	fftSize       int
	queueCapacity int

	settings Settings

	analyzer  *dsp.SpectralAnalyzer
	vad       *dsp.VoiceActivityDetector
	separator *dsp.StreamSeparator
	reducer   *dsp.NoiseReducer
	remixer   dsp.Remixer

	inbox  *Inbox
	outbox *Outbox

	frameCount       uint64
	realtimeInterval uint64
	statsInterval    uint64
	stats            statsWindow

	// leadDecision is the block's voice decision, taken from channel 0. The
	// digest arrays are snapshot scratch, copied into fresh message slices
	// at publish time so the host never aliases engine-owned memory.
	leadDecision   dsp.VoiceDecision
	digestVoice    [digestSamples]float32
	digestMusic    [digestSamples]float32
	digestAmbient  [digestSamples]float32
	digestNoise    [digestSamples]float32
	spectrumDigest [spectrumDigestBins]float64
}

// New constructs an Engine and immediately publishes a [Ready] message on
// its telemetry queue.
func New(opts ...Option) *Engine {
	e := &Engine{
		sampleRate:       DefaultSampleRate,
		bufferSize:       DefaultBufferSize,
		fftSize:          DefaultFFTSize,
		queueCapacity:    DefaultQueueCapacity,
		settings:         DefaultSettings(),
		realtimeInterval: DefaultRealtimeInterval,
		statsInterval:    DefaultStatsInterval,
	}
	for _, o := range opts {
		o(e)
	}

	e.analyzer = dsp.NewSpectralAnalyzer(e.sampleRate, e.fftSize)
	e.vad = dsp.NewVoiceActivityDetector(e.sampleRate, e.fftSize)
	e.separator = dsp.NewStreamSeparator(e.sampleRate, e.fftSize)
	e.reducer = dsp.NewNoiseReducer(e.fftSize)
	e.inbox = newInbox(e.queueCapacity)
	e.outbox = newOutbox(e.queueCapacity)

	e.outbox.publish(Ready{SampleRate: e.sampleRate, BufferSize: e.bufferSize})
	return e
}

// Control returns the inbox the host sends configuration messages to.
func (e *Engine) Control() *Inbox { return e.inbox }

// Telemetry returns the channel the host reads telemetry messages from.
func (e *Engine) Telemetry() <-chan Message { return e.outbox.Receive() }

// TelemetryDropped reports how many telemetry messages have been evicted
// because the host fell behind.
func (e *Engine) TelemetryDropped() uint64 { return e.outbox.Dropped() }

// Settings returns a copy of the current runtime settings. Engine-goroutine
// (or test) use only; hosts observe configuration through telemetry.
func (e *Engine) Settings() Settings { return e.settings }

// SampleRate returns the configured stream sample rate in Hz.
func (e *Engine) SampleRate() int { return e.sampleRate }

// BufferSize returns the configured samples per block.
func (e *Engine) BufferSize() int { return e.bufferSize }

// Process runs one block through the pipeline: pending control messages are
// applied first, then every input channel is analysed, separated, reduced,
// and remixed into the matching output channel. The return value is a
// liveness flag and is always true — the engine never self-terminates.
//
// Malformed shapes (no channels, mismatched counts or lengths, empty
// blocks) and disabled processing both degrade to pass-through. A panic
// inside one channel's pipeline is recovered here, reported via a
// [ProcessingError] message, and downgrades that channel to pass-through
// for this block only.
func (e *Engine) Process(input, output audio.Block) bool {
	e.applyPendingControl()

	if !validShape(input, output) {
		passThrough(input, output)
		return true
	}
	if !e.settings.Enabled {
		passThrough(input, output)
		return true
	}

	start := time.Now()
	for ch := range input {
		e.processChannel(input[ch], output[ch], ch == 0)
	}
	elapsed := time.Since(start)

	e.frameCount++
	e.stats.record(elapsed)

	if e.frameCount%e.realtimeInterval == 0 {
		e.publishRealtime()
	}
	if e.frameCount%e.statsInterval == 0 {
		e.publishStats()
	}
	return true
}

// processChannel runs the pipeline stages for a single channel. lead marks
// channel 0, which drives all block-level state: voice detection, the VAD
// history, and noise-profile adaptation advance exactly once per block,
// while separation, reduction, and remix run per channel. The remaining
// channels reuse the lead decision and the shared noise profile.
func (e *Engine) processChannel(in, out []float32, lead bool) {
	defer func() {
		if r := recover(); r != nil {
			copy(out, in)
			e.outbox.publish(ProcessingError{
				Message: fmt.Sprintf("block %d: %v", e.frameCount, r),
			})
		}
	}()

	spectrum := e.analyzer.Analyze(in)
	if lead {
		e.leadDecision = e.vad.Detect(in, spectrum, e.settings.VoiceThreshold)
		e.analyzer.Adapt(e.leadDecision.Voiced, e.settings.AdaptiveMode)
	}

	streams := e.separator.Separate(in, spectrum)
	if e.settings.ANCEnabled {
		e.reducer.Reduce(streams, e.leadDecision, e.settings.ANCIntensity, e.analyzer.NoiseProfile())
	}
	e.remixer.Mix(streams, out)

	if lead {
		e.captureSnapshot(streams, spectrum)
	}
}

// applyPendingControl drains the inbox and applies each message in FIFO
// order. Runs at the block boundary so a block never sees a partial update.
func (e *Engine) applyPendingControl() {
	for {
		msg, ok := e.inbox.tryRecv()
		if !ok {
			return
		}
		e.apply(msg)
	}
}

func (e *Engine) apply(msg ControlMessage) {
	switch m := msg.(type) {
	case EnableProcessing:
		e.settings.Enabled = m.Enabled
	case SetANCIntensity:
		e.settings.ANCIntensity = clamp01(m.Intensity)
	case SetVoiceThreshold:
		e.settings.VoiceThreshold = clamp01(m.Threshold)
	case UpdateSettings:
		if m.ANCEnabled != nil {
			e.settings.ANCEnabled = *m.ANCEnabled
		}
		if m.ANCIntensity != nil {
			e.settings.ANCIntensity = clamp01(*m.ANCIntensity)
		}
		if m.AdaptiveMode != nil {
			e.settings.AdaptiveMode = *m.AdaptiveMode
		}
		if m.VoiceThreshold != nil {
			e.settings.VoiceThreshold = clamp01(*m.VoiceThreshold)
		}
	}
}

// captureSnapshot copies the lead channel's intermediate state into the
// engine's fixed scratch. Later channels reuse the separator's stream
// buffers, so this must happen before the loop moves on.
func (e *Engine) captureSnapshot(streams *dsp.SeparatedStreams, spectrum []float64) {
	downsample(streams.Voice, e.digestVoice[:])
	downsample(streams.Music, e.digestMusic[:])
	downsample(streams.Ambient, e.digestAmbient[:])
	downsample(streams.Noise, e.digestNoise[:])

	n := len(spectrum)
	if n > spectrumDigestBins {
		n = spectrumDigestBins
	}
	copy(e.spectrumDigest[:n], spectrum[:n])
	for i := n; i < spectrumDigestBins; i++ {
		e.spectrumDigest[i] = 0
	}
}

// publishRealtime emits a RealtimeData snapshot built from fresh slices so
// the host never shares memory with the engine.
func (e *Engine) publishRealtime() {
	msg := RealtimeData{
		Timestamp:  time.Now(),
		FrameCount: e.frameCount,
		Voice:      e.leadDecision,
		Streams: StreamDigests{
			Voice:   append([]float32(nil), e.digestVoice[:]...),
			Music:   append([]float32(nil), e.digestMusic[:]...),
			Ambient: append([]float32(nil), e.digestAmbient[:]...),
			Noise:   append([]float32(nil), e.digestNoise[:]...),
		},
		Spectrum: append([]float64(nil), e.spectrumDigest[:]...),
	}
	e.outbox.publish(msg)
}

// publishStats emits the processing-time digest and clears the rolling
// window so the next digest covers a disjoint span.
func (e *Engine) publishStats() {
	mean, max := e.stats.digest()
	blockPeriod := float64(e.bufferSize) / float64(e.sampleRate) // seconds

	var cpu float64
	if blockPeriod > 0 {
		cpu = mean.Seconds() / blockPeriod * 100
	}

	e.outbox.publish(Stats{
		FrameCount:            e.frameCount,
		AverageProcessingTime: mean,
		MaxProcessingTime:     max,
		EstimatedCPUUsage:     cpu,
		SampleRate:            e.sampleRate,
		BufferSize:            e.bufferSize,
		Timestamp:             time.Now(),
	})
	e.stats.reset()
}

// validShape reports whether input and output form a processable block
// pair: equal non-zero channel counts, uniform non-zero sample counts, and
// matching lengths per channel.
func validShape(input, output audio.Block) bool {
	if len(input) == 0 || len(input) != len(output) {
		return false
	}
	n := len(input[0])
	if n == 0 {
		return false
	}
	for ch := range input {
		if len(input[ch]) != n || len(output[ch]) != n {
			return false
		}
	}
	return true
}

// passThrough copies input to output for every channel pair that lines up.
// Used for bypass and malformed shapes; output channels with no matching
// input are left untouched.
func passThrough(input, output audio.Block) {
	n := len(input)
	if len(output) < n {
		n = len(output)
	}
	for ch := 0; ch < n; ch++ {
		copy(output[ch], input[ch])
	}
}

// downsample fills dst with evenly-strided samples from src. A short src
// repeats positions; an empty src zeroes dst.
func downsample(src []float32, dst []float32) {
	if len(src) == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	for i := range dst {
		dst[i] = src[i*len(src)/len(dst)]
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
