// Package observe provides observability primitives for quartet:
// OpenTelemetry metric instruments and the SDK provider bootstrap with a
// Prometheus exporter bridge.
//
// Metrics are recorded on the host side only — the bridge's telemetry drain
// loop — never on the real-time processing goroutine. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for
// convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all quartet metrics.
const meterName = "github.com/MrWong99/quartet"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// BlockDuration tracks per-block processing latency as reported by the
	// engine's stats digests.
	BlockDuration metric.Float64Histogram

	// BlocksProcessed counts blocks covered by received stats digests.
	BlocksProcessed metric.Int64Counter

	// VoicedSnapshots counts RealtimeData snapshots whose lead-channel
	// decision was voiced. Use with attribute:
	//   attribute.Bool("voiced", ...)
	VoicedSnapshots metric.Int64Counter

	// ProcessingErrors counts recovered per-block pipeline faults.
	ProcessingErrors metric.Int64Counter

	// TelemetryDropped counts engine-side telemetry messages evicted
	// because the host fell behind.
	TelemetryDropped metric.Int64Counter

	// EstimatedCPUUsage records the engine's most recent CPU estimate as a
	// percentage of the block period.
	EstimatedCPUUsage metric.Float64Gauge

	// ConnectedClients tracks websocket clients attached to the bridge.
	ConnectedClients metric.Int64UpDownCounter
}

// blockLatencyBuckets defines histogram boundaries (in seconds) scaled for
// per-block DSP work: a 4096-sample block at 48 kHz has an 85 ms budget,
// and healthy processing sits well under a millisecond.
var blockLatencyBuckets = []float64{
	0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.BlockDuration, err = m.Float64Histogram("quartet.block.duration",
		metric.WithDescription("Per-block processing latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(blockLatencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.BlocksProcessed, err = m.Int64Counter("quartet.blocks.processed",
		metric.WithDescription("Total blocks covered by stats digests."),
	); err != nil {
		return nil, err
	}
	if met.VoicedSnapshots, err = m.Int64Counter("quartet.snapshots",
		metric.WithDescription("Realtime snapshots received, by voiced flag."),
	); err != nil {
		return nil, err
	}
	if met.ProcessingErrors, err = m.Int64Counter("quartet.processing.errors",
		metric.WithDescription("Recovered per-block pipeline faults."),
	); err != nil {
		return nil, err
	}
	if met.TelemetryDropped, err = m.Int64Counter("quartet.telemetry.dropped",
		metric.WithDescription("Telemetry messages evicted before the host read them."),
	); err != nil {
		return nil, err
	}
	if met.EstimatedCPUUsage, err = m.Float64Gauge("quartet.cpu.estimate",
		metric.WithDescription("Engine CPU estimate as a percentage of the block period."),
		metric.WithUnit("%"),
	); err != nil {
		return nil, err
	}
	if met.ConnectedClients, err = m.Int64UpDownCounter("quartet.bridge.clients",
		metric.WithDescription("Websocket clients currently attached to the bridge."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordSnapshot records one RealtimeData snapshot observation.
func (m *Metrics) RecordSnapshot(ctx context.Context, voiced bool) {
	m.VoicedSnapshots.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("voiced", voiced)),
	)
}
