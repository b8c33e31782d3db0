package observe

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMetrics_AllInstrumentsCreated(t *testing.T) {
	m, err := NewMetrics(sdkmetric.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	if m.BlockDuration == nil || m.BlocksProcessed == nil || m.VoicedSnapshots == nil ||
		m.ProcessingErrors == nil || m.TelemetryDropped == nil ||
		m.EstimatedCPUUsage == nil || m.ConnectedClients == nil {
		t.Fatalf("instrument left nil: %+v", m)
	}
}

func TestMetrics_RecordThroughReader(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ctx := context.Background()
	m.BlocksProcessed.Add(ctx, 1000)
	m.BlockDuration.Record(ctx, (500 * time.Microsecond).Seconds())
	m.RecordSnapshot(ctx, true)
	m.RecordSnapshot(ctx, false)
	m.ConnectedClients.Add(ctx, 1)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(rm.ScopeMetrics) != 1 {
		t.Fatalf("scopes = %d, want 1", len(rm.ScopeMetrics))
	}
	scope := rm.ScopeMetrics[0]
	if scope.Scope.Name != meterName {
		t.Fatalf("scope = %q, want %q", scope.Scope.Name, meterName)
	}

	byName := make(map[string]metricdata.Metrics, len(scope.Metrics))
	for _, metric := range scope.Metrics {
		byName[metric.Name] = metric
	}

	blocks, ok := byName["quartet.blocks.processed"].Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("blocks.processed data = %T, want Sum[int64]", byName["quartet.blocks.processed"].Data)
	}
	if got := blocks.DataPoints[0].Value; got != 1000 {
		t.Fatalf("blocks.processed = %d, want 1000", got)
	}

	snapshots, ok := byName["quartet.snapshots"].Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("snapshots data = %T, want Sum[int64]", byName["quartet.snapshots"].Data)
	}
	// One data point per voiced attribute value.
	if len(snapshots.DataPoints) != 2 {
		t.Fatalf("snapshot series = %d, want 2", len(snapshots.DataPoints))
	}

	hist, ok := byName["quartet.block.duration"].Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("block.duration data = %T, want Histogram[float64]", byName["quartet.block.duration"].Data)
	}
	if got := hist.DataPoints[0].Count; got != 1 {
		t.Fatalf("duration count = %d, want 1", got)
	}
}

func TestDefaultMetrics_Singleton(t *testing.T) {
	if DefaultMetrics() != DefaultMetrics() {
		t.Fatal("DefaultMetrics returned different instances")
	}
}
