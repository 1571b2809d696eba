package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/joshp123/containment/internal/monitor"
	"github.com/joshp123/containment/internal/transport"
)

func criticalCycle() monitor.MeasurementCycle {
	zones := []monitor.Zone{{Key: "room1", Name: "Zone 1"}, {Key: "room2", Name: "Zone 2"}}
	cycle := monitor.MeasurementCycle{
		Index:     4,
		Reference: monitor.ReferenceReading{Temperature: 21.5, Humidity: 42, Pressure: 101325},
		Zones: []monitor.ZoneReading{
			{Zone: zones[0], Pressure: 101295},
			{Zone: zones[1], Pressure: 101330},
		},
		AirQuality: monitor.AirQualityReading{PM25: 40, PM10: 20},
	}
	return monitor.Evaluate(monitor.DefaultThresholds(), cycle)
}

func TestRecorderCycleCompleted(t *testing.T) {
	r := NewRecorder()
	cycle := criticalCycle()
	record := monitor.BuildTelemetry("site_pico_01", time.Unix(1700000000, 0), cycle)

	r.CycleCompleted(context.Background(), cycle, record)

	if got := testutil.ToFloat64(r.zoneDiff.WithLabelValues("room1", "Zone 1")); got != -30 {
		t.Fatalf("room1 diff: expected -30, got %v", got)
	}
	if got := testutil.ToFloat64(r.zoneDiff.WithLabelValues("room2", "Zone 2")); got != 5 {
		t.Fatalf("room2 diff: expected 5, got %v", got)
	}
	if got := testutil.ToFloat64(r.zoneTier.WithLabelValues("room2", "Zone 2")); got != float64(monitor.Critical) {
		t.Fatalf("room2 tier: expected critical, got %v", got)
	}
	if got := testutil.ToFloat64(r.alertLevel); got != float64(monitor.Critical) {
		t.Fatalf("alert level: expected critical, got %v", got)
	}
	if got := testutil.ToFloat64(r.alerts); got != 2 {
		t.Fatalf("alerts: expected 2, got %v", got)
	}
	if got := testutil.ToFloat64(r.pm25); got != 40 {
		t.Fatalf("pm25: expected 40, got %v", got)
	}
	if got := testutil.ToFloat64(r.lastCycle); got != 1700000000 {
		t.Fatalf("last cycle: expected 1700000000, got %v", got)
	}
	if got := testutil.ToFloat64(r.cycles.WithLabelValues("completed")); got != 1 {
		t.Fatalf("completed cycles: expected 1, got %v", got)
	}
}

func TestRecorderFailures(t *testing.T) {
	r := NewRecorder()

	r.CycleAbandoned(1, &monitor.AcquisitionError{Source: monitor.SourceReference, Err: monitor.ErrNoReading})
	r.CycleAbandoned(2, &monitor.AcquisitionError{Source: monitor.SourceReference, Err: monitor.ErrNoReading})
	r.CycleFailed(3, errors.New("i2c bus error"))

	if got := testutil.ToFloat64(r.cycles.WithLabelValues("abandoned")); got != 2 {
		t.Fatalf("abandoned: expected 2, got %v", got)
	}
	if got := testutil.ToFloat64(r.referenceFailure); got != 2 {
		t.Fatalf("reference failures: expected 2, got %v", got)
	}
	if got := testutil.ToFloat64(r.cycles.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed: expected 1, got %v", got)
	}

	joined := errors.Join(
		&transport.SinkError{Sink: "http", Err: errors.New("connection refused")},
		&transport.SinkError{Sink: "kafka", Err: errors.New("leader not available")},
	)
	r.SendFailed(3, joined)
	r.SendFailed(4, errors.New("boom"))

	if got := testutil.ToFloat64(r.sendFailures.WithLabelValues("http")); got != 1 {
		t.Fatalf("http failures: expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(r.sendFailures.WithLabelValues("kafka")); got != 1 {
		t.Fatalf("kafka failures: expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(r.sendFailures.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("unknown failures: expected 1, got %v", got)
	}
}

func TestRegistryExposesRecorder(t *testing.T) {
	r := NewRecorder()
	registry := NewRegistry(r.Collectors()...)
	r.CycleFailed(1, errors.New("boom"))

	expected := `
# HELP containment_cycles_total Measurement cycles by outcome
# TYPE containment_cycles_total counter
containment_cycles_total{outcome="failed"} 1
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "containment_cycles_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}
