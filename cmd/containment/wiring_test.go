package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/joshp123/containment/internal/config"
	"github.com/joshp123/containment/internal/metrics"
	"github.com/joshp123/containment/internal/sensors"
	"github.com/joshp123/containment/internal/server"
)

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.FromEnv(func(key string) string { return env[key] })
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func TestBuildSensors(t *testing.T) {
	cfg := testConfig(t, nil)
	s, err := buildSensors(cfg)
	if err != nil {
		t.Fatalf("build sim: %v", err)
	}
	if _, ok := s.(*sensors.Simulator); !ok {
		t.Fatalf("expected simulator, got %T", s)
	}

	cfg.Sensors.Source = config.SensorAirGradient
	cfg.Sensors.AirGradientURL = "http://airgradient.local"
	s, err = buildSensors(cfg)
	if err != nil {
		t.Fatalf("build airgradient: %v", err)
	}
	if _, ok := s.(sensors.Rig); !ok {
		t.Fatalf("expected rig, got %T", s)
	}

	cfg.Sensors.Source = "gpio"
	if _, err := buildSensors(cfg); err == nil {
		t.Fatalf("expected error for unknown source")
	}
}

func TestBuildOutputsDefaults(t *testing.T) {
	cfg := testConfig(t, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	out, err := buildOutputs(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("build outputs: %v", err)
	}
	defer out.Close()

	if len(out.Sinks) != 1 || out.Sinks[0].Name() != "http" {
		t.Fatalf("expected only the http sink, got %d", len(out.Sinks))
	}
	if out.Indicator == nil {
		t.Fatalf("expected indicator")
	}
}

func TestBuildOutputsKafka(t *testing.T) {
	cfg := testConfig(t, map[string]string{"CONTAINMENT_KAFKA_BROKERS": "localhost:9092"})
	out, err := buildOutputs(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("build outputs: %v", err)
	}
	defer out.Close()

	if len(out.Sinks) != 2 || out.Sinks[1].Name() != "kafka" {
		t.Fatalf("expected http and kafka sinks")
	}
}

func TestBuildObservers(t *testing.T) {
	cfg := testConfig(t, map[string]string{"CONTAINMENT_WEBHOOK_URL": "https://chat.example/hook"})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	observers, err := buildObservers(cfg, logger, metrics.NewRecorder(), server.NewHealthReporter(0))
	if err != nil {
		t.Fatalf("build observers: %v", err)
	}
	if len(observers) != 4 {
		t.Fatalf("expected metrics, health, console and webhook observers, got %d", len(observers))
	}

	if _, err := buildObservers(cfg, logger, nil, nil); err == nil {
		t.Fatalf("expected error without recorder")
	}
}
