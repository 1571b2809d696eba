package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joshp123/containment/internal/config"
	"github.com/joshp123/containment/internal/metrics"
	"github.com/joshp123/containment/internal/monitor"
	"github.com/joshp123/containment/internal/rate"
	"github.com/joshp123/containment/internal/server"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rig, err := buildSensors(cfg)
	if err != nil {
		log.Fatalf("sensors: %v", err)
	}

	out, err := buildOutputs(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("outputs: %v", err)
	}
	defer out.Close()

	recorder := metrics.NewRecorder()
	registry := metrics.NewRegistry(append(recorder.Collectors(), rate.MetricsCollectors()...)...)
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "containment_build_info",
		Help:        "Build information",
		ConstLabels: prometheus.Labels{"device": cfg.DeviceID},
	}, func() float64 { return 1 }))

	health := server.NewHealthReporter(server.DefaultFailureThreshold)

	observers, err := buildObservers(cfg, logger, recorder, health)
	if err != nil {
		log.Fatalf("observers: %v", err)
	}

	grpcServer, err := server.NewGRPCServer(cfg.GRPCAddr, health)
	if err != nil {
		log.Fatalf("grpc: %v", err)
	}
	httpServer := server.NewHTTPServer(cfg.HTTPAddr, server.NewRouter(health, registry), os.Stdout)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil {
			log.Fatalf("http serve: %v", err)
		}
	}()
	go func() {
		if err := grpcServer.Serve(); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()
	logger.Info("listening", "http", cfg.HTTPAddr, "grpc", cfg.GRPCAddr)

	scheduler, err := monitor.NewScheduler(cfg.MonitorConfig(), rig, out.Indicator, out.Sinks,
		monitor.WithObserver(observers),
		monitor.WithLogger(logger),
	)
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}

	if err := scheduler.Run(ctx); err != nil {
		logger.Error("monitor stopped", "err", err)
	}

	health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}
	grpcServer.GracefulStop()

	stats := scheduler.Stats()
	logger.Info("shutdown complete",
		"completed", stats.Completed,
		"abandoned", stats.Abandoned,
		"faults", stats.Faults,
		"send_failures", stats.SendFailures,
	)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
