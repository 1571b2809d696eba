package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joshp123/containment/internal/config"
	"github.com/joshp123/containment/internal/console"
	"github.com/joshp123/containment/internal/indicator"
	"github.com/joshp123/containment/internal/metrics"
	"github.com/joshp123/containment/internal/monitor"
	"github.com/joshp123/containment/internal/notify"
	"github.com/joshp123/containment/internal/rate"
	"github.com/joshp123/containment/internal/sensors"
	"github.com/joshp123/containment/internal/server"
	"github.com/joshp123/containment/internal/transport"
)

// The local API is polled once per cycle; this only guards against runaway retries.
const airGradientPerMinute = 60

func buildSensors(cfg *config.Config) (monitor.Sensors, error) {
	sim := sensors.NewSimulator(sensors.SimulatorConfig{
		ReferencePressure: cfg.Sensors.ReferencePressure,
		Zones:             cfg.Zones,
		ZoneBases:         cfg.Sensors.ZoneBases,
		FailureRate:       cfg.Sensors.ReferenceFailureRate,
		Seed:              cfg.Sensors.Seed,
	})

	switch cfg.Sensors.Source {
	case config.SensorSimulated:
		return sim, nil
	case config.SensorAirGradient:
		client := rate.WrapHTTP(rate.Limit{
			Provider:  "airgradient",
			PerMinute: airGradientPerMinute,
			Headers:   rate.StandardHeaders(),
		}, &http.Client{Timeout: 10 * time.Second})
		ag, err := sensors.NewAirGradient(cfg.Sensors.AirGradientURL, client)
		if err != nil {
			return nil, err
		}
		return sensors.Rig{Pressure: sim, Particulate: ag}, nil
	default:
		return nil, fmt.Errorf("unknown sensor source %q", cfg.Sensors.Source)
	}
}

// outputs owns the indicator and telemetry sinks plus the connections behind them.
type outputs struct {
	Indicator monitor.Indicator
	Sinks     transport.Multi

	closers []func() error
}

func (o *outputs) Close() {
	for i := len(o.closers) - 1; i >= 0; i-- {
		if err := o.closers[i](); err != nil {
			slog.Warn("close output", "err", err)
		}
	}
}

func buildOutputs(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*outputs, error) {
	out := &outputs{}
	lamps := indicator.Multi{indicator.NewLog(logger)}

	httpSink, err := buildHTTPSink(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	out.Sinks = append(out.Sinks, httpSink)

	if cfg.MQTT.Enabled() {
		client, err := transport.NewMQTTClient(transport.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		})
		if err != nil {
			out.Close()
			return nil, fmt.Errorf("mqtt connect: %w", err)
		}
		out.closers = append(out.closers, func() error { client.Close(); return nil })

		sink, err := transport.NewMQTTSender(client, cfg.MQTT.Topic)
		if err != nil {
			out.Close()
			return nil, err
		}
		out.Sinks = append(out.Sinks, sink)

		remote, err := indicator.NewMQTT(client, cfg.MQTT.IndicatorTopic)
		if err != nil {
			out.Close()
			return nil, err
		}
		lamps = append(lamps, remote)
	}

	if cfg.Kafka.Enabled() {
		sink, err := transport.NewKafkaSender(transport.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		if err != nil {
			out.Close()
			return nil, err
		}
		out.Sinks = append(out.Sinks, sink)
		out.closers = append(out.closers, sink.Close)
	}

	out.Indicator = lamps

	names := make([]string, 0, len(out.Sinks))
	for _, s := range out.Sinks {
		names = append(names, s.Name())
	}
	logger.Info("outputs ready", "sinks", names, "indicators", len(lamps))
	return out, nil
}

func buildHTTPSink(ctx context.Context, cfg config.TelemetryConfig) (*transport.HTTPSender, error) {
	if cfg.TokenURL == "" {
		return transport.NewHTTPSender(cfg.Endpoint, nil)
	}
	return transport.NewOAuthHTTPSender(ctx, cfg.Endpoint, transport.OAuthConfig{
		TokenURL:         cfg.TokenURL,
		ClientID:         cfg.ClientID,
		ClientSecretFile: cfg.ClientSecretFile,
		Scopes:           cfg.Scopes,
	})
}

func buildObservers(cfg *config.Config, logger *slog.Logger, recorder *metrics.Recorder, health *server.HealthReporter) (monitor.Observers, error) {
	if recorder == nil || health == nil {
		return nil, errors.New("metrics recorder and health reporter are required")
	}
	observers := monitor.Observers{
		recorder,
		health,
		console.NewReporter(os.Stdout, cfg.Thresholds),
	}

	if cfg.Webhook.URL != "" {
		hook, err := notify.NewWebhook(notify.WebhookConfig{
			URL:        cfg.Webhook.URL,
			DeviceID:   cfg.DeviceID,
			Cooldown:   cfg.Webhook.Cooldown,
			Thresholds: cfg.Thresholds,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		observers = append(observers, hook)
	}
	return observers, nil
}
