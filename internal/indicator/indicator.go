// Package indicator implements the status lamp outputs.
package indicator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joshp123/containment/internal/monitor"
	"github.com/joshp123/containment/internal/transport"
)

// Log writes lamp changes to the logger and remembers the current state.
type Log struct {
	logger *slog.Logger

	mu    sync.Mutex
	lamps monitor.Lamps
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Set(_ context.Context, lamps monitor.Lamps) error {
	l.mu.Lock()
	changed := l.lamps != lamps
	l.lamps = lamps
	l.mu.Unlock()

	if changed {
		l.logger.Info("indicator", "lamp", lamps.String())
	} else {
		l.logger.Debug("indicator", "lamp", lamps.String())
	}
	return nil
}

// Lamps returns the last applied state.
func (l *Log) Lamps() monitor.Lamps {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lamps
}

// MQTT mirrors lamp state to a retained topic so remote panels show the
// current state as soon as they subscribe.
type MQTT struct {
	pub   transport.Publisher
	topic string
}

type lampPayload struct {
	Green  bool   `json:"green"`
	Yellow bool   `json:"yellow"`
	Red    bool   `json:"red"`
	State  string `json:"state"`
}

func NewMQTT(pub transport.Publisher, topic string) (*MQTT, error) {
	if pub == nil {
		return nil, fmt.Errorf("mqtt publisher is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("indicator topic is required")
	}
	return &MQTT{pub: pub, topic: topic}, nil
}

func (m *MQTT) Set(ctx context.Context, lamps monitor.Lamps) error {
	payload, err := json.Marshal(lampPayload{
		Green:  lamps.Green,
		Yellow: lamps.Yellow,
		Red:    lamps.Red,
		State:  lamps.String(),
	})
	if err != nil {
		return fmt.Errorf("encode indicator: %w", err)
	}
	if err := m.pub.Publish(ctx, m.topic, true, payload); err != nil {
		return fmt.Errorf("publish indicator: %w", err)
	}
	return nil
}

// Multi applies the state to every output, even after one fails.
type Multi []monitor.Indicator

func (m Multi) Set(ctx context.Context, lamps monitor.Lamps) error {
	var errs []error
	for _, ind := range m {
		if err := ind.Set(ctx, lamps); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
