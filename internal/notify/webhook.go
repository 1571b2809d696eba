// Package notify posts alert cycles to a chat webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/joshp123/containment/internal/monitor"
	"github.com/joshp123/containment/internal/rate"
)

const (
	DefaultUsername  = "Containment Monitor"
	DefaultPerMinute = 30
	requestTimeout   = 10 * time.Second
)

var levelColors = map[monitor.Severity]int{
	monitor.Normal:   0x00ff00,
	monitor.Warning:  0xffff00,
	monitor.Critical: 0xff0000,
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title     string       `json:"title"`
	Color     int          `json:"color"`
	Timestamp string       `json:"timestamp"`
	Fields    []embedField `json:"fields"`
}

type message struct {
	Username string  `json:"username"`
	Embeds   []embed `json:"embeds"`
}

// Webhook posts Discord-style embeds for Warning and Critical cycles.
// Each level is rate limited independently by the cooldown.
type Webhook struct {
	url        string
	deviceID   string
	cooldown   time.Duration
	thresholds monitor.Thresholds
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	lastSent map[monitor.Severity]time.Time
}

type WebhookConfig struct {
	URL        string
	DeviceID   string
	Cooldown   time.Duration
	Thresholds monitor.Thresholds
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewWebhook(cfg WebhookConfig) (*Webhook, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if cfg.Cooldown < 0 {
		return nil, fmt.Errorf("webhook cooldown must not be negative")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = rate.WrapHTTP(rate.Limit{
			Provider:  "webhook",
			PerMinute: DefaultPerMinute,
			Headers:   rate.DiscordHeaders(),
		}, &http.Client{Timeout: requestTimeout})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Webhook{
		url:        cfg.URL,
		deviceID:   cfg.DeviceID,
		cooldown:   cfg.Cooldown,
		thresholds: cfg.Thresholds,
		httpClient: client,
		logger:     logger,
		now:        time.Now,
		lastSent:   make(map[monitor.Severity]time.Time),
	}, nil
}

// CycleCompleted posts the alert synchronously. The request is bound to ctx so
// stopping the monitor aborts an in-flight post.
func (w *Webhook) CycleCompleted(ctx context.Context, cycle monitor.MeasurementCycle, record monitor.Telemetry) {
	level := cycle.Event.Level
	if level < monitor.Warning || !w.due(level) {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if err := w.post(ctx, w.alertMessage(cycle, record)); err != nil {
		if ctx.Err() == context.Canceled {
			w.logger.Info("webhook notification cancelled", "cycle", cycle.Index, "level", level.String())
			return
		}
		w.logger.Warn("webhook notification failed", "cycle", cycle.Index, "level", level.String(), "err", err)
		return
	}
	w.logger.Info("webhook notification sent", "cycle", cycle.Index, "level", level.String())
}

func (w *Webhook) CycleAbandoned(int, error) {}

func (w *Webhook) CycleFailed(int, error) {}

func (w *Webhook) SendFailed(int, error) {}

// due reserves the level's slot if its cooldown has elapsed.
func (w *Webhook) due(level monitor.Severity) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	if last, ok := w.lastSent[level]; ok && now.Sub(last) < w.cooldown {
		return false
	}
	w.lastSent[level] = now
	return true
}

func (w *Webhook) alertMessage(cycle monitor.MeasurementCycle, record monitor.Telemetry) message {
	title := "Containment warning"
	if cycle.Event.Level == monitor.Critical {
		title = "CRITICAL containment alert"
	}

	ref := cycle.Reference
	fields := []embedField{
		{Name: "Device", Value: w.deviceID, Inline: true},
		{Name: "Cycle", Value: fmt.Sprintf("%d", cycle.Index), Inline: true},
		{Name: "Temperature (clean)", Value: fmt.Sprintf("%.1f C", ref.Temperature), Inline: true},
		{Name: "Humidity (clean)", Value: fmt.Sprintf("%.1f %%", ref.Humidity), Inline: true},
		{Name: "Pressure (ref)", Value: fmt.Sprintf("%.2f hPa", ref.Pressure/100), Inline: true},
	}

	zones := make([]string, 0, len(cycle.Differentials))
	for i, d := range cycle.Differentials {
		tier := monitor.Normal
		if i < len(cycle.ZoneVerdicts) {
			tier = cycle.ZoneVerdicts[i].Tier
		}
		zones = append(zones, fmt.Sprintf("**%s:** %+.1f Pa (%s)", d.Zone.Name, d.Diff, w.zoneLabel(tier, d.Diff)))
	}
	if len(zones) == 0 {
		zones = append(zones, "no data")
	}
	fields = append(fields,
		embedField{Name: "Pressure differentials", Value: strings.Join(zones, "\n")},
		embedField{Name: "Air quality", Value: fmt.Sprintf("**PM2.5:** %.1f ug/m3\n**PM10:** %.1f ug/m3", cycle.AirQuality.PM25, cycle.AirQuality.PM10)},
		embedField{Name: "Alerts", Value: strings.Join(cycle.Event.Messages, "\n")},
	)

	ts := time.Unix(0, int64(record.Timestamp*float64(time.Second))).UTC()
	return message{
		Username: DefaultUsername,
		Embeds: []embed{{
			Title:     title,
			Color:     levelColors[cycle.Event.Level],
			Timestamp: ts.Format(time.RFC3339),
			Fields:    fields,
		}},
	}
}

func (w *Webhook) zoneLabel(tier monitor.Severity, diff float64) string {
	switch {
	case tier == monitor.Critical:
		return "no vacuum"
	case tier == monitor.Warning:
		return "weak vacuum"
	case w.thresholds.IsStrongVacuum(diff):
		return "strong vacuum"
	default:
		return "moderate vacuum"
	}
}

func (w *Webhook) post(ctx context.Context, msg message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode webhook message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
