package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joshp123/containment/internal/monitor"
)

const (
	DefaultDeviceID          = "site_pico_01"
	DefaultTelemetryEndpoint = "http://localhost:3000/api/measurements"
	DefaultHTTPAddr          = "0.0.0.0:8080"
	DefaultGRPCAddr          = "0.0.0.0:9000"
	DefaultZones             = "room1=Zone 1,room2=Zone 2,room3=Zone 3"
	DefaultSensorSource      = SensorSimulated
	DefaultMQTTTopic         = "containment/{device_id}/telemetry"
	DefaultIndicatorTopic    = "containment/{device_id}/indicator"
	DefaultKafkaTopic        = "containment.telemetry"
	DefaultWebhookCooldown   = 300 * time.Second
	DefaultReferencePressure = 101325.0
	DefaultLogLevel          = "info"
)

// Sensor sources.
const (
	SensorSimulated   = "sim"
	SensorAirGradient = "airgradient"
)

// Config is fixed at startup.
type Config struct {
	DeviceID   string
	Zones      []monitor.Zone
	Thresholds monitor.Thresholds
	Interval   time.Duration
	RetryDelay time.Duration
	LogLevel   string

	HTTPAddr string
	GRPCAddr string

	Sensors   SensorConfig
	Telemetry TelemetryConfig
	MQTT      MQTTConfig
	Kafka     KafkaConfig
	Webhook   WebhookConfig
}

type SensorConfig struct {
	Source string
	// AirGradientURL is the local API of the particulate sensor when Source is airgradient.
	AirGradientURL string

	ReferencePressure float64
	// ZoneBases maps zone key to simulated base pressure in Pa.
	ZoneBases map[string]float64
	// ReferenceFailureRate is the probability a simulated DHT22 read fails.
	ReferenceFailureRate float64
	Seed                 int64
}

type TelemetryConfig struct {
	Endpoint string
	// Optional OAuth2 client-credentials for the endpoint.
	TokenURL         string
	ClientID         string
	ClientSecretFile string
	Scopes           []string
}

type MQTTConfig struct {
	Broker         string
	Username       string
	Password       string
	Topic          string
	IndicatorTopic string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type WebhookConfig struct {
	URL      string
	Cooldown time.Duration
}

// Enabled reports whether an MQTT broker is configured.
func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

// Enabled reports whether Kafka brokers are configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// Load reads an optional .env file, then the environment, applies defaults and validates.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	env := envReader{getenv: getenv}

	cfg := &Config{
		DeviceID:   env.str("CONTAINMENT_DEVICE_ID", DefaultDeviceID),
		Interval:   env.duration("CONTAINMENT_INTERVAL", monitor.DefaultInterval),
		RetryDelay: env.duration("CONTAINMENT_RETRY_DELAY", monitor.DefaultRetryDelay),
		LogLevel:   env.str("CONTAINMENT_LOG_LEVEL", DefaultLogLevel),
		HTTPAddr:   env.str("CONTAINMENT_HTTP_ADDR", DefaultHTTPAddr),
		GRPCAddr:   env.str("CONTAINMENT_GRPC_ADDR", DefaultGRPCAddr),
	}

	defaults := monitor.DefaultThresholds()
	cfg.Thresholds = monitor.Thresholds{
		PressureWarning:  env.float("CONTAINMENT_PRESSURE_WARNING", defaults.PressureWarning),
		PressureCritical: env.float("CONTAINMENT_PRESSURE_CRITICAL", defaults.PressureCritical),
		PressureGood:     env.float("CONTAINMENT_PRESSURE_GOOD", defaults.PressureGood),
		PM25: monitor.Breakpoints{
			Warning:  env.float("CONTAINMENT_PM25_WARNING", defaults.PM25.Warning),
			Critical: env.float("CONTAINMENT_PM25_CRITICAL", defaults.PM25.Critical),
		},
		PM10: monitor.Breakpoints{
			Warning:  env.float("CONTAINMENT_PM10_WARNING", defaults.PM10.Warning),
			Critical: env.float("CONTAINMENT_PM10_CRITICAL", defaults.PM10.Critical),
		},
	}

	zones, err := ParseZones(env.str("CONTAINMENT_ZONES", DefaultZones))
	if err != nil {
		return nil, err
	}
	cfg.Zones = zones

	bases, err := parseBases(env.str("CONTAINMENT_SIM_ZONE_BASES", ""))
	if err != nil {
		return nil, err
	}
	cfg.Sensors = SensorConfig{
		Source:               env.str("CONTAINMENT_SENSOR_SOURCE", DefaultSensorSource),
		AirGradientURL:       env.str("CONTAINMENT_AIRGRADIENT_URL", ""),
		ReferencePressure:    env.float("CONTAINMENT_SIM_REFERENCE_PRESSURE", DefaultReferencePressure),
		ZoneBases:            bases,
		ReferenceFailureRate: env.float("CONTAINMENT_SIM_REFERENCE_FAILURE_RATE", 0),
		Seed:                 env.int64("CONTAINMENT_SIM_SEED", 0),
	}

	cfg.Telemetry = TelemetryConfig{
		Endpoint:         env.str("CONTAINMENT_TELEMETRY_ENDPOINT", DefaultTelemetryEndpoint),
		TokenURL:         env.str("CONTAINMENT_TELEMETRY_TOKEN_URL", ""),
		ClientID:         env.str("CONTAINMENT_TELEMETRY_CLIENT_ID", ""),
		ClientSecretFile: env.str("CONTAINMENT_TELEMETRY_CLIENT_SECRET_FILE", ""),
		Scopes:           splitList(env.str("CONTAINMENT_TELEMETRY_SCOPES", "")),
	}

	cfg.MQTT = MQTTConfig{
		Broker:         env.str("CONTAINMENT_MQTT_BROKER", ""),
		Username:       env.str("CONTAINMENT_MQTT_USERNAME", ""),
		Password:       env.str("CONTAINMENT_MQTT_PASSWORD", ""),
		Topic:          expandDevice(env.str("CONTAINMENT_MQTT_TOPIC", DefaultMQTTTopic), cfg.DeviceID),
		IndicatorTopic: expandDevice(env.str("CONTAINMENT_MQTT_INDICATOR_TOPIC", DefaultIndicatorTopic), cfg.DeviceID),
	}

	cfg.Kafka = KafkaConfig{
		Brokers: splitList(env.str("CONTAINMENT_KAFKA_BROKERS", "")),
		Topic:   env.str("CONTAINMENT_KAFKA_TOPIC", DefaultKafkaTopic),
	}

	cfg.Webhook = WebhookConfig{
		URL:      env.str("CONTAINMENT_WEBHOOK_URL", ""),
		Cooldown: env.duration("CONTAINMENT_WEBHOOK_COOLDOWN", DefaultWebhookCooldown),
	}

	if err := env.err(); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces invariants beyond parsing.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if strings.TrimSpace(cfg.DeviceID) == "" {
		return fmt.Errorf("device_id is required")
	}
	if len(cfg.Zones) == 0 {
		return fmt.Errorf("at least one zone is required")
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if cfg.RetryDelay <= 0 {
		return fmt.Errorf("retry_delay must be positive")
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return err
	}

	switch cfg.Sensors.Source {
	case SensorSimulated:
	case SensorAirGradient:
		if cfg.Sensors.AirGradientURL == "" {
			return fmt.Errorf("airgradient_url is required for sensor source %q", SensorAirGradient)
		}
	default:
		return fmt.Errorf("unknown sensor source %q", cfg.Sensors.Source)
	}
	if rate := cfg.Sensors.ReferenceFailureRate; rate < 0 || rate > 1 {
		return fmt.Errorf("reference failure rate must be within [0,1], got %g", rate)
	}
	for key := range cfg.Sensors.ZoneBases {
		if !hasZone(cfg.Zones, key) {
			return fmt.Errorf("simulator base for unknown zone %q", key)
		}
	}

	if cfg.Telemetry.Endpoint == "" && !cfg.MQTT.Enabled() && !cfg.Kafka.Enabled() {
		return fmt.Errorf("telemetry endpoint is required when no mqtt or kafka sink is configured")
	}
	if cfg.Telemetry.TokenURL != "" && (cfg.Telemetry.ClientID == "" || cfg.Telemetry.ClientSecretFile == "") {
		return fmt.Errorf("telemetry client_id and client_secret_file are required with token_url")
	}
	if cfg.Kafka.Enabled() && cfg.Kafka.Topic == "" {
		return fmt.Errorf("kafka topic is required")
	}
	if cfg.Webhook.URL != "" && cfg.Webhook.Cooldown < 0 {
		return fmt.Errorf("webhook cooldown must not be negative")
	}
	return nil
}

// MonitorConfig extracts the scheduler configuration.
func (c *Config) MonitorConfig() monitor.Config {
	return monitor.Config{
		DeviceID:   c.DeviceID,
		Zones:      c.Zones,
		Thresholds: c.Thresholds,
		Interval:   c.Interval,
		RetryDelay: c.RetryDelay,
	}
}

// ParseZones parses "key=Name,key=Name". Order is preserved; a bare key is its own name.
func ParseZones(raw string) ([]monitor.Zone, error) {
	var zones []monitor.Zone
	seen := make(map[string]bool)
	for _, item := range splitList(raw) {
		key, name, found := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		name = strings.TrimSpace(name)
		if !found || name == "" {
			name = key
		}
		if key == "" {
			return nil, fmt.Errorf("zone %q has an empty key", item)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate zone key %q", key)
		}
		seen[key] = true
		zones = append(zones, monitor.Zone{Key: key, Name: name})
	}
	if len(zones) == 0 {
		return nil, fmt.Errorf("at least one zone is required")
	}
	return zones, nil
}

func parseBases(raw string) (map[string]float64, error) {
	bases := make(map[string]float64)
	for _, item := range splitList(raw) {
		key, value, found := strings.Cut(item, "=")
		if !found {
			return nil, fmt.Errorf("simulator base %q must be key=pascals", item)
		}
		pa, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("simulator base %q: %w", item, err)
		}
		bases[strings.TrimSpace(key)] = pa
	}
	return bases, nil
}

func hasZone(zones []monitor.Zone, key string) bool {
	for _, z := range zones {
		if z.Key == key {
			return true
		}
	}
	return false
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func expandDevice(topic, deviceID string) string {
	return strings.ReplaceAll(topic, "{device_id}", deviceID)
}

// envReader collects the first parse error so FromEnv stays linear.
type envReader struct {
	getenv   func(string) string
	firstErr error
}

func (e *envReader) str(key, fallback string) string {
	if value := strings.TrimSpace(e.getenv(key)); value != "" {
		return value
	}
	return fallback
}

func (e *envReader) float(key string, fallback float64) float64 {
	raw := strings.TrimSpace(e.getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.fail(fmt.Errorf("parse %s: %w", key, err))
		return fallback
	}
	return value
}

func (e *envReader) int64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(e.getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		e.fail(fmt.Errorf("parse %s: %w", key, err))
		return fallback
	}
	return value
}

// duration accepts Go durations ("10s") or plain seconds ("10").
func (e *envReader) duration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(e.getenv(key))
	if raw == "" {
		return fallback
	}
	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(seconds * float64(time.Second))
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		e.fail(fmt.Errorf("parse %s: %w", key, err))
		return fallback
	}
	return value
}

func (e *envReader) fail(err error) {
	if e.firstErr == nil {
		e.firstErr = err
	}
}

func (e *envReader) err() error {
	return e.firstErr
}
