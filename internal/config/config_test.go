package config

import (
	"strings"
	"testing"
	"time"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	if cfg.DeviceID != DefaultDeviceID {
		t.Fatalf("unexpected device id: %s", cfg.DeviceID)
	}
	if cfg.Interval != 10*time.Second || cfg.RetryDelay != 2*time.Second {
		t.Fatalf("unexpected timings: %s %s", cfg.Interval, cfg.RetryDelay)
	}
	if len(cfg.Zones) != 3 || cfg.Zones[0].Key != "room1" || cfg.Zones[2].Name != "Zone 3" {
		t.Fatalf("unexpected zones: %+v", cfg.Zones)
	}
	th := cfg.Thresholds
	if th.PressureWarning != -10 || th.PressureCritical != 0 || th.PressureGood != -30 {
		t.Fatalf("unexpected pressure thresholds: %+v", th)
	}
	if th.PM25.Warning != 35 || th.PM25.Critical != 55 || th.PM10.Warning != 50 || th.PM10.Critical != 150 {
		t.Fatalf("unexpected particulate thresholds: %+v", th)
	}
	if cfg.Telemetry.Endpoint != DefaultTelemetryEndpoint {
		t.Fatalf("unexpected endpoint: %s", cfg.Telemetry.Endpoint)
	}
	if cfg.MQTT.Enabled() || cfg.Kafka.Enabled() {
		t.Fatalf("expected mqtt and kafka disabled by default")
	}
	if cfg.MQTT.Topic != "containment/site_pico_01/telemetry" {
		t.Fatalf("unexpected mqtt topic: %s", cfg.MQTT.Topic)
	}
	if cfg.Webhook.Cooldown != 5*time.Minute {
		t.Fatalf("unexpected webhook cooldown: %s", cfg.Webhook.Cooldown)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"CONTAINMENT_DEVICE_ID":       "north_wing",
		"CONTAINMENT_INTERVAL":        "5",
		"CONTAINMENT_RETRY_DELAY":     "500ms",
		"CONTAINMENT_ZONES":           "a=Stairwell, b",
		"CONTAINMENT_PM25_WARNING":    "30",
		"CONTAINMENT_SIM_ZONE_BASES":  "a=101300,b=101200",
		"CONTAINMENT_KAFKA_BROKERS":   "k1:9092, k2:9092",
		"CONTAINMENT_MQTT_BROKER":     "tcp://broker:1883",
		"CONTAINMENT_MQTT_TOPIC":      "site/{device_id}",
		"CONTAINMENT_SENSOR_SOURCE":   SensorAirGradient,
		"CONTAINMENT_AIRGRADIENT_URL": "http://192.168.1.50",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	if cfg.Interval != 5*time.Second || cfg.RetryDelay != 500*time.Millisecond {
		t.Fatalf("unexpected timings: %s %s", cfg.Interval, cfg.RetryDelay)
	}
	if len(cfg.Zones) != 2 || cfg.Zones[0].Name != "Stairwell" || cfg.Zones[1].Name != "b" {
		t.Fatalf("unexpected zones: %+v", cfg.Zones)
	}
	if cfg.Thresholds.PM25.Warning != 30 {
		t.Fatalf("expected pm25 override, got %v", cfg.Thresholds.PM25.Warning)
	}
	if cfg.Sensors.ZoneBases["b"] != 101200 {
		t.Fatalf("unexpected zone bases: %v", cfg.Sensors.ZoneBases)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("unexpected kafka brokers: %v", cfg.Kafka.Brokers)
	}
	if cfg.MQTT.Topic != "site/north_wing" {
		t.Fatalf("unexpected mqtt topic: %s", cfg.MQTT.Topic)
	}

	mc := cfg.MonitorConfig()
	if mc.DeviceID != "north_wing" || len(mc.Zones) != 2 {
		t.Fatalf("unexpected monitor config: %+v", mc)
	}
}

func TestFromEnvErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"bad float":        {"CONTAINMENT_PM10_CRITICAL": "lots"},
		"bad duration":     {"CONTAINMENT_INTERVAL": "soon"},
		"inverted":         {"CONTAINMENT_PRESSURE_WARNING": "5"},
		"duplicate zones":  {"CONTAINMENT_ZONES": "a=A,a=B"},
		"unknown source":   {"CONTAINMENT_SENSOR_SOURCE": "serial"},
		"airgradient url":  {"CONTAINMENT_SENSOR_SOURCE": SensorAirGradient},
		"unknown base":     {"CONTAINMENT_SIM_ZONE_BASES": "room9=101000"},
		"failure rate":     {"CONTAINMENT_SIM_REFERENCE_FAILURE_RATE": "1.5"},
		"zero interval":    {"CONTAINMENT_INTERVAL": "0"},
		"oauth incomplete": {"CONTAINMENT_TELEMETRY_TOKEN_URL": "https://auth/token"},
		"fractional seed":  {"CONTAINMENT_SIM_SEED": "1.5"},
	}
	for name, env := range cases {
		if _, err := FromEnv(envMap(env)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestFromEnvSeedKeepsFullPrecision(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{"CONTAINMENT_SIM_SEED": "9007199254740993"}))
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.Sensors.Seed != 9007199254740993 {
		t.Fatalf("expected exact seed, got %d", cfg.Sensors.Seed)
	}
}

func TestParseZones(t *testing.T) {
	zones, err := ParseZones(" room1 = Zone 1 ,room2=Zone 2")
	if err != nil {
		t.Fatalf("ParseZones: %v", err)
	}
	if zones[0].Key != "room1" || zones[0].Name != "Zone 1" || zones[1].Key != "room2" {
		t.Fatalf("unexpected zones: %+v", zones)
	}

	if _, err := ParseZones(""); err == nil {
		t.Fatalf("expected error for empty zone list")
	}
	if _, err := ParseZones("=Nameless"); err == nil || !strings.Contains(err.Error(), "empty key") {
		t.Fatalf("expected empty key error, got %v", err)
	}
}

func TestValidateRequiresConfig(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
