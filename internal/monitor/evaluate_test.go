package monitor

import (
	"encoding/json"
	"testing"
	"time"
)

var siteZones = []Zone{
	{Key: "room1", Name: "Zone 1"},
	{Key: "room2", Name: "Zone 2"},
	{Key: "room3", Name: "Zone 3"},
}

func TestDifferentialsPreserveOrder(t *testing.T) {
	zones := []ZoneReading{
		{Zone: siteZones[2], Pressure: 101250},
		{Zone: siteZones[0], Pressure: 101295},
		{Zone: siteZones[1], Pressure: 101330},
	}

	diffs := Differentials(101325, zones)
	if len(diffs) != 3 {
		t.Fatalf("expected 3 differentials, got %d", len(diffs))
	}
	want := []struct {
		key  string
		diff float64
	}{{"room3", -75}, {"room1", -30}, {"room2", 5}}
	for i, w := range want {
		if diffs[i].Zone.Key != w.key || diffs[i].Diff != w.diff {
			t.Fatalf("differential %d: expected %s=%.1f, got %s=%.1f", i, w.key, w.diff, diffs[i].Zone.Key, diffs[i].Diff)
		}
	}
}

func TestMergeIsMaximum(t *testing.T) {
	if got := Merge(); got != Normal {
		t.Fatalf("empty merge: expected normal, got %s", got)
	}
	if got := Merge(Normal, Warning, Critical); got != Critical {
		t.Fatalf("expected critical, got %s", got)
	}

	tiers := []Severity{Normal, Warning, Normal, Critical}
	perms := [][]Severity{
		{tiers[0], tiers[1], tiers[2], tiers[3]},
		{tiers[3], tiers[2], tiers[1], tiers[0]},
		{tiers[1], tiers[3], tiers[0], tiers[2]},
	}
	for _, p := range perms {
		if got := Merge(p...); got != Critical {
			t.Fatalf("order %v: expected critical, got %s", p, got)
		}
	}

	// (a merge b) merge c == a merge (b merge c)
	a, b, c := Warning, Normal, Critical
	if Merge(Merge(a, b), c) != Merge(a, Merge(b, c)) {
		t.Fatalf("merge is not associative")
	}
}

func TestAssembleOrdersMessages(t *testing.T) {
	zones := []Classification{
		{Tier: Normal},
		{Tier: Warning, Message: "zone b"},
		{Tier: Critical, Message: "zone c"},
	}
	air := Classification{Tier: Warning, Message: "dust"}

	event := Assemble(zones, air)
	if event.Level != Critical {
		t.Fatalf("expected critical, got %s", event.Level)
	}
	want := []string{"zone b", "zone c", "dust"}
	if len(event.Messages) != len(want) {
		t.Fatalf("expected %v, got %v", want, event.Messages)
	}
	for i := range want {
		if event.Messages[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, event.Messages)
		}
	}
}

func TestAssembleNormalHasNoMessages(t *testing.T) {
	event := Assemble([]Classification{{Tier: Normal}, {Tier: Normal}}, Classification{Tier: Normal})
	if event.Level != Normal {
		t.Fatalf("expected normal, got %s", event.Level)
	}
	if event.Messages == nil || len(event.Messages) != 0 {
		t.Fatalf("expected empty non-nil messages, got %#v", event.Messages)
	}
}

func TestMergeWithParticulateCritical(t *testing.T) {
	event := Assemble(
		[]Classification{{Tier: Normal}, {Tier: Warning, Message: "weak"}},
		Classification{Tier: Critical, Message: "dust"},
	)
	if event.Level != Critical {
		t.Fatalf("expected critical, got %s", event.Level)
	}
}

func TestIndicatorForLightsExactlyOneLamp(t *testing.T) {
	cases := map[Severity]Lamps{
		Normal:   {Green: true},
		Warning:  {Yellow: true},
		Critical: {Red: true},
	}
	for sev, want := range cases {
		got := IndicatorFor(sev)
		if got != want {
			t.Fatalf("%s: expected %v, got %v", sev, want, got)
		}
		if got.Lit() != 1 {
			t.Fatalf("%s: expected exactly one lamp, got %d", sev, got.Lit())
		}
	}
	if AllOff.Lit() != 0 || AllOff.String() != "off" {
		t.Fatalf("expected all-off lamps, got %v", AllOff)
	}
}

func TestEvaluateNormalScenario(t *testing.T) {
	cycle := Evaluate(DefaultThresholds(), MeasurementCycle{
		Index:     1,
		Reference: ReferenceReading{Temperature: 21, Humidity: 45, Pressure: 101325},
		Zones: []ZoneReading{
			{Zone: siteZones[0], Pressure: 101295},
			{Zone: siteZones[1], Pressure: 101280},
			{Zone: siteZones[2], Pressure: 101250},
		},
		AirQuality: AirQualityReading{PM25: 20, PM10: 25},
	})

	wantDiffs := []float64{-30, -45, -75}
	for i, d := range cycle.Differentials {
		if d.Diff != wantDiffs[i] {
			t.Fatalf("diff %d: expected %.1f, got %.1f", i, wantDiffs[i], d.Diff)
		}
	}
	if cycle.Event.Level != Normal || len(cycle.Event.Messages) != 0 {
		t.Fatalf("expected normal with no alerts, got %+v", cycle.Event)
	}

	again := Evaluate(DefaultThresholds(), cycle)
	if again.Event.Level != cycle.Event.Level || len(again.Event.Messages) != len(cycle.Event.Messages) {
		t.Fatalf("re-evaluation changed the event: %+v vs %+v", again.Event, cycle.Event)
	}
}

func TestBuildTelemetry(t *testing.T) {
	cycle := Evaluate(DefaultThresholds(), MeasurementCycle{
		Index:     4,
		Reference: ReferenceReading{Temperature: 20.5, Humidity: 41.25, Pressure: 101325},
		Zones: []ZoneReading{
			{Zone: siteZones[0], Pressure: 101330},
			{Zone: siteZones[1], Pressure: 101280},
			{Zone: siteZones[2], Pressure: 101250},
		},
		AirQuality: AirQualityReading{PM25: 12.125, PM10: 30},
	})
	ts := time.Unix(1700000000, 500000000)

	record := BuildTelemetry("site_pico_01", ts, cycle)
	if record.DeviceID != "site_pico_01" {
		t.Fatalf("unexpected device id: %s", record.DeviceID)
	}
	if record.Timestamp != 1700000000.5 {
		t.Fatalf("unexpected timestamp: %f", record.Timestamp)
	}
	if record.AlertLevel != "critical" || len(record.Alerts) != 1 {
		t.Fatalf("expected one critical alert, got %s %v", record.AlertLevel, record.Alerts)
	}
	if room := record.Rooms["room1"]; room.Pressure != 101330 || room.Diff != 5 {
		t.Fatalf("unexpected room1 record: %+v", room)
	}
	if len(record.Rooms) != 3 {
		t.Fatalf("expected 3 rooms, got %d", len(record.Rooms))
	}
	if record.AirQuality.PM25 != 12.125 || record.Reference.Humidity != 41.25 {
		t.Fatalf("precision lost: %+v %+v", record.AirQuality, record.Reference)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"device_id", "timestamp", "reference", "rooms", "air_quality", "alert_level", "alerts"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("missing field %q in %s", key, payload)
		}
	}
}

func TestBuildTelemetryNormalHasEmptyAlerts(t *testing.T) {
	cycle := Evaluate(DefaultThresholds(), MeasurementCycle{
		Reference:  ReferenceReading{Pressure: 101325},
		Zones:      []ZoneReading{{Zone: siteZones[0], Pressure: 101200}},
		AirQuality: AirQualityReading{PM25: 5, PM10: 5},
	})

	payload, err := json.Marshal(BuildTelemetry("dev", time.Unix(0, 0), cycle))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		AlertLevel string          `json:"alert_level"`
		Alerts     json.RawMessage `json:"alerts"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.AlertLevel != "normal" || string(decoded.Alerts) != "[]" {
		t.Fatalf("expected normal with [] alerts, got %s %s", decoded.AlertLevel, decoded.Alerts)
	}
}

func TestParseSeverityRoundTrip(t *testing.T) {
	for _, s := range []Severity{Normal, Warning, Critical} {
		got, err := ParseSeverity(s.String())
		if err != nil || got != s {
			t.Fatalf("round trip %s: got %s, %v", s, got, err)
		}
	}
	if _, err := ParseSeverity("good"); err == nil {
		t.Fatalf("expected error for unknown severity")
	}
}
