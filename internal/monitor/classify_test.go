package monitor

import (
	"reflect"
	"strings"
	"testing"
)

func TestClassifyDifferentialBoundaries(t *testing.T) {
	th := DefaultThresholds()
	zone := Zone{Key: "room1", Name: "Zone 1"}

	cases := []struct {
		diff float64
		want Severity
	}{
		{diff: 25, want: Critical},
		{diff: 0.0, want: Critical},
		{diff: -0.1, want: Warning},
		{diff: -9.9, want: Warning},
		{diff: -10.0, want: Warning},
		{diff: -10.1, want: Normal},
		{diff: -30, want: Normal},
		{diff: -250, want: Normal},
	}
	for _, tc := range cases {
		got := th.ClassifyDifferential(PressureDifferential{Zone: zone, Diff: tc.diff})
		if got.Tier != tc.want {
			t.Fatalf("diff %.1f: expected %s, got %s", tc.diff, tc.want, got.Tier)
		}
		if tc.want == Normal && got.Message != "" {
			t.Fatalf("diff %.1f: expected no message for normal, got %q", tc.diff, got.Message)
		}
		if tc.want != Normal && !strings.HasPrefix(got.Message, "Zone 1: ") {
			t.Fatalf("diff %.1f: expected zone name prefix, got %q", tc.diff, got.Message)
		}
	}
}

func TestClassifyDifferentialMessage(t *testing.T) {
	th := DefaultThresholds()

	got := th.ClassifyDifferential(PressureDifferential{Zone: Zone{Key: "room2", Name: "Zone 2"}, Diff: 5})
	if got.Message != "Zone 2: critical - no containment vacuum +5.0 Pa" {
		t.Fatalf("unexpected critical message: %q", got.Message)
	}

	got = th.ClassifyDifferential(PressureDifferential{Zone: Zone{Key: "room2", Name: "Zone 2"}, Diff: -4})
	if got.Message != "Zone 2: warning - weak vacuum -4.0 Pa" {
		t.Fatalf("unexpected warning message: %q", got.Message)
	}
}

func TestClassifyAirQuality(t *testing.T) {
	th := DefaultThresholds()

	cases := []struct {
		name string
		aq   AirQualityReading
		want Severity
	}{
		{name: "pm25 critical", aq: AirQualityReading{PM25: 60, PM10: 10}, want: Critical},
		{name: "pm10 critical", aq: AirQualityReading{PM25: 10, PM10: 160}, want: Critical},
		{name: "pm25 warning", aq: AirQualityReading{PM25: 40, PM10: 45}, want: Warning},
		{name: "pm10 warning", aq: AirQualityReading{PM25: 10, PM10: 50}, want: Warning},
		{name: "mixed keeps worse", aq: AirQualityReading{PM25: 40, PM10: 150}, want: Critical},
		{name: "clean", aq: AirQualityReading{PM25: 10, PM10: 10}, want: Normal},
		{name: "just below", aq: AirQualityReading{PM25: 34.9, PM10: 49.9}, want: Normal},
	}
	for _, tc := range cases {
		got := th.ClassifyAirQuality(tc.aq)
		if got.Tier != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got.Tier)
		}
		if (got.Message == "") != (tc.want == Normal) {
			t.Fatalf("%s: message presence mismatch: %q", tc.name, got.Message)
		}
	}

	got := th.ClassifyAirQuality(AirQualityReading{PM25: 60, PM10: 20})
	if got.Message != "critical particulate level: PM2.5=60.0, PM10=20.0" {
		t.Fatalf("unexpected particulate message: %q", got.Message)
	}
}

func TestClassificationIsDeterministic(t *testing.T) {
	th := DefaultThresholds()
	diffs := []PressureDifferential{
		{Zone: Zone{Key: "room1", Name: "Zone 1"}, Diff: 3},
		{Zone: Zone{Key: "room2", Name: "Zone 2"}, Diff: -5},
		{Zone: Zone{Key: "room3", Name: "Zone 3"}, Diff: -40},
	}
	aq := AirQualityReading{PM25: 38, PM10: 20}

	first := Assemble(th.ClassifyDifferentials(diffs), th.ClassifyAirQuality(aq))
	second := Assemble(th.ClassifyDifferentials(diffs), th.ClassifyAirQuality(aq))
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical events, got %+v and %+v", first, second)
	}
	if len(first.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %v", first.Messages)
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	th := DefaultThresholds()
	th.PressureWarning = 5
	if err := th.Validate(); err == nil {
		t.Fatalf("expected error for warning above critical")
	}

	th = DefaultThresholds()
	th.PM10 = Breakpoints{Warning: 150, Critical: 50}
	if err := th.Validate(); err == nil {
		t.Fatalf("expected error for inverted pm10 breakpoints")
	}

	th = DefaultThresholds()
	th.PressureGood = -5
	if err := th.Validate(); err == nil {
		t.Fatalf("expected error for good breakpoint above warning")
	}
}

func TestIsStrongVacuumDoesNotAffectTier(t *testing.T) {
	th := DefaultThresholds()
	zone := Zone{Key: "room1", Name: "Zone 1"}

	strong := th.ClassifyDifferential(PressureDifferential{Zone: zone, Diff: -75})
	borderline := th.ClassifyDifferential(PressureDifferential{Zone: zone, Diff: -11})
	if strong.Tier != borderline.Tier {
		t.Fatalf("expected equal tiers, got %s and %s", strong.Tier, borderline.Tier)
	}
	if !th.IsStrongVacuum(-75) || th.IsStrongVacuum(-11) {
		t.Fatalf("unexpected strong vacuum labels")
	}
}
