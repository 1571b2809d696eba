package monitor

import "fmt"

// Breakpoints for a pollutant channel in µg/m³.
type Breakpoints struct {
	Warning  float64
	Critical float64
}

// Thresholds holds every severity breakpoint. Pressure values are in Pa
// relative to the reference; more negative means stronger vacuum.
type Thresholds struct {
	PressureWarning  float64
	PressureCritical float64
	// PressureGood only labels strong vacuum for display; it never gates a tier.
	PressureGood float64
	PM25         Breakpoints
	PM10         Breakpoints
}

// DefaultThresholds are the site defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PressureWarning:  -10,
		PressureCritical: 0,
		PressureGood:     -30,
		PM25:             Breakpoints{Warning: 35, Critical: 55},
		PM10:             Breakpoints{Warning: 50, Critical: 150},
	}
}

// Validate checks that breakpoints are ordered.
func (t Thresholds) Validate() error {
	if t.PressureWarning >= t.PressureCritical {
		return fmt.Errorf("pressure warning breakpoint %.1f must be below critical %.1f", t.PressureWarning, t.PressureCritical)
	}
	if t.PressureGood > t.PressureWarning {
		return fmt.Errorf("pressure good breakpoint %.1f must not exceed warning %.1f", t.PressureGood, t.PressureWarning)
	}
	if t.PM25.Warning >= t.PM25.Critical {
		return fmt.Errorf("pm2.5 warning breakpoint %.1f must be below critical %.1f", t.PM25.Warning, t.PM25.Critical)
	}
	if t.PM10.Warning >= t.PM10.Critical {
		return fmt.Errorf("pm10 warning breakpoint %.1f must be below critical %.1f", t.PM10.Warning, t.PM10.Critical)
	}
	return nil
}

// ClassifyDifferential grades one zone differential.
func (t Thresholds) ClassifyDifferential(d PressureDifferential) Classification {
	switch {
	case d.Diff >= t.PressureCritical:
		return Classification{
			Tier:    Critical,
			Message: fmt.Sprintf("%s: critical - no containment vacuum %+.1f Pa", d.Zone.Name, d.Diff),
		}
	case d.Diff >= t.PressureWarning:
		return Classification{
			Tier:    Warning,
			Message: fmt.Sprintf("%s: warning - weak vacuum %+.1f Pa", d.Zone.Name, d.Diff),
		}
	default:
		return Classification{Tier: Normal}
	}
}

// ClassifyAirQuality grades both particulate channels and keeps the worse one.
func (t Thresholds) ClassifyAirQuality(aq AirQualityReading) Classification {
	tier := Merge(channelTier(aq.PM25, t.PM25), channelTier(aq.PM10, t.PM10))
	switch tier {
	case Critical:
		return Classification{
			Tier:    Critical,
			Message: fmt.Sprintf("critical particulate level: PM2.5=%.1f, PM10=%.1f", aq.PM25, aq.PM10),
		}
	case Warning:
		return Classification{
			Tier:    Warning,
			Message: fmt.Sprintf("elevated particulate level: PM2.5=%.1f, PM10=%.1f", aq.PM25, aq.PM10),
		}
	default:
		return Classification{Tier: Normal}
	}
}

// ClassifyDifferentials grades every differential, preserving order.
func (t Thresholds) ClassifyDifferentials(diffs []PressureDifferential) []Classification {
	out := make([]Classification, 0, len(diffs))
	for _, d := range diffs {
		out = append(out, t.ClassifyDifferential(d))
	}
	return out
}

// IsStrongVacuum reports whether diff reaches the good-vacuum breakpoint.
func (t Thresholds) IsStrongVacuum(diff float64) bool {
	return diff <= t.PressureGood
}

func channelTier(value float64, bp Breakpoints) Severity {
	switch {
	case value >= bp.Critical:
		return Critical
	case value >= bp.Warning:
		return Warning
	default:
		return Normal
	}
}
