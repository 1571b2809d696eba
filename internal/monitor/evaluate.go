package monitor

import "time"

// Differentials subtracts the reference pressure from every zone, keeping zone order.
func Differentials(reference float64, zones []ZoneReading) []PressureDifferential {
	out := make([]PressureDifferential, 0, len(zones))
	for _, z := range zones {
		out = append(out, PressureDifferential{Zone: z.Zone, Diff: z.Pressure - reference})
	}
	return out
}

// Merge returns the most severe tier. Merge() is Normal.
func Merge(tiers ...Severity) Severity {
	merged := Normal
	for _, tier := range tiers {
		if tier > merged {
			merged = tier
		}
	}
	return merged
}

// Assemble merges zone and particulate verdicts into the cycle event.
// Messages keep zone order followed by the particulate message.
func Assemble(zones []Classification, air Classification) AlertEvent {
	tiers := make([]Severity, 0, len(zones)+1)
	messages := []string{}
	for _, c := range zones {
		tiers = append(tiers, c.Tier)
		if c.Tier > Normal && c.Message != "" {
			messages = append(messages, c.Message)
		}
	}
	tiers = append(tiers, air.Tier)
	if air.Tier > Normal && air.Message != "" {
		messages = append(messages, air.Message)
	}
	return AlertEvent{Level: Merge(tiers...), Messages: messages}
}

// Evaluate runs differential, classification, and merge over sampled values.
func Evaluate(t Thresholds, cycle MeasurementCycle) MeasurementCycle {
	cycle.Differentials = Differentials(cycle.Reference.Pressure, cycle.Zones)
	cycle.ZoneVerdicts = t.ClassifyDifferentials(cycle.Differentials)
	cycle.AirVerdict = t.ClassifyAirQuality(cycle.AirQuality)
	cycle.Event = Assemble(cycle.ZoneVerdicts, cycle.AirVerdict)
	return cycle
}

// Lamps is the physical indicator state. At most one lamp is lit.
type Lamps struct {
	Green  bool
	Yellow bool
	Red    bool
}

// AllOff is the shutdown indicator state.
var AllOff = Lamps{}

// Lit counts the active lamps.
func (l Lamps) Lit() int {
	n := 0
	for _, on := range []bool{l.Green, l.Yellow, l.Red} {
		if on {
			n++
		}
	}
	return n
}

func (l Lamps) String() string {
	switch {
	case l.Red:
		return "red"
	case l.Yellow:
		return "yellow"
	case l.Green:
		return "green"
	default:
		return "off"
	}
}

// IndicatorFor maps a severity to exactly one lit lamp.
func IndicatorFor(s Severity) Lamps {
	switch s {
	case Critical:
		return Lamps{Red: true}
	case Warning:
		return Lamps{Yellow: true}
	default:
		return Lamps{Green: true}
	}
}

// Telemetry is the record sent once per completed cycle.
type Telemetry struct {
	DeviceID   string                `json:"device_id"`
	Timestamp  float64               `json:"timestamp"`
	Reference  ReferenceRecord       `json:"reference"`
	Rooms      map[string]RoomRecord `json:"rooms"`
	AirQuality AirQualityRecord      `json:"air_quality"`
	AlertLevel string                `json:"alert_level"`
	Alerts     []string              `json:"alerts"`
}

type ReferenceRecord struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
}

type RoomRecord struct {
	Pressure float64 `json:"pressure"`
	Diff     float64 `json:"diff"`
}

type AirQualityRecord struct {
	PM25 float64 `json:"pm25"`
	PM10 float64 `json:"pm10"`
}

// BuildTelemetry flattens an evaluated cycle into its wire record.
func BuildTelemetry(deviceID string, ts time.Time, cycle MeasurementCycle) Telemetry {
	rooms := make(map[string]RoomRecord, len(cycle.Zones))
	for i, z := range cycle.Zones {
		var diff float64
		if i < len(cycle.Differentials) {
			diff = cycle.Differentials[i].Diff
		} else {
			diff = z.Pressure - cycle.Reference.Pressure
		}
		rooms[z.Zone.Key] = RoomRecord{Pressure: z.Pressure, Diff: diff}
	}

	alerts := make([]string, len(cycle.Event.Messages))
	copy(alerts, cycle.Event.Messages)

	return Telemetry{
		DeviceID:  deviceID,
		Timestamp: float64(ts.Unix()) + float64(ts.Nanosecond())/1e9,
		Reference: ReferenceRecord{
			Temperature: cycle.Reference.Temperature,
			Humidity:    cycle.Reference.Humidity,
			Pressure:    cycle.Reference.Pressure,
		},
		Rooms:      rooms,
		AirQuality: AirQualityRecord{PM25: cycle.AirQuality.PM25, PM10: cycle.AirQuality.PM10},
		AlertLevel: cycle.Event.Level.String(),
		Alerts:     alerts,
	}
}
