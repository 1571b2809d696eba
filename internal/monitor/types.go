package monitor

import (
	"errors"
	"fmt"
)

// Severity is the ordered alert tier. The zero value is Normal.
type Severity int

const (
	Normal Severity = iota
	Warning
	Critical
)

func (s Severity) String() string {
	switch s {
	case Normal:
		return "normal"
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity is the inverse of Severity.String.
func ParseSeverity(value string) (Severity, error) {
	switch value {
	case "normal":
		return Normal, nil
	case "warning":
		return Warning, nil
	case "critical":
		return Critical, nil
	default:
		return Normal, fmt.Errorf("unknown severity %q", value)
	}
}

// Zone is a monitored enclosure. Key is the telemetry key, Name is shown to people.
type Zone struct {
	Key  string
	Name string
}

type ReferenceReading struct {
	Temperature float64
	Humidity    float64
	Pressure    float64
}

type ZoneReading struct {
	Zone     Zone
	Pressure float64
}

type AirQualityReading struct {
	PM25 float64
	PM10 float64
}

type PressureDifferential struct {
	Zone Zone
	Diff float64
}

// Classification is the verdict for one source. Message is empty for Normal.
type Classification struct {
	Tier    Severity
	Message string
}

type AlertEvent struct {
	Level    Severity
	Messages []string
}

// MeasurementCycle aggregates everything observed during one iteration.
type MeasurementCycle struct {
	Index         int
	Reference     ReferenceReading
	Zones         []ZoneReading
	Differentials []PressureDifferential
	AirQuality    AirQualityReading
	ZoneVerdicts  []Classification
	AirVerdict    Classification
	Event         AlertEvent
}

// ErrNoReading is returned by a sensor that produced no data this time.
var ErrNoReading = errors.New("sensor returned no reading")

// AcquisitionError reports which sensor failed during sampling.
type AcquisitionError struct {
	Source string
	Err    error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Source, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// Source names used in AcquisitionError.
const (
	SourceReference  = "reference"
	SourceAirQuality = "air_quality"
)

// ZoneSource names the acquisition source for a zone.
func ZoneSource(zone Zone) string {
	return "zone " + zone.Key
}
