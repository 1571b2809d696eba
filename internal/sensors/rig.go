package sensors

import (
	"context"

	"github.com/joshp123/containment/internal/monitor"
)

// ParticulateSource is anything that can report PM2.5/PM10.
type ParticulateSource interface {
	AirQuality(ctx context.Context) (monitor.AirQualityReading, error)
}

// Rig combines pressure sensors with a separate particulate source.
type Rig struct {
	Pressure    monitor.Sensors
	Particulate ParticulateSource
}

func (r Rig) Reference(ctx context.Context) (monitor.ReferenceReading, error) {
	return r.Pressure.Reference(ctx)
}

func (r Rig) ZonePressure(ctx context.Context, zone monitor.Zone) (float64, error) {
	return r.Pressure.ZonePressure(ctx, zone)
}

func (r Rig) AirQuality(ctx context.Context) (monitor.AirQualityReading, error) {
	if r.Particulate == nil {
		return r.Pressure.AirQuality(ctx)
	}
	return r.Particulate.AirQuality(ctx)
}
