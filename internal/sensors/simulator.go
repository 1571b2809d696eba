package sensors

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/joshp123/containment/internal/monitor"
)

const (
	offsetSpread   = 50.0
	jitterSpread   = 5.0
	adcFullScale   = 65535.0
	defaultZoneGap = 15.0
)

// PressureSensor simulates a BMP280: a base pressure with a fixed per-unit
// offset and a small jitter on every read.
type PressureSensor struct {
	Name   string
	Base   float64
	Offset float64
}

// Simulator stands in for the whole sensor rig.
type Simulator struct {
	mu sync.Mutex
	// rng is guarded by mu.
	rng *rand.Rand

	reference   PressureSensor
	zones       map[string]PressureSensor
	failureRate float64
}

type SimulatorConfig struct {
	ReferencePressure float64
	Zones             []monitor.Zone
	// ZoneBases overrides the base pressure per zone key.
	ZoneBases   map[string]float64
	FailureRate float64
	Seed        int64
	// NoOffset disables the random per-unit offset.
	NoOffset bool
}

func NewSimulator(cfg SimulatorConfig) *Simulator {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))

	offset := func() float64 {
		if cfg.NoOffset {
			return 0
		}
		return uniform(rng, -offsetSpread, offsetSpread)
	}

	sim := &Simulator{
		rng:         rng,
		reference:   PressureSensor{Name: "reference", Base: cfg.ReferencePressure, Offset: offset()},
		zones:       make(map[string]PressureSensor, len(cfg.Zones)),
		failureRate: cfg.FailureRate,
	}
	for i, zone := range cfg.Zones {
		base, ok := cfg.ZoneBases[zone.Key]
		if !ok {
			base = cfg.ReferencePressure - defaultZoneGap*float64(i+2)
		}
		sim.zones[zone.Key] = PressureSensor{Name: zone.Name, Base: base, Offset: offset()}
	}
	return sim
}

// Reference reads the DHT22 and reference BMP280. A failed DHT22 read yields
// monitor.ErrNoReading.
func (s *Simulator) Reference(ctx context.Context) (monitor.ReferenceReading, error) {
	if err := ctx.Err(); err != nil {
		return monitor.ReferenceReading{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failureRate > 0 && s.rng.Float64() < s.failureRate {
		return monitor.ReferenceReading{}, monitor.ErrNoReading
	}
	return monitor.ReferenceReading{
		Temperature: 20 + uniform(s.rng, -2, 2),
		Humidity:    45 + uniform(s.rng, -10, 10),
		Pressure:    s.read(s.reference),
	}, nil
}

func (s *Simulator) ZonePressure(ctx context.Context, zone monitor.Zone) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sensor, ok := s.zones[zone.Key]
	if !ok {
		return 0, fmt.Errorf("no pressure sensor for zone %q", zone.Key)
	}
	return s.read(sensor), nil
}

// AirQuality scales a simulated analog reading into PM2.5 and PM10.
func (s *Simulator) AirQuality(ctx context.Context) (monitor.AirQualityReading, error) {
	if err := ctx.Err(); err != nil {
		return monitor.AirQualityReading{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := float64(s.rng.Intn(int(adcFullScale) + 1))
	return ParticulateFromADC(raw, uniform(s.rng, 0, 30), uniform(s.rng, 0, 20)), nil
}

// ParticulateFromADC converts a 16-bit ADC value plus noise terms to µg/m³.
func ParticulateFromADC(raw, noise25, noise10 float64) monitor.AirQualityReading {
	pm25 := raw/adcFullScale*100 + noise25
	return monitor.AirQualityReading{PM25: pm25, PM10: pm25*1.5 + noise10}
}

func (s *Simulator) read(sensor PressureSensor) float64 {
	return sensor.Base + sensor.Offset + uniform(s.rng, -jitterSpread, jitterSpread)
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
