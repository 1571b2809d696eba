package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joshp123/containment/internal/monitor"
	"github.com/joshp123/containment/internal/transport"
)

// Recorder turns cycle outcomes into Prometheus metrics.
type Recorder struct {
	zonePressure     *prometheus.GaugeVec
	zoneDiff         *prometheus.GaugeVec
	zoneTier         *prometheus.GaugeVec
	refTemperature   prometheus.Gauge
	refHumidity      prometheus.Gauge
	refPressure      prometheus.Gauge
	pm25             prometheus.Gauge
	pm10             prometheus.Gauge
	alertLevel       prometheus.Gauge
	alerts           prometheus.Gauge
	lastCycle        prometheus.Gauge
	cycles           *prometheus.CounterVec
	sendFailures     *prometheus.CounterVec
	referenceFailure prometheus.Counter
}

func NewRecorder() *Recorder {
	zoneLabels := []string{"zone", "name"}
	return &Recorder{
		zonePressure: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "containment_zone_pressure_pascals",
			Help: "Zone absolute pressure (Pa)",
		}, zoneLabels),
		zoneDiff: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "containment_zone_pressure_diff_pascals",
			Help: "Zone pressure minus reference pressure (Pa); negative is vacuum",
		}, zoneLabels),
		zoneTier: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "containment_zone_severity",
			Help: "Zone severity tier (0=normal, 1=warning, 2=critical)",
		}, zoneLabels),
		refTemperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "containment_reference_temperature_celsius",
			Help: "Clean-side temperature (celsius)",
		}),
		refHumidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "containment_reference_humidity_percent",
			Help: "Clean-side relative humidity (%)",
		}),
		refPressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "containment_reference_pressure_pascals",
			Help: "Clean-side pressure (Pa)",
		}),
		pm25: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "containment_pm25_ugm3",
			Help: "PM2.5 concentration (ug/m3)",
		}),
		pm10: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "containment_pm10_ugm3",
			Help: "PM10 concentration (ug/m3)",
		}),
		alertLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "containment_alert_level",
			Help: "Merged cycle severity (0=normal, 1=warning, 2=critical)",
		}),
		alerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "containment_alerts",
			Help: "Number of alert messages in the last completed cycle",
		}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "containment_last_cycle_timestamp_seconds",
			Help: "Timestamp of the last completed cycle (epoch seconds)",
		}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "containment_cycles_total",
			Help: "Measurement cycles by outcome",
		}, []string{"outcome"}),
		sendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "containment_telemetry_send_failures_total",
			Help: "Telemetry send failures by sink",
		}, []string{"sink"}),
		referenceFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "containment_reference_failures_total",
			Help: "Cycles abandoned because the reference sensor returned no data",
		}),
	}
}

// Collectors lists every metric for registration.
func (r *Recorder) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		r.zonePressure,
		r.zoneDiff,
		r.zoneTier,
		r.refTemperature,
		r.refHumidity,
		r.refPressure,
		r.pm25,
		r.pm10,
		r.alertLevel,
		r.alerts,
		r.lastCycle,
		r.cycles,
		r.sendFailures,
		r.referenceFailure,
	}
}

func (r *Recorder) CycleCompleted(_ context.Context, cycle monitor.MeasurementCycle, record monitor.Telemetry) {
	r.cycles.WithLabelValues("completed").Inc()

	for i, z := range cycle.Zones {
		labels := prometheus.Labels{"zone": z.Zone.Key, "name": z.Zone.Name}
		r.zonePressure.With(labels).Set(z.Pressure)
		if i < len(cycle.Differentials) {
			r.zoneDiff.With(labels).Set(cycle.Differentials[i].Diff)
		}
		if i < len(cycle.ZoneVerdicts) {
			r.zoneTier.With(labels).Set(float64(cycle.ZoneVerdicts[i].Tier))
		}
	}

	r.refTemperature.Set(cycle.Reference.Temperature)
	r.refHumidity.Set(cycle.Reference.Humidity)
	r.refPressure.Set(cycle.Reference.Pressure)
	r.pm25.Set(cycle.AirQuality.PM25)
	r.pm10.Set(cycle.AirQuality.PM10)
	r.alertLevel.Set(float64(cycle.Event.Level))
	r.alerts.Set(float64(len(cycle.Event.Messages)))
	r.lastCycle.Set(record.Timestamp)
}

func (r *Recorder) CycleAbandoned(int, error) {
	r.cycles.WithLabelValues("abandoned").Inc()
	r.referenceFailure.Inc()
}

func (r *Recorder) CycleFailed(int, error) {
	r.cycles.WithLabelValues("failed").Inc()
}

func (r *Recorder) SendFailed(_ int, err error) {
	sinks := transport.FailedSinks(err)
	if len(sinks) == 0 {
		sinks = []string{"unknown"}
	}
	for _, sink := range sinks {
		r.sendFailures.WithLabelValues(sink).Inc()
	}
}

// NewRegistry builds a registry holding the given collectors plus Go runtime metrics.
func NewRegistry(collectors ...prometheus.Collector) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	for _, c := range collectors {
		registry.MustRegister(c)
	}
	return registry
}
