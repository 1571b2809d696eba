package server

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joshp123/containment/internal/monitor"
)

// ServiceName is the gRPC health service name reported alongside the
// overall ("") status.
const ServiceName = "containment.Monitor"

// DefaultFailureThreshold is how many consecutive failed or abandoned
// cycles flip the monitor to NOT_SERVING.
const DefaultFailureThreshold = 3

// HealthSnapshot is the state exposed on /health.
type HealthSnapshot struct {
	Serving             bool      `json:"serving"`
	Status              string    `json:"status"`
	Completed           int       `json:"completed"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastCycle           int       `json:"last_cycle"`
	LastCompleted       time.Time `json:"last_completed,omitempty"`
	AlertLevel          string    `json:"alert_level,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
}

// HealthReporter observes cycles and publishes monitor health to the gRPC
// health service and the HTTP /health endpoint.
type HealthReporter struct {
	threshold int
	grpc      *health.Server
	now       func() time.Time

	mu     sync.Mutex
	snap   HealthSnapshot
	latest *CycleStatus
}

// ZoneStatus is one zone of the last completed cycle.
type ZoneStatus struct {
	Key      string  `json:"key"`
	Name     string  `json:"name"`
	Pressure float64 `json:"pressure"`
	Diff     float64 `json:"diff"`
	Level    string  `json:"level"`
}

// CycleStatus is the last completed cycle, served on /status.
type CycleStatus struct {
	Cycle      int                      `json:"cycle"`
	DeviceID   string                   `json:"device_id"`
	Timestamp  float64                  `json:"timestamp"`
	Reference  monitor.ReferenceRecord  `json:"reference"`
	Zones      []ZoneStatus             `json:"zones"`
	AirQuality monitor.AirQualityRecord `json:"air_quality"`
	AlertLevel string                   `json:"alert_level"`
	Alerts     []string                 `json:"alerts"`
}

func NewHealthReporter(threshold int) *HealthReporter {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	h := &HealthReporter{
		threshold: threshold,
		grpc:      health.NewServer(),
		now:       time.Now,
		snap:      HealthSnapshot{Serving: true, Status: "starting"},
	}
	h.publish(true)
	return h
}

// GRPC returns the health service to register on a gRPC server.
func (h *HealthReporter) GRPC() *health.Server {
	return h.grpc
}

func (h *HealthReporter) Snapshot() HealthSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snap
}

// Latest returns the last completed cycle, or false before the first one.
func (h *HealthReporter) Latest() (CycleStatus, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest == nil {
		return CycleStatus{}, false
	}
	return *h.latest, true
}

func (h *HealthReporter) CycleCompleted(_ context.Context, cycle monitor.MeasurementCycle, record monitor.Telemetry) {
	status := cycleStatus(cycle, record)

	h.mu.Lock()
	h.latest = &status
	h.snap.Completed++
	h.snap.ConsecutiveFailures = 0
	h.snap.LastCycle = cycle.Index
	h.snap.LastCompleted = h.now()
	h.snap.AlertLevel = cycle.Event.Level.String()
	h.snap.LastError = ""
	h.snap.Serving = true
	h.snap.Status = "ok"
	h.mu.Unlock()
	h.publish(true)
}

func (h *HealthReporter) CycleAbandoned(index int, err error) {
	h.failure(index, err)
}

func (h *HealthReporter) CycleFailed(index int, err error) {
	h.failure(index, err)
}

// SendFailed does not affect health; delivery is best effort.
func (h *HealthReporter) SendFailed(int, error) {}

// Shutdown marks every service NOT_SERVING.
func (h *HealthReporter) Shutdown() {
	h.mu.Lock()
	h.snap.Serving = false
	h.snap.Status = "stopped"
	h.mu.Unlock()
	h.grpc.Shutdown()
}

func (h *HealthReporter) failure(index int, err error) {
	h.mu.Lock()
	h.snap.ConsecutiveFailures++
	h.snap.LastCycle = index
	if err != nil {
		h.snap.LastError = err.Error()
	}
	serving := h.snap.ConsecutiveFailures < h.threshold
	h.snap.Serving = serving
	if serving {
		h.snap.Status = "degraded"
	} else {
		h.snap.Status = "failing"
	}
	h.mu.Unlock()
	h.publish(serving)
}

func (h *HealthReporter) publish(serving bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !serving {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.grpc.SetServingStatus("", status)
	h.grpc.SetServingStatus(ServiceName, status)
}

func cycleStatus(cycle monitor.MeasurementCycle, record monitor.Telemetry) CycleStatus {
	zones := make([]ZoneStatus, 0, len(cycle.Zones))
	for i, z := range cycle.Zones {
		zs := ZoneStatus{Key: z.Zone.Key, Name: z.Zone.Name, Pressure: z.Pressure, Level: monitor.Normal.String()}
		if i < len(cycle.Differentials) {
			zs.Diff = cycle.Differentials[i].Diff
		}
		if i < len(cycle.ZoneVerdicts) {
			zs.Level = cycle.ZoneVerdicts[i].Tier.String()
		}
		zones = append(zones, zs)
	}
	return CycleStatus{
		Cycle:      cycle.Index,
		DeviceID:   record.DeviceID,
		Timestamp:  record.Timestamp,
		Reference:  record.Reference,
		Zones:      zones,
		AirQuality: record.AirQuality,
		AlertLevel: cycle.Event.Level.String(),
		Alerts:     append([]string{}, cycle.Event.Messages...),
	}
}
