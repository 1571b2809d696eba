package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultInterval   = 10 * time.Second
	DefaultRetryDelay = 2 * time.Second

	shutdownTimeout = 5 * time.Second
)

// Sensors acquires the raw values for one cycle. Every call may fail.
type Sensors interface {
	Reference(ctx context.Context) (ReferenceReading, error)
	ZonePressure(ctx context.Context, zone Zone) (float64, error)
	AirQuality(ctx context.Context) (AirQualityReading, error)
}

// Indicator drives the status lamps.
type Indicator interface {
	Set(ctx context.Context, lamps Lamps) error
}

// Sender delivers a telemetry record.
type Sender interface {
	Send(ctx context.Context, record Telemetry) error
}

// State is the scheduler lifecycle position.
type State int

const (
	Idle State = iota
	Sampling
	Classifying
	Reporting
	Waiting
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sampling:
		return "sampling"
	case Classifying:
		return "classifying"
	case Reporting:
		return "reporting"
	case Waiting:
		return "waiting"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config is fixed for the life of a Scheduler.
type Config struct {
	DeviceID   string
	Zones      []Zone
	Thresholds Thresholds
	Interval   time.Duration
	RetryDelay time.Duration
}

// Stats counts cycle outcomes since Run started.
type Stats struct {
	Started      int
	Completed    int
	Abandoned    int
	Faults       int
	SendFailures int
}

// Scheduler drives the sample, classify, report, wait loop. It is not safe for
// concurrent use; Run must be called from a single goroutine.
type Scheduler struct {
	cfg       Config
	sensors   Sensors
	indicator Indicator
	sender    Sender
	observer  Observer
	logger    *slog.Logger
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error

	state State
	stats Stats
}

type Option func(*Scheduler)

func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observer = o
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the telemetry timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSleep overrides how the scheduler waits between cycles.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(s *Scheduler) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

func NewScheduler(cfg Config, sensors Sensors, indicator Indicator, sender Sender, opts ...Option) (*Scheduler, error) {
	if sensors == nil {
		return nil, fmt.Errorf("sensors are required")
	}
	if indicator == nil {
		return nil, fmt.Errorf("indicator is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("telemetry sender is required")
	}
	if len(cfg.Zones) == 0 {
		return nil, fmt.Errorf("at least one zone is required")
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	zones := make([]Zone, len(cfg.Zones))
	copy(zones, cfg.Zones)
	cfg.Zones = zones

	s := &Scheduler{
		cfg:       cfg,
		sensors:   sensors,
		indicator: indicator,
		sender:    sender,
		observer:  Observers(nil),
		logger:    slog.Default(),
		now:       time.Now,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// State reports the current lifecycle state.
func (s *Scheduler) State() State {
	return s.state
}

// Stats reports cycle counters.
func (s *Scheduler) Stats() Stats {
	return s.stats
}

// Run loops until ctx is cancelled. Cycle errors never end the loop. The
// indicator is switched off before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.shutdown(ctx)

	s.logger.Info("monitor started",
		"device", s.cfg.DeviceID,
		"zones", len(s.cfg.Zones),
		"interval", s.cfg.Interval.String(),
	)

	for {
		if ctx.Err() != nil {
			return nil
		}

		wait := s.cfg.Interval
		if err := s.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.recordFailure(err)
			wait = s.cfg.RetryDelay
		}

		if ctx.Err() != nil {
			return nil
		}
		s.state = Waiting
		if err := s.sleep(ctx, wait); err != nil {
			return nil
		}
	}
}

// runCycle executes one cycle. Panics are turned into errors so a single bad
// cycle cannot end the process.
func (s *Scheduler) runCycle(ctx context.Context) (err error) {
	s.stats.Started++
	index := s.stats.Started

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle %d %s: panic: %v", index, s.state, r)
		}
	}()

	s.state = Sampling
	cycle, err := s.sample(ctx, index)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.state = Classifying
	cycle = Evaluate(s.cfg.Thresholds, cycle)
	if err := ctx.Err(); err != nil {
		return err
	}

	s.state = Reporting
	return s.report(ctx, cycle)
}

func (s *Scheduler) sample(ctx context.Context, index int) (MeasurementCycle, error) {
	cycle := MeasurementCycle{Index: index}

	ref, err := s.sensors.Reference(ctx)
	if err != nil {
		return cycle, &AcquisitionError{Source: SourceReference, Err: err}
	}
	cycle.Reference = ref

	cycle.Zones = make([]ZoneReading, 0, len(s.cfg.Zones))
	for _, zone := range s.cfg.Zones {
		pressure, err := s.sensors.ZonePressure(ctx, zone)
		if err != nil {
			return cycle, &AcquisitionError{Source: ZoneSource(zone), Err: err}
		}
		cycle.Zones = append(cycle.Zones, ZoneReading{Zone: zone, Pressure: pressure})
	}

	aq, err := s.sensors.AirQuality(ctx)
	if err != nil {
		return cycle, &AcquisitionError{Source: SourceAirQuality, Err: err}
	}
	cycle.AirQuality = aq
	return cycle, nil
}

func (s *Scheduler) report(ctx context.Context, cycle MeasurementCycle) error {
	if err := s.indicator.Set(ctx, IndicatorFor(cycle.Event.Level)); err != nil {
		return fmt.Errorf("set indicator: %w", err)
	}

	record := BuildTelemetry(s.cfg.DeviceID, s.now(), cycle)
	sendErr := s.sender.Send(ctx, record)

	s.stats.Completed++
	s.logger.Info("cycle complete",
		"cycle", cycle.Index,
		"level", cycle.Event.Level.String(),
		"alerts", len(cycle.Event.Messages),
	)
	s.observer.CycleCompleted(ctx, cycle, record)

	if sendErr != nil {
		s.stats.SendFailures++
		s.logger.Warn("telemetry send failed", "cycle", cycle.Index, "err", sendErr)
		s.observer.SendFailed(cycle.Index, sendErr)
	}
	return nil
}

func (s *Scheduler) recordFailure(err error) {
	index := s.stats.Started

	var acq *AcquisitionError
	if errors.As(err, &acq) && acq.Source == SourceReference {
		s.stats.Abandoned++
		s.logger.Warn("reference unavailable, cycle abandoned",
			"cycle", index,
			"failures", s.stats.Abandoned,
			"err", acq.Err,
		)
		s.observer.CycleAbandoned(index, err)
		return
	}

	s.stats.Faults++
	s.logger.Error("cycle failed", "cycle", index, "state", s.state.String(), "err", err)
	s.observer.CycleFailed(index, err)
}

func (s *Scheduler) shutdown(ctx context.Context) {
	s.state = Stopped
	s.logger.Info("monitor stopping",
		"completed", s.stats.Completed,
		"abandoned", s.stats.Abandoned,
		"faults", s.stats.Faults,
	)

	offCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.indicator.Set(offCtx, AllOff); err != nil {
		s.logger.Error("indicator off failed", "err", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
