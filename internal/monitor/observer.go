package monitor

import "context"

// Observer is notified of cycle outcomes. Calls happen on the scheduler
// goroutine and must not block for long. CycleCompleted receives the run
// context; any I/O it does must stop when that context is cancelled.
type Observer interface {
	CycleCompleted(ctx context.Context, cycle MeasurementCycle, record Telemetry)
	CycleAbandoned(index int, err error)
	CycleFailed(index int, err error)
	SendFailed(index int, err error)
}

// Observers fans every notification out in order.
type Observers []Observer

func (o Observers) CycleCompleted(ctx context.Context, cycle MeasurementCycle, record Telemetry) {
	for _, obs := range o {
		obs.CycleCompleted(ctx, cycle, record)
	}
}

func (o Observers) CycleAbandoned(index int, err error) {
	for _, obs := range o {
		obs.CycleAbandoned(index, err)
	}
}

func (o Observers) CycleFailed(index int, err error) {
	for _, obs := range o {
		obs.CycleFailed(index, err)
	}
}

func (o Observers) SendFailed(index int, err error) {
	for _, obs := range o {
		obs.SendFailed(index, err)
	}
}
