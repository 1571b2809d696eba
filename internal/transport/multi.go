package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/joshp123/containment/internal/monitor"
)

// Sink is a named telemetry sender.
type Sink interface {
	monitor.Sender
	Name() string
}

// Multi sends to every sink. The send fails if any sink failed.
type Multi []Sink

func (m Multi) Send(ctx context.Context, record monitor.Telemetry) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Send(ctx, record); err != nil {
			errs = append(errs, &SinkError{Sink: sink.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

// SinkError names the sink that failed.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s sink: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// FailedSinks lists the sink names found in err.
func FailedSinks(err error) []string {
	if err == nil {
		return nil
	}
	var names []string
	var collect func(error)
	collect = func(err error) {
		var se *SinkError
		if e, ok := err.(*SinkError); ok {
			names = append(names, e.Sink)
			return
		}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				collect(inner)
			}
			return
		}
		if errors.As(err, &se) {
			names = append(names, se.Sink)
		}
	}
	collect(err)
	return names
}
