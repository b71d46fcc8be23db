package events

import (
	"context"
	"errors"
)

// Fanout delivers every event to each of its publishers.
// A failing sink does not stop delivery to the others.
type Fanout []Publisher

// Publish sends the event to all sinks and joins their errors.
func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Combine returns the single publisher for the given sinks.
// No sinks yields a no-op publisher.
func Combine(sinks ...Publisher) Publisher {
	switch len(sinks) {
	case 0:
		return NewNoop()
	case 1:
		return sinks[0]
	default:
		return Fanout(sinks)
	}
}
