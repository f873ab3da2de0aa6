package storage

import (
	"context"
	"errors"
)

// Sinks fans a record out to every sink. All sinks are tried and their
// errors joined.
type Sinks []Sink

func (s Sinks) Save(ctx context.Context, rec Record) error {
	var errs []error
	for _, sink := range s {
		if err := sink.Save(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
