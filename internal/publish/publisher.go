// Package publish fans committed book events out to downstream consumers.
package publish

import (
	"context"
	"errors"

	"matching-core/internal/matching"
)

// Publisher delivers the committed events of one command
type Publisher interface {
	Publish(ctx context.Context, bookID matching.BookID, events []matching.Event) error
	Close() error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, matching.BookID, []matching.Event) error { return nil }

func (NopPublisher) Close() error { return nil }

// Fanout delivers every batch to each of its publishers in order. A failing
// publisher does not stop delivery to the rest.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, bookID matching.BookID, events []matching.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, bookID, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
