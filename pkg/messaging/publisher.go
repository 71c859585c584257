// Package messaging defines the events published by the beer stock service and the publisher abstraction.
package messaging

import (
	"context"
)

// Subjects of the beer stock events. BeersSubjects matches all of them.
const (
	BeersSubjects           = "beers.>"
	BeerCreatedSubject      = "beers.created"
	BeerDeletedSubject      = "beers.deleted"
	BeerStockChangedSubject = "beers.stock.changed"
)

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

// Deduplicated is implemented by events that carry a stable id, so brokers can drop republished copies.
type Deduplicated interface {
	MessageID() string
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error {
	return nil
}
