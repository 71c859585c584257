// Package events contains the payloads published when the beer stock changes.
// Carrier holds the propagated trace context of the request that caused the event.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/abgdnv/beerstock/pkg/messaging"
)

// BeerCreatedEvent is published after a beer is registered.
type BeerCreatedEvent struct {
	Carrier    map[string]string `json:"carrier,omitempty"`
	BeerID     int64             `json:"beer_id"`
	Name       string            `json:"name"`
	Quantity   int               `json:"quantity"`
	Max        int               `json:"max"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func (e BeerCreatedEvent) Subject() string {
	return messaging.BeerCreatedSubject
}

func (e BeerCreatedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

// BeerDeletedEvent is published after a beer is removed.
type BeerDeletedEvent struct {
	Carrier    map[string]string `json:"carrier,omitempty"`
	BeerID     int64             `json:"beer_id"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func (e BeerDeletedEvent) Subject() string {
	return messaging.BeerDeletedSubject
}

func (e BeerDeletedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

// Stock change operations.
const (
	OperationIncrement = "increment"
	OperationDecrement = "decrement"
)

// StockChangedEvent is published after a successful increment or decrement.
// Delta is the requested amount, positive for both operations.
type StockChangedEvent struct {
	Carrier    map[string]string `json:"carrier,omitempty"`
	BeerID     int64             `json:"beer_id"`
	Operation  string            `json:"operation"`
	Delta      int               `json:"delta"`
	Quantity   int               `json:"quantity"`
	Max        int               `json:"max"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func (e StockChangedEvent) Subject() string {
	return messaging.BeerStockChangedSubject
}

func (e StockChangedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

// MessageID identifies one stock change of a beer.
func (e StockChangedEvent) MessageID() string {
	return fmt.Sprintf("beer-%d-%s-%d", e.BeerID, e.Operation, e.OccurredAt.UnixNano())
}
