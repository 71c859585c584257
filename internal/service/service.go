// Package service provides the beer stock business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	beererrors "github.com/abgdnv/beerstock/internal/errors"
	"github.com/abgdnv/beerstock/internal/store"
	"github.com/abgdnv/beerstock/pkg/messaging"
	"github.com/abgdnv/beerstock/pkg/messaging/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
)

// StockService defines the beer stock operations.
type StockService interface {
	// Create registers a new beer.
	// Returns AlreadyRegisteredError if a beer with the same name exists.
	Create(ctx context.Context, beer BeerCreateDto) (*BeerDto, error)

	// FindByName returns the beer with the given name.
	// Returns NotFoundError if no beer has that name.
	FindByName(ctx context.Context, name string) (*BeerDto, error)

	// FindByID returns the beer with the given id.
	// Returns NotFoundError if no beer has that id.
	FindByID(ctx context.Context, id int64) (*BeerDto, error)

	// ListAll returns every registered beer.
	// Returns an empty slice if no beers exist.
	ListAll(ctx context.Context) ([]BeerDto, error)

	// DeleteByID removes the beer with the given id.
	// Returns NotFoundError if no beer has that id.
	DeleteByID(ctx context.Context, id int64) error

	// Increment adds amount to the stock of a beer.
	// Returns StockExceededError if the result would be above the beer's max.
	Increment(ctx context.Context, id int64, amount int) (*BeerDto, error)

	// Decrement removes amount from the stock of a beer.
	// Returns BelowZeroError if the result would be negative.
	Decrement(ctx context.Context, id int64, amount int) (*BeerDto, error)
}

// Service implements StockService on top of a BeerStore.
type Service struct {
	repository store.BeerStore
	publisher  messaging.Publisher
	opsCounter metric.Int64Counter
}

// NewService creates a new instance of StockService with the provided repository and event publisher.
func NewService(repo store.BeerStore, publisher messaging.Publisher) *Service {
	meter := otel.Meter("beerstock")
	opsCounter, err := meter.Int64Counter("beer_stock_operations",
		metric.WithDescription("Total number of successful beer stock mutations"))
	if err != nil {
		panic(fmt.Sprintf("failed to create beer_stock_operations counter: %v", err))
	}
	return &Service{
		repository: repo,
		publisher:  publisher,
		opsCounter: opsCounter,
	}
}

// BeerCreateDto represents the data transfer object for registering a beer.
type BeerCreateDto struct {
	Name     string `json:"name"     validate:"required,max=200"`
	Brand    string `json:"brand"    validate:"required,max=200"`
	Max      int    `json:"max"      validate:"min=1,max=500"`
	Quantity int    `json:"quantity" validate:"min=0,max=100"`
	Type     string `json:"type"     validate:"required,oneof=LAGER MALZBIER WITBIER WEISS ALE IPA STOUT"`
}

// BeerDto represents the data transfer object for a beer.
type BeerDto struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	Max      int    `json:"max"`
	Quantity int    `json:"quantity"`
	Type     string `json:"type"`
}

// QuantityDto carries the amount of an increment or decrement request.
type QuantityDto struct {
	Quantity int `json:"quantity" validate:"min=0,max=100"`
}

// Create registers a new beer after checking its name is free.
// Bounds of the input are not checked here.
func (s *Service) Create(ctx context.Context, beer BeerCreateDto) (*BeerDto, error) {
	_, err := s.repository.FindByName(ctx, beer.Name)
	if err == nil {
		return nil, &beererrors.AlreadyRegisteredError{Name: beer.Name}
	}
	if !errors.Is(err, beererrors.ErrBeerNotFound) {
		return nil, fmt.Errorf("failed to check beer name %s: %w", beer.Name, err)
	}

	saved, err := s.repository.Save(ctx, toRecord(beer))
	if err != nil {
		if errors.Is(err, beererrors.ErrBeerAlreadyRegistered) {
			return nil, &beererrors.AlreadyRegisteredError{Name: beer.Name}
		}
		return nil, fmt.Errorf("failed to create beer %s: %w", beer.Name, err)
	}

	s.publish(ctx, events.BeerCreatedEvent{
		Carrier:    carrier(ctx),
		BeerID:     saved.ID,
		Name:       saved.Name,
		Quantity:   saved.Quantity,
		Max:        saved.Max,
		OccurredAt: time.Now().UTC(),
	})
	s.count(ctx, "create")
	return toDto(saved), nil
}

// FindByName retrieves a beer by its name.
func (s *Service) FindByName(ctx context.Context, name string) (*BeerDto, error) {
	beer, err := s.repository.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, beererrors.ErrBeerNotFound) {
			return nil, &beererrors.NotFoundError{Name: name}
		}
		return nil, fmt.Errorf("failed to fetch beer by name %s: %w", name, err)
	}
	return toDto(beer), nil
}

// FindByID retrieves a beer by its id.
func (s *Service) FindByID(ctx context.Context, id int64) (*BeerDto, error) {
	beer, err := s.findRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDto(beer), nil
}

// ListAll retrieves every beer.
func (s *Service) ListAll(ctx context.Context) ([]BeerDto, error) {
	beers, err := s.repository.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch beers: %w", err)
	}
	dtos := make([]BeerDto, len(beers))
	for i := range beers {
		dtos[i] = *toDto(&beers[i])
	}
	return dtos, nil
}

// DeleteByID removes a beer after confirming it exists.
func (s *Service) DeleteByID(ctx context.Context, id int64) error {
	if _, err := s.findRecord(ctx, id); err != nil {
		return err
	}
	if err := s.repository.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, beererrors.ErrBeerNotFound) {
			return &beererrors.NotFoundError{ID: id}
		}
		return fmt.Errorf("failed to delete beer with ID %d: %w", id, err)
	}

	s.publish(ctx, events.BeerDeletedEvent{
		Carrier:    carrier(ctx),
		BeerID:     id,
		OccurredAt: time.Now().UTC(),
	})
	s.count(ctx, "delete")
	return nil
}

// Increment adds amount to the stock of a beer.
// Reaching exactly the max is allowed.
func (s *Service) Increment(ctx context.Context, id int64, amount int) (*BeerDto, error) {
	if amount < 0 {
		return nil, &beererrors.InvalidAmountError{Amount: amount}
	}
	beer, err := s.findRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if amount > beer.Max-beer.Quantity {
		return nil, &beererrors.StockExceededError{ID: id, Amount: amount}
	}
	return s.changeStock(ctx, *beer, events.OperationIncrement, amount, beer.Quantity+amount)
}

// Decrement removes amount from the stock of a beer.
// Reaching exactly zero is allowed.
func (s *Service) Decrement(ctx context.Context, id int64, amount int) (*BeerDto, error) {
	if amount < 0 {
		return nil, &beererrors.InvalidAmountError{Amount: amount}
	}
	beer, err := s.findRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if amount > beer.Quantity {
		return nil, &beererrors.BelowZeroError{ID: id, Amount: amount}
	}
	return s.changeStock(ctx, *beer, events.OperationDecrement, amount, beer.Quantity-amount)
}

func (s *Service) changeStock(ctx context.Context, beer store.Beer, operation string, amount, quantity int) (*BeerDto, error) {
	beer.Quantity = quantity
	saved, err := s.repository.Save(ctx, beer)
	if err != nil {
		if errors.Is(err, beererrors.ErrBeerNotFound) {
			return nil, &beererrors.NotFoundError{ID: beer.ID}
		}
		return nil, fmt.Errorf("failed to %s stock of beer with ID %d: %w", operation, beer.ID, err)
	}

	s.publish(ctx, events.StockChangedEvent{
		Carrier:    carrier(ctx),
		BeerID:     saved.ID,
		Operation:  operation,
		Delta:      amount,
		Quantity:   saved.Quantity,
		Max:        saved.Max,
		OccurredAt: time.Now().UTC(),
	})
	s.count(ctx, operation)
	return toDto(saved), nil
}

// findRecord loads a beer and turns a store miss into NotFoundError.
func (s *Service) findRecord(ctx context.Context, id int64) (*store.Beer, error) {
	beer, err := s.repository.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, beererrors.ErrBeerNotFound) {
			return nil, &beererrors.NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to fetch beer by ID %d: %w", id, err)
	}
	return beer, nil
}

func (s *Service) publish(ctx context.Context, event messaging.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish event", "subject", event.Subject(), "error", err)
	}
}

func (s *Service) count(ctx context.Context, operation string) {
	s.opsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

func carrier(ctx context.Context) map[string]string {
	c := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, c)
	return c
}

// toRecord converts a BeerCreateDto to a store.Beer ready to be inserted.
func toRecord(beer BeerCreateDto) store.Beer {
	return store.Beer{
		Name:     beer.Name,
		Brand:    beer.Brand,
		Max:      beer.Max,
		Quantity: beer.Quantity,
		Type:     store.BeerType(beer.Type),
	}
}

// toDto converts a store.Beer to a BeerDto.
func toDto(beer *store.Beer) *BeerDto {
	return &BeerDto{
		ID:       beer.ID,
		Name:     beer.Name,
		Brand:    beer.Brand,
		Max:      beer.Max,
		Quantity: beer.Quantity,
		Type:     string(beer.Type),
	}
}
