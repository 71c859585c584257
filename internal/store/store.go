// Package store provides the beer record store contract and its implementations.
package store

import (
	"context"
)

// BeerType is the style of a beer.
type BeerType string

const (
	Lager    BeerType = "LAGER"
	Malzbier BeerType = "MALZBIER"
	Witbier  BeerType = "WITBIER"
	Weiss    BeerType = "WEISS"
	Ale      BeerType = "ALE"
	IPA      BeerType = "IPA"
	Stout    BeerType = "STOUT"
)

// Beer is the persisted beer record.
// ID is assigned by the store on first save. Version is bumped on every update.
type Beer struct {
	ID       int64
	Name     string
	Brand    string
	Max      int
	Quantity int
	Type     BeerType
	Version  int32
}

// BeerStore is an interface for beer storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type BeerStore interface {
	// FindByID retrieves a single beer by its unique identifier.
	// Returns ErrBeerNotFound if no beer exists with the given ID.
	FindByID(ctx context.Context, id int64) (*Beer, error)

	// FindByName retrieves a single beer by its name.
	// Returns ErrBeerNotFound if no beer exists with the given name.
	FindByName(ctx context.Context, name string) (*Beer, error)

	// FindAll returns all beers ordered by ID.
	// Returns an empty slice if no beers exist.
	FindAll(ctx context.Context) ([]Beer, error)

	// Save inserts the beer when its ID is zero and updates it otherwise.
	// An update only applies when the stored version equals beer.Version,
	// otherwise ErrOptimisticLock is returned and nothing is written.
	// Returns ErrBeerNotFound when updating a beer that does not exist.
	Save(ctx context.Context, beer Beer) (*Beer, error)

	// DeleteByID removes a beer by its ID.
	// Returns ErrBeerNotFound if no beer exists with the given ID.
	DeleteByID(ctx context.Context, id int64) error
}
