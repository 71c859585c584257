package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	beererrors "github.com/abgdnv/beerstock/internal/errors"
)

// inMemory implements BeerStore using an in-memory map.
type inMemory struct {
	mu     sync.RWMutex
	beers  map[int64]Beer
	nextID int64
}

// NewInMemoryStore creates a new instance of BeerStore
func NewInMemoryStore() BeerStore {
	return &inMemory{
		beers:  make(map[int64]Beer),
		nextID: 1,
	}
}

// FindByID retrieves a beer by its ID.
func (s *inMemory) FindByID(_ context.Context, id int64) (*Beer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.beers[id]
	if !ok {
		return nil, beererrors.ErrBeerNotFound
	}
	return &b, nil
}

// FindByName retrieves a beer by its name.
func (s *inMemory) FindByName(_ context.Context, name string) (*Beer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.beers {
		if b.Name == name {
			return &b, nil
		}
	}
	return nil, beererrors.ErrBeerNotFound
}

// FindAll retrieves all beers ordered by ID.
func (s *inMemory) FindAll(_ context.Context) ([]Beer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Beer, 0, len(s.beers))
	for _, b := range s.beers {
		list = append(list, b)
	}
	slices.SortFunc(list, func(a, b Beer) int { return cmp.Compare(a.ID, b.ID) })
	return list, nil
}

// Save inserts or updates a beer.
func (s *inMemory) Save(_ context.Context, beer Beer) (*Beer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if beer.ID == 0 {
		for _, b := range s.beers {
			if b.Name == beer.Name {
				return nil, beererrors.ErrBeerAlreadyRegistered
			}
		}
		beer.ID = s.nextID
		beer.Version = 1
		s.nextID++
		s.beers[beer.ID] = beer
		return &beer, nil
	}

	current, ok := s.beers[beer.ID]
	if !ok {
		return nil, beererrors.ErrBeerNotFound
	}
	if current.Version != beer.Version {
		return nil, beererrors.ErrOptimisticLock
	}
	beer.Version++
	s.beers[beer.ID] = beer
	return &beer, nil
}

// DeleteByID deletes a beer by its ID.
func (s *inMemory) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.beers[id]; !exists {
		return beererrors.ErrBeerNotFound
	}
	delete(s.beers, id)
	return nil
}
