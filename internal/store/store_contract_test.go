package store

import (
	"context"
	"sync"
	"testing"

	beererrors "github.com/abgdnv/beerstock/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBeerStore runs the behaviour every BeerStore implementation must share.
// newStore must return an empty store.
func testBeerStore(t *testing.T, newStore func(t *testing.T) BeerStore) {
	ctx := context.Background()
	brahma := Beer{Name: "Brahma", Brand: "Ambev", Max: 50, Quantity: 10, Type: Lager}
	guinness := Beer{Name: "Guinness", Brand: "Diageo", Max: 30, Quantity: 5, Type: Stout}

	t.Run("Save inserts and assigns id and version", func(t *testing.T) {
		s := newStore(t)

		saved, err := s.Save(ctx, brahma)

		require.NoError(t, err)
		assert.NotZero(t, saved.ID)
		assert.Equal(t, int32(1), saved.Version)
		assert.Equal(t, brahma.Name, saved.Name)
		assert.Equal(t, brahma.Brand, saved.Brand)
		assert.Equal(t, brahma.Max, saved.Max)
		assert.Equal(t, brahma.Quantity, saved.Quantity)
		assert.Equal(t, brahma.Type, saved.Type)
	})

	t.Run("Save rejects a second insert with the same name", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Save(ctx, brahma)
		require.NoError(t, err)

		_, err = s.Save(ctx, brahma)

		assert.ErrorIs(t, err, beererrors.ErrBeerAlreadyRegistered)
	})

	t.Run("FindByID and FindByName return the saved beer", func(t *testing.T) {
		s := newStore(t)
		saved, err := s.Save(ctx, brahma)
		require.NoError(t, err)

		byID, err := s.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		byName, err := s.FindByName(ctx, brahma.Name)
		require.NoError(t, err)

		assert.Equal(t, saved, byID)
		assert.Equal(t, saved, byName)
	})

	t.Run("Find on a missing beer returns ErrBeerNotFound", func(t *testing.T) {
		s := newStore(t)

		_, errID := s.FindByID(ctx, 99)
		_, errName := s.FindByName(ctx, "Missing")

		assert.ErrorIs(t, errID, beererrors.ErrBeerNotFound)
		assert.ErrorIs(t, errName, beererrors.ErrBeerNotFound)
	})

	t.Run("FindAll on an empty store returns an empty slice", func(t *testing.T) {
		s := newStore(t)

		all, err := s.FindAll(ctx)

		require.NoError(t, err)
		assert.NotNil(t, all)
		assert.Empty(t, all)
	})

	t.Run("FindAll returns every beer ordered by id", func(t *testing.T) {
		s := newStore(t)
		first, err := s.Save(ctx, brahma)
		require.NoError(t, err)
		second, err := s.Save(ctx, guinness)
		require.NoError(t, err)

		all, err := s.FindAll(ctx)

		require.NoError(t, err)
		assert.Equal(t, []Beer{*first, *second}, all)
	})

	t.Run("Save updates and bumps version", func(t *testing.T) {
		s := newStore(t)
		saved, err := s.Save(ctx, brahma)
		require.NoError(t, err)

		update := *saved
		update.Quantity = 20
		updated, err := s.Save(ctx, update)

		require.NoError(t, err)
		assert.Equal(t, saved.ID, updated.ID)
		assert.Equal(t, 20, updated.Quantity)
		assert.Equal(t, saved.Version+1, updated.Version)

		found, err := s.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, updated, found)
	})

	t.Run("Save with a stale version returns ErrOptimisticLock and writes nothing", func(t *testing.T) {
		s := newStore(t)
		saved, err := s.Save(ctx, brahma)
		require.NoError(t, err)

		first := *saved
		first.Quantity = 20
		_, err = s.Save(ctx, first)
		require.NoError(t, err)

		stale := *saved
		stale.Quantity = 0
		_, err = s.Save(ctx, stale)

		assert.ErrorIs(t, err, beererrors.ErrOptimisticLock)
		found, err := s.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, 20, found.Quantity)
	})

	t.Run("Save of a missing id returns ErrBeerNotFound", func(t *testing.T) {
		s := newStore(t)
		missing := brahma
		missing.ID = 99
		missing.Version = 1

		_, err := s.Save(ctx, missing)

		assert.ErrorIs(t, err, beererrors.ErrBeerNotFound)
	})

	t.Run("DeleteByID removes exactly that beer", func(t *testing.T) {
		s := newStore(t)
		first, err := s.Save(ctx, brahma)
		require.NoError(t, err)
		second, err := s.Save(ctx, guinness)
		require.NoError(t, err)

		err = s.DeleteByID(ctx, first.ID)

		require.NoError(t, err)
		_, err = s.FindByID(ctx, first.ID)
		assert.ErrorIs(t, err, beererrors.ErrBeerNotFound)
		_, err = s.FindByName(ctx, brahma.Name)
		assert.ErrorIs(t, err, beererrors.ErrBeerNotFound)
		all, err := s.FindAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []Beer{*second}, all)
	})

	t.Run("DeleteByID of a missing id returns ErrBeerNotFound", func(t *testing.T) {
		s := newStore(t)

		err := s.DeleteByID(ctx, 99)

		assert.ErrorIs(t, err, beererrors.ErrBeerNotFound)
	})

	t.Run("concurrent updates from the same read let exactly one win", func(t *testing.T) {
		s := newStore(t)
		saved, err := s.Save(ctx, brahma)
		require.NoError(t, err)

		const writers = 5
		var wg sync.WaitGroup
		results := make(chan error, writers)
		for i := range writers {
			wg.Add(1)
			go func(q int) {
				defer wg.Done()
				update := *saved
				update.Quantity = q
				_, err := s.Save(ctx, update)
				results <- err
			}(i)
		}
		wg.Wait()
		close(results)

		succeeded := 0
		for err := range results {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, beererrors.ErrOptimisticLock)
		}
		assert.Equal(t, 1, succeeded)
	})
}

func TestInMemoryStore(t *testing.T) {
	testBeerStore(t, func(t *testing.T) BeerStore {
		return NewInMemoryStore()
	})
}
