// Package errors provides the failure kinds of the beer stock domain.
//
// Each typed error carries the identifying context of the failed call and unwraps to a sentinel,
// so callers test the kind with errors.Is and read the context with errors.As.
package errors

import (
	"errors"
	"fmt"
)

var ErrBeerNotFound = errors.New("beer not found")
var ErrBeerAlreadyRegistered = errors.New("beer already registered")
var ErrStockExceeded = errors.New("beer stock exceeded")
var ErrStockBelowZero = errors.New("beer stock below zero")
var ErrInvalidAmount = errors.New("invalid stock amount")
var ErrOptimisticLock = errors.New("optimistic lock error: the record has been modified by another transaction")

// NotFoundError reports a lookup that matched no beer. Exactly one of ID or Name is set.
type NotFoundError struct {
	ID   int64
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("Beer not found with name %s", e.Name)
	}
	return fmt.Sprintf("Beer not found with id %d", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrBeerNotFound }

// AlreadyRegisteredError reports a create with a name that is already taken.
type AlreadyRegisteredError struct {
	Name string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("Beer with name %s already registered in the system.", e.Name)
}

func (e *AlreadyRegisteredError) Unwrap() error { return ErrBeerAlreadyRegistered }

// StockExceededError reports an increment that would push the quantity above max.
// Amount is the requested increment, not the overflow.
type StockExceededError struct {
	ID     int64
	Amount int
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("Beers with %d ID to increment informed exceeds the max stock capacity: %d", e.ID, e.Amount)
}

func (e *StockExceededError) Unwrap() error { return ErrStockExceeded }

// BelowZeroError reports a decrement that would push the quantity below zero.
type BelowZeroError struct {
	ID     int64
	Amount int
}

func (e *BelowZeroError) Error() string {
	return fmt.Sprintf("Beers with %d ID to decrement informed exceeds the minimum stock capacity: %d", e.ID, e.Amount)
}

func (e *BelowZeroError) Unwrap() error { return ErrStockBelowZero }

// InvalidAmountError reports a negative increment or decrement amount.
type InvalidAmountError struct {
	Amount int
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("stock amount must not be negative: %d", e.Amount)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }
