// Package apperr holds the error taxonomy shared by the catalog and order
// services. Callers match with errors.Is / errors.As; the HTTP layer maps
// each sentinel to a status code.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrConflict              = errors.New("conflict")
	ErrStore                 = errors.New("store error")
)

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Store wraps a storage-layer failure. Errors that already carry a taxonomy
// sentinel pass through untouched.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsTaxonomy(err) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// InsufficientInventoryError reports the first grocery that could not cover
// the requested quantity.
type InsufficientInventoryError struct {
	GroceryID int64 `json:"groceryId"`
	Requested int   `json:"requested"`
	Available int   `json:"available"`
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for grocery %d: requested %d, available %d",
		e.GroceryID, e.Requested, e.Available)
}

func (e *InsufficientInventoryError) Is(target error) bool {
	return target == ErrInsufficientInventory
}

func IsTaxonomy(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInsufficientInventory) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrStore)
}
