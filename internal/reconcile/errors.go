package reconcile

import (
	"errors"
	"fmt"
)

// ErrIngredientNotFound is returned by an IngredientLookup for unknown ids.
var ErrIngredientNotFound = errors.New("ingredient not found")

// PersistenceError wraps a failed store operation.
type PersistenceError struct {
	Op     Op
	LineID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// RowError is a failure of one work item.
type RowError struct {
	Op         Op
	LineID     string
	Ingredient string
	Err        error
}

func (e *RowError) Error() string {
	return e.Err.Error()
}

func (e *RowError) Unwrap() error {
	return e.Err
}
