package costing

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidYield is returned for a yield percentage outside (0, 100].
var ErrInvalidYield = errors.New("yield percent must be greater than 0 and at most 100")

// CostDataMissingError means an ingredient has neither a unit cost nor a
// pack cost and size to derive one from.
type CostDataMissingError struct {
	IngredientID   string
	IngredientName string
}

func (e *CostDataMissingError) Error() string {
	name := e.IngredientName
	if name == "" {
		name = e.IngredientID
	}
	return fmt.Sprintf("%s has no cost data", name)
}

// ValidationError means a line is not fit to be persisted.
type ValidationError struct {
	LineID string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ValidateLine reports the first reason a line cannot be saved.
func ValidateLine(lineID, ingredientID string, quantity float64, unitRef string) error {
	switch {
	case ingredientID == "":
		return &ValidationError{LineID: lineID, Field: "ingredient", Reason: "is required"}
	case math.IsNaN(quantity) || math.IsInf(quantity, 0):
		return &ValidationError{LineID: lineID, Field: "quantity", Reason: "must be a finite number"}
	case quantity <= 0:
		return &ValidationError{LineID: lineID, Field: "quantity", Reason: "must be greater than 0"}
	case unitRef == "":
		return &ValidationError{LineID: lineID, Field: "unit", Reason: "is required"}
	}
	return nil
}
