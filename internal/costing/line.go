// Package costing derives ingredient line costs, recipe totals and recipe
// yield. Functions here are pure; conversion warnings are returned, not logged.
package costing

import (
	"math"

	"github.com/larder/larder/internal/models"
	"github.com/larder/larder/internal/units"
)

// Tolerance is the largest difference at which two costs are considered equal.
const Tolerance = 0.005

// Calculator computes costs and yields against a unit catalog snapshot.
type Calculator struct {
	converter *units.Converter
	decimals  int
}

// NewCalculator creates a calculator. decimals is the precision persisted
// line costs are rounded to; a negative value disables rounding.
func NewCalculator(converter *units.Converter, decimals int) *Calculator {
	if converter == nil {
		converter = units.NewConverter(nil)
	}
	return &Calculator{converter: converter, decimals: decimals}
}

// Converter returns the underlying converter.
func (c *Calculator) Converter() *units.Converter {
	return c.converter
}

// ResolveUnitCost returns the cost of one base unit of ingredient: the direct
// unit cost when set, otherwise pack cost divided by pack size.
func ResolveUnitCost(ing *models.Ingredient) (float64, error) {
	if ing.UnitCost > 0 {
		return ing.UnitCost, nil
	}
	if ing.PackCost > 0 && ing.PackSize > 0 {
		return ing.PackCost / ing.PackSize, nil
	}
	return 0, &CostDataMissingError{IngredientID: ing.ID, IngredientName: ing.Name}
}

// LineCost applies yield to unitCost * quantity. Lower yield means more
// purchased product per usable unit, so cost rises as yield falls.
// A non-positive quantity costs nothing.
func LineCost(unitCost, quantity, yieldPercent float64) (float64, error) {
	if yieldPercent <= 0 || yieldPercent > 100 || math.IsNaN(yieldPercent) {
		return 0, ErrInvalidYield
	}
	if quantity <= 0 {
		return 0, nil
	}
	return (unitCost * quantity) / (yieldPercent / 100), nil
}

// Result is an authoritative line cost with any conversion problem met
// on the way.
type Result struct {
	Cost     float64
	UnitCost float64
	// BaseQuantity is the line quantity expressed in the ingredient's base unit.
	BaseQuantity float64
	Warning      units.Warning
}

// CalculateLineCost recomputes a line's cost from ingredient master data.
// This is the save path: the line's cached LineCost is never consulted.
//
// When the ingredient declares a base unit, the quantity is converted into it
// first. An unconvertible unit falls back to the raw quantity and the warning
// is returned in the result.
func (c *Calculator) CalculateLineCost(line models.RecipeIngredientLine, ing *models.Ingredient) (Result, error) {
	unitCost, err := ResolveUnitCost(ing)
	if err != nil {
		return Result{}, err
	}

	qty := line.Quantity
	var warn units.Warning
	if ing.BaseUnit != "" && line.UnitRef != "" {
		qty, warn = c.converter.Convert(line.Quantity, line.UnitRef, ing.BaseUnit)
	}

	cost, err := LineCost(unitCost, qty, ing.EffectiveYield())
	if err != nil {
		return Result{}, err
	}

	return Result{
		Cost:         c.Round(cost),
		UnitCost:     unitCost,
		BaseQuantity: qty,
		Warning:      warn,
	}, nil
}

// DisplayCost returns the cost to show for a line. A cached non-zero
// LineCost is trusted; otherwise the cost is computed when the ingredient is
// known. Missing or invalid data shows as 0.
func (c *Calculator) DisplayCost(line models.RecipeIngredientLine, ing *models.Ingredient) float64 {
	if line.LineCost != nil && *line.LineCost != 0 {
		return *line.LineCost
	}
	if ing == nil {
		return 0
	}
	res, err := c.CalculateLineCost(line, ing)
	if err != nil {
		return 0
	}
	return res.Cost
}

// Round rounds a monetary amount to the calculator's precision.
func (c *Calculator) Round(amount float64) float64 {
	if c.decimals < 0 {
		return amount
	}
	scale := math.Pow(10, float64(c.decimals))
	return math.Round(amount*scale) / scale
}

// CostsEqual reports whether two costs agree within Tolerance.
func CostsEqual(a, b float64) bool {
	return math.Abs(a-b) <= Tolerance
}
