package recipes

import (
	"github.com/larder/larder/internal/costing"
	"github.com/larder/larder/internal/reconcile"
)

// CreateIngredientInput contains data for adding an ingredient to the library.
type CreateIngredientInput struct {
	Name         string
	Supplier     string
	UnitCost     float64
	PackCost     float64
	PackSize     float64
	YieldPercent *float64
	BaseUnit     string
}

// UpdateCostInput changes the cost fields of an ingredient. Nil fields are
// left as they are.
type UpdateCostInput struct {
	UnitCost     *float64
	PackCost     *float64
	PackSize     *float64
	YieldPercent *float64
}

// CreateRecipeInput contains data for creating a recipe.
type CreateRecipeInput struct {
	Name         string
	YieldUnitRef string
}

// RecomputeResult reports a full recompute of one recipe.
type RecomputeResult struct {
	Batch        *reconcile.BatchResult
	Yield        costing.YieldResult
	YieldUpdated bool
}
