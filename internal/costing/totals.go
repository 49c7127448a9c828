package costing

import "github.com/larder/larder/internal/models"

// Totals summarises the cost of a recipe.
type Totals struct {
	TotalCost       float64
	CostPerYield    float64 // zero when the yield is not positive
	CostedLines     int
	MissingCostData int
}

// IngredientSource returns the ingredient for an id, or nil when unknown.
type IngredientSource func(id string) *models.Ingredient

// Totals adds up display costs of every line with an ingredient. Lines whose
// cost cannot be shown are counted in MissingCostData.
func (c *Calculator) Totals(lines []models.RecipeIngredientLine, ingredients IngredientSource, yieldQty float64) Totals {
	var t Totals
	for _, l := range lines {
		if l.IngredientID == "" {
			continue
		}
		var ing *models.Ingredient
		if ingredients != nil {
			ing = ingredients(l.IngredientID)
		}
		cost := c.DisplayCost(l, ing)
		if cost == 0 && l.Quantity > 0 {
			t.MissingCostData++
			continue
		}
		t.TotalCost += cost
		t.CostedLines++
	}
	t.TotalCost = c.Round(t.TotalCost)
	if yieldQty > 0 {
		t.CostPerYield = t.TotalCost / yieldQty
	}
	return t
}
