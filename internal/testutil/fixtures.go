package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/larder/larder/internal/models"
	"github.com/larder/larder/internal/util"
)

// FixtureUnit creates a kilogram unit; overrides adjust it.
func FixtureUnit(overrides ...func(*models.Unit)) *models.Unit {
	u := &models.Unit{
		ID:             util.NewID(),
		Name:           "kilogram",
		Abbreviation:   "kg",
		UnitType:       models.UnitTypeMass,
		BaseMultiplier: 1000,
		CreatedAt:      time.Now().UTC(),
	}
	for _, override := range overrides {
		override(u)
	}
	return u
}

// StandardUnits returns g, kg, ml, L and each as a small reference catalog.
func StandardUnits() []models.Unit {
	return []models.Unit{
		*FixtureUnit(func(u *models.Unit) { u.Name, u.Abbreviation, u.BaseMultiplier = "gram", "g", 1 }),
		*FixtureUnit(),
		*FixtureUnit(func(u *models.Unit) {
			u.Name, u.Abbreviation, u.UnitType, u.BaseMultiplier = "millilitre", "ml", models.UnitTypeVolume, 1
		}),
		*FixtureUnit(func(u *models.Unit) {
			u.Name, u.Abbreviation, u.UnitType, u.BaseMultiplier = "litre", "L", models.UnitTypeVolume, 1000
		}),
		*FixtureUnit(func(u *models.Unit) {
			u.Name, u.Abbreviation, u.UnitType, u.BaseMultiplier = "each", "ea", models.UnitTypeCount, 1
		}),
	}
}

// FixtureIngredient creates flour at 10.00 per 5 kg pack with full yield.
func FixtureIngredient(overrides ...func(*models.Ingredient)) *models.Ingredient {
	now := time.Now().UTC()
	ing := &models.Ingredient{
		ID:        util.NewID(),
		Name:      "Flour " + util.NewID()[24:],
		Supplier:  "Mill & Co",
		PackCost:  10,
		PackSize:  5,
		BaseUnit:  "kg",
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, override := range overrides {
		override(ing)
	}
	return ing
}

// FixtureRecipe creates an empty recipe yielding in grams.
func FixtureRecipe(overrides ...func(*models.Recipe)) *models.Recipe {
	now := time.Now().UTC()
	rec := &models.Recipe{
		ID:           util.NewID(),
		Name:         "Bread",
		YieldUnitRef: "g",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, override := range overrides {
		override(rec)
	}
	return rec
}

// FixtureLine creates a 2 kg line of ingredientID for recipeID.
func FixtureLine(recipeID, ingredientID string, overrides ...func(*models.RecipeIngredientLine)) *models.RecipeIngredientLine {
	l := &models.RecipeIngredientLine{
		ID:           util.NewID(),
		RecipeID:     recipeID,
		IngredientID: ingredientID,
		Quantity:     2,
		UnitRef:      "kg",
	}
	for _, override := range overrides {
		override(l)
	}
	return l
}

// InsertUnits stores units directly, bypassing the repositories.
func (tdb *TestDB) InsertUnits(t *testing.T, units []models.Unit) {
	t.Helper()
	for _, u := range units {
		tdb.ExecSQL(t,
			`INSERT INTO units (id, name, abbreviation, unit_type, base_multiplier, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			u.ID, u.Name, u.Abbreviation, string(u.UnitType), u.BaseMultiplier, u.CreatedAt.Format(time.RFC3339),
		)
	}
}

// InsertIngredient stores an ingredient directly.
func (tdb *TestDB) InsertIngredient(t *testing.T, ing *models.Ingredient) {
	t.Helper()
	var yield any
	if ing.YieldPercent != nil {
		yield = *ing.YieldPercent
	}
	tdb.ExecSQL(t, `
		INSERT INTO ingredients (id, name, supplier, unit_cost, pack_cost, pack_size,
			yield_percent, base_unit, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ing.ID, ing.Name, ing.Supplier, ing.UnitCost, ing.PackCost, ing.PackSize,
		yield, ing.BaseUnit, ing.CreatedAt.Format(time.RFC3339), ing.UpdatedAt.Format(time.RFC3339),
	)
}

// InsertRecipe stores a recipe directly.
func (tdb *TestDB) InsertRecipe(t *testing.T, rec *models.Recipe) {
	t.Helper()
	tdb.ExecSQL(t,
		`INSERT INTO recipes (id, name, yield_qty, yield_unit_ref, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.YieldQty, rec.YieldUnitRef, rec.CreatedAt.Format(time.RFC3339), rec.UpdatedAt.Format(time.RFC3339),
	)
}

// InsertLine stores a recipe line directly.
func (tdb *TestDB) InsertLine(t *testing.T, l *models.RecipeIngredientLine) {
	t.Helper()
	var cost any
	if l.LineCost != nil {
		cost = *l.LineCost
	}
	now := time.Now().UTC().Format(time.RFC3339)
	tdb.ExecSQL(t, `
		INSERT INTO recipe_ingredients (id, recipe_id, ingredient_id, quantity, unit_ref,
			line_cost, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.RecipeID, l.IngredientID, l.Quantity, l.UnitRef, cost, l.SortOrder, now, now,
	)
}

// LineCostOf reads the stored line_cost of a line; ok is false when NULL.
func (tdb *TestDB) LineCostOf(t *testing.T, lineID string) (cost float64, ok bool) {
	t.Helper()
	var v *float64
	if err := tdb.QueryRowContext(context.Background(),
		`SELECT line_cost FROM recipe_ingredients WHERE id = ?`, lineID).Scan(&v); err != nil {
		t.Fatalf("reading line_cost of %s: %v", lineID, err)
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Float64Ptr returns a pointer to f.
func Float64Ptr(f float64) *float64 {
	return &f
}
