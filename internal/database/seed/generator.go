package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/larder/larder/internal/costing"
	"github.com/larder/larder/internal/database"
	"github.com/larder/larder/internal/models"
	"github.com/larder/larder/internal/repository"
	"github.com/larder/larder/internal/units"
)

// Result counts what a seed run wrote.
type Result struct {
	Units       int
	Ingredients int
	Recipes     int
	Lines       int
	// SkippedRecipes already existed by name and were left untouched.
	SkippedRecipes int
}

// Generator writes a Catalog into the database.
type Generator struct {
	db          *sql.DB
	decimals    int
	units       *repository.UnitRepository
	ingredients *repository.IngredientRepository
	recipes     *repository.RecipeRepository
}

// NewGenerator creates a generator. Seeded line costs are rounded to decimals.
func NewGenerator(db *sql.DB, decimals int) *Generator {
	return &Generator{
		db:          db,
		decimals:    decimals,
		units:       repository.NewUnitRepository(db),
		ingredients: repository.NewIngredientRepository(db),
		recipes:     repository.NewRecipeRepository(db),
	}
}

// Generate upserts units and ingredients and creates missing sample recipes,
// all in one transaction. Running it twice leaves the data unchanged.
func (g *Generator) Generate(ctx context.Context, cat *Catalog) (*Result, error) {
	slog.Info("seeding reference data",
		"units", len(cat.Units),
		"ingredients", len(cat.Ingredients),
		"recipes", len(cat.Recipes),
	)

	res := &Result{}
	err := database.WithTx(ctx, g.db, func(tx *sql.Tx) error {
		catalogUnits := cat.ModelUnits()
		for i := range catalogUnits {
			if err := g.units.Upsert(ctx, tx, &catalogUnits[i]); err != nil {
				return err
			}
			res.Units++
		}

		byName := make(map[string]*models.Ingredient, len(cat.Ingredients))
		for _, spec := range cat.Ingredients {
			ing := spec.model()
			if err := g.ingredients.UpsertByName(ctx, tx, ing); err != nil {
				return err
			}
			byName[ing.Name] = ing
			res.Ingredients++
		}

		calc := costing.NewCalculator(units.NewConverter(units.NewCatalog(catalogUnits)), g.decimals)
		for _, spec := range cat.Recipes {
			created, lines, err := g.seedRecipe(ctx, tx, calc, spec, byName)
			if err != nil {
				return fmt.Errorf("recipe %s: %w", spec.Name, err)
			}
			if !created {
				res.SkippedRecipes++
				continue
			}
			res.Recipes++
			res.Lines += lines
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seeding: %w", err)
	}

	slog.Info("seed data complete",
		"units", res.Units,
		"ingredients", res.Ingredients,
		"recipes", res.Recipes,
		"skipped_recipes", res.SkippedRecipes,
	)
	return res, nil
}

// seedRecipe creates a recipe with its costed lines and stored yield.
// A recipe that already exists by name is left alone.
func (g *Generator) seedRecipe(ctx context.Context, tx *sql.Tx, calc *costing.Calculator, spec RecipeSpec, byName map[string]*models.Ingredient) (created bool, lines int, err error) {
	_, err = g.recipes.FindByName(ctx, tx, spec.Name)
	if err == nil {
		return false, 0, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, 0, err
	}

	rec := &models.Recipe{Name: spec.Name, YieldUnitRef: spec.YieldUnit}
	if err := g.recipes.Create(ctx, tx, rec); err != nil {
		return false, 0, err
	}

	saved := make([]models.RecipeIngredientLine, 0, len(spec.Lines))
	for i, ls := range spec.Lines {
		ing := byName[ls.Ingredient]
		line := models.RecipeIngredientLine{
			RecipeID:     rec.ID,
			IngredientID: ing.ID,
			Quantity:     ls.Quantity,
			UnitRef:      ls.Unit,
			SortOrder:    i,
		}
		if cost, err := calc.CalculateLineCost(line, ing); err == nil {
			line.LineCost = &cost.Cost
		} else {
			slog.Warn("seed line left uncosted", "recipe", spec.Name, "ingredient", ing.Name, "error", err)
		}
		if err := g.recipes.InsertLine(ctx, tx, &line); err != nil {
			return false, 0, err
		}
		saved = append(saved, line)
	}

	yield := calc.CalculateYield(saved, rec.YieldUnitRef)
	if err := g.recipes.SetYield(ctx, tx, rec.ID, yield.Quantity); err != nil {
		return false, 0, err
	}

	return true, len(saved), nil
}
