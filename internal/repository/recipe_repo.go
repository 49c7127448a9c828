package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/larder/larder/internal/models"
	"github.com/larder/larder/internal/util"
)

// RecipeRepository handles recipes and their ingredient lines.
type RecipeRepository struct {
	db *sql.DB
}

// NewRecipeRepository creates a new recipe repository.
func NewRecipeRepository(db *sql.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// ===== RECIPES =====

const recipeColumns = `id, name, yield_qty, yield_unit_ref, created_at, updated_at`

// Create inserts a recipe. An empty ID is assigned.
func (r *RecipeRepository) Create(ctx context.Context, tx *sql.Tx, rec *models.Recipe) error {
	if rec.ID == "" {
		rec.ID = util.NewID()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := getExecer(r.db, tx).ExecContext(ctx, `
		INSERT INTO recipes (`+recipeColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.YieldQty, nullableString(rec.YieldUnitRef),
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting recipe %s: %w", rec.Name, err)
	}
	return nil
}

// GetByID retrieves a recipe by ID.
func (r *RecipeRepository) GetByID(ctx context.Context, id string) (*models.Recipe, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE id = ?`, id)
	rec, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recipe %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// FindByName returns the first recipe with the given name, in tx when set.
func (r *RecipeRepository) FindByName(ctx context.Context, tx *sql.Tx, name string) (*models.Recipe, error) {
	row := getQuerier(r.db, tx).QueryRowContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE name = ? ORDER BY created_at LIMIT 1`, name)
	rec, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recipe %q: %w", name, ErrNotFound)
	}
	return rec, err
}

// List returns all recipes ordered by name.
func (r *RecipeRepository) List(ctx context.Context) ([]*models.Recipe, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recipeColumns+` FROM recipes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying recipes: %w", err)
	}
	defer rows.Close()

	var out []*models.Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SetYield stores a recomputed yield quantity.
func (r *RecipeRepository) SetYield(ctx context.Context, tx *sql.Tx, id string, qty float64) error {
	res, err := getExecer(r.db, tx).ExecContext(ctx,
		`UPDATE recipes SET yield_qty = ?, updated_at = ? WHERE id = ?`,
		qty, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("setting yield of recipe %s: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("setting yield of recipe %s: %w", id, err)
	}
	return nil
}

func scanRecipe(s scanner) (*models.Recipe, error) {
	var rec models.Recipe
	var unit sql.NullString
	var created, updated string
	if err := s.Scan(&rec.ID, &rec.Name, &rec.YieldQty, &unit, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning recipe: %w", err)
	}
	rec.YieldUnitRef = unit.String
	rec.CreatedAt = parseTime(created)
	rec.UpdatedAt = parseTime(updated)
	return &rec, nil
}

// ===== INGREDIENT LINES =====

const lineSelect = `
	SELECT l.id, l.recipe_id, l.ingredient_id, COALESCE(i.name, ''), l.quantity, l.unit_ref,
		l.line_cost, l.sort_order, l.created_at, l.updated_at
	FROM recipe_ingredients l
	LEFT JOIN ingredients i ON i.id = l.ingredient_id`

// ListLines returns a recipe's lines in display order.
func (r *RecipeRepository) ListLines(ctx context.Context, recipeID string) ([]models.RecipeIngredientLine, error) {
	rows, err := r.db.QueryContext(ctx, lineSelect+`
		WHERE l.recipe_id = ?
		ORDER BY l.sort_order, l.created_at`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("querying lines of recipe %s: %w", recipeID, err)
	}
	defer rows.Close()

	var out []models.RecipeIngredientLine
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// GetLine retrieves one line by ID.
func (r *RecipeRepository) GetLine(ctx context.Context, id string) (*models.RecipeIngredientLine, error) {
	l, err := scanLine(r.db.QueryRowContext(ctx, lineSelect+` WHERE l.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("line %s: %w", id, ErrNotFound)
	}
	return l, err
}

// InsertLine stores a new line under a fresh persisted ID, which is written
// back to l along with the timestamps. Provisional IDs are never stored.
func (r *RecipeRepository) InsertLine(ctx context.Context, tx *sql.Tx, l *models.RecipeIngredientLine) error {
	l.ID = util.NewID()
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	_, err := getExecer(r.db, tx).ExecContext(ctx, `
		INSERT INTO recipe_ingredients (
			id, recipe_id, ingredient_id, quantity, unit_ref,
			line_cost, sort_order, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.RecipeID, l.IngredientID, l.Quantity, l.UnitRef,
		nullableFloat(l.LineCost), l.SortOrder, formatTime(l.CreatedAt), formatTime(l.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting line: %w", err)
	}
	return nil
}

// UpdateLine writes a line's ingredient, quantity, unit, cost and position.
func (r *RecipeRepository) UpdateLine(ctx context.Context, tx *sql.Tx, l *models.RecipeIngredientLine) error {
	if util.IsProvisional(l.ID) {
		return fmt.Errorf("updating line %s: %w", l.ID, ErrNotFound)
	}
	l.UpdatedAt = time.Now().UTC()

	res, err := getExecer(r.db, tx).ExecContext(ctx, `
		UPDATE recipe_ingredients SET
			ingredient_id = ?, quantity = ?, unit_ref = ?, line_cost = ?,
			sort_order = ?, updated_at = ?
		WHERE id = ? AND recipe_id = ?`,
		l.IngredientID, l.Quantity, l.UnitRef, nullableFloat(l.LineCost),
		l.SortOrder, formatTime(l.UpdatedAt), l.ID, l.RecipeID,
	)
	if err != nil {
		return fmt.Errorf("updating line %s: %w", l.ID, err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("updating line %s: %w", l.ID, err)
	}
	return nil
}

// DeleteLine removes a line. Deleting a missing line returns ErrNotFound.
func (r *RecipeRepository) DeleteLine(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := getExecer(r.db, tx).ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting line %s: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("deleting line %s: %w", id, err)
	}
	return nil
}

func scanLine(s scanner) (*models.RecipeIngredientLine, error) {
	var l models.RecipeIngredientLine
	var cost sql.NullFloat64
	var created, updated string

	err := s.Scan(
		&l.ID, &l.RecipeID, &l.IngredientID, &l.IngredientName, &l.Quantity, &l.UnitRef,
		&cost, &l.SortOrder, &created, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning line: %w", err)
	}
	l.LineCost = floatPtr(cost)
	l.CreatedAt = parseTime(created)
	l.UpdatedAt = parseTime(updated)
	return &l, nil
}
