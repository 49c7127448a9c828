package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/larder/larder/internal/models"
	"github.com/larder/larder/internal/util"
)

// IngredientRepository handles the ingredient library.
type IngredientRepository struct {
	db *sql.DB
}

// NewIngredientRepository creates a new ingredient repository.
func NewIngredientRepository(db *sql.DB) *IngredientRepository {
	return &IngredientRepository{db: db}
}

const ingredientColumns = `id, name, supplier, unit_cost, pack_cost, pack_size,
	yield_percent, base_unit, created_at, updated_at`

// Create inserts an ingredient. An empty ID is assigned.
func (r *IngredientRepository) Create(ctx context.Context, tx *sql.Tx, ing *models.Ingredient) error {
	if ing.ID == "" {
		ing.ID = util.NewID()
	}
	now := time.Now().UTC()
	ing.CreatedAt = now
	ing.UpdatedAt = now

	_, err := getExecer(r.db, tx).ExecContext(ctx, `
		INSERT INTO ingredients (`+ingredientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ing.ID,
		ing.Name,
		nullableString(ing.Supplier),
		ing.UnitCost,
		ing.PackCost,
		ing.PackSize,
		nullableFloat(ing.YieldPercent),
		nullableString(ing.BaseUnit),
		formatTime(ing.CreatedAt),
		formatTime(ing.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting ingredient %s: %w", ing.Name, err)
	}
	return nil
}

// Update writes every mutable field of an ingredient.
func (r *IngredientRepository) Update(ctx context.Context, tx *sql.Tx, ing *models.Ingredient) error {
	ing.UpdatedAt = time.Now().UTC()

	res, err := getExecer(r.db, tx).ExecContext(ctx, `
		UPDATE ingredients SET
			name = ?, supplier = ?, unit_cost = ?, pack_cost = ?, pack_size = ?,
			yield_percent = ?, base_unit = ?, updated_at = ?
		WHERE id = ?`,
		ing.Name,
		nullableString(ing.Supplier),
		ing.UnitCost,
		ing.PackCost,
		ing.PackSize,
		nullableFloat(ing.YieldPercent),
		nullableString(ing.BaseUnit),
		formatTime(ing.UpdatedAt),
		ing.ID,
	)
	if err != nil {
		return fmt.Errorf("updating ingredient %s: %w", ing.ID, err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("updating ingredient %s: %w", ing.ID, err)
	}
	return nil
}

// UpsertByName inserts an ingredient or updates the one with the same name.
// The stored ID is written back to ing.
func (r *IngredientRepository) UpsertByName(ctx context.Context, tx *sql.Tx, ing *models.Ingredient) error {
	if ing.ID == "" {
		ing.ID = util.NewID()
	}
	now := time.Now().UTC()
	ing.CreatedAt = now
	ing.UpdatedAt = now

	err := getQuerier(r.db, tx).QueryRowContext(ctx, `
		INSERT INTO ingredients (`+ingredientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			supplier = excluded.supplier,
			unit_cost = excluded.unit_cost,
			pack_cost = excluded.pack_cost,
			pack_size = excluded.pack_size,
			yield_percent = excluded.yield_percent,
			base_unit = excluded.base_unit,
			updated_at = excluded.updated_at
		RETURNING id`,
		ing.ID,
		ing.Name,
		nullableString(ing.Supplier),
		ing.UnitCost,
		ing.PackCost,
		ing.PackSize,
		nullableFloat(ing.YieldPercent),
		nullableString(ing.BaseUnit),
		formatTime(ing.CreatedAt),
		formatTime(ing.UpdatedAt),
	).Scan(&ing.ID)
	if err != nil {
		return fmt.Errorf("upserting ingredient %s: %w", ing.Name, err)
	}
	return nil
}

// GetByID retrieves an ingredient by ID, always reading the current row.
func (r *IngredientRepository) GetByID(ctx context.Context, id string) (*models.Ingredient, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ingredientColumns+` FROM ingredients WHERE id = ?`, id)
	ing, err := scanIngredient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ingredient %s: %w", id, ErrNotFound)
	}
	return ing, err
}

// GetByName retrieves an ingredient by name, ignoring case.
func (r *IngredientRepository) GetByName(ctx context.Context, name string) (*models.Ingredient, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ingredientColumns+` FROM ingredients WHERE name = ? COLLATE NOCASE`, name)
	ing, err := scanIngredient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ingredient %q: %w", name, ErrNotFound)
	}
	return ing, err
}

// GetMany retrieves the ingredients with the given ids, keyed by id.
// Unknown ids are absent from the result.
func (r *IngredientRepository) GetMany(ctx context.Context, ids []string) (map[string]*models.Ingredient, error) {
	out := make(map[string]*models.Ingredient, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ingredientColumns+` FROM ingredients WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ingredients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		out[ing.ID] = ing
	}
	return out, rows.Err()
}

// List retrieves one page of ingredients ordered by name.
func (r *IngredientRepository) List(ctx context.Context, filter models.IngredientFilter, page models.Pagination) (*models.IngredientList, error) {
	var conditions []string
	var args []any

	if filter.NameContains != "" {
		conditions = append(conditions, "name LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(filter.NameContains)+"%")
	}
	if filter.Supplier != "" {
		conditions = append(conditions, "supplier = ?")
		args = append(args, filter.Supplier)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ingredients "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting ingredients: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM ingredients %s ORDER BY name LIMIT ? OFFSET ?`, ingredientColumns, where)
	rows, err := r.db.QueryContext(ctx, query, append(args, page.Limit(), page.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("querying ingredients: %w", err)
	}
	defer rows.Close()

	list := &models.IngredientList{Total: total, Page: page.Page, PageSize: page.Limit()}
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		list.Ingredients = append(list.Ingredients, ing)
	}
	return list, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanIngredient(s scanner) (*models.Ingredient, error) {
	var ing models.Ingredient
	var supplier, baseUnit sql.NullString
	var yield sql.NullFloat64
	var created, updated string

	err := s.Scan(
		&ing.ID, &ing.Name, &supplier, &ing.UnitCost, &ing.PackCost, &ing.PackSize,
		&yield, &baseUnit, &created, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning ingredient: %w", err)
	}

	ing.Supplier = supplier.String
	ing.BaseUnit = baseUnit.String
	ing.YieldPercent = floatPtr(yield)
	ing.CreatedAt = parseTime(created)
	ing.UpdatedAt = parseTime(updated)
	return &ing, nil
}
