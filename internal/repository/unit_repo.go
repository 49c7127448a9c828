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

// UnitRepository handles the unit catalog.
type UnitRepository struct {
	db *sql.DB
}

// NewUnitRepository creates a new unit repository.
func NewUnitRepository(db *sql.DB) *UnitRepository {
	return &UnitRepository{db: db}
}

const unitColumns = `id, name, abbreviation, unit_type, base_multiplier, created_at`

// Create inserts a unit. An empty ID is assigned.
func (r *UnitRepository) Create(ctx context.Context, tx *sql.Tx, u *models.Unit) error {
	if u.ID == "" {
		u.ID = util.NewID()
	}
	u.CreatedAt = time.Now().UTC()

	_, err := getExecer(r.db, tx).ExecContext(ctx, `
		INSERT INTO units (`+unitColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Abbreviation, string(u.UnitType), u.BaseMultiplier, formatTime(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting unit %s: %w", u.Abbreviation, err)
	}
	return nil
}

// Upsert inserts a unit or refreshes the one with the same abbreviation.
// The stored ID is written back to u.
func (r *UnitRepository) Upsert(ctx context.Context, tx *sql.Tx, u *models.Unit) error {
	if u.ID == "" {
		u.ID = util.NewID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	q := getQuerier(r.db, tx)
	err := q.QueryRowContext(ctx, `
		INSERT INTO units (`+unitColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (abbreviation) DO UPDATE SET
			name = excluded.name,
			unit_type = excluded.unit_type,
			base_multiplier = excluded.base_multiplier
		RETURNING id`,
		u.ID, u.Name, u.Abbreviation, string(u.UnitType), u.BaseMultiplier, formatTime(u.CreatedAt),
	).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("upserting unit %s: %w", u.Abbreviation, err)
	}
	return nil
}

// GetByID retrieves a unit by ID.
func (r *UnitRepository) GetByID(ctx context.Context, id string) (*models.Unit, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+unitColumns+` FROM units WHERE id = ?`, id)
	u, err := scanUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("unit %s: %w", id, ErrNotFound)
	}
	return u, err
}

// List returns the whole catalog ordered by type and size.
func (r *UnitRepository) List(ctx context.Context) ([]models.Unit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+unitColumns+` FROM units
		ORDER BY unit_type, base_multiplier, abbreviation`)
	if err != nil {
		return nil, fmt.Errorf("querying units: %w", err)
	}
	defer rows.Close()

	var out []models.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func scanUnit(s scanner) (*models.Unit, error) {
	var u models.Unit
	var unitType, created string
	if err := s.Scan(&u.ID, &u.Name, &u.Abbreviation, &unitType, &u.BaseMultiplier, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning unit: %w", err)
	}
	u.UnitType = models.UnitType(unitType)
	u.CreatedAt = parseTime(created)
	return &u, nil
}
