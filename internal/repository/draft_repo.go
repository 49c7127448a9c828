package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DraftRepository stores encoded unsaved working copies, one per recipe.
type DraftRepository struct {
	db *sql.DB
}

// NewDraftRepository creates a new draft repository.
func NewDraftRepository(db *sql.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

// Save stores payload as the draft of recipeID, replacing any earlier one.
func (r *DraftRepository) Save(ctx context.Context, recipeID string, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recipe_drafts (recipe_id, payload, saved_at) VALUES (?, ?, ?)
		ON CONFLICT (recipe_id) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`,
		recipeID, payload, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("saving draft of recipe %s: %w", recipeID, err)
	}
	return nil
}

// Get returns the stored draft of recipeID and when it was saved.
func (r *DraftRepository) Get(ctx context.Context, recipeID string) ([]byte, time.Time, error) {
	var payload []byte
	var savedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload, saved_at FROM recipe_drafts WHERE recipe_id = ?`, recipeID,
	).Scan(&payload, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, fmt.Errorf("draft of recipe %s: %w", recipeID, ErrNotFound)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading draft of recipe %s: %w", recipeID, err)
	}
	return payload, parseTime(savedAt), nil
}

// Delete removes the draft of recipeID. A missing draft is not an error.
func (r *DraftRepository) Delete(ctx context.Context, recipeID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM recipe_drafts WHERE recipe_id = ?`, recipeID); err != nil {
		return fmt.Errorf("deleting draft of recipe %s: %w", recipeID, err)
	}
	return nil
}
