// Package tracker holds the working copy of a recipe's ingredient table and
// the set of changes waiting to be saved.
//
// A Tracker is not safe for concurrent use. It is meant to be owned by a
// single goroutine (the editor's event loop); I/O happens elsewhere and
// results are applied back through the owner.
package tracker

import (
	"errors"
	"fmt"
	"sort"

	"github.com/larder/larder/internal/models"
	"github.com/larder/larder/internal/util"
)

// ErrLineNotFound is returned when a line id is not in the working set.
var ErrLineNotFound = errors.New("line not found")

// Tracker is the working copy plus pending changes for one recipe.
type Tracker struct {
	recipeID string
	lines    []models.RecipeIngredientLine
	pending  models.PendingChangeSet
	nextSort int

	// stored holds the last known stored version of each persisted line.
	stored map[string]models.RecipeIngredientLine
}

// New creates a tracker over persisted lines. All lines start clean.
func New(recipeID string, persisted []models.RecipeIngredientLine) *Tracker {
	t := &Tracker{
		recipeID: recipeID,
		pending:  make(models.PendingChangeSet),
	}
	t.setLines(persisted)
	t.setStored(persisted)
	return t
}

func (t *Tracker) setStored(persisted []models.RecipeIngredientLine) {
	t.stored = make(map[string]models.RecipeIngredientLine, len(persisted))
	for _, l := range persisted {
		if !util.IsProvisional(l.ID) {
			t.stored[l.ID] = l.Clone()
		}
	}
}


func (t *Tracker) setLines(lines []models.RecipeIngredientLine) {
	t.lines = make([]models.RecipeIngredientLine, 0, len(lines))
	t.nextSort = 0
	for _, l := range lines {
		t.lines = append(t.lines, l.Clone())
		if l.SortOrder >= t.nextSort {
			t.nextSort = l.SortOrder + 1
		}
	}
	sort.SliceStable(t.lines, func(i, j int) bool {
		return t.lines[i].SortOrder < t.lines[j].SortOrder
	})
}

// RecipeID returns the recipe this working copy belongs to.
func (t *Tracker) RecipeID() string {
	return t.recipeID
}

// AddLine appends an empty provisional row. It is not pending until it is
// edited or holds complete data.
func (t *Tracker) AddLine() models.RecipeIngredientLine {
	line := models.RecipeIngredientLine{
		ID:        util.NewProvisionalID(),
		RecipeID:  t.recipeID,
		SortOrder: t.nextSort,
	}
	t.nextSort++
	t.lines = append(t.lines, line)
	return line.Clone()
}

// Line returns a copy of the line with the given id.
func (t *Tracker) Line(id string) (models.RecipeIngredientLine, bool) {
	i := t.indexOf(id)
	if i < 0 {
		return models.RecipeIngredientLine{}, false
	}
	return t.lines[i].Clone(), true
}

// Lines returns a copy of the working set in display order.
func (t *Tracker) Lines() []models.RecipeIngredientLine {
	out := make([]models.RecipeIngredientLine, len(t.lines))
	for i, l := range t.lines {
		out[i] = l.Clone()
	}
	return out
}

// Pending returns a copy of the pending change set.
func (t *Tracker) Pending() models.PendingChangeSet {
	return t.pending.Clone()
}

// PendingKind returns the pending change recorded for id, if any.
func (t *Tracker) PendingKind(id string) (models.ChangeKind, bool) {
	k, ok := t.pending[id]
	return k, ok
}

// Edit applies fn to the line and marks it modified. The id cannot be changed.
func (t *Tracker) Edit(id string, fn func(*models.RecipeIngredientLine)) error {
	i := t.indexOf(id)
	if i < 0 {
		return fmt.Errorf("editing %s: %w", id, ErrLineNotFound)
	}
	fn(&t.lines[i])
	t.lines[i].ID = id
	t.lines[i].RecipeID = t.recipeID
	return t.MarkModified(id)
}

// SetLineCost stores a derived cost for display without recording a change.
func (t *Tracker) SetLineCost(id string, cost float64) bool {
	i := t.indexOf(id)
	if i < 0 {
		return false
	}
	t.lines[i].LineCost = &cost
	return true
}

// MarkModified records an edit. Provisional ids are recorded as new and
// persisted ids as modified; an existing entry is never downgraded.
func (t *Tracker) MarkModified(id string) error {
	if t.indexOf(id) < 0 {
		return fmt.Errorf("marking %s modified: %w", id, ErrLineNotFound)
	}
	if util.IsProvisional(id) {
		t.pending[id] = models.ChangeNew
		return nil
	}
	if _, ok := t.pending[id]; !ok {
		t.pending[id] = models.ChangeModified
	}
	return nil
}

// MarkDeleted removes the line from the working set immediately. A
// provisional line is forgotten; a persisted line is recorded as deleted so
// the next save removes it from the store.
func (t *Tracker) MarkDeleted(id string) error {
	i := t.indexOf(id)
	if i < 0 {
		return fmt.Errorf("deleting %s: %w", id, ErrLineNotFound)
	}
	t.removeAt(i)
	if util.IsProvisional(id) {
		delete(t.pending, id)
		return nil
	}
	t.pending[id] = models.ChangeDeleted
	return nil
}

// Discard drops any pending change for id. A provisional line is removed
// from the working set as well. A persisted line goes back to its stored
// version, which also brings back a line pending deletion.
func (t *Tracker) Discard(id string) {
	delete(t.pending, id)
	i := t.indexOf(id)
	if util.IsProvisional(id) {
		if i >= 0 {
			t.removeAt(i)
		}
		return
	}

	stored, ok := t.stored[id]
	if !ok {
		return
	}
	if i >= 0 {
		stored.SortOrder = t.lines[i].SortOrder
		t.lines[i] = stored.Clone()
		return
	}
	t.insertSorted(stored.Clone())
}

// HasUnsavedChanges reports whether anything would be saved: a pending
// entry exists, or a provisional line holds complete data without having
// been explicitly marked.
func (t *Tracker) HasUnsavedChanges() bool {
	if len(t.pending) > 0 {
		return true
	}
	for _, l := range t.lines {
		if util.IsProvisional(l.ID) && models.IsComplete(l) {
			return true
		}
	}
	return false
}

// ConfirmSaved replaces the line that was saved under oldID with the stored
// version and clears its pending entry. For an insert oldID is the
// provisional id and saved carries the persisted id. When the line has been
// edited again since the save started (editedSince), its local edits are kept
// and the line stays pending under the new id.
func (t *Tracker) ConfirmSaved(oldID string, saved models.RecipeIngredientLine, editedSince bool) {
	i := t.indexOf(oldID)
	if saved.ID != "" {
		t.stored[saved.ID] = saved.Clone()
	}
	if i < 0 {
		// Deleted locally while the save was in flight.
		if util.IsProvisional(oldID) && saved.ID != "" {
			t.pending[saved.ID] = models.ChangeDeleted
		}
		return
	}
	if saved.ID != oldID {
		// A reload during the save may already have brought in the stored row.
		if j := t.indexOf(saved.ID); j >= 0 {
			t.removeAt(j)
			if j < i {
				i--
			}
		}
	}
	delete(t.pending, oldID)

	if editedSince {
		t.lines[i].ID = saved.ID
		t.pending[saved.ID] = models.ChangeModified
		return
	}
	saved.SortOrder = t.lines[i].SortOrder
	t.lines[i] = saved.Clone()
}

// ConfirmDeleted clears the pending delete for id after the store removed it.
func (t *Tracker) ConfirmDeleted(id string) {
	if t.pending[id] == models.ChangeDeleted {
		delete(t.pending, id)
	}
	delete(t.stored, id)
}

// Reload replaces clean persisted lines with fresh ones from the store.
// Lines with pending changes and provisional lines keep their local state,
// and lines pending deletion stay out of the working set.
func (t *Tracker) Reload(persisted []models.RecipeIngredientLine) {
	keep := make(map[string]models.RecipeIngredientLine)
	var provisional []models.RecipeIngredientLine
	for _, l := range t.lines {
		switch {
		case util.IsProvisional(l.ID):
			provisional = append(provisional, l)
		case t.pending[l.ID] == models.ChangeModified:
			keep[l.ID] = l
		}
	}

	merged := make([]models.RecipeIngredientLine, 0, len(persisted)+len(provisional))
	seen := make(map[string]bool, len(persisted))
	for _, l := range persisted {
		seen[l.ID] = true
		if t.pending[l.ID] == models.ChangeDeleted {
			continue
		}
		if local, ok := keep[l.ID]; ok {
			merged = append(merged, local)
			continue
		}
		merged = append(merged, l)
	}

	// Lines removed from the store elsewhere can be neither updated nor deleted.
	for id := range t.pending {
		if !util.IsProvisional(id) && !seen[id] {
			delete(t.pending, id)
		}
	}

	t.setLines(merged)
	t.setStored(persisted)
	for _, l := range provisional {
		l.SortOrder = t.nextSort
		t.nextSort++
		t.lines = append(t.lines, l)
	}
}

func (t *Tracker) indexOf(id string) int {
	for i := range t.lines {
		if t.lines[i].ID == id {
			return i
		}
	}
	return -1
}

// insertSorted puts l back at the position its sort order gives it.
func (t *Tracker) insertSorted(l models.RecipeIngredientLine) {
	idx := sort.Search(len(t.lines), func(i int) bool {
		return t.lines[i].SortOrder > l.SortOrder
	})
	t.lines = append(t.lines, models.RecipeIngredientLine{})
	copy(t.lines[idx+1:], t.lines[idx:])
	t.lines[idx] = l
	if l.SortOrder >= t.nextSort {
		t.nextSort = l.SortOrder + 1
	}
}

func (t *Tracker) removeAt(i int) {
	t.lines = append(t.lines[:i], t.lines[i+1:]...)
}
