package editor

import (
	"github.com/larder/larder/internal/models"
	"github.com/larder/larder/internal/reconcile"
	"github.com/larder/larder/internal/tracker"
)

// AddLineMsg appends an empty line to the working copy.
type AddLineMsg struct{}

// SetIngredientMsg selects the ingredient of a line.
type SetIngredientMsg struct {
	LineID       string
	IngredientID string
}

// SetQuantityMsg changes the quantity of a line. The line cost is
// recomputed once quantity edits of that line pause for the debounce window.
type SetQuantityMsg struct {
	LineID   string
	Quantity float64
}

// SetUnitMsg changes the unit of a line.
type SetUnitMsg struct {
	LineID  string
	UnitRef string
}

// DeleteLineMsg removes a line. A stored line is deleted on the next save.
type DeleteLineMsg struct {
	LineID string
}

// DiscardLineMsg drops the pending change of a line.
type DiscardLineMsg struct {
	LineID string
}

// SaveAllMsg saves every pending change.
type SaveAllMsg struct{}

// SaveLineMsg edits one line and saves it at once. The edit is shown
// immediately and rolled back if the save fails.
type SaveLineMsg struct {
	LineID       string
	IngredientID string
	Quantity     float64
	UnitRef      string
}

// ReloadMsg reloads the stored lines, replacing any reload in flight.
type ReloadMsg struct{}

// IngredientChangedMsg reports that an ingredient was changed elsewhere.
type IngredientChangedMsg struct {
	IngredientID string
}

// QuitMsg stores the draft and exits.
type QuitMsg struct{}

type recomputeMsg struct {
	lineID string
	seq    int
}

type ingredientLoadedMsg struct {
	id  string
	ing *models.Ingredient
	err error
}

type ingredientFoundMsg struct {
	lineID string
	ref    string
	ing    *models.Ingredient
	save   bool
	err    error
}

type unitCostFailedMsg struct {
	id  string
	err error
}

type reloadedMsg struct {
	gen         int
	lines       []models.RecipeIngredientLine
	ingredients map[string]*models.Ingredient
	err         error
}

type savedMsg struct {
	outcomes []reconcile.Outcome
}

type lineSavedMsg struct {
	snapshot tracker.Snapshot
	outcomes []reconcile.Outcome
}

type yieldStoredMsg struct {
	qty float64
	err error
}

type draftStoredMsg struct {
	stored bool
	err    error
}
