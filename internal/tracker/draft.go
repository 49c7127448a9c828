package tracker

import (
	"fmt"
	"log/slog"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/larder/larder/internal/models"
	"github.com/larder/larder/internal/util"
)

// draftVersion is bumped when the encoded layout changes incompatibly.
const draftVersion = 1

type draft struct {
	Version  int                           `msgpack:"v"`
	RecipeID string                        `msgpack:"recipe_id"`
	Lines    []models.RecipeIngredientLine `msgpack:"lines"`
	Pending  map[string]models.ChangeKind  `msgpack:"pending"`
	Stored   []models.RecipeIngredientLine `msgpack:"stored,omitempty"`
}

// EncodeDraft serializes the working copy and pending set.
func (t *Tracker) EncodeDraft() ([]byte, error) {
	d := draft{
		Version:  draftVersion,
		RecipeID: t.recipeID,
		Lines:    t.Lines(),
		Pending:  t.pending.Clone(),
		Stored:   t.storedLines(),
	}
	b, err := msgpack.Marshal(&d)
	if err != nil {
		return nil, fmt.Errorf("encoding draft: %w", err)
	}
	return b, nil
}

// DecodeDraft rebuilds a tracker from EncodeDraft output. Pending entries
// that do not fit their line (a provisional id that is not new, a stored id
// marked new, or an edit of a line that is missing) are dropped and logged.
func DecodeDraft(data []byte) (*Tracker, error) {
	var d draft
	if err := msgpack.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding draft: %w", err)
	}
	if d.Version != draftVersion {
		return nil, fmt.Errorf("unsupported draft version %d", d.Version)
	}

	t := New(d.RecipeID, d.Lines)
	if d.Stored != nil {
		t.setStored(d.Stored)
	}
	for id, kind := range d.Pending {
		if !t.pendingFits(id, kind) {
			slog.Warn("dropping draft change that does not fit its line",
				"recipe", d.RecipeID, "line", id, "change", kind.String())
			continue
		}
		t.pending[id] = kind
	}
	return t, nil
}

func (t *Tracker) pendingFits(id string, kind models.ChangeKind) bool {
	present := t.indexOf(id) >= 0
	if util.IsProvisional(id) {
		return kind == models.ChangeNew && present
	}
	switch kind {
	case models.ChangeModified:
		return present
	case models.ChangeDeleted:
		return !present
	}
	return false
}

func (t *Tracker) storedLines() []models.RecipeIngredientLine {
	out := make([]models.RecipeIngredientLine, 0, len(t.stored))
	for _, l := range t.stored {
		out = append(out, l.Clone())
	}
	return out
}
