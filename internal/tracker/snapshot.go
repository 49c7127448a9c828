package tracker

import "github.com/larder/larder/internal/models"

// Snapshot is the state of one line before an optimistic edit.
type Snapshot struct {
	ID         string
	Line       models.RecipeIngredientLine
	Present    bool
	Index      int
	Kind       models.ChangeKind
	HadPending bool
}

// Snapshot captures the line and its pending entry so Restore can undo an
// optimistic edit exactly.
func (t *Tracker) Snapshot(id string) Snapshot {
	s := Snapshot{ID: id, Index: t.indexOf(id)}
	if s.Index >= 0 {
		s.Present = true
		s.Line = t.lines[s.Index].Clone()
	}
	s.Kind, s.HadPending = t.pending[id]
	return s
}

// Restore puts the line and its pending entry back as they were when the
// snapshot was taken.
func (t *Tracker) Restore(s Snapshot) {
	if i := t.indexOf(s.ID); i >= 0 {
		t.removeAt(i)
	}
	if s.Present {
		idx := s.Index
		if idx > len(t.lines) {
			idx = len(t.lines)
		}
		t.lines = append(t.lines, models.RecipeIngredientLine{})
		copy(t.lines[idx+1:], t.lines[idx:])
		t.lines[idx] = s.Line.Clone()
	}
	if s.HadPending {
		t.pending[s.ID] = s.Kind
	} else {
		delete(t.pending, s.ID)
	}
}
