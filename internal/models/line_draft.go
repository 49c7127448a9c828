package models

// LineDraft classifies a line by how complete its data is. Exactly one of
// EmptyLine, PartialLine and CompleteLine is returned by Classify, so save
// eligibility is decided by a type switch instead of field checks.
type LineDraft interface {
	LineID() string
	isLineDraft()
}

// EmptyLine has no ingredient selected yet.
type EmptyLine struct {
	ID string
}

// PartialLine has an ingredient but lacks a positive quantity or a unit.
type PartialLine struct {
	ID             string
	IngredientID   string
	MissingQty     bool
	MissingUnitRef bool
}

// CompleteLine has everything needed to be persisted.
type CompleteLine struct {
	ID           string
	IngredientID string
	Quantity     float64
	UnitRef      string
}

func (l EmptyLine) LineID() string    { return l.ID }
func (l PartialLine) LineID() string  { return l.ID }
func (l CompleteLine) LineID() string { return l.ID }

func (EmptyLine) isLineDraft()    {}
func (PartialLine) isLineDraft()  {}
func (CompleteLine) isLineDraft() {}

// Classify returns the draft state of a line.
func Classify(l RecipeIngredientLine) LineDraft {
	if l.IngredientID == "" {
		return EmptyLine{ID: l.ID}
	}
	if l.Quantity <= 0 || l.UnitRef == "" {
		return PartialLine{
			ID:             l.ID,
			IngredientID:   l.IngredientID,
			MissingQty:     l.Quantity <= 0,
			MissingUnitRef: l.UnitRef == "",
		}
	}
	return CompleteLine{
		ID:           l.ID,
		IngredientID: l.IngredientID,
		Quantity:     l.Quantity,
		UnitRef:      l.UnitRef,
	}
}

// IsComplete reports whether the line is eligible for persistence.
func IsComplete(l RecipeIngredientLine) bool {
	_, ok := Classify(l).(CompleteLine)
	return ok
}
