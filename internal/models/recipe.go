package models

import "time"

// Recipe is the costed dish or batch. YieldQty is derived from the
// ingredient lines and recomputed; it is not edited directly while
// lines exist.
type Recipe struct {
	ID           string
	Name         string
	YieldQty     float64
	YieldUnitRef string // empty means no declared yield unit
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RecipeIngredientLine is one row of a recipe's ingredient table.
//
// ID is either a persisted id or a provisional one (see util.IsProvisional).
// IngredientID is empty until an ingredient is selected. LineCost is derived
// and nil until computed.
type RecipeIngredientLine struct {
	ID             string   `msgpack:"id"`
	RecipeID       string   `msgpack:"recipe_id"`
	IngredientID   string   `msgpack:"ingredient_id,omitempty"`
	IngredientName string   `msgpack:"ingredient_name,omitempty"`
	Quantity       float64  `msgpack:"quantity"`
	UnitRef        string   `msgpack:"unit_ref,omitempty"`
	LineCost       *float64 `msgpack:"line_cost,omitempty"`
	SortOrder      int      `msgpack:"sort_order"`

	CreatedAt time.Time `msgpack:"-"`
	UpdatedAt time.Time `msgpack:"-"`
}

// Clone returns a copy that does not share the LineCost pointer.
func (l RecipeIngredientLine) Clone() RecipeIngredientLine {
	if l.LineCost != nil {
		cost := *l.LineCost
		l.LineCost = &cost
	}
	return l
}
