package models

import "time"

// Ingredient is an entry of the ingredient library.
//
// UnitCost is authoritative when non-zero. Otherwise the cost per unit is
// derived from PackCost / PackSize. YieldPercent is the usable share of the
// purchased quantity after trimming and wastage; nil means 100.
type Ingredient struct {
	ID           string
	Name         string
	Supplier     string
	UnitCost     float64
	PackCost     float64
	PackSize     float64
	YieldPercent *float64
	BaseUnit     string // unit PackSize and UnitCost are expressed in
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DefaultYieldPercent applies when an ingredient declares no yield.
const DefaultYieldPercent = 100.0

// EffectiveYield returns the yield percentage, defaulting to 100.
func (i *Ingredient) EffectiveYield() float64 {
	if i.YieldPercent == nil {
		return DefaultYieldPercent
	}
	return *i.YieldPercent
}

// HasCostData reports whether a unit cost can be resolved for the ingredient.
func (i *Ingredient) HasCostData() bool {
	return i.UnitCost > 0 || (i.PackCost > 0 && i.PackSize > 0)
}
