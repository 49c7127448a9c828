// Package models defines the data types shared by the costing engine,
// the change tracker and the persistence layer.
package models

import "time"

// UnitType is the physical dimension a unit measures.
type UnitType string

const (
	UnitTypeMass   UnitType = "mass"
	UnitTypeVolume UnitType = "volume"
	UnitTypeCount  UnitType = "count"
)

func (t UnitType) String() string {
	return string(t)
}

// Unit is a unit of measure from the reference catalog.
// Units sharing a UnitType are mutually convertible through BaseMultiplier,
// which expresses one of this unit in the canonical base unit of its dimension.
type Unit struct {
	ID             string
	Name           string // "kilogram"
	Abbreviation   string // "kg"
	UnitType       UnitType
	BaseMultiplier float64
	CreatedAt      time.Time
}

// Convertible reports whether quantities in u can be expressed in other.
func (u *Unit) Convertible(other *Unit) bool {
	if u == nil || other == nil {
		return false
	}
	return u.UnitType == other.UnitType && u.BaseMultiplier > 0 && other.BaseMultiplier > 0
}
