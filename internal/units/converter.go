package units

import (
	"fmt"

	"github.com/larder/larder/internal/models"
)

// WarningKind classifies a conversion that could not be carried out.
type WarningKind int

const (
	WarnNone WarningKind = iota
	// WarnUnresolved means a unit was not found in the catalog or the fallback table.
	WarnUnresolved
	// WarnIncompatible means the units measure different dimensions.
	WarnIncompatible
)

func (k WarningKind) String() string {
	switch k {
	case WarnNone:
		return "none"
	case WarnUnresolved:
		return "unresolved"
	case WarnIncompatible:
		return "incompatible"
	default:
		return "unknown"
	}
}

// Warning describes why a quantity was returned unconverted.
// The zero value means the conversion succeeded.
type Warning struct {
	Kind     WarningKind
	From, To string
}

// OK reports whether there is nothing to warn about.
func (w Warning) OK() bool {
	return w.Kind == WarnNone
}

func (w Warning) String() string {
	switch w.Kind {
	case WarnNone:
		return ""
	case WarnIncompatible:
		return fmt.Sprintf("cannot convert %s to %s: incompatible unit types", w.From, w.To)
	default:
		return fmt.Sprintf("cannot convert %s to %s: unknown unit", w.From, w.To)
	}
}

// fallbackUnits covers common abbreviations when the catalog lacks them.
// Mass is based on grams and volume on millilitres.
var fallbackUnits = map[string]models.Unit{
	"mg": {Abbreviation: "mg", UnitType: models.UnitTypeMass, BaseMultiplier: 0.001},
	"g":  {Abbreviation: "g", UnitType: models.UnitTypeMass, BaseMultiplier: 1},
	"kg": {Abbreviation: "kg", UnitType: models.UnitTypeMass, BaseMultiplier: 1000},
	"ml": {Abbreviation: "ml", UnitType: models.UnitTypeVolume, BaseMultiplier: 1},
	"l":  {Abbreviation: "L", UnitType: models.UnitTypeVolume, BaseMultiplier: 1000},
}

// Converter converts quantities using a catalog snapshot.
type Converter struct {
	catalog *Catalog
}

// NewConverter creates a converter over catalog. A nil catalog leaves only
// the fallback table.
func NewConverter(catalog *Catalog) *Converter {
	return &Converter{catalog: catalog}
}

// Catalog returns the catalog the converter resolves against.
func (c *Converter) Catalog() *Catalog {
	return c.catalog
}

// Convert expresses quantity, given in unit from, in unit to. Unit refs may
// be catalog ids, abbreviations or names.
//
// The quantity comes back unchanged when both refs name the same unit, when
// either unit is unknown (Warning WarnUnresolved) or when the units measure
// different dimensions (Warning WarnIncompatible). Convert never fails.
func (c *Converter) Convert(quantity float64, from, to string) (float64, Warning) {
	if from == to {
		return quantity, Warning{}
	}

	fromUnit, fromOK := c.catalog.Resolve(from)
	toUnit, toOK := c.catalog.Resolve(to)
	if fromOK && toOK && fromUnit.BaseMultiplier > 0 && toUnit.BaseMultiplier > 0 {
		return convertResolved(quantity, fromUnit, toUnit, from, to)
	}

	fromUnit, fromOK = fallback(from, fromUnit, fromOK)
	toUnit, toOK = fallback(to, toUnit, toOK)
	if !fromOK || !toOK {
		return quantity, Warning{Kind: WarnUnresolved, From: from, To: to}
	}
	return convertResolved(quantity, fromUnit, toUnit, from, to)
}

// Compatible reports whether from and to resolve to units of the same type.
func (c *Converter) Compatible(from, to string) bool {
	if from == to {
		return true
	}
	_, w := c.Convert(1, from, to)
	return w.OK()
}

func convertResolved(quantity float64, from, to models.Unit, fromRef, toRef string) (float64, Warning) {
	if from.UnitType != to.UnitType {
		return quantity, Warning{Kind: WarnIncompatible, From: fromRef, To: toRef}
	}
	if from.ID != "" && from.ID == to.ID {
		return quantity, Warning{}
	}
	return quantity * from.BaseMultiplier / to.BaseMultiplier, Warning{}
}

// fallback looks a unit up in the hard-coded table, by the raw ref first and
// then by the abbreviation of the catalog unit it resolved to, if any.
func fallback(ref string, resolved models.Unit, resolvedOK bool) (models.Unit, bool) {
	if u, ok := fallbackUnits[normalize(ref)]; ok {
		return u, true
	}
	if resolvedOK {
		if u, ok := fallbackUnits[normalize(resolved.Abbreviation)]; ok {
			return u, true
		}
	}
	return models.Unit{}, false
}
