// Package units resolves units of measure and converts quantities between them.
//
// Everything here is pure: a Catalog is an immutable snapshot of the unit
// reference data and conversions never perform I/O or log. Problems that
// should not stop costing are returned as a Warning for the caller to log.
package units

import (
	"strings"

	"github.com/larder/larder/internal/models"
)

// Catalog is a read-only index of units by id, abbreviation and name.
type Catalog struct {
	units  []models.Unit
	byID   map[string]int
	byAbbr map[string]int
	byName map[string]int
}

// NewCatalog builds a catalog from unit records. Later records do not
// override earlier ones that share an abbreviation or name.
func NewCatalog(units []models.Unit) *Catalog {
	c := &Catalog{
		units:  make([]models.Unit, len(units)),
		byID:   make(map[string]int, len(units)),
		byAbbr: make(map[string]int, len(units)),
		byName: make(map[string]int, len(units)),
	}
	copy(c.units, units)

	for i, u := range c.units {
		if u.ID != "" {
			if _, ok := c.byID[u.ID]; !ok {
				c.byID[u.ID] = i
			}
		}
		if key := normalize(u.Abbreviation); key != "" {
			if _, ok := c.byAbbr[key]; !ok {
				c.byAbbr[key] = i
			}
		}
		if key := normalize(u.Name); key != "" {
			if _, ok := c.byName[key]; !ok {
				c.byName[key] = i
			}
		}
	}

	return c
}

// Resolve finds a unit given its id, abbreviation or display name.
// Abbreviations and names match case-insensitively.
func (c *Catalog) Resolve(ref string) (models.Unit, bool) {
	if c == nil || ref == "" {
		return models.Unit{}, false
	}
	if i, ok := c.byID[ref]; ok {
		return c.units[i], true
	}
	key := normalize(ref)
	if i, ok := c.byAbbr[key]; ok {
		return c.units[i], true
	}
	if i, ok := c.byName[key]; ok {
		return c.units[i], true
	}
	return models.Unit{}, false
}

// Units returns a copy of every unit in catalog order.
func (c *Catalog) Units() []models.Unit {
	if c == nil {
		return nil
	}
	out := make([]models.Unit, len(c.units))
	copy(out, c.units)
	return out
}

// Len returns the number of units.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.units)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
