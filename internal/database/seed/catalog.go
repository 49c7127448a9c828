// Package seed loads reference data (units, an ingredient library and
// sample recipes) into a larder database.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/larder/larder/internal/models"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the seed file layout.
type Catalog struct {
	Units       []UnitSpec       `yaml:"units"`
	Ingredients []IngredientSpec `yaml:"ingredients"`
	Recipes     []RecipeSpec     `yaml:"recipes"`
}

// UnitSpec describes one catalog unit.
type UnitSpec struct {
	Name           string  `yaml:"name"`
	Abbreviation   string  `yaml:"abbreviation"`
	Type           string  `yaml:"type"`
	BaseMultiplier float64 `yaml:"base_multiplier"`
}

// IngredientSpec describes one library ingredient.
type IngredientSpec struct {
	Name         string   `yaml:"name"`
	Supplier     string   `yaml:"supplier"`
	UnitCost     float64  `yaml:"unit_cost"`
	PackCost     float64  `yaml:"pack_cost"`
	PackSize     float64  `yaml:"pack_size"`
	YieldPercent *float64 `yaml:"yield_percent"`
	BaseUnit     string   `yaml:"base_unit"`
}

// RecipeSpec describes a sample recipe.
type RecipeSpec struct {
	Name      string     `yaml:"name"`
	YieldUnit string     `yaml:"yield_unit"`
	Lines     []LineSpec `yaml:"lines"`
}

// LineSpec is one ingredient line of a sample recipe, by ingredient name.
type LineSpec struct {
	Ingredient string  `yaml:"ingredient"`
	Quantity   float64 `yaml:"quantity"`
	Unit       string  `yaml:"unit"`
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Decode(strings.NewReader(string(defaultCatalog)))
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	cat, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// Decode parses and validates a YAML catalog. Unknown keys are rejected.
func Decode(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cat Catalog
	if err := dec.Decode(&cat); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing seed YAML: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Validate checks references between sections and value ranges.
func (c *Catalog) Validate() error {
	var errs []error

	units := make(map[string]bool, len(c.Units))
	for i, u := range c.Units {
		switch {
		case u.Abbreviation == "":
			errs = append(errs, fmt.Errorf("units[%d]: abbreviation is required", i))
		case units[u.Abbreviation]:
			errs = append(errs, fmt.Errorf("units[%d]: duplicate abbreviation %q", i, u.Abbreviation))
		}
		units[u.Abbreviation] = true

		switch models.UnitType(u.Type) {
		case models.UnitTypeMass, models.UnitTypeVolume, models.UnitTypeCount:
		default:
			errs = append(errs, fmt.Errorf("units[%d]: invalid type %q", i, u.Type))
		}
		if u.BaseMultiplier <= 0 {
			errs = append(errs, fmt.Errorf("units[%d]: base_multiplier must be positive", i))
		}
	}

	ingredients := make(map[string]bool, len(c.Ingredients))
	for i, ing := range c.Ingredients {
		if ing.Name == "" {
			errs = append(errs, fmt.Errorf("ingredients[%d]: name is required", i))
		} else if ingredients[ing.Name] {
			errs = append(errs, fmt.Errorf("ingredients[%d]: duplicate name %q", i, ing.Name))
		}
		ingredients[ing.Name] = true

		if ing.YieldPercent != nil && (*ing.YieldPercent <= 0 || *ing.YieldPercent > 100) {
			errs = append(errs, fmt.Errorf("ingredients[%d]: yield_percent must be in (0, 100]", i))
		}
		if ing.BaseUnit != "" && len(c.Units) > 0 && !units[ing.BaseUnit] {
			errs = append(errs, fmt.Errorf("ingredients[%d]: unknown base_unit %q", i, ing.BaseUnit))
		}
	}

	for i, rec := range c.Recipes {
		if rec.Name == "" {
			errs = append(errs, fmt.Errorf("recipes[%d]: name is required", i))
		}
		for j, l := range rec.Lines {
			if !ingredients[l.Ingredient] {
				errs = append(errs, fmt.Errorf("recipes[%d].lines[%d]: unknown ingredient %q", i, j, l.Ingredient))
			}
			if l.Quantity <= 0 {
				errs = append(errs, fmt.Errorf("recipes[%d].lines[%d]: quantity must be positive", i, j))
			}
			if l.Unit == "" {
				errs = append(errs, fmt.Errorf("recipes[%d].lines[%d]: unit is required", i, j))
			}
		}
	}

	return errors.Join(errs...)
}

// ModelUnits converts the unit specs into catalog units (without ids).
func (c *Catalog) ModelUnits() []models.Unit {
	out := make([]models.Unit, len(c.Units))
	for i, u := range c.Units {
		out[i] = models.Unit{
			Name:           u.Name,
			Abbreviation:   u.Abbreviation,
			UnitType:       models.UnitType(u.Type),
			BaseMultiplier: u.BaseMultiplier,
		}
	}
	return out
}

func (s IngredientSpec) model() *models.Ingredient {
	return &models.Ingredient{
		Name:         s.Name,
		Supplier:     s.Supplier,
		UnitCost:     s.UnitCost,
		PackCost:     s.PackCost,
		PackSize:     s.PackSize,
		YieldPercent: s.YieldPercent,
		BaseUnit:     s.BaseUnit,
	}
}
