package costing

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/larder/larder/internal/models"
	"github.com/larder/larder/internal/units"
)

func floatPtr(f float64) *float64 {
	return &f
}

func newTestCalculator() *Calculator {
	catalog := units.NewCatalog([]models.Unit{
		{ID: "u-g", Name: "gram", Abbreviation: "g", UnitType: models.UnitTypeMass, BaseMultiplier: 1},
		{ID: "u-kg", Name: "kilogram", Abbreviation: "kg", UnitType: models.UnitTypeMass, BaseMultiplier: 1000},
		{ID: "u-ml", Name: "millilitre", Abbreviation: "ml", UnitType: models.UnitTypeVolume, BaseMultiplier: 1},
		{ID: "u-l", Name: "litre", Abbreviation: "L", UnitType: models.UnitTypeVolume, BaseMultiplier: 1000},
	})
	return NewCalculator(units.NewConverter(catalog), 2)
}

func flour(yield *float64) *models.Ingredient {
	return &models.Ingredient{
		ID:           "ing-flour",
		Name:         "Flour",
		PackCost:     10,
		PackSize:     5,
		YieldPercent: yield,
		BaseUnit:     "kg",
	}
}

func TestResolveUnitCost(t *testing.T) {
	tests := []struct {
		name    string
		ing     models.Ingredient
		want    float64
		wantErr bool
	}{
		{"Direct unit cost wins", models.Ingredient{UnitCost: 3, PackCost: 10, PackSize: 5}, 3, false},
		{"Derived from pack", models.Ingredient{PackCost: 10, PackSize: 5}, 2, false},
		{"Pack size zero", models.Ingredient{Name: "Salt", PackCost: 10}, 0, true},
		{"No cost data", models.Ingredient{Name: "Salt"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveUnitCost(&tt.ing)
			if tt.wantErr {
				var missing *CostDataMissingError
				if !errors.As(err, &missing) {
					t.Fatalf("expected CostDataMissingError, got %v", err)
				}
				if missing.Error() != "Salt has no cost data" {
					t.Errorf("error message = %q", missing.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveUnitCost() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLineCost(t *testing.T) {
	tests := []struct {
		name     string
		unitCost float64
		qty      float64
		yield    float64
		want     float64
		wantErr  error
	}{
		{"Full yield", 2, 2, 100, 4, nil},
		{"Wastage inflates cost", 2, 2, 80, 5, nil},
		{"Zero quantity", 2, 0, 100, 0, nil},
		{"Negative quantity", 2, -3, 100, 0, nil},
		{"Zero yield rejected", 2, 2, 0, 0, ErrInvalidYield},
		{"Negative yield rejected", 2, 2, -10, 0, ErrInvalidYield},
		{"Yield over 100 rejected", 2, 2, 120, 0, ErrInvalidYield},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LineCost(tt.unitCost, tt.qty, tt.yield)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("LineCost() error = %v, want %v", err, tt.wantErr)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("LineCost() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLineCost_Monotonic(t *testing.T) {
	prev := -1.0
	for q := 0.1; q < 50; q += 0.37 {
		got, err := LineCost(2.5, q, 90)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got <= prev {
			t.Fatalf("cost not strictly increasing in quantity at q=%v: %v <= %v", q, got, prev)
		}
		prev = got
	}

	prev = -1.0
	for y := 100.0; y > 1; y -= 1.5 {
		got, err := LineCost(2.5, 3, y)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got <= prev {
			t.Fatalf("cost not strictly increasing as yield falls at y=%v: %v <= %v", y, got, prev)
		}
		prev = got
	}
}

func TestCalculator_CalculateLineCost(t *testing.T) {
	calc := newTestCalculator()

	tests := []struct {
		name     string
		line     models.RecipeIngredientLine
		ing      *models.Ingredient
		want     float64
		wantWarn units.WarningKind
		wantErr  bool
	}{
		{
			name: "Flour 2kg at full yield",
			line: models.RecipeIngredientLine{Quantity: 2, UnitRef: "kg"},
			ing:  flour(nil),
			want: 4.00,
		},
		{
			name: "Flour 2kg at 80 percent yield",
			line: models.RecipeIngredientLine{Quantity: 2, UnitRef: "kg"},
			ing:  flour(floatPtr(80)),
			want: 5.00,
		},
		{
			name: "Grams converted into the pack unit",
			line: models.RecipeIngredientLine{Quantity: 500, UnitRef: "g"},
			ing:  flour(nil),
			want: 1.00,
		},
		{
			name:     "Incompatible unit uses raw quantity",
			line:     models.RecipeIngredientLine{Quantity: 2, UnitRef: "L"},
			ing:      flour(nil),
			want:     4.00,
			wantWarn: units.WarnIncompatible,
		},
		{
			name: "Cached cost is ignored",
			line: models.RecipeIngredientLine{Quantity: 2, UnitRef: "kg", LineCost: floatPtr(99)},
			ing:  flour(nil),
			want: 4.00,
		},
		{
			name:    "Missing cost data",
			line:    models.RecipeIngredientLine{Quantity: 2, UnitRef: "kg"},
			ing:     &models.Ingredient{ID: "x", Name: "Mystery"},
			wantErr: true,
		},
		{
			name:    "Invalid yield",
			line:    models.RecipeIngredientLine{Quantity: 2, UnitRef: "kg"},
			ing:     flour(floatPtr(0)),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := calc.CalculateLineCost(tt.line, tt.ing)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !CostsEqual(res.Cost, tt.want) {
				t.Errorf("Cost = %v, want %v", res.Cost, tt.want)
			}
			if res.Warning.Kind != tt.wantWarn {
				t.Errorf("Warning = %s, want %s", res.Warning.Kind, tt.wantWarn)
			}
		})
	}
}

func TestCalculator_DisplayCost(t *testing.T) {
	calc := newTestCalculator()

	t.Run("Trusts cached cost", func(t *testing.T) {
		line := models.RecipeIngredientLine{Quantity: 2, UnitRef: "kg", LineCost: floatPtr(7.5)}
		if got := calc.DisplayCost(line, flour(nil)); got != 7.5 {
			t.Errorf("DisplayCost() = %v, want 7.5", got)
		}
	})

	t.Run("Computes when cache is zero", func(t *testing.T) {
		line := models.RecipeIngredientLine{Quantity: 2, UnitRef: "kg", LineCost: floatPtr(0)}
		if got := calc.DisplayCost(line, flour(nil)); got != 4 {
			t.Errorf("DisplayCost() = %v, want 4", got)
		}
	})

	t.Run("Shows zero for missing data", func(t *testing.T) {
		line := models.RecipeIngredientLine{Quantity: 2, UnitRef: "kg"}
		if got := calc.DisplayCost(line, &models.Ingredient{Name: "Mystery"}); got != 0 {
			t.Errorf("DisplayCost() = %v, want 0", got)
		}
		if got := calc.DisplayCost(line, nil); got != 0 {
			t.Errorf("DisplayCost(nil) = %v, want 0", got)
		}
	})
}

func TestCalculator_Round(t *testing.T) {
	if got := NewCalculator(nil, 2).Round(1.005000001); got != 1.01 {
		t.Errorf("Round() = %v, want 1.01", got)
	}
	if got := NewCalculator(nil, -1).Round(1.23456); got != 1.23456 {
		t.Errorf("Round() with rounding disabled = %v", got)
	}
}

func TestCalculator_CalculateYield(t *testing.T) {
	calc := newTestCalculator()

	t.Run("Grams and kilograms into grams", func(t *testing.T) {
		lines := []models.RecipeIngredientLine{
			{ID: "a", IngredientID: "butter", Quantity: 500, UnitRef: "g"},
			{ID: "b", IngredientID: "sugar", Quantity: 0.5, UnitRef: "kg"},
		}
		res := calc.CalculateYield(lines, "g")
		if math.Abs(res.Quantity-1000) > 1e-9 {
			t.Errorf("Quantity = %v, want 1000", res.Quantity)
		}
		if res.Mode != YieldConverted || res.Counted != 2 || len(res.Warnings) != 0 {
			t.Errorf("unexpected result: %+v", res)
		}
	})

	t.Run("Skips incomplete lines", func(t *testing.T) {
		lines := []models.RecipeIngredientLine{
			{ID: "a", IngredientID: "butter", Quantity: 500, UnitRef: "g"},
			{ID: "b", Quantity: 300, UnitRef: "g"},
			{ID: "c", IngredientID: "sugar", Quantity: 200},
			{ID: "d", IngredientID: "salt", Quantity: 0, UnitRef: "g"},
		}
		res := calc.CalculateYield(lines, "g")
		if res.Quantity != 500 || res.Skipped != 3 {
			t.Errorf("Quantity = %v, Skipped = %d; want 500, 3", res.Quantity, res.Skipped)
		}
	})

	t.Run("Incompatible line adds raw quantity with warning", func(t *testing.T) {
		lines := []models.RecipeIngredientLine{
			{ID: "a", IngredientID: "butter", Quantity: 500, UnitRef: "g"},
			{ID: "b", IngredientID: "milk", Quantity: 2, UnitRef: "L"},
		}
		res := calc.CalculateYield(lines, "g")
		if res.Quantity != 502 {
			t.Errorf("Quantity = %v, want 502", res.Quantity)
		}
		if len(res.Warnings) != 1 || res.Warnings[0].Kind != units.WarnIncompatible {
			t.Errorf("Warnings = %v", res.Warnings)
		}
	})

	t.Run("No yield unit sums raw quantities", func(t *testing.T) {
		lines := []models.RecipeIngredientLine{
			{ID: "a", IngredientID: "butter", Quantity: 500, UnitRef: "g"},
			{ID: "b", IngredientID: "sugar", Quantity: 0.5, UnitRef: "kg"},
		}
		res := calc.CalculateYield(lines, "")
		if res.Quantity != 500.5 || res.Mode != YieldNaiveSum {
			t.Errorf("unexpected result: %+v", res)
		}
		if !res.MixedUnits {
			t.Error("mixed units should be flagged in naive mode")
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		lines := []models.RecipeIngredientLine{
			{ID: "a", IngredientID: "butter", Quantity: 123.4, UnitRef: "g"},
			{ID: "b", IngredientID: "sugar", Quantity: 0.77, UnitRef: "kg"},
		}
		first := calc.CalculateYield(lines, "g")
		second := calc.CalculateYield(lines, "g")
		if first.Quantity != second.Quantity {
			t.Errorf("results differ: %v vs %v", first.Quantity, second.Quantity)
		}
	})
}

func TestCalculator_CalculateYield_OrderIndependent(t *testing.T) {
	calc := newTestCalculator()
	lines := []models.RecipeIngredientLine{
		{ID: "a", IngredientID: "i1", Quantity: 0.1, UnitRef: "kg"},
		{ID: "b", IngredientID: "i2", Quantity: 333.3, UnitRef: "g"},
		{ID: "c", IngredientID: "i3", Quantity: 1.7, UnitRef: "kg"},
		{ID: "d", IngredientID: "i4", Quantity: 0.02, UnitRef: "g"},
		{ID: "e", IngredientID: "i5", Quantity: 42, UnitRef: "g"},
	}
	want := calc.CalculateYield(lines, "g").Quantity

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		shuffled := make([]models.RecipeIngredientLine, len(lines))
		copy(shuffled, lines)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := calc.CalculateYield(shuffled, "g").Quantity
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("permutation %d changed yield: %v vs %v", i, got, want)
		}
	}
}

func TestYieldWatcher(t *testing.T) {
	w := NewYieldWatcher(1000, 0.01)

	steps := []struct {
		yield float64
		want  bool
	}{
		{1000.005, false},
		{1000.02, true},
		{1000.025, false},
		{1200, true},
		{1200, false},
	}

	for _, s := range steps {
		if got := w.Observe(s.yield); got != s.want {
			t.Errorf("Observe(%v) = %v, want %v", s.yield, got, s.want)
		}
	}
	if w.Last() != 1200 {
		t.Errorf("Last() = %v, want 1200", w.Last())
	}

	var zero YieldWatcher
	if !zero.Observe(0) {
		t.Error("first observation of a zero watcher should propagate")
	}
}

func TestCalculator_Totals(t *testing.T) {
	calc := newTestCalculator()
	ingredients := map[string]*models.Ingredient{
		"ing-flour": flour(nil),
		"ing-salt":  {ID: "ing-salt", Name: "Salt"},
	}
	lines := []models.RecipeIngredientLine{
		{ID: "a", IngredientID: "ing-flour", Quantity: 2, UnitRef: "kg"},
		{ID: "b", IngredientID: "ing-flour", Quantity: 500, UnitRef: "g"},
		{ID: "c", IngredientID: "ing-salt", Quantity: 10, UnitRef: "g"},
		{ID: "d"},
	}

	got := calc.Totals(lines, func(id string) *models.Ingredient { return ingredients[id] }, 10)
	if !CostsEqual(got.TotalCost, 5) {
		t.Errorf("TotalCost = %v, want 5", got.TotalCost)
	}
	if got.CostedLines != 2 || got.MissingCostData != 1 {
		t.Errorf("CostedLines = %d, MissingCostData = %d", got.CostedLines, got.MissingCostData)
	}
	if !CostsEqual(got.CostPerYield, 0.5) {
		t.Errorf("CostPerYield = %v, want 0.5", got.CostPerYield)
	}
}

func TestValidateLine(t *testing.T) {
	tests := []struct {
		name      string
		ingID     string
		qty       float64
		unit      string
		wantField string
	}{
		{"Valid", "flour", 1, "kg", ""},
		{"No ingredient", "", 1, "kg", "ingredient"},
		{"No quantity", "flour", 0, "kg", "quantity"},
		{"NaN quantity", "flour", math.NaN(), "kg", "quantity"},
		{"Infinite quantity", "flour", math.Inf(1), "kg", "quantity"},
		{"No unit", "flour", 1, "", "unit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLine("line-1", tt.ingID, tt.qty, tt.unit)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.wantField || verr.LineID != "line-1" {
				t.Errorf("got field %q line %q", verr.Field, verr.LineID)
			}
		})
	}
}
