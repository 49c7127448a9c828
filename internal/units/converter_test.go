package units

import (
	"math"
	"testing"

	"github.com/larder/larder/internal/models"
)

func testCatalog() *Catalog {
	return NewCatalog([]models.Unit{
		{ID: "u-g", Name: "gram", Abbreviation: "g", UnitType: models.UnitTypeMass, BaseMultiplier: 1},
		{ID: "u-kg", Name: "kilogram", Abbreviation: "kg", UnitType: models.UnitTypeMass, BaseMultiplier: 1000},
		{ID: "u-lb", Name: "pound", Abbreviation: "lb", UnitType: models.UnitTypeMass, BaseMultiplier: 453.59237},
		{ID: "u-ml", Name: "millilitre", Abbreviation: "ml", UnitType: models.UnitTypeVolume, BaseMultiplier: 1},
		{ID: "u-l", Name: "litre", Abbreviation: "L", UnitType: models.UnitTypeVolume, BaseMultiplier: 1000},
		{ID: "u-ea", Name: "each", Abbreviation: "ea", UnitType: models.UnitTypeCount, BaseMultiplier: 1},
		{ID: "u-broken", Name: "broken", Abbreviation: "brk", UnitType: models.UnitTypeMass, BaseMultiplier: 0},
	})
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCatalog_Resolve(t *testing.T) {
	c := testCatalog()

	tests := []struct {
		name   string
		ref    string
		wantID string
		wantOK bool
	}{
		{"By ID", "u-kg", "u-kg", true},
		{"By abbreviation", "kg", "u-kg", true},
		{"Abbreviation is case-insensitive", "l", "u-l", true},
		{"By name", "Kilogram", "u-kg", true},
		{"Trims whitespace", "  g ", "u-g", true},
		{"Unknown", "bushel", "", false},
		{"Empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, ok := c.Resolve(tt.ref)
			if ok != tt.wantOK {
				t.Fatalf("Resolve(%q) ok = %v, want %v", tt.ref, ok, tt.wantOK)
			}
			if u.ID != tt.wantID {
				t.Errorf("Resolve(%q) = %s, want %s", tt.ref, u.ID, tt.wantID)
			}
		})
	}

	if c.Len() != 7 {
		t.Errorf("Len() = %d, want 7", c.Len())
	}
}

func TestNilCatalog(t *testing.T) {
	var c *Catalog
	if _, ok := c.Resolve("kg"); ok {
		t.Error("nil catalog should resolve nothing")
	}
	if c.Len() != 0 || c.Units() != nil {
		t.Error("nil catalog should be empty")
	}
}

func TestConverter_Convert(t *testing.T) {
	conv := NewConverter(testCatalog())

	tests := []struct {
		name     string
		qty      float64
		from, to string
		want     float64
		wantWarn WarningKind
	}{
		{"kg to g", 0.5, "kg", "g", 500, WarnNone},
		{"g to kg by name", 250, "gram", "kilogram", 0.25, WarnNone},
		{"Mixed ref forms", 2, "u-kg", "g", 2000, WarnNone},
		{"L to ml", 1.5, "L", "ml", 1500, WarnNone},
		{"Same ref", 3, "kg", "kg", 3, WarnNone},
		{"Same unit different refs", 3, "kg", "kilogram", 3, WarnNone},
		{"Mass to volume is refused", 2, "kg", "L", 2, WarnIncompatible},
		{"Count to mass is refused", 6, "ea", "g", 6, WarnIncompatible},
		{"Fallback for unknown catalog unit", 1500, "mg", "g", 1.5, WarnNone},
		{"Unknown units", 4, "bushel", "peck", 4, WarnUnresolved},
		{"Unknown target", 4, "kg", "peck", 4, WarnUnresolved},
		{"Zero multiplier falls back and stays unresolved", 4, "brk", "g", 4, WarnUnresolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, w := conv.Convert(tt.qty, tt.from, tt.to)
			if !approxEqual(got, tt.want) {
				t.Errorf("Convert(%v, %s, %s) = %v, want %v", tt.qty, tt.from, tt.to, got, tt.want)
			}
			if w.Kind != tt.wantWarn {
				t.Errorf("warning = %s, want %s", w.Kind, tt.wantWarn)
			}
			if w.OK() != (tt.wantWarn == WarnNone) {
				t.Errorf("OK() = %v", w.OK())
			}
			if !w.OK() && w.String() == "" {
				t.Error("warning should describe itself")
			}
		})
	}
}

func TestConverter_FallbackOnly(t *testing.T) {
	conv := NewConverter(nil)

	got, w := conv.Convert(2, "kg", "g")
	if !w.OK() || !approxEqual(got, 2000) {
		t.Errorf("Convert(2, kg, g) = %v (%s), want 2000", got, w)
	}

	got, w = conv.Convert(250, "ml", "l")
	if !w.OK() || !approxEqual(got, 0.25) {
		t.Errorf("Convert(250, ml, l) = %v (%s), want 0.25", got, w)
	}

	got, w = conv.Convert(1, "kg", "ml")
	if w.Kind != WarnIncompatible || got != 1 {
		t.Errorf("Convert(1, kg, ml) = %v (%s), want unchanged with incompatible warning", got, w)
	}
}

func TestConverter_Identity(t *testing.T) {
	conv := NewConverter(testCatalog())
	quantities := []float64{0, 0.001, 1, 2.5, 1000, 123456.789}

	for _, u := range testCatalog().Units() {
		for _, q := range quantities {
			if got, _ := conv.Convert(q, u.ID, u.ID); got != q {
				t.Errorf("Convert(%v, %s, %s) = %v, want identity", q, u.ID, u.ID, got)
			}
			if got, _ := conv.Convert(q, u.Abbreviation, u.Name); !approxEqual(got, q) {
				t.Errorf("Convert(%v, %s, %s) = %v, want identity", q, u.Abbreviation, u.Name, got)
			}
		}
	}
}

func TestConverter_RoundTrip(t *testing.T) {
	conv := NewConverter(testCatalog())
	pairs := [][2]string{{"g", "kg"}, {"kg", "lb"}, {"ml", "L"}, {"lb", "g"}}
	quantities := []float64{0.1, 1, 7.25, 500, 12345}

	for _, p := range pairs {
		for _, q := range quantities {
			there, w1 := conv.Convert(q, p[0], p[1])
			back, w2 := conv.Convert(there, p[1], p[0])
			if !w1.OK() || !w2.OK() {
				t.Fatalf("unexpected warnings converting %s<->%s: %s / %s", p[0], p[1], w1, w2)
			}
			if math.Abs(back-q) > 1e-9*math.Max(1, q) {
				t.Errorf("round trip %v %s->%s->%s = %v", q, p[0], p[1], p[0], back)
			}
		}
	}
}

func TestConverter_Compatible(t *testing.T) {
	conv := NewConverter(testCatalog())

	if !conv.Compatible("kg", "lb") {
		t.Error("kg and lb should be compatible")
	}
	if conv.Compatible("kg", "ml") {
		t.Error("kg and ml should not be compatible")
	}
	if !conv.Compatible("anything", "anything") {
		t.Error("a ref is always compatible with itself")
	}
}
