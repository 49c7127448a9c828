package costing

import (
	"math"

	"github.com/larder/larder/internal/models"
	"github.com/larder/larder/internal/units"
)

// DefaultYieldEpsilon is the smallest yield change worth propagating.
const DefaultYieldEpsilon = 0.01

// YieldMode tells how a yield was aggregated.
type YieldMode int

const (
	// YieldConverted sums quantities converted into the recipe yield unit.
	YieldConverted YieldMode = iota
	// YieldNaiveSum sums raw quantities because the recipe has no yield unit.
	// Quantities in different units are added as if they were the same unit,
	// so the figure is only meaningful when every line shares a unit.
	YieldNaiveSum
)

func (m YieldMode) String() string {
	if m == YieldNaiveSum {
		return "naive-sum"
	}
	return "converted"
}

// YieldResult is the aggregated quantity a recipe produces.
type YieldResult struct {
	Quantity float64
	Mode     YieldMode
	Counted  int
	Skipped  int
	// MixedUnits is set in naive mode when lines use more than one unit.
	MixedUnits bool
	Warnings   []units.Warning
}

// CalculateYield sums the line quantities of a recipe in yieldUnit.
//
// Lines without an ingredient or a positive quantity never count. With a
// yield unit, lines without a unit are skipped and each remaining quantity
// is converted; a failed conversion adds the raw quantity and records a
// warning. Without a yield unit, raw quantities are summed (YieldNaiveSum).
// The result does not depend on line order beyond floating point rounding.
func (c *Calculator) CalculateYield(lines []models.RecipeIngredientLine, yieldUnit string) YieldResult {
	res := YieldResult{Mode: YieldConverted}
	if yieldUnit == "" {
		res.Mode = YieldNaiveSum
	}

	seenUnits := make(map[string]bool)
	parts := make([]float64, 0, len(lines))

	for _, l := range lines {
		if l.IngredientID == "" || l.Quantity <= 0 {
			res.Skipped++
			continue
		}

		if res.Mode == YieldNaiveSum {
			seenUnits[l.UnitRef] = true
			parts = append(parts, l.Quantity)
			res.Counted++
			continue
		}

		if l.UnitRef == "" {
			res.Skipped++
			continue
		}

		qty, warn := c.converter.Convert(l.Quantity, l.UnitRef, yieldUnit)
		if !warn.OK() {
			res.Warnings = append(res.Warnings, warn)
		}
		parts = append(parts, qty)
		res.Counted++
	}

	res.Quantity = stableSum(parts)
	res.MixedUnits = res.Mode == YieldNaiveSum && len(seenUnits) > 1
	return res
}

// stableSum adds values with Neumaier compensation so that reordering the
// inputs does not change the rounded total.
func stableSum(values []float64) float64 {
	var sum, comp float64
	for _, v := range values {
		t := sum + v
		if math.Abs(sum) >= math.Abs(v) {
			comp += (sum - t) + v
		} else {
			comp += (v - t) + sum
		}
		sum = t
	}
	return sum + comp
}

// YieldWatcher suppresses yield updates that do not move the value by more
// than Epsilon. The zero value uses DefaultYieldEpsilon.
type YieldWatcher struct {
	Epsilon float64
	last    float64
	primed  bool
}

// NewYieldWatcher creates a watcher seeded with the currently stored yield.
func NewYieldWatcher(current, epsilon float64) *YieldWatcher {
	return &YieldWatcher{Epsilon: epsilon, last: current, primed: true}
}

// Observe records a freshly computed yield and reports whether it differs
// enough from the last propagated value to be propagated.
func (w *YieldWatcher) Observe(yield float64) bool {
	eps := w.Epsilon
	if eps <= 0 {
		eps = DefaultYieldEpsilon
	}
	if w.primed && math.Abs(yield-w.last) <= eps {
		return false
	}
	w.last = yield
	w.primed = true
	return true
}

// Last returns the last propagated yield.
func (w *YieldWatcher) Last() float64 {
	return w.last
}
