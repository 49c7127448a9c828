// Package report renders recipe cost sheets for the terminal.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/larder/larder/internal/costing"
	"github.com/larder/larder/internal/models"
)

// Row is one ingredient line of a cost sheet.
type Row struct {
	LineID      string
	Ingredient  string
	Quantity    float64
	Unit        string
	Cost        float64
	MissingCost bool
	Status      string // pending change, empty when clean
}

// Sheet is the costed view of a recipe.
type Sheet struct {
	Recipe    string
	YieldUnit string
	Rows      []Row
	Totals    costing.Totals
	Yield     costing.YieldResult
}

// Build costs lines for display. Cached line costs are trusted, like every
// display path; ingredients may be nil or incomplete.
func Build(recipe *models.Recipe, lines []models.RecipeIngredientLine, ingredients map[string]*models.Ingredient, calc *costing.Calculator) Sheet {
	lookup := func(id string) *models.Ingredient {
		return ingredients[id]
	}

	s := Sheet{
		Recipe:    recipe.Name,
		YieldUnit: recipe.YieldUnitRef,
		Rows:      make([]Row, 0, len(lines)),
	}
	for _, l := range lines {
		ing := lookup(l.IngredientID)
		row := Row{
			LineID:     l.ID,
			Ingredient: ingredientName(l, ing),
			Quantity:   l.Quantity,
			Unit:       l.UnitRef,
		}
		if l.IngredientID != "" {
			row.Cost = calc.DisplayCost(l, ing)
			row.MissingCost = row.Cost == 0 && l.Quantity > 0
		}
		s.Rows = append(s.Rows, row)
	}

	s.Yield = calc.CalculateYield(lines, recipe.YieldUnitRef)
	s.Totals = calc.Totals(lines, lookup, s.Yield.Quantity)
	return s
}

func ingredientName(l models.RecipeIngredientLine, ing *models.Ingredient) string {
	switch {
	case ing != nil:
		return ing.Name
	case l.IngredientName != "":
		return l.IngredientName
	case l.IngredientID != "":
		return l.IngredientID
	default:
		return "(choose ingredient)"
	}
}

// Options controls rendering.
type Options struct {
	Currency   string
	Decimals   int
	ShowStatus bool
	Width      int // zero lets the table size itself
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	numberStyle  = cellStyle.Align(lipgloss.Right)
	missingStyle = numberStyle.Foreground(lipgloss.Color("#FF4444"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
	noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))
)

// Render draws the sheet as a table followed by totals.
func Render(s Sheet, opts Options) string {
	headers := []string{"Ingredient", "Qty", "Unit", "Cost"}
	if opts.ShowStatus {
		headers = append(headers, "Status")
	}

	missing := make(map[int]bool)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 3 && missing[row]:
				return missingStyle
			case col == 1 || col == 3:
				return numberStyle
			default:
				return cellStyle
			}
		})
	if opts.Width > 0 {
		t = t.Width(opts.Width)
	}

	for i, r := range s.Rows {
		cost := money(r.Cost, opts)
		if r.MissingCost {
			missing[i] = true
			cost = "no cost data"
		}
		cells := []string{r.Ingredient, FormatQuantity(r.Quantity), r.Unit, cost}
		if opts.ShowStatus {
			cells = append(cells, r.Status)
		}
		t = t.Row(cells...)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(s.Recipe))
	b.WriteString("\n")
	b.WriteString(t.String())
	b.WriteString("\n")
	for _, line := range summaryLines(s, opts) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func summaryLines(s Sheet, opts Options) []string {
	unit := s.YieldUnit
	lines := []string{
		fmt.Sprintf("Total: %s", money(s.Totals.TotalCost, opts)),
		strings.TrimSpace(fmt.Sprintf("Yield: %s %s", FormatQuantity(s.Yield.Quantity), unit)),
	}
	if s.Totals.CostPerYield > 0 && unit != "" {
		lines = append(lines, fmt.Sprintf("Cost per %s: %s%.4f", unit, opts.Currency, s.Totals.CostPerYield))
	}
	if n := s.Totals.MissingCostData; n > 0 {
		lines = append(lines, noteStyle.Render(fmt.Sprintf("%d %s missing cost data", n, plural(n, "line", "lines"))))
	}
	if s.Yield.Mode == costing.YieldNaiveSum && s.Yield.Counted > 0 {
		note := "Yield is a raw sum: recipe has no yield unit"
		if s.Yield.MixedUnits {
			note += " and lines use different units"
		}
		lines = append(lines, noteStyle.Render(note))
	}
	if n := len(s.Yield.Warnings); n > 0 {
		lines = append(lines, noteStyle.Render(fmt.Sprintf("%d %s could not be converted to %s", n, plural(n, "line", "lines"), unit)))
	}
	return lines
}

func money(v float64, opts Options) string {
	return opts.Currency + strconv.FormatFloat(v, 'f', opts.Decimals, 64)
}

// FormatQuantity prints up to three decimals without trailing zeros.
func FormatQuantity(q float64) string {
	s := strconv.FormatFloat(q, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
