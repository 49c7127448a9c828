package editor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/larder/larder/internal/costing"
	"github.com/larder/larder/internal/models"
	"github.com/larder/larder/internal/reconcile"
	"github.com/larder/larder/internal/report"
	"github.com/larder/larder/internal/tracker"
)

type cellKind int

const (
	cellQuantity cellKind = iota
	cellIngredient
	cellUnit
	cellPrice
)

// cellEditor is the inline editor of one cell of the line under the cursor.
type cellEditor struct {
	kind         cellKind
	lineID       string
	ingredientID string
	input        *Input
	choice       *Select

	// State of the line when the cell was opened. Quantity edits are
	// applied while typing and undone from here on cancel.
	before tracker.Snapshot
}

func (c *cellEditor) render(t *Theme) string {
	if c.choice != nil {
		return c.choice.Render(t)
	}
	return c.input.Render(t)
}

func (m *Model) openCell(kind cellKind) {
	if m.saving {
		m.setStatus(levelWarn, "Save in progress")
		return
	}
	line, ok := m.tracker.Line(m.cursorLineID())
	if !ok {
		m.setStatus(levelWarn, "No line selected")
		return
	}

	c := &cellEditor{kind: kind, lineID: line.ID, before: m.tracker.Snapshot(line.ID)}
	ing := m.ingredients[line.IngredientID]

	switch kind {
	case cellIngredient:
		name := line.IngredientName
		if name == "" && ing != nil {
			name = ing.Name
		}
		c.input = NewInput("Ingredient").SetValue(name)

	case cellQuantity:
		value := ""
		if line.Quantity > 0 {
			value = report.FormatQuantity(line.Quantity)
		}
		c.input = NewInput("Quantity").SetNumeric(true).SetMaxLength(12).SetValue(value)

	case cellUnit:
		choices := m.unitChoices(line)
		if len(choices) == 0 {
			m.setStatus(levelWarn, "No units available")
			return
		}
		c.choice = NewSelect("Unit", choices).SetSelected(m.unitAbbreviation(line.UnitRef))

	case cellPrice:
		if ing == nil {
			m.setStatus(levelWarn, "Choose an ingredient first")
			return
		}
		c.ingredientID = ing.ID
		value := ""
		if cost, err := costing.ResolveUnitCost(ing); err == nil {
			value = strconv.FormatFloat(cost, 'f', -1, 64)
		}
		label := "Price"
		if ing.BaseUnit != "" {
			label += "/" + ing.BaseUnit
		}
		c.input = NewInput(label).SetNumeric(true).SetMaxLength(12).SetValue(value)
	}
	m.cell = c
}

func (m *Model) handleCellKey(msg tea.KeyMsg) tea.Cmd {
	c := m.cell
	switch {
	case msg.String() == "ctrl+c":
		m.cell = nil
		return m.quit()
	case m.keys.Cancel.Matches(msg):
		m.cancelCell()
		return nil
	case m.keys.Apply.Matches(msg):
		return m.applyCell(false)
	case m.keys.Commit.Matches(msg):
		return m.applyCell(true)
	}

	if c.choice != nil {
		c.choice.HandleKey(msg.String())
		return nil
	}
	c.input.HandleKey(msg.String())
	if c.kind != cellQuantity {
		return nil
	}

	qty, err := c.input.Positive()
	if err != nil {
		return nil
	}
	if line, ok := m.tracker.Line(c.lineID); ok && line.Quantity == qty {
		return nil
	}
	return m.setQuantity(c.lineID, qty)
}

func (m *Model) cancelCell() {
	c := m.cell
	m.cell = nil
	if c.kind == cellQuantity {
		if _, ok := m.tracker.Line(c.lineID); ok {
			m.tracker.Restore(c.before)
			m.qtySeq[c.lineID]++
		}
	}
	m.setStatus(levelInfo, "Edit canceled")
}

// applyCell applies the edited value. With save set the line is saved at
// once and rolled back to its state before the cell was opened on failure.
func (m *Model) applyCell(save bool) tea.Cmd {
	c := m.cell
	line, ok := m.tracker.Line(c.lineID)
	if !ok {
		m.cell = nil
		return nil
	}

	switch c.kind {
	case cellIngredient:
		ref := strings.TrimSpace(c.input.Value())
		if ref == "" {
			c.input.SetError("required")
			return nil
		}
		m.cell = nil
		m.setStatus(levelInfo, fmt.Sprintf("Looking up %s...", ref))
		return m.findIngredient(c.lineID, ref, save)

	case cellQuantity:
		qty, err := c.input.Positive()
		if err != nil {
			c.input.SetError(err.Error())
			return nil
		}
		m.cell = nil
		if save {
			m.tracker.Restore(c.before)
			m.qtySeq[c.lineID]++
			return m.saveLine(SaveLineMsg{
				LineID:       c.lineID,
				IngredientID: line.IngredientID,
				Quantity:     qty,
				UnitRef:      line.UnitRef,
			})
		}
		if line.Quantity == qty {
			return nil
		}
		return m.setQuantity(c.lineID, qty)

	case cellUnit:
		ref := c.choice.Value()
		m.cell = nil
		if save {
			return m.saveLine(SaveLineMsg{
				LineID:       c.lineID,
				IngredientID: line.IngredientID,
				Quantity:     line.Quantity,
				UnitRef:      ref,
			})
		}
		if ref != line.UnitRef {
			m.setUnit(c.lineID, ref)
		}
		return nil

	case cellPrice:
		cost, err := c.input.Positive()
		if err != nil {
			c.input.SetError(err.Error())
			return nil
		}
		m.cell = nil
		return m.storeUnitCost(c.ingredientID, cost)
	}

	m.cell = nil
	return nil
}

// unitChoices lists the units a line can be measured in: every unit that
// converts to the ingredient's pack unit, or all units when that is unknown.
func (m *Model) unitChoices(line models.RecipeIngredientLine) []string {
	catalog := m.calc.Converter().Catalog()

	var base *models.Unit
	if ing := m.ingredients[line.IngredientID]; ing != nil && ing.BaseUnit != "" {
		if u, ok := catalog.Resolve(ing.BaseUnit); ok {
			base = &u
		}
	}

	var out []string
	for _, u := range catalog.Units() {
		if base != nil && !u.Convertible(base) {
			continue
		}
		out = append(out, u.Abbreviation)
	}
	return out
}

func (m *Model) unitAbbreviation(ref string) string {
	if u, ok := m.calc.Converter().Catalog().Resolve(ref); ok {
		return u.Abbreviation
	}
	return ref
}

func (m *Model) findIngredient(lineID, ref string, save bool) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		ing, err := backend.FindIngredient(ctx, ref)
		return ingredientFoundMsg{lineID: lineID, ref: ref, ing: ing, save: save, err: err}
	}
}

func (m *Model) applyFound(msg ingredientFoundMsg) tea.Cmd {
	if msg.err != nil {
		if errors.Is(msg.err, reconcile.ErrIngredientNotFound) {
			m.setStatus(levelWarn, fmt.Sprintf("No ingredient named %q", msg.ref))
		} else {
			m.setStatus(levelError, "Ingredient lookup failed: "+msg.err.Error())
		}
		return nil
	}

	m.ingredients[msg.ing.ID] = msg.ing
	line, ok := m.tracker.Line(msg.lineID)
	if !ok {
		return nil
	}
	unit := line.UnitRef
	if unit == "" {
		unit = msg.ing.BaseUnit
	}

	if msg.save {
		return m.saveLine(SaveLineMsg{
			LineID:       msg.lineID,
			IngredientID: msg.ing.ID,
			Quantity:     line.Quantity,
			UnitRef:      unit,
		})
	}

	cmd := m.setIngredient(msg.lineID, msg.ing.ID)
	m.setStatus(levelInfo, msg.ing.Name+" selected")
	if unit != line.UnitRef {
		m.setUnit(msg.lineID, unit)
	}
	return cmd
}

// storeUnitCost prices an ingredient per pack unit. Success is reported as
// an ingredient change so the working copy reloads.
func (m *Model) storeUnitCost(ingredientID string, cost float64) tea.Cmd {
	m.setStatus(levelInfo, "Updating price...")
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		if err := backend.SetUnitCost(ctx, ingredientID, cost); err != nil {
			return unitCostFailedMsg{id: ingredientID, err: err}
		}
		return IngredientChangedMsg{IngredientID: ingredientID}
	}
}
