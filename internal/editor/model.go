// Package editor is the interactive ingredient table of one recipe.
//
// A Model is the only owner of the recipe's working copy. Edits, save
// results and reloads all reach the tracker through Update; store I/O runs
// in commands that never touch the tracker.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/larder/larder/internal/config"
	"github.com/larder/larder/internal/costing"
	"github.com/larder/larder/internal/models"
	"github.com/larder/larder/internal/reconcile"
	"github.com/larder/larder/internal/report"
	"github.com/larder/larder/internal/tracker"
	"github.com/larder/larder/internal/util"
)

const (
	defaultDebounce      = 300 * time.Millisecond
	defaultReloadTimeout = 30 * time.Second
)

// Backend is the store behind the editor. Implementations must be safe for
// use from command goroutines.
type Backend interface {
	LoadLines(ctx context.Context, recipeID string) ([]models.RecipeIngredientLine, error)
	IngredientsFor(ctx context.Context, lines []models.RecipeIngredientLine) (map[string]*models.Ingredient, error)
	FetchIngredient(ctx context.Context, id string) (*models.Ingredient, error)
	FindIngredient(ctx context.Context, ref string) (*models.Ingredient, error)
	SetUnitCost(ctx context.Context, ingredientID string, unitCost float64) error
	SetRecipeYield(ctx context.Context, recipeID string, qty float64) error
	StoreDraft(ctx context.Context, recipeID string, payload []byte) error
	DiscardDraft(ctx context.Context, recipeID string) error
}

// Options configures a Model.
type Options struct {
	KitchenName   string
	Currency      string
	Decimals      int
	Debounce      time.Duration
	ReloadTimeout time.Duration
	YieldEpsilon  float64
	Logger        *slog.Logger
}

// OptionsFromConfig maps application configuration onto editor options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		KitchenName:   cfg.Kitchen.Name,
		Currency:      cfg.Kitchen.Currency,
		Decimals:      cfg.Costing.CurrencyDecimals,
		Debounce:      cfg.Editor.Debounce(),
		ReloadTimeout: cfg.Editor.ReloadTimeout(),
		YieldEpsilon:  cfg.Costing.YieldEpsilon,
	}
}

type statusLevel int

const (
	levelInfo statusLevel = iota
	levelSuccess
	levelWarn
	levelError
)

// Model is the Bubble Tea model of the editor.
type Model struct {
	ctx        context.Context
	recipe     *models.Recipe
	tracker    *tracker.Tracker
	backend    Backend
	reconciler *reconcile.Reconciler
	calc       *costing.Calculator
	watcher    *costing.YieldWatcher
	opts       Options
	logger     *slog.Logger
	theme      *Theme
	keys       KeyMap

	// Display cache only; saves always re-fetch.
	ingredients map[string]*models.Ingredient

	// Latest quantity edit per line; older debounce ticks are ignored.
	qtySeq map[string]int

	reloadGen    int
	cancelReload context.CancelFunc

	saving        bool
	quitAfterSave bool
	lastResult    *reconcile.BatchResult
	status        string
	level         statusLevel

	// Inline editor of the cell under the cursor, nil when browsing.
	cell *cellEditor

	cursor   int
	width    int
	height   int
	quitting bool
}

// New creates an editor over the working copy t. t must not be used by
// anything else while the editor runs.
func New(ctx context.Context, recipe *models.Recipe, t *tracker.Tracker, backend Backend, rec *reconcile.Reconciler, calc *costing.Calculator, opts Options) *Model {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = defaultReloadTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Model{
		ctx:         ctx,
		recipe:      recipe,
		tracker:     t,
		backend:     backend,
		reconciler:  rec,
		calc:        calc,
		watcher:     costing.NewYieldWatcher(recipe.YieldQty, opts.YieldEpsilon),
		opts:        opts,
		logger:      opts.Logger,
		theme:       NewTheme(),
		keys:        DefaultKeyMap(),
		ingredients: make(map[string]*models.Ingredient),
		qtySeq:      make(map[string]int),
	}
}

// Status returns the current status line text.
func (m *Model) Status() string {
	return m.status
}

// LastResult returns the result of the latest save, or nil before any save.
func (m *Model) LastResult() *reconcile.BatchResult {
	return m.lastResult
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.startReload()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case AddLineMsg:
		m.addLine()
		return m, nil

	case SetIngredientMsg:
		return m, m.setIngredient(msg.LineID, msg.IngredientID)

	case SetQuantityMsg:
		return m, m.setQuantity(msg.LineID, msg.Quantity)

	case SetUnitMsg:
		m.setUnit(msg.LineID, msg.UnitRef)
		return m, nil

	case DeleteLineMsg:
		m.deleteLine(msg.LineID)
		return m, nil

	case DiscardLineMsg:
		m.discardLine(msg.LineID)
		return m, nil

	case SaveAllMsg:
		return m, m.saveAll()

	case SaveLineMsg:
		return m, m.saveLine(msg)

	case ReloadMsg:
		return m, m.startReload()

	case IngredientChangedMsg:
		delete(m.ingredients, msg.IngredientID)
		return m, m.startReload()

	case QuitMsg:
		return m, m.quit()

	case recomputeMsg:
		if msg.seq == m.qtySeq[msg.lineID] {
			m.recompute(msg.lineID)
		}
		return m, nil

	case ingredientLoadedMsg:
		m.applyIngredient(msg)
		return m, nil

	case ingredientFoundMsg:
		return m, m.applyFound(msg)

	case unitCostFailedMsg:
		m.setStatus(levelError, "Price not updated: "+msg.err.Error())
		return m, nil

	case reloadedMsg:
		m.applyReload(msg)
		return m, nil

	case savedMsg:
		return m, m.applySave(msg)

	case lineSavedMsg:
		return m, m.applyLineSave(msg)

	case yieldStoredMsg:
		if msg.err != nil {
			m.logger.Warn("storing recipe yield failed", "recipe", m.recipe.ID, "yield", msg.qty, "error", msg.err)
			return m, nil
		}
		m.recipe.YieldQty = msg.qty
		return m, nil

	case draftStoredMsg:
		if msg.err != nil {
			m.logger.Error("storing draft failed", "recipe", m.recipe.ID, "error", msg.err)
		} else if msg.stored {
			m.logger.Info("draft stored", "recipe", m.recipe.ID)
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	if m.cell != nil {
		return m.handleCellKey(msg)
	}

	switch {
	case m.keys.Quit.Matches(msg):
		return m.quit()
	case m.keys.Up.Matches(msg):
		if m.cursor > 0 {
			m.cursor--
		}
	case m.keys.Down.Matches(msg):
		m.cursor++
		m.clampCursor()
	case m.keys.Add.Matches(msg):
		m.addLine()
	case m.keys.EditIngredient.Matches(msg):
		m.openCell(cellIngredient)
	case m.keys.EditQuantity.Matches(msg):
		m.openCell(cellQuantity)
	case m.keys.EditUnit.Matches(msg):
		m.openCell(cellUnit)
	case m.keys.EditPrice.Matches(msg):
		m.openCell(cellPrice)
	case m.keys.Delete.Matches(msg):
		if id := m.cursorLineID(); id != "" {
			m.deleteLine(id)
		}
	case m.keys.Discard.Matches(msg):
		if id := m.cursorLineID(); id != "" {
			m.discardLine(id)
		}
	case m.keys.SaveLine.Matches(msg):
		if line, ok := m.tracker.Line(m.cursorLineID()); ok {
			return m.saveLine(SaveLineMsg{
				LineID:       line.ID,
				IngredientID: line.IngredientID,
				Quantity:     line.Quantity,
				UnitRef:      line.UnitRef,
			})
		}
	case m.keys.Save.Matches(msg):
		return m.saveAll()
	case m.keys.Reload.Matches(msg):
		return m.startReload()
	}
	return nil
}

// ============================================================================
// EDITING
// ============================================================================

func (m *Model) addLine() {
	m.tracker.AddLine()
	m.cursor = len(m.tracker.Lines()) - 1
	m.setStatus(levelInfo, "Line added")
}

func (m *Model) setIngredient(lineID, ingredientID string) tea.Cmd {
	ing := m.ingredients[ingredientID]
	err := m.tracker.Edit(lineID, func(l *models.RecipeIngredientLine) {
		selectIngredient(l, ingredientID, ing)
		l.LineCost = nil
	})
	if err != nil {
		m.setStatus(levelError, err.Error())
		return nil
	}
	if ing != nil {
		m.recompute(lineID)
		return nil
	}
	return m.fetchIngredient(ingredientID)
}

func selectIngredient(l *models.RecipeIngredientLine, ingredientID string, ing *models.Ingredient) {
	if l.IngredientID != ingredientID {
		l.IngredientName = ""
	}
	l.IngredientID = ingredientID
	if ing != nil {
		l.IngredientName = ing.Name
	}
}

func (m *Model) setQuantity(lineID string, qty float64) tea.Cmd {
	if err := m.tracker.Edit(lineID, func(l *models.RecipeIngredientLine) {
		l.Quantity = qty
	}); err != nil {
		m.setStatus(levelError, err.Error())
		return nil
	}

	m.qtySeq[lineID]++
	seq := m.qtySeq[lineID]
	return tea.Tick(m.opts.Debounce, func(time.Time) tea.Msg {
		return recomputeMsg{lineID: lineID, seq: seq}
	})
}

func (m *Model) setUnit(lineID, unitRef string) {
	if err := m.tracker.Edit(lineID, func(l *models.RecipeIngredientLine) {
		l.UnitRef = unitRef
		l.LineCost = nil
	}); err != nil {
		m.setStatus(levelError, err.Error())
		return
	}
	m.recompute(lineID)
	m.checkUnit(lineID)
}

// discardLine drops the edits of a line. A stored line shows its stored
// values again.
func (m *Model) discardLine(lineID string) {
	m.tracker.Discard(lineID)
	m.qtySeq[lineID]++
	m.clampCursor()
	m.setStatus(levelInfo, "Edit discarded")
}

func (m *Model) deleteLine(lineID string) {
	if err := m.tracker.MarkDeleted(lineID); err != nil {
		m.setStatus(levelError, err.Error())
		return
	}
	delete(m.qtySeq, lineID)
	m.clampCursor()
	m.setStatus(levelInfo, "Line removed")
}

// recompute refreshes the displayed cost of a line from the cached
// ingredient. Lines without a cached ingredient keep their cost.
func (m *Model) recompute(lineID string) {
	line, ok := m.tracker.Line(lineID)
	if !ok || line.IngredientID == "" {
		return
	}
	ing := m.ingredients[line.IngredientID]
	if ing == nil {
		return
	}
	line.LineCost = nil
	m.tracker.SetLineCost(lineID, m.calc.DisplayCost(line, ing))
}

// checkUnit warns when the line unit cannot be converted to the pack unit
// of its ingredient.
func (m *Model) checkUnit(lineID string) {
	line, ok := m.tracker.Line(lineID)
	if !ok || line.UnitRef == "" {
		return
	}
	ing := m.ingredients[line.IngredientID]
	if ing == nil || ing.BaseUnit == "" {
		return
	}
	if !m.calc.Converter().Compatible(line.UnitRef, ing.BaseUnit) {
		m.setStatus(levelWarn, fmt.Sprintf("%s cannot be converted to %s; costed unconverted", line.UnitRef, ing.BaseUnit))
	}
}

func (m *Model) fetchIngredient(id string) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		ing, err := backend.FetchIngredient(ctx, id)
		return ingredientLoadedMsg{id: id, ing: ing, err: err}
	}
}

func (m *Model) applyIngredient(msg ingredientLoadedMsg) {
	if msg.err != nil {
		m.setStatus(levelWarn, fmt.Sprintf("Ingredient %s unavailable: %v", msg.id, msg.err))
		return
	}
	m.ingredients[msg.id] = msg.ing
	for _, l := range m.tracker.Lines() {
		if l.IngredientID == msg.id && l.LineCost == nil {
			m.recompute(l.ID)
		}
	}
}

// ============================================================================
// SAVING
// ============================================================================

func (m *Model) saveAll() tea.Cmd {
	if m.saving {
		m.setStatus(levelWarn, "Save already in progress")
		return nil
	}

	plan := reconcile.BuildPlan(m.tracker)
	if plan.Empty() {
		m.lastResult = &reconcile.BatchResult{NoOp: true}
		m.setStatus(levelInfo, m.lastResult.Summary())
		return nil
	}

	m.saving = true
	m.setStatus(levelInfo, fmt.Sprintf("Saving %d %s...", len(plan.Items), plural(len(plan.Items), "change", "changes")))

	ctx, rec := m.ctx, m.reconciler
	return func() tea.Msg {
		return savedMsg{outcomes: rec.Execute(ctx, plan)}
	}
}

func (m *Model) applySave(msg savedMsg) tea.Cmd {
	m.saving = false
	res := m.reconciler.Apply(m.tracker, msg.outcomes)
	m.lastResult = res
	m.setResultStatus(res)
	m.clampCursor()

	yield := m.propagateYield()
	if m.quitAfterSave {
		return m.quit(yield)
	}
	if !m.tracker.HasUnsavedChanges() {
		return tea.Batch(yield, m.storeDraft())
	}
	return yield
}

func (m *Model) saveLine(msg SaveLineMsg) tea.Cmd {
	if m.saving {
		m.setStatus(levelWarn, "Save already in progress")
		return nil
	}

	snap := m.tracker.Snapshot(msg.LineID)
	if !snap.Present {
		m.setStatus(levelError, fmt.Sprintf("saving %s: %v", msg.LineID, tracker.ErrLineNotFound))
		return nil
	}

	ing := m.ingredients[msg.IngredientID]
	if err := m.tracker.Edit(msg.LineID, func(l *models.RecipeIngredientLine) {
		selectIngredient(l, msg.IngredientID, ing)
		l.Quantity = msg.Quantity
		l.UnitRef = msg.UnitRef
		l.LineCost = nil
	}); err != nil {
		m.setStatus(levelError, err.Error())
		return nil
	}
	m.recompute(msg.LineID)

	plan := reconcile.BuildLinePlan(m.tracker, msg.LineID)
	if plan.Empty() {
		m.tracker.Restore(snap)
		return nil
	}

	m.saving = true
	m.setStatus(levelInfo, "Saving line...")

	ctx, rec := m.ctx, m.reconciler
	return func() tea.Msg {
		return lineSavedMsg{snapshot: snap, outcomes: rec.Execute(ctx, plan)}
	}
}

func (m *Model) applyLineSave(msg lineSavedMsg) tea.Cmd {
	m.saving = false
	res := m.reconciler.Apply(m.tracker, msg.outcomes)
	m.lastResult = res

	if res.Failed > 0 {
		m.tracker.Restore(msg.snapshot)
		reason := "unknown error"
		if len(res.Errors) > 0 {
			reason = res.Errors[0].Error()
		}
		m.setStatus(levelError, "Line not saved, edit rolled back: "+reason)
		if m.quitAfterSave {
			return m.quit()
		}
		return nil
	}

	m.setResultStatus(res)
	yield := m.propagateYield()
	if m.quitAfterSave {
		return m.quit(yield)
	}
	return yield
}

// propagateYield recomputes the recipe yield and stores it when it moved by
// more than the epsilon. Storing is best effort.
func (m *Model) propagateYield() tea.Cmd {
	res := m.calc.CalculateYield(m.tracker.Lines(), m.recipe.YieldUnitRef)
	for _, w := range res.Warnings {
		m.logger.Warn("yield line not converted", "recipe", m.recipe.ID, "warning", w.String())
	}
	if !m.watcher.Observe(res.Quantity) {
		return nil
	}

	ctx, backend, recipeID, qty := m.ctx, m.backend, m.recipe.ID, res.Quantity
	return func() tea.Msg {
		return yieldStoredMsg{qty: qty, err: backend.SetRecipeYield(ctx, recipeID, qty)}
	}
}

func (m *Model) setResultStatus(res *reconcile.BatchResult) {
	level := levelSuccess
	switch {
	case res.NoOp:
		level = levelInfo
	case res.Failed > 0 && res.Succeeded > 0:
		level = levelWarn
	case res.Failed > 0:
		level = levelError
	}
	m.setStatus(level, res.Summary())
}

// ============================================================================
// RELOADING
// ============================================================================

// startReload cancels any reload in flight and starts a new one. Only the
// response of the latest generation is applied.
func (m *Model) startReload() tea.Cmd {
	if m.cancelReload != nil {
		m.cancelReload()
	}
	m.reloadGen++
	gen := m.reloadGen

	ctx, cancel := context.WithTimeout(m.ctx, m.opts.ReloadTimeout)
	m.cancelReload = cancel

	backend, recipeID := m.backend, m.recipe.ID
	return func() tea.Msg {
		defer cancel()

		lines, err := backend.LoadLines(ctx, recipeID)
		var ingredients map[string]*models.Ingredient
		if err == nil {
			ingredients, err = backend.IngredientsFor(ctx, lines)
		}
		if err == nil {
			err = ctx.Err()
		}
		return reloadedMsg{gen: gen, lines: lines, ingredients: ingredients, err: err}
	}
}

func (m *Model) applyReload(msg reloadedMsg) {
	if msg.gen != m.reloadGen {
		m.logger.Debug("discarding superseded reload", "generation", msg.gen, "current", m.reloadGen)
		return
	}
	m.cancelReload = nil

	if msg.err != nil {
		if errors.Is(msg.err, context.Canceled) {
			return
		}
		m.setStatus(levelError, "Reload failed: "+msg.err.Error())
		return
	}

	m.tracker.Reload(msg.lines)
	for id, ing := range msg.ingredients {
		m.ingredients[id] = ing
	}

	// Edited lines show costs at current prices; clean lines keep their stored cost.
	pending := m.tracker.Pending()
	for _, l := range m.tracker.Lines() {
		if _, ok := pending[l.ID]; ok || util.IsProvisional(l.ID) {
			m.recompute(l.ID)
		}
	}
	m.clampCursor()
	m.setStatus(levelInfo, fmt.Sprintf("Loaded %d %s", len(msg.lines), plural(len(msg.lines), "line", "lines")))
}

// ============================================================================
// QUITTING
// ============================================================================

// quit stores the draft and exits after the before commands have run. A
// save in flight is finished first so the draft matches the store.
func (m *Model) quit(before ...tea.Cmd) tea.Cmd {
	if m.saving {
		m.quitAfterSave = true
		m.setStatus(levelInfo, "Finishing save before quitting...")
		return nil
	}

	m.quitting = true
	if m.cancelReload != nil {
		m.cancelReload()
		m.cancelReload = nil
	}

	cmds := make([]tea.Cmd, 0, len(before)+2)
	for _, c := range before {
		if c != nil {
			cmds = append(cmds, c)
		}
	}
	if c := m.storeDraft(); c != nil {
		cmds = append(cmds, c)
	}
	cmds = append(cmds, tea.Quit)
	return tea.Sequence(cmds...)
}

// storeDraft saves the working copy when it has unsaved changes and clears
// the stored draft otherwise.
func (m *Model) storeDraft() tea.Cmd {
	ctx, backend, recipeID := m.ctx, m.backend, m.recipe.ID

	if !m.tracker.HasUnsavedChanges() {
		return func() tea.Msg {
			return draftStoredMsg{err: backend.DiscardDraft(ctx, recipeID)}
		}
	}

	payload, err := m.tracker.EncodeDraft()
	if err != nil {
		m.logger.Error("encoding draft failed", "recipe", recipeID, "error", err)
		return nil
	}
	return func() tea.Msg {
		return draftStoredMsg{stored: true, err: backend.StoreDraft(ctx, recipeID, payload)}
	}
}

// ============================================================================
// VIEW
// ============================================================================

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return fmt.Sprintf("Closing %s\n", m.recipe.Name)
	}

	var b strings.Builder

	header := "LARDER"
	if m.opts.KitchenName != "" {
		header += " · " + m.opts.KitchenName
	}
	if n := len(m.tracker.Pending()); n > 0 {
		header += fmt.Sprintf(" · %d pending", n)
	}
	b.WriteString(m.theme.Header.Render(header))
	b.WriteString("\n\n")

	sheet := report.Build(m.recipe, m.tracker.Lines(), m.ingredients, m.calc)
	for i := range sheet.Rows {
		row := &sheet.Rows[i]
		row.Status = m.lineStatus(row.LineID)
		if i == m.cursor {
			row.Ingredient = "> " + row.Ingredient
		}
	}
	b.WriteString(report.Render(sheet, report.Options{
		Currency:   m.opts.Currency,
		Decimals:   m.opts.Decimals,
		ShowStatus: true,
	}))
	b.WriteString("\n")

	if m.cell != nil {
		b.WriteString(m.cell.render(m.theme))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(m.statusStyle().Render(m.status))
		b.WriteString("\n")
	}
	help := m.keys.StatusBarHelp()
	if m.cell != nil {
		help = m.keys.CellHelp()
	}
	b.WriteString(m.theme.Footer.Render(help))
	b.WriteString("\n")

	return b.String()
}

func (m *Model) lineStatus(id string) string {
	if kind, ok := m.tracker.PendingKind(id); ok {
		return strings.ToLower(kind.String())
	}
	if util.IsProvisional(id) {
		if line, ok := m.tracker.Line(id); ok && models.IsComplete(line) {
			return "new"
		}
		return "draft"
	}
	return ""
}

func (m *Model) statusStyle() lipgloss.Style {
	switch m.level {
	case levelSuccess:
		return m.theme.Success
	case levelWarn:
		return m.theme.Warning
	case levelError:
		return m.theme.Error
	default:
		return m.theme.Muted
	}
}

func (m *Model) setStatus(level statusLevel, text string) {
	m.level = level
	m.status = text
}

func (m *Model) cursorLineID() string {
	lines := m.tracker.Lines()
	if m.cursor < 0 || m.cursor >= len(lines) {
		return ""
	}
	return lines[m.cursor].ID
}

func (m *Model) clampCursor() {
	n := len(m.tracker.Lines())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
