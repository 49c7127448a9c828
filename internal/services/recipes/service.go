// Package recipes connects the costing engine to the larder database. The
// Service is the ingredient lookup, line store and recipe updater the
// reconciler and the editor work against.
package recipes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/larder/larder/internal/config"
	"github.com/larder/larder/internal/costing"
	"github.com/larder/larder/internal/models"
	"github.com/larder/larder/internal/reconcile"
	"github.com/larder/larder/internal/report"
	"github.com/larder/larder/internal/repository"
	"github.com/larder/larder/internal/tracker"
	"github.com/larder/larder/internal/units"
	"github.com/larder/larder/internal/util"
)

// Service provides recipe costing operations.
type Service struct {
	db          *sql.DB
	units       *repository.UnitRepository
	ingredients *repository.IngredientRepository
	recipes     *repository.RecipeRepository
	drafts      *repository.DraftRepository
	costing     config.CostingConfig
	logger      *slog.Logger
	idGenerator *util.IDGenerator
}

// NewService creates a new recipe service. A nil logger uses slog.Default.
func NewService(db *sql.DB, cfg config.CostingConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:          db,
		units:       repository.NewUnitRepository(db),
		ingredients: repository.NewIngredientRepository(db),
		recipes:     repository.NewRecipeRepository(db),
		drafts:      repository.NewDraftRepository(db),
		costing:     cfg,
		logger:      logger,
		idGenerator: util.NewIDGenerator(),
	}
}

// ============================================================================
// UNITS
// ============================================================================

// LoadCatalog reads the unit reference data. The catalog is a snapshot and
// is meant to be loaded once per session.
func (s *Service) LoadCatalog(ctx context.Context) (*units.Catalog, error) {
	list, err := s.units.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading unit catalog: %w", err)
	}
	catalog := units.NewCatalog(list)
	s.logger.Debug("unit catalog loaded", "units", catalog.Len())
	return catalog, nil
}

// Calculator returns a calculator over the current unit catalog.
func (s *Service) Calculator(ctx context.Context) (*costing.Calculator, error) {
	catalog, err := s.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return costing.NewCalculator(units.NewConverter(catalog), s.costing.CurrencyDecimals), nil
}

// Reconciler returns a reconciler that saves through this service.
func (s *Service) Reconciler(calc *costing.Calculator) *reconcile.Reconciler {
	return reconcile.New(s, s, calc, reconcile.Options{
		Concurrency: s.costing.FetchConcurrency,
		MaxErrors:   s.costing.MaxReportedErrors,
		Logger:      s.logger,
	})
}

// ============================================================================
// INGREDIENTS
// ============================================================================

// CreateIngredient adds an ingredient to the library.
func (s *Service) CreateIngredient(ctx context.Context, input CreateIngredientInput) (*models.Ingredient, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.New("creating ingredient: name is required")
	}
	if err := validateYield(input.YieldPercent); err != nil {
		return nil, fmt.Errorf("creating ingredient %s: %w", name, err)
	}

	ing := &models.Ingredient{
		ID:           s.idGenerator.NewID(),
		Name:         name,
		Supplier:     input.Supplier,
		UnitCost:     input.UnitCost,
		PackCost:     input.PackCost,
		PackSize:     input.PackSize,
		YieldPercent: input.YieldPercent,
		BaseUnit:     input.BaseUnit,
	}

	if err := s.ingredients.Create(ctx, nil, ing); err != nil {
		return nil, fmt.Errorf("creating ingredient: %w", err)
	}
	if !ing.HasCostData() {
		s.logger.Warn("ingredient has no cost data", "ingredient", ing.Name)
	}

	return ing, nil
}

// UpdateIngredientCost changes the cost fields of an ingredient. Stored line
// costs are not touched; they are re-derived on the next save or recompute.
func (s *Service) UpdateIngredientCost(ctx context.Context, id string, input UpdateCostInput) (*models.Ingredient, error) {
	if err := validateYield(input.YieldPercent); err != nil {
		return nil, fmt.Errorf("updating ingredient %s: %w", id, err)
	}

	ing, err := s.ingredients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.UnitCost != nil {
		ing.UnitCost = *input.UnitCost
	}
	if input.PackCost != nil {
		ing.PackCost = *input.PackCost
	}
	if input.PackSize != nil {
		ing.PackSize = *input.PackSize
	}
	if input.YieldPercent != nil {
		ing.YieldPercent = input.YieldPercent
	}

	if err := s.ingredients.Update(ctx, nil, ing); err != nil {
		return nil, fmt.Errorf("updating ingredient cost: %w", err)
	}

	s.logger.Info("ingredient cost updated",
		"ingredient", ing.Name,
		"unit_cost", ing.UnitCost,
		"pack_cost", ing.PackCost,
		"pack_size", ing.PackSize,
	)
	return ing, nil
}

func validateYield(y *float64) error {
	if y != nil && (*y <= 0 || *y > 100) {
		return fmt.Errorf("%w: %g", costing.ErrInvalidYield, *y)
	}
	return nil
}

// GetIngredient retrieves an ingredient by ID.
func (s *Service) GetIngredient(ctx context.Context, id string) (*models.Ingredient, error) {
	return s.ingredients.GetByID(ctx, id)
}

// ListIngredients retrieves ingredients with filtering and pagination.
func (s *Service) ListIngredients(ctx context.Context, filter models.IngredientFilter, page models.Pagination) (*models.IngredientList, error) {
	return s.ingredients.List(ctx, filter, page)
}

// FindIngredient resolves an ingredient by ID, falling back to a
// case-insensitive name match.
func (s *Service) FindIngredient(ctx context.Context, ref string) (*models.Ingredient, error) {
	ref = strings.TrimSpace(ref)
	if id, err := util.ParseID(ref); err == nil {
		ing, err := s.ingredients.GetByID(ctx, id)
		if !errors.Is(err, repository.ErrNotFound) {
			return ing, err
		}
	}

	ing, err := s.ingredients.GetByName(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", ref, reconcile.ErrIngredientNotFound)
	}
	return ing, err
}

// SetUnitCost prices an ingredient directly per base unit. A unit cost
// takes precedence over the pack cost and size.
func (s *Service) SetUnitCost(ctx context.Context, ingredientID string, unitCost float64) error {
	if unitCost <= 0 || math.IsNaN(unitCost) || math.IsInf(unitCost, 0) {
		return fmt.Errorf("unit cost must be a positive number, got %g", unitCost)
	}
	_, err := s.UpdateIngredientCost(ctx, ingredientID, UpdateCostInput{UnitCost: &unitCost})
	return err
}

// IngredientsFor returns the ingredients referenced by lines, keyed by ID.
// Unknown IDs are absent from the map.
func (s *Service) IngredientsFor(ctx context.Context, lines []models.RecipeIngredientLine) (map[string]*models.Ingredient, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.IngredientID != "" {
			ids = append(ids, l.IngredientID)
		}
	}
	return s.ingredients.GetMany(ctx, ids)
}

// FetchIngredient reads the current master data of an ingredient. It never
// serves a cached copy.
func (s *Service) FetchIngredient(ctx context.Context, id string) (*models.Ingredient, error) {
	ing, err := s.ingredients.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", id, reconcile.ErrIngredientNotFound)
	}
	return ing, err
}

// ============================================================================
// RECIPES
// ============================================================================

// CreateRecipe creates an empty recipe.
func (s *Service) CreateRecipe(ctx context.Context, input CreateRecipeInput) (*models.Recipe, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.New("creating recipe: name is required")
	}

	rec := &models.Recipe{
		ID:           s.idGenerator.NewID(),
		Name:         name,
		YieldUnitRef: input.YieldUnitRef,
	}
	if err := s.recipes.Create(ctx, nil, rec); err != nil {
		return nil, fmt.Errorf("creating recipe: %w", err)
	}
	return rec, nil
}

// GetRecipe retrieves a recipe by ID.
func (s *Service) GetRecipe(ctx context.Context, id string) (*models.Recipe, error) {
	return s.recipes.GetByID(ctx, id)
}

// FindRecipe resolves a recipe by ID, falling back to an exact name match.
func (s *Service) FindRecipe(ctx context.Context, ref string) (*models.Recipe, error) {
	if id, err := util.ParseID(ref); err == nil {
		rec, err := s.recipes.GetByID(ctx, id)
		if !errors.Is(err, repository.ErrNotFound) {
			return rec, err
		}
	}
	return s.recipes.FindByName(ctx, nil, ref)
}

// ListRecipes returns every recipe ordered by name.
func (s *Service) ListRecipes(ctx context.Context) ([]*models.Recipe, error) {
	return s.recipes.List(ctx)
}

// LoadLines reads the stored lines of a recipe.
func (s *Service) LoadLines(ctx context.Context, recipeID string) ([]models.RecipeIngredientLine, error) {
	return s.recipes.ListLines(ctx, recipeID)
}

// SetRecipeYield stores a recomputed yield.
func (s *Service) SetRecipeYield(ctx context.Context, recipeID string, qty float64) error {
	return s.recipes.SetYield(ctx, nil, recipeID, qty)
}

// ============================================================================
// LINE STORE
// ============================================================================

// InsertLine stores a new line and returns it with its persisted ID.
func (s *Service) InsertLine(ctx context.Context, p reconcile.LinePayload) (models.RecipeIngredientLine, error) {
	l := lineFromPayload("", p)
	if err := s.recipes.InsertLine(ctx, nil, &l); err != nil {
		return models.RecipeIngredientLine{}, err
	}
	return l, nil
}

// UpdateLine overwrites a stored line.
func (s *Service) UpdateLine(ctx context.Context, id string, p reconcile.LinePayload) (models.RecipeIngredientLine, error) {
	l := lineFromPayload(id, p)
	if err := s.recipes.UpdateLine(ctx, nil, &l); err != nil {
		return models.RecipeIngredientLine{}, err
	}
	return l, nil
}

// DeleteLine removes a stored line.
func (s *Service) DeleteLine(ctx context.Context, id string) error {
	return s.recipes.DeleteLine(ctx, nil, id)
}

func lineFromPayload(id string, p reconcile.LinePayload) models.RecipeIngredientLine {
	cost := p.LineCost
	return models.RecipeIngredientLine{
		ID:           id,
		RecipeID:     p.RecipeID,
		IngredientID: p.IngredientID,
		Quantity:     p.Quantity,
		UnitRef:      p.UnitRef,
		LineCost:     &cost,
		SortOrder:    p.SortOrder,
	}
}

// ============================================================================
// DRAFTS
// ============================================================================

// OpenTracker builds the working copy of a recipe. When an unsaved draft
// exists it is restored on top of the stored lines and restored is true.
// A draft that cannot be decoded is logged and ignored.
func (s *Service) OpenTracker(ctx context.Context, recipeID string) (t *tracker.Tracker, restored bool, err error) {
	lines, err := s.recipes.ListLines(ctx, recipeID)
	if err != nil {
		return nil, false, err
	}

	payload, _, err := s.drafts.Get(ctx, recipeID)
	if errors.Is(err, repository.ErrNotFound) {
		return tracker.New(recipeID, lines), false, nil
	}
	if err != nil {
		return nil, false, err
	}

	draft, err := tracker.DecodeDraft(payload)
	if err != nil || draft.RecipeID() != recipeID {
		s.logger.Warn("ignoring unreadable draft", "recipe", recipeID, "error", err)
		return tracker.New(recipeID, lines), false, nil
	}

	draft.Reload(lines)
	return draft, true, nil
}

// StoreDraft stores an already encoded working copy.
func (s *Service) StoreDraft(ctx context.Context, recipeID string, payload []byte) error {
	return s.drafts.Save(ctx, recipeID, payload)
}

// DiscardDraft removes the stored draft of a recipe.
func (s *Service) DiscardDraft(ctx context.Context, recipeID string) error {
	return s.drafts.Delete(ctx, recipeID)
}

// ============================================================================
// COSTING
// ============================================================================

// PropagateYield computes the yield of lines and stores it on the recipe when
// watcher reports a meaningful change. Storing the yield is best effort: a
// failure is logged and reported as not updated.
func (s *Service) PropagateYield(ctx context.Context, rec *models.Recipe, lines []models.RecipeIngredientLine, calc *costing.Calculator, watcher *costing.YieldWatcher) (costing.YieldResult, bool) {
	res := calc.CalculateYield(lines, rec.YieldUnitRef)
	for _, w := range res.Warnings {
		s.logger.Warn("yield line not converted", "recipe", rec.ID, "warning", w.String())
	}
	if res.MixedUnits {
		s.logger.Warn("yield summed across different units", "recipe", rec.ID)
	}

	if !watcher.Observe(res.Quantity) {
		return res, false
	}
	if err := s.SetRecipeYield(ctx, rec.ID, res.Quantity); err != nil {
		s.logger.Error("storing recipe yield failed", "recipe", rec.ID, "yield", res.Quantity, "error", err)
		return res, false
	}
	rec.YieldQty = res.Quantity
	return res, true
}

// Recompute re-derives every stored line cost of a recipe from current
// ingredient data and then refreshes the recipe yield.
func (s *Service) Recompute(ctx context.Context, recipeID string) (*RecomputeResult, error) {
	rec, err := s.recipes.GetByID(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	lines, err := s.recipes.ListLines(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	calc, err := s.Calculator(ctx)
	if err != nil {
		return nil, err
	}

	t := tracker.New(recipeID, lines)
	for _, l := range lines {
		if err := t.MarkModified(l.ID); err != nil {
			return nil, err
		}
	}

	batch := s.Reconciler(calc).SaveAll(ctx, t)
	watcher := costing.NewYieldWatcher(rec.YieldQty, s.costing.YieldEpsilon)
	yield, updated := s.PropagateYield(ctx, rec, t.Lines(), calc, watcher)

	s.logger.Info("recipe recomputed",
		"recipe", rec.Name,
		"summary", batch.Summary(),
		"yield", yield.Quantity,
		"yield_updated", updated,
	)
	return &RecomputeResult{Batch: batch, Yield: yield, YieldUpdated: updated}, nil
}

// CostSheet builds the cost sheet of a recipe from stored data.
func (s *Service) CostSheet(ctx context.Context, recipeID string) (report.Sheet, error) {
	rec, err := s.recipes.GetByID(ctx, recipeID)
	if err != nil {
		return report.Sheet{}, err
	}
	lines, err := s.recipes.ListLines(ctx, recipeID)
	if err != nil {
		return report.Sheet{}, err
	}
	ingredients, err := s.IngredientsFor(ctx, lines)
	if err != nil {
		return report.Sheet{}, err
	}
	calc, err := s.Calculator(ctx)
	if err != nil {
		return report.Sheet{}, err
	}
	return report.Build(rec, lines, ingredients, calc), nil
}
