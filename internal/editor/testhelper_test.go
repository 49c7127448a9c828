package editor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/larder/larder/internal/costing"
	"github.com/larder/larder/internal/models"
	"github.com/larder/larder/internal/reconcile"
	"github.com/larder/larder/internal/tracker"
	"github.com/larder/larder/internal/units"
	"github.com/larder/larder/internal/util"
)

// memStore is an in-memory Backend, IngredientLookup and Sink.
type memStore struct {
	mu          sync.Mutex
	ingredients map[string]*models.Ingredient
	lines       map[string]models.RecipeIngredientLine
	drafts      map[string][]byte
	yields      []float64

	failUpdate bool
	// loadHook runs at the start of LoadLines when set.
	loadHook func(ctx context.Context) error
}

func newMemStore() *memStore {
	return &memStore{
		ingredients: map[string]*models.Ingredient{
			"flour":   {ID: "flour", Name: "Flour", PackCost: 10, PackSize: 5, BaseUnit: "kg"},
			"butter":  {ID: "butter", Name: "Butter", UnitCost: 8, BaseUnit: "kg"},
			"saffron": {ID: "saffron", Name: "Saffron", BaseUnit: "g"},
		},
		lines:  make(map[string]models.RecipeIngredientLine),
		drafts: make(map[string][]byte),
	}
}

func (s *memStore) addLine(l models.RecipeIngredientLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[l.ID] = l.Clone()
}

func (s *memStore) line(id string) (models.RecipeIngredientLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lines[id]
	return l, ok
}

func (s *memStore) setPackCost(id string, cost float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ing := *s.ingredients[id]
	ing.PackCost = cost
	s.ingredients[id] = &ing
}

func (s *memStore) lineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

func (s *memStore) LoadLines(ctx context.Context, recipeID string) ([]models.RecipeIngredientLine, error) {
	if s.loadHook != nil {
		if err := s.loadHook(ctx); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.RecipeIngredientLine
	for _, l := range s.lines {
		if l.RecipeID == recipeID {
			out = append(out, l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (s *memStore) IngredientsFor(ctx context.Context, lines []models.RecipeIngredientLine) (map[string]*models.Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*models.Ingredient)
	for _, l := range lines {
		if ing, ok := s.ingredients[l.IngredientID]; ok {
			cp := *ing
			out[l.IngredientID] = &cp
		}
	}
	return out, nil
}

func (s *memStore) FetchIngredient(ctx context.Context, id string) (*models.Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ing, ok := s.ingredients[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, reconcile.ErrIngredientNotFound)
	}
	cp := *ing
	return &cp, nil
}

func (s *memStore) FindIngredient(ctx context.Context, ref string) (*models.Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ing := range s.ingredients {
		if id == ref || strings.EqualFold(ing.Name, ref) {
			cp := *ing
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", ref, reconcile.ErrIngredientNotFound)
}

func (s *memStore) SetUnitCost(ctx context.Context, ingredientID string, unitCost float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ing, ok := s.ingredients[ingredientID]
	if !ok {
		return fmt.Errorf("%s: %w", ingredientID, reconcile.ErrIngredientNotFound)
	}
	cp := *ing
	cp.UnitCost = unitCost
	s.ingredients[ingredientID] = &cp
	return nil
}

func (s *memStore) SetRecipeYield(ctx context.Context, recipeID string, qty float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.yields = append(s.yields, qty)
	return nil
}

func (s *memStore) StoreDraft(ctx context.Context, recipeID string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[recipeID] = payload
	return nil
}

func (s *memStore) DiscardDraft(ctx context.Context, recipeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, recipeID)
	return nil
}

func (s *memStore) draft(recipeID string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[recipeID]
	return d, ok
}

func (s *memStore) InsertLine(ctx context.Context, p reconcile.LinePayload) (models.RecipeIngredientLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := payloadLine(util.NewID(), p)
	s.lines[l.ID] = l
	return l.Clone(), nil
}

func (s *memStore) UpdateLine(ctx context.Context, id string, p reconcile.LinePayload) (models.RecipeIngredientLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failUpdate {
		return models.RecipeIngredientLine{}, errors.New("store unavailable")
	}
	if _, ok := s.lines[id]; !ok {
		return models.RecipeIngredientLine{}, errors.New("not found")
	}
	l := payloadLine(id, p)
	s.lines[id] = l
	return l.Clone(), nil
}

func (s *memStore) DeleteLine(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lines[id]; !ok {
		return errors.New("not found")
	}
	delete(s.lines, id)
	return nil
}

func payloadLine(id string, p reconcile.LinePayload) models.RecipeIngredientLine {
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

func testCalculator() *costing.Calculator {
	catalog := units.NewCatalog([]models.Unit{
		{ID: "u-g", Name: "gram", Abbreviation: "g", UnitType: models.UnitTypeMass, BaseMultiplier: 1},
		{ID: "u-kg", Name: "kilogram", Abbreviation: "kg", UnitType: models.UnitTypeMass, BaseMultiplier: 1000},
		{ID: "u-ml", Name: "millilitre", Abbreviation: "ml", UnitType: models.UnitTypeVolume, BaseMultiplier: 1},
	})
	return costing.NewCalculator(units.NewConverter(catalog), 2)
}

// storedFlourLine is a 2 kg flour line costed at 4.00.
func storedFlourLine(recipeID string) models.RecipeIngredientLine {
	cost := 4.0
	return models.RecipeIngredientLine{
		ID:             util.NewID(),
		RecipeID:       recipeID,
		IngredientID:   "flour",
		IngredientName: "Flour",
		Quantity:       2,
		UnitRef:        "kg",
		LineCost:       &cost,
	}
}

// newTestModel creates an editor over store, loaded the way Init would load
// it. The debounce window is shortened so ticks fire quickly.
func newTestModel(t *testing.T, store *memStore) *Model {
	t.Helper()
	m := buildModel(t, store)
	drain(t, m, m.Init())
	return m
}

// buildModel creates an editor over store without running Init.
func buildModel(t *testing.T, store *memStore) *Model {
	t.Helper()

	recipe := &models.Recipe{ID: "recipe-1", Name: "Country Loaf", YieldUnitRef: "g"}
	lines, _ := store.LoadLines(context.Background(), recipe.ID)

	calc := testCalculator()
	rec := reconcile.New(store, store, calc, reconcile.Options{Concurrency: 2})
	return New(context.Background(), recipe, tracker.New(recipe.ID, lines), store, rec, calc, Options{
		Currency:      "$",
		Decimals:      2,
		Debounce:      time.Millisecond,
		ReloadTimeout: 5 * time.Second,
		YieldEpsilon:  0.01,
	})
}

// drain runs cmd and feeds its messages back into m until no commands are
// left. Batches are expanded; quitting ends the drain.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()

	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 100 {
			t.Fatal("drain did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}

		msg := next()
		switch msg := msg.(type) {
		case nil:
			continue
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		case tea.QuitMsg:
			return
		}

		_, more := m.Update(msg)
		queue = append(queue, more)
	}
}

// send delivers msg to m and drains the resulting commands.
func send(t *testing.T, m *Model, msg tea.Msg) {
	t.Helper()
	_, cmd := m.Update(msg)
	drain(t, m, cmd)
}

// lineByIngredient returns the first working line using ingredientID.
func lineByIngredient(t *testing.T, m *Model, ingredientID string) models.RecipeIngredientLine {
	t.Helper()
	for _, l := range m.tracker.Lines() {
		if l.IngredientID == ingredientID {
			return l
		}
	}
	t.Fatalf("no line with ingredient %s", ingredientID)
	return models.RecipeIngredientLine{}
}

// lastLine returns the last line of the working copy.
func lastLine(t *testing.T, m *Model) models.RecipeIngredientLine {
	t.Helper()
	lines := m.tracker.Lines()
	if len(lines) == 0 {
		t.Fatal("working copy is empty")
	}
	return lines[len(lines)-1]
}
