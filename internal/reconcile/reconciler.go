package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/larder/larder/internal/costing"
	"github.com/larder/larder/internal/models"
	"github.com/larder/larder/internal/tracker"
	"github.com/larder/larder/internal/units"
	"github.com/larder/larder/internal/util"
)

// IngredientLookup fetches current ingredient master data. It is called for
// every insert and update; implementations must not serve cached costs and
// must be safe for concurrent use.
type IngredientLookup interface {
	FetchIngredient(ctx context.Context, id string) (*models.Ingredient, error)
}

// LinePayload is what gets written for an inserted or updated line.
type LinePayload struct {
	RecipeID     string
	IngredientID string
	Quantity     float64
	UnitRef      string
	LineCost     float64
	SortOrder    int
}

// Sink stores recipe ingredient lines. Each call succeeds or fails on its
// own; implementations must be safe for concurrent use.
type Sink interface {
	InsertLine(ctx context.Context, payload LinePayload) (models.RecipeIngredientLine, error)
	UpdateLine(ctx context.Context, id string, payload LinePayload) (models.RecipeIngredientLine, error)
	DeleteLine(ctx context.Context, id string) error
}

// Options tunes a Reconciler.
type Options struct {
	// Concurrency bounds simultaneous rows in flight. Values below 1 mean 1.
	Concurrency int
	// MaxErrors bounds the error messages kept in a BatchResult.
	MaxErrors int
	Logger    *slog.Logger
}

// Reconciler turns a plan into store operations.
type Reconciler struct {
	lookup      IngredientLookup
	sink        Sink
	calc        *costing.Calculator
	concurrency int
	maxErrors   int
	logger      *slog.Logger
}

// New creates a reconciler.
func New(lookup IngredientLookup, sink Sink, calc *costing.Calculator, opts Options) *Reconciler {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.MaxErrors < 1 {
		opts.MaxErrors = 5
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Reconciler{
		lookup:      lookup,
		sink:        sink,
		calc:        calc,
		concurrency: opts.Concurrency,
		maxErrors:   opts.MaxErrors,
		logger:      opts.Logger,
	}
}

// Outcome is the result of one work item.
type Outcome struct {
	Item           WorkItem
	Saved          models.RecipeIngredientLine
	IngredientName string
	Warning        units.Warning
	Err            error
}

// SaveAll plans, executes and applies a save of every pending change in t.
// It never returns row failures as an error; they are reported in the result.
func (r *Reconciler) SaveAll(ctx context.Context, t *tracker.Tracker) *BatchResult {
	plan := BuildPlan(t)
	if plan.Empty() {
		return &BatchResult{NoOp: true}
	}
	return r.Apply(t, r.Execute(ctx, plan))
}

// Execute runs every item of plan against the store. Rows are independent:
// a failing row never stops the others. Each row is fully validated and
// costed before its store call. Execute reads no tracker state and is safe
// to run off the owner goroutine.
func (r *Reconciler) Execute(ctx context.Context, plan *Plan) []Outcome {
	if plan.Empty() {
		return nil
	}

	outcomes := make([]Outcome, len(plan.Items))
	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i, item := range plan.Items {
		i, item := i, item
		g.Go(func() error {
			outcomes[i] = r.process(ctx, plan.RecipeID, item)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (r *Reconciler) process(ctx context.Context, recipeID string, item WorkItem) Outcome {
	out := Outcome{Item: item}

	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	if item.Op == OpDelete {
		if util.IsProvisional(item.LineID) {
			out.Err = fmt.Errorf("line %s was never saved", item.LineID)
			return out
		}
		if err := r.sink.DeleteLine(ctx, item.LineID); err != nil {
			out.Err = &PersistenceError{Op: item.Op, LineID: item.LineID, Err: err}
		}
		return out
	}

	line := item.Line
	out.IngredientName = line.IngredientName

	if err := costing.ValidateLine(line.ID, line.IngredientID, line.Quantity, line.UnitRef); err != nil {
		if name := describe(line); name != "" {
			err = fmt.Errorf("%s: %w", name, err)
		}
		out.Err = err
		return out
	}

	ing, err := r.lookup.FetchIngredient(ctx, line.IngredientID)
	if err != nil {
		if errors.Is(err, ErrIngredientNotFound) {
			out.Err = fmt.Errorf("ingredient %s not found", describe(line))
		} else {
			out.Err = fmt.Errorf("fetching ingredient %s: %w", describe(line), err)
		}
		return out
	}
	out.IngredientName = ing.Name

	res, err := r.calc.CalculateLineCost(line, ing)
	if err != nil {
		if errors.Is(err, costing.ErrInvalidYield) {
			err = fmt.Errorf("%s: %w", ing.Name, err)
		}
		out.Err = err
		return out
	}
	out.Warning = res.Warning

	payload := LinePayload{
		RecipeID:     recipeID,
		IngredientID: line.IngredientID,
		Quantity:     line.Quantity,
		UnitRef:      line.UnitRef,
		LineCost:     res.Cost,
		SortOrder:    line.SortOrder,
	}

	var saved models.RecipeIngredientLine
	if item.Op == OpInsert {
		saved, err = r.sink.InsertLine(ctx, payload)
	} else {
		saved, err = r.sink.UpdateLine(ctx, line.ID, payload)
	}
	if err != nil {
		out.Err = &PersistenceError{Op: item.Op, LineID: line.ID, Err: err}
		return out
	}
	if saved.IngredientName == "" {
		saved.IngredientName = ing.Name
	}
	out.Saved = saved
	return out
}

func describe(l models.RecipeIngredientLine) string {
	if l.IngredientName != "" {
		return l.IngredientName
	}
	return l.IngredientID
}

// Apply records outcomes in the tracker: successful rows are confirmed and
// leave the pending set; failed rows stay pending for a retry.
func (r *Reconciler) Apply(t *tracker.Tracker, outcomes []Outcome) *BatchResult {
	result := &BatchResult{maxErrors: r.maxErrors}
	if len(outcomes) == 0 {
		result.NoOp = true
		return result
	}

	for _, o := range outcomes {
		result.Attempted++

		if !o.Warning.OK() {
			r.logger.Warn("line costed with unconverted quantity",
				"line", o.Item.LineID,
				"ingredient", o.IngredientName,
				"warning", o.Warning.String(),
			)
		}

		if o.Err != nil {
			r.logger.Warn("line save failed",
				"op", o.Item.Op,
				"line", o.Item.LineID,
				"error", o.Err,
			)
			result.addError(&RowError{
				Op:         o.Item.Op,
				LineID:     o.Item.LineID,
				Ingredient: o.IngredientName,
				Err:        o.Err,
			})
			continue
		}

		result.Succeeded++
		switch o.Item.Op {
		case OpInsert:
			result.Inserted++
			t.ConfirmSaved(o.Item.LineID, o.Saved, editedSince(t, o.Item))
		case OpUpdate:
			result.Updated++
			t.ConfirmSaved(o.Item.LineID, o.Saved, editedSince(t, o.Item))
		case OpDelete:
			result.Deleted++
			t.ConfirmDeleted(o.Item.LineID)
		}
	}

	r.logger.Info("recipe lines saved",
		"recipe", t.RecipeID(),
		"attempted", result.Attempted,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"deleted", result.Deleted,
		"failed", result.Failed,
	)

	return result
}

// editedSince reports whether the line changed in the tracker after the
// item was planned.
func editedSince(t *tracker.Tracker, item WorkItem) bool {
	current, ok := t.Line(item.LineID)
	if !ok {
		return false
	}
	return current.IngredientID != item.Line.IngredientID ||
		current.Quantity != item.Line.Quantity ||
		current.UnitRef != item.Line.UnitRef
}
