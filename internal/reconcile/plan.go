// Package reconcile saves a tracker's pending changes to a store.
//
// Saving runs in three steps so the tracker is only touched by its owner:
// BuildPlan reads the tracker, Execute performs I/O without touching it, and
// Apply folds the outcomes back in. SaveAll runs all three in order.
package reconcile

import (
	"sort"

	"github.com/larder/larder/internal/models"
	"github.com/larder/larder/internal/tracker"
	"github.com/larder/larder/internal/util"
)

// Op is the store operation for a work item.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// WorkItem is one row's operation, with the line as it was when planned.
type WorkItem struct {
	Op     Op
	LineID string
	Line   models.RecipeIngredientLine
}

// Plan is the set of operations one save will issue.
type Plan struct {
	RecipeID string
	Items    []WorkItem
}

// Empty reports whether there is nothing to do.
func (p *Plan) Empty() bool {
	return p == nil || len(p.Items) == 0
}

// BuildPlan classifies the tracker's state into work items:
// complete provisional lines are inserted, persisted lines marked modified
// are updated and lines marked deleted are deleted. Incomplete provisional
// lines are left out without error.
func BuildPlan(t *tracker.Tracker) *Plan {
	plan := &Plan{RecipeID: t.RecipeID()}
	pending := t.Pending()

	for _, l := range t.Lines() {
		if util.IsProvisional(l.ID) {
			if models.IsComplete(l) {
				plan.Items = append(plan.Items, WorkItem{Op: OpInsert, LineID: l.ID, Line: l})
			}
			continue
		}
		if pending[l.ID] == models.ChangeModified {
			plan.Items = append(plan.Items, WorkItem{Op: OpUpdate, LineID: l.ID, Line: l})
		}
	}

	var deleted []string
	for id, kind := range pending {
		if kind == models.ChangeDeleted && !util.IsProvisional(id) {
			deleted = append(deleted, id)
		}
	}
	sort.Strings(deleted)
	for _, id := range deleted {
		plan.Items = append(plan.Items, WorkItem{Op: OpDelete, LineID: id})
	}

	return plan
}

// BuildLinePlan plans a save of a single line: an insert for a provisional
// line and an update for a persisted one, whether or not it is pending. A
// pending delete of id plans a delete. An unknown id gives an empty plan.
func BuildLinePlan(t *tracker.Tracker, id string) *Plan {
	plan := &Plan{RecipeID: t.RecipeID()}

	if kind, ok := t.PendingKind(id); ok && kind == models.ChangeDeleted {
		plan.Items = append(plan.Items, WorkItem{Op: OpDelete, LineID: id})
		return plan
	}

	line, ok := t.Line(id)
	if !ok {
		return plan
	}
	op := OpUpdate
	if util.IsProvisional(id) {
		op = OpInsert
	}
	plan.Items = append(plan.Items, WorkItem{Op: op, LineID: id, Line: line})
	return plan
}
