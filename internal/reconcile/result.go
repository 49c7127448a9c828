package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

// BatchResult summarises a save. NoOp distinguishes "nothing to do" from a
// save where every row failed.
type BatchResult struct {
	NoOp      bool
	Attempted int
	Succeeded int
	Failed    int
	Inserted  int
	Updated   int
	Deleted   int
	// Errors holds the first row failures, up to the reconciler's MaxErrors.
	Errors []*RowError

	maxErrors int
}

func (b *BatchResult) addError(e *RowError) {
	b.Failed++
	limit := b.maxErrors
	if limit < 1 {
		limit = 5
	}
	if len(b.Errors) < limit {
		b.Errors = append(b.Errors, e)
	}
}

// Err joins the reported row errors, or returns nil when none failed.
func (b *BatchResult) Err() error {
	if b == nil || b.Failed == 0 {
		return nil
	}
	errs := make([]error, len(b.Errors))
	for i, e := range b.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Summary renders the result in one line, for example
// "Saved: 3 added, 1 updated; 1 failed: Flour has no cost data".
func (b *BatchResult) Summary() string {
	if b == nil || b.NoOp {
		return "Nothing to save"
	}

	var parts []string
	if b.Inserted > 0 {
		parts = append(parts, fmt.Sprintf("%d added", b.Inserted))
	}
	if b.Updated > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", b.Updated))
	}
	if b.Deleted > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", b.Deleted))
	}

	var sb strings.Builder
	if len(parts) == 0 {
		sb.WriteString("Saved nothing")
	} else {
		sb.WriteString("Saved: ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	if b.Failed > 0 {
		msgs := make([]string, len(b.Errors))
		for i, e := range b.Errors {
			msgs[i] = e.Error()
		}
		fmt.Fprintf(&sb, "; %d failed: %s", b.Failed, strings.Join(msgs, "; "))
		if hidden := b.Failed - len(b.Errors); hidden > 0 {
			fmt.Fprintf(&sb, " (and %d more)", hidden)
		}
	}

	return sb.String()
}
