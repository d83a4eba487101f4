package access

import (
	"context"
	"fmt"
	"time"

	"github.com/uehara/kakine/internal/entities"
	"github.com/uehara/kakine/internal/infrastructure/metrics"
	"github.com/uehara/kakine/internal/repositories"
)

// EvaluatorInterface defines the interface for access decisions
type EvaluatorInterface interface {
	IsTermRestricted(ctx context.Context, termID int64) (bool, error)
	CanViewTerm(ctx context.Context, viewer *entities.Viewer, termID int64) (bool, error)
	CanViewItem(ctx context.Context, viewer *entities.Viewer, item *entities.Item) (bool, error)
	FilterItems(ctx context.Context, viewer *entities.Viewer, items []*entities.Item) ([]*entities.Item, error)
}

// Evaluator answers whether a viewer may see a term or an item, and filters
// item listings down to the visible subset. It only ever reads grant data;
// all mutation goes through the reconciler.
type Evaluator struct {
	grants   repositories.GrantRepository
	recorder metrics.Recorder // optional
}

// NewEvaluator creates a new Evaluator without metrics
func NewEvaluator(grants repositories.GrantRepository) *Evaluator {
	return &Evaluator{grants: grants}
}

// NewEvaluatorWithMetrics creates a new Evaluator that reports decisions
// to the given recorder
func NewEvaluatorWithMetrics(grants repositories.GrantRepository, recorder metrics.Recorder) *Evaluator {
	return &Evaluator{grants: grants, recorder: recorder}
}

// IsTermRestricted reports whether the term has at least one grant of any
// kind. A term ID that matches no stored rows counts as unrestricted; that
// is the default-allow policy, not an error.
func (e *Evaluator) IsTermRestricted(ctx context.Context, termID int64) (bool, error) {
	count, err := e.grants.CountGrants(ctx, termID)
	if err != nil {
		return false, fmt.Errorf("failed to check restriction of term %d: %w", termID, err)
	}
	return count > 0, nil
}

// CanViewTerm decides whether the viewer may see content under the term.
// The super administrator always may. An unrestricted term is visible to
// everyone. A restricted term requires a user grant for the viewer's ID or
// a role grant for any role the viewer holds.
func (e *Evaluator) CanViewTerm(ctx context.Context, viewer *entities.Viewer, termID int64) (bool, error) {
	start := time.Now()
	allowed, err := e.canViewTerm(ctx, viewer, termID)
	e.record(metrics.OpCheckTerm, start, allowed, err)
	return allowed, err
}

func (e *Evaluator) canViewTerm(ctx context.Context, viewer *entities.Viewer, termID int64) (bool, error) {
	if viewer.IsAdmin() {
		return true, nil
	}

	restricted, err := e.IsTermRestricted(ctx, termID)
	if err != nil {
		// A storage failure is not "no grants found": propagate instead
		// of falling open.
		return false, err
	}
	if !restricted {
		// Default-allow: the term carries no grants at all.
		return true, nil
	}

	granted, err := e.grants.HasUserGrant(ctx, termID, viewer.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to check user grant on term %d: %w", termID, err)
	}
	if granted {
		return true, nil
	}

	if len(viewer.RoleIDs) == 0 {
		return false, nil
	}

	granted, err = e.grants.HasAnyRoleGrant(ctx, termID, viewer.RoleIDs)
	if err != nil {
		return false, fmt.Errorf("failed to check role grants on term %d: %w", termID, err)
	}
	return granted, nil
}

// CanViewItem decides whether the viewer may see the item. The item is
// visible only if every one of its terms is visible; a single restricting
// term hides the item no matter what the other terms grant. An item with
// no terms is always visible.
func (e *Evaluator) CanViewItem(ctx context.Context, viewer *entities.Viewer, item *entities.Item) (bool, error) {
	start := time.Now()
	allowed, err := e.canViewItem(ctx, viewer, item)
	e.record(metrics.OpCheckItem, start, allowed, err)
	return allowed, err
}

func (e *Evaluator) canViewItem(ctx context.Context, viewer *entities.Viewer, item *entities.Item) (bool, error) {
	if viewer.IsAdmin() || len(item.TermIDs) == 0 {
		return true, nil
	}

	grants, err := e.grants.ListGrantsForTerms(ctx, item.TermIDs)
	if err != nil {
		return false, fmt.Errorf("failed to load grants for item %d: %w", item.ID, err)
	}

	return itemAllowed(viewer, item, grants), nil
}

// FilterItems returns the items the viewer may see, preserving their
// original order. The grants of all referenced terms are loaded in one
// batch, so filtering a listing costs one round trip regardless of size.
func (e *Evaluator) FilterItems(ctx context.Context, viewer *entities.Viewer, items []*entities.Item) ([]*entities.Item, error) {
	start := time.Now()
	visible, err := e.filterItems(ctx, viewer, items)
	e.record(metrics.OpFilterItems, start, true, err)
	return visible, err
}

func (e *Evaluator) filterItems(ctx context.Context, viewer *entities.Viewer, items []*entities.Item) ([]*entities.Item, error) {
	visible := make([]*entities.Item, 0, len(items))

	if viewer.IsAdmin() {
		visible = append(visible, items...)
		return visible, nil
	}

	grants, err := e.grants.ListGrantsForTerms(ctx, distinctTermIDs(items))
	if err != nil {
		return nil, fmt.Errorf("failed to load grants for listing: %w", err)
	}

	for _, item := range items {
		if itemAllowed(viewer, item, grants) {
			visible = append(visible, item)
		}
	}
	return visible, nil
}

// itemAllowed applies the per-term decision to every term of the item.
// Terms absent from the grants map (or present with empty sets) are
// unrestricted.
func itemAllowed(viewer *entities.Viewer, item *entities.Item, grants map[int64]*entities.TermGrants) bool {
	for _, tid := range item.TermIDs {
		g := grants[tid]
		if g == nil || !g.IsRestricted() {
			continue
		}
		if g.HasUser(viewer.UserID) || g.HasAnyRole(viewer.RoleIDs) {
			continue
		}
		return false
	}
	return true
}

// distinctTermIDs collects the set of term IDs referenced by the items.
func distinctTermIDs(items []*entities.Item) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, item := range items {
		for _, tid := range item.TermIDs {
			if _, ok := seen[tid]; !ok {
				seen[tid] = struct{}{}
				ids = append(ids, tid)
			}
		}
	}
	return ids
}

func (e *Evaluator) record(op string, start time.Time, allowed bool, err error) {
	if e.recorder == nil {
		return
	}
	e.recorder.RecordRequest(op)
	e.recorder.RecordDuration(op, time.Since(start).Seconds())
	if err != nil {
		e.recorder.RecordError(op)
		return
	}
	if !allowed {
		e.recorder.RecordDenial(op)
	}
}
