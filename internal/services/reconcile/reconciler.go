package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/uehara/kakine/internal/entities"
	"github.com/uehara/kakine/internal/infrastructure/metrics"
	"github.com/uehara/kakine/internal/repositories"
)

// UnknownUsersError reports submitted usernames that do not resolve to a
// user ID. Resolution continues past unknown names so that one typo does
// not mask the rest of the batch.
type UnknownUsersError struct {
	Names []string
}

func (e *UnknownUsersError) Error() string {
	return fmt.Sprintf("unknown users: %s", strings.Join(e.Names, ", "))
}

// ReconcilerInterface defines the interface for ACL reconciliation
type ReconcilerInterface interface {
	ComputeDelta(ctx context.Context, termID int64, desiredUserIDs, desiredRoleIDs []int64) (*entities.GrantDelta, error)
	ResolveUsernames(ctx context.Context, names []string) ([]int64, error)
	Reconcile(ctx context.Context, desired *entities.DesiredACL) (int64, *entities.GrantDelta, error)
	Apply(ctx context.Context, termID int64, delta *entities.GrantDelta) error
}

// Reconciler computes and applies the grant operations needed to bring a
// term's stored ACL in line with an administrator-submitted desired state.
// Computing a delta is a pure read; applying it is serialized per term.
type Reconciler struct {
	grants   repositories.GrantRepository
	terms    repositories.TermRepository
	users    repositories.UserRepository
	recorder metrics.Recorder // optional

	mu        sync.Mutex
	termLocks map[int64]*sync.Mutex
}

// NewReconciler creates a new Reconciler
func NewReconciler(
	grants repositories.GrantRepository,
	terms repositories.TermRepository,
	users repositories.UserRepository,
) *Reconciler {
	return &Reconciler{
		grants:    grants,
		terms:     terms,
		users:     users,
		termLocks: make(map[int64]*sync.Mutex),
	}
}

// NewReconcilerWithMetrics creates a new Reconciler that reports operations
// to the given recorder
func NewReconcilerWithMetrics(
	grants repositories.GrantRepository,
	terms repositories.TermRepository,
	users repositories.UserRepository,
	recorder metrics.Recorder,
) *Reconciler {
	r := NewReconciler(grants, terms, users)
	r.recorder = recorder
	return r
}

// ComputeDelta diffs the term's stored grants against the desired sets and
// returns the additions and removals needed to reach the desired state.
// It reads but never writes; calling it repeatedly is safe and returns the
// same result until an apply changes the stored state. Role ID 0 is the
// "unset" sentinel of submitted forms and is never added.
func (r *Reconciler) ComputeDelta(ctx context.Context, termID int64, desiredUserIDs, desiredRoleIDs []int64) (*entities.GrantDelta, error) {
	start := time.Now()
	delta, err := r.computeDelta(ctx, termID, desiredUserIDs, desiredRoleIDs)
	r.record(metrics.OpComputeDelta, start, err)
	return delta, err
}

func (r *Reconciler) computeDelta(ctx context.Context, termID int64, desiredUserIDs, desiredRoleIDs []int64) (*entities.GrantDelta, error) {
	existingUsers, err := r.grants.ListUserGrants(ctx, termID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user grants of term %d: %w", termID, err)
	}
	existingRoles, err := r.grants.ListRoleGrants(ctx, termID)
	if err != nil {
		return nil, fmt.Errorf("failed to load role grants of term %d: %w", termID, err)
	}

	usersToAdd, usersToRemove := diffIDs(existingUsers, desiredUserIDs)
	rolesToAdd, rolesToRemove := diffIDs(existingRoles, desiredRoleIDs)

	return &entities.GrantDelta{
		UsersToAdd:    usersToAdd,
		UsersToRemove: usersToRemove,
		RolesToAdd:    dropZeroID(rolesToAdd),
		RolesToRemove: rolesToRemove,
	}, nil
}

// ResolveUsernames resolves submitted usernames to user IDs. Unknown names
// are collected and reported together in an UnknownUsersError alongside the
// IDs that did resolve; any other lookup failure aborts immediately.
func (r *Reconciler) ResolveUsernames(ctx context.Context, names []string) ([]int64, error) {
	var userIDs []int64
	var unknown []string

	for _, name := range names {
		userID, err := r.users.GetIDByName(ctx, name)
		if errors.Is(err, repositories.ErrUserNotFound) {
			unknown = append(unknown, name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user %q: %w", name, err)
		}
		userIDs = append(userIDs, userID)
	}

	if len(unknown) > 0 {
		return userIDs, &UnknownUsersError{Names: unknown}
	}
	return userIDs, nil
}

// Reconcile validates a desired ACL, resolves its term name and usernames,
// and computes the delta against the stored grants. The caller decides when
// to Apply the returned delta.
func (r *Reconciler) Reconcile(ctx context.Context, desired *entities.DesiredACL) (int64, *entities.GrantDelta, error) {
	if err := desired.Validate(); err != nil {
		return 0, nil, fmt.Errorf("invalid desired ACL: %w", err)
	}

	termID, err := r.terms.GetIDByName(ctx, desired.TermName)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to resolve term %q: %w", desired.TermName, err)
	}

	userIDs, err := r.ResolveUsernames(ctx, desired.Usernames)
	if err != nil {
		return 0, nil, err
	}

	delta, err := r.ComputeDelta(ctx, termID, userIDs, desired.RoleIDs)
	if err != nil {
		return 0, nil, err
	}
	return termID, delta, nil
}

// Apply persists a delta. Applies targeting the same term are serialized so
// two concurrent submissions cannot interleave their remove and add steps;
// within the lock the repository applies the whole delta in one transaction.
func (r *Reconciler) Apply(ctx context.Context, termID int64, delta *entities.GrantDelta) error {
	start := time.Now()

	unlock := r.lockTerm(termID)
	defer unlock()

	err := r.grants.ApplyDelta(ctx, termID, delta)
	r.record(metrics.OpApplyDelta, start, err)
	if err != nil {
		return fmt.Errorf("failed to apply grant delta to term %d: %w", termID, err)
	}
	return nil
}

// lockTerm acquires the per-term mutex, creating it on first use.
func (r *Reconciler) lockTerm(termID int64) func() {
	r.mu.Lock()
	l, ok := r.termLocks[termID]
	if !ok {
		l = &sync.Mutex{}
		r.termLocks[termID] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// diffIDs returns the symmetric difference of two ID sets: what must be
// added to existing to contain desired, and what must be removed from
// existing because desired no longer names it. Duplicates in the inputs are
// ignored; the outputs are sorted for determinism.
func diffIDs(existing, desired []int64) (toAdd, toRemove []int64) {
	existingSet := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		existingSet[id] = struct{}{}
	}
	desiredSet := make(map[int64]struct{}, len(desired))
	for _, id := range desired {
		desiredSet[id] = struct{}{}
	}

	for id := range desiredSet {
		if _, ok := existingSet[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	for id := range existingSet {
		if _, ok := desiredSet[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}

	sort.Slice(toAdd, func(i, j int) bool { return toAdd[i] < toAdd[j] })
	sort.Slice(toRemove, func(i, j int) bool { return toRemove[i] < toRemove[j] })
	return toAdd, toRemove
}

// dropZeroID removes the zero/unset sentinel from an ID set.
func dropZeroID(ids []int64) []int64 {
	var out []int64
	for _, id := range ids {
		if id != 0 {
			out = append(out, id)
		}
	}
	return out
}

func (r *Reconciler) record(op string, start time.Time, err error) {
	if r.recorder == nil {
		return
	}
	r.recorder.RecordRequest(op)
	r.recorder.RecordDuration(op, time.Since(start).Seconds())
	if err != nil {
		r.recorder.RecordError(op)
	}
}
