package e2e

import (
	"context"
	"testing"

	"github.com/uehara/kakine/internal/entities"
)

// End-to-end pass over the core flow: an administrator grants access on a
// term through the reconciler, and viewers are filtered accordingly.
func TestScenario_GrantAndFilter(t *testing.T) {
	skipIfNotIntegration(t)

	env := SetupTestEnv(t)
	defer env.Cleanup(t)
	ctx := context.Background()

	termID := env.CreateTerm(t, "internal")
	openTermID := env.CreateTerm(t, "public")
	env.CreateUser(t, 9, "alice")
	env.CreateUser(t, 7, "bob")

	// Before any grants exist everyone sees everything
	allowed, err := env.Evaluator.CanViewTerm(ctx, &entities.Viewer{UserID: 7}, termID)
	if err != nil {
		t.Fatalf("CanViewTerm() error = %v", err)
	}
	if !allowed {
		t.Error("term without grants should be visible to everyone")
	}

	// Restrict the term to alice and role 3
	desired := &entities.DesiredACL{
		TermName:  "internal",
		Usernames: []string{"alice"},
		RoleIDs:   []int64{3},
	}
	gotTermID, delta, err := env.Reconciler.Reconcile(ctx, desired)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if gotTermID != termID {
		t.Fatalf("Reconcile() termID = %d, want %d", gotTermID, termID)
	}
	if err := env.Reconciler.Apply(ctx, termID, delta); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	items := []*entities.Item{
		{ID: 1, TermIDs: []int64{termID}},
		{ID: 2, TermIDs: []int64{openTermID}},
		{ID: 3, TermIDs: []int64{termID, openTermID}},
	}

	tests := []struct {
		name    string
		viewer  entities.Viewer
		wantIDs []int64
	}{
		{
			name:    "granted user sees all",
			viewer:  entities.Viewer{UserID: 9},
			wantIDs: []int64{1, 2, 3},
		},
		{
			name:    "role holder sees all",
			viewer:  entities.Viewer{UserID: 7, RoleIDs: []int64{3}},
			wantIDs: []int64{1, 2, 3},
		},
		{
			name:    "ungranted user sees only open items",
			viewer:  entities.Viewer{UserID: 7},
			wantIDs: []int64{2},
		},
		{
			name:    "super administrator sees all",
			viewer:  entities.Viewer{UserID: 1},
			wantIDs: []int64{1, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			visible, err := env.Evaluator.FilterItems(ctx, &tt.viewer, items)
			if err != nil {
				t.Fatalf("FilterItems() error = %v", err)
			}
			if len(visible) != len(tt.wantIDs) {
				t.Fatalf("FilterItems() returned %d items, want %d", len(visible), len(tt.wantIDs))
			}
			for i, item := range visible {
				if item.ID != tt.wantIDs[i] {
					t.Errorf("FilterItems()[%d] = item %d, want %d", i, item.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

// Converging twice must produce an empty second delta, and revoking a grant
// must not touch the same user's grants on other terms.
func TestScenario_ReconcileConvergence(t *testing.T) {
	skipIfNotIntegration(t)

	env := SetupTestEnv(t)
	defer env.Cleanup(t)
	ctx := context.Background()

	termID := env.CreateTerm(t, "internal")
	otherID := env.CreateTerm(t, "archive")
	env.CreateUser(t, 9, "alice")
	env.CreateUser(t, 7, "bob")

	// Grant alice and bob on both terms
	for _, name := range []string{"internal", "archive"} {
		tid, delta, err := env.Reconciler.Reconcile(ctx, &entities.DesiredACL{
			TermName:  name,
			Usernames: []string{"alice", "bob"},
		})
		if err != nil {
			t.Fatalf("Reconcile(%s) error = %v", name, err)
		}
		if err := env.Reconciler.Apply(ctx, tid, delta); err != nil {
			t.Fatalf("Apply(%s) error = %v", name, err)
		}
	}

	// Drop bob from "internal" only
	tid, delta, err := env.Reconciler.Reconcile(ctx, &entities.DesiredACL{
		TermName:  "internal",
		Usernames: []string{"alice"},
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if err := env.Reconciler.Apply(ctx, tid, delta); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	// A second reconcile of the same desired state is a no-op
	_, again, err := env.Reconciler.Reconcile(ctx, &entities.DesiredACL{
		TermName:  "internal",
		Usernames: []string{"alice"},
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if !again.IsEmpty() {
		t.Errorf("delta after convergence = %+v, want empty", again)
	}

	// Bob keeps his grant on the unrelated term
	allowed, err := env.Evaluator.CanViewTerm(ctx, &entities.Viewer{UserID: 7}, otherID)
	if err != nil {
		t.Fatalf("CanViewTerm() error = %v", err)
	}
	if !allowed {
		t.Error("revoking a grant on one term must not affect other terms")
	}

	allowed, err = env.Evaluator.CanViewTerm(ctx, &entities.Viewer{UserID: 7}, termID)
	if err != nil {
		t.Fatalf("CanViewTerm() error = %v", err)
	}
	if allowed {
		t.Error("bob should no longer see the restricted term")
	}
}

// Unknown usernames surface as a validation error naming every offender.
func TestScenario_UnknownUsernames(t *testing.T) {
	skipIfNotIntegration(t)

	env := SetupTestEnv(t)
	defer env.Cleanup(t)
	ctx := context.Background()

	env.CreateTerm(t, "internal")
	env.CreateUser(t, 9, "alice")

	_, _, err := env.Reconciler.Reconcile(ctx, &entities.DesiredACL{
		TermName:  "internal",
		Usernames: []string{"alice", "ghost"},
	})
	if err == nil {
		t.Fatal("Reconcile() error = nil, want unknown-user validation error")
	}
}
