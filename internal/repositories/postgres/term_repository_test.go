package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/uehara/kakine/internal/repositories"
)

func TestPostgresTermRepository_GetIDByName(t *testing.T) {
	skipIfNotIntegration(t)

	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := NewPostgresTermRepository(db)
	ctx := context.Background()

	termID := insertTestTerm(t, db, "internal")

	got, err := repo.GetIDByName(ctx, "internal")
	if err != nil {
		t.Fatalf("GetIDByName() error = %v", err)
	}
	if got != termID {
		t.Errorf("GetIDByName() = %d, want %d", got, termID)
	}

	_, err = repo.GetIDByName(ctx, "missing")
	if !errors.Is(err, repositories.ErrTermNotFound) {
		t.Errorf("GetIDByName(missing) error = %v, want ErrTermNotFound", err)
	}
}

func TestPostgresTermRepository_DuplicateNamesLowestIDWins(t *testing.T) {
	skipIfNotIntegration(t)

	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := NewPostgresTermRepository(db)
	ctx := context.Background()

	first := insertTestTerm(t, db, "dup")
	insertTestTerm(t, db, "dup")

	got, err := repo.GetIDByName(ctx, "dup")
	if err != nil {
		t.Fatalf("GetIDByName() error = %v", err)
	}
	if got != first {
		t.Errorf("GetIDByName() = %d, want lowest ID %d", got, first)
	}
}
