package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uehara/kakine/internal/repositories"
)

// PostgresTermRepository implements TermRepository using PostgreSQL
type PostgresTermRepository struct {
	db *sql.DB
}

// NewPostgresTermRepository creates a new PostgreSQL term repository
func NewPostgresTermRepository(db *sql.DB) repositories.TermRepository {
	return &PostgresTermRepository{db: db}
}

// GetIDByName returns the ID of the term with the given name.
// Term names are not unique; the lowest ID wins, matching how the
// host content system resolves ambiguous names.
func (r *PostgresTermRepository) GetIDByName(ctx context.Context, name string) (int64, error) {
	query := `SELECT tid FROM taxonomy_terms WHERE name = $1 ORDER BY tid LIMIT 1`

	var termID int64
	err := r.db.QueryRowContext(ctx, query, name).Scan(&termID)
	if err == sql.ErrNoRows {
		return 0, repositories.ErrTermNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up term %q: %w", name, err)
	}
	return termID, nil
}
