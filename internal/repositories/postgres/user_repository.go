package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uehara/kakine/internal/repositories"
)

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db *sql.DB
}

// NewPostgresUserRepository creates a new PostgreSQL user repository
func NewPostgresUserRepository(db *sql.DB) repositories.UserRepository {
	return &PostgresUserRepository{db: db}
}

// GetIDByName returns the ID of the user with the given name.
// Returns ErrUserNotFound when the name does not resolve, so callers
// can treat it as a validation failure rather than a storage error.
func (r *PostgresUserRepository) GetIDByName(ctx context.Context, name string) (int64, error) {
	query := `SELECT uid FROM users WHERE name = $1`

	var userID int64
	err := r.db.QueryRowContext(ctx, query, name).Scan(&userID)
	if err == sql.ErrNoRows {
		return 0, repositories.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up user %q: %w", name, err)
	}
	return userID, nil
}
