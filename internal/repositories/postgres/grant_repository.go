package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/uehara/kakine/internal/entities"
	"github.com/uehara/kakine/internal/repositories"
)

// PostgresGrantRepository implements GrantRepository using PostgreSQL
type PostgresGrantRepository struct {
	db *sql.DB
}

// NewPostgresGrantRepository creates a new PostgreSQL grant repository
func NewPostgresGrantRepository(db *sql.DB) repositories.GrantRepository {
	return &PostgresGrantRepository{db: db}
}

// ListUserGrants returns the user IDs granted access to the term
func (r *PostgresGrantRepository) ListUserGrants(ctx context.Context, termID int64) ([]int64, error) {
	query := `SELECT uid FROM term_user_grants WHERE tid = $1`

	rows, err := r.db.QueryContext(ctx, query, termID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user grants: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows, "user grant")
}

// ListRoleGrants returns the role IDs granted access to the term
func (r *PostgresGrantRepository) ListRoleGrants(ctx context.Context, termID int64) ([]int64, error) {
	query := `SELECT rid FROM term_role_grants WHERE tid = $1`

	rows, err := r.db.QueryContext(ctx, query, termID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role grants: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows, "role grant")
}

// CountGrants returns the total number of grants recorded for the term
func (r *PostgresGrantRepository) CountGrants(ctx context.Context, termID int64) (int, error) {
	query := `
		SELECT
			(SELECT COUNT(1) FROM term_user_grants WHERE tid = $1) +
			(SELECT COUNT(1) FROM term_role_grants WHERE tid = $1)
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, termID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count grants: %w", err)
	}
	return count, nil
}

// HasUserGrant checks whether the user is granted access to the term
func (r *PostgresGrantRepository) HasUserGrant(ctx context.Context, termID, userID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM term_user_grants WHERE tid = $1 AND uid = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, termID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user grant: %w", err)
	}
	return exists, nil
}

// HasAnyRoleGrant checks whether any of the given roles is granted access
// to the term. All roles are matched in a single query.
func (r *PostgresGrantRepository) HasAnyRoleGrant(ctx context.Context, termID int64, roleIDs []int64) (bool, error) {
	if len(roleIDs) == 0 {
		return false, nil
	}

	query := `SELECT EXISTS(SELECT 1 FROM term_role_grants WHERE tid = $1 AND rid = ANY($2))`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, termID, pq.Array(roleIDs)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check role grants: %w", err)
	}
	return exists, nil
}

// ListGrantsForTerms loads the grants of all given terms in two queries.
// Terms without stored grants are present in the result with empty sets,
// so callers can tell "unrestricted term" from "term not requested".
func (r *PostgresGrantRepository) ListGrantsForTerms(ctx context.Context, termIDs []int64) (map[int64]*entities.TermGrants, error) {
	result := make(map[int64]*entities.TermGrants, len(termIDs))
	for _, tid := range termIDs {
		result[tid] = &entities.TermGrants{TermID: tid}
	}
	if len(termIDs) == 0 {
		return result, nil
	}

	userQuery := `SELECT tid, uid FROM term_user_grants WHERE tid = ANY($1)`
	rows, err := r.db.QueryContext(ctx, userQuery, pq.Array(termIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to batch-load user grants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tid, uid int64
		if err := rows.Scan(&tid, &uid); err != nil {
			return nil, fmt.Errorf("failed to scan user grant: %w", err)
		}
		if g, ok := result[tid]; ok {
			g.UserIDs = append(g.UserIDs, uid)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user grants: %w", err)
	}

	roleQuery := `SELECT tid, rid FROM term_role_grants WHERE tid = ANY($1)`
	roleRows, err := r.db.QueryContext(ctx, roleQuery, pq.Array(termIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to batch-load role grants: %w", err)
	}
	defer roleRows.Close()

	for roleRows.Next() {
		var tid, rid int64
		if err := roleRows.Scan(&tid, &rid); err != nil {
			return nil, fmt.Errorf("failed to scan role grant: %w", err)
		}
		if g, ok := result[tid]; ok {
			g.RoleIDs = append(g.RoleIDs, rid)
		}
	}
	if err := roleRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role grants: %w", err)
	}

	return result, nil
}

// InsertUserGrants adds user grants to the term
func (r *PostgresGrantRepository) InsertUserGrants(ctx context.Context, termID int64, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	if err := insertGrants(ctx, r.db, "term_user_grants", "uid", termID, userIDs); err != nil {
		return fmt.Errorf("failed to insert user grants: %w", err)
	}
	return nil
}

// DeleteUserGrants removes exactly the given (termID, userID) pairs
func (r *PostgresGrantRepository) DeleteUserGrants(ctx context.Context, termID int64, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	if err := deleteGrants(ctx, r.db, "term_user_grants", "uid", termID, userIDs); err != nil {
		return fmt.Errorf("failed to delete user grants: %w", err)
	}
	return nil
}

// InsertRoleGrants adds role grants to the term
func (r *PostgresGrantRepository) InsertRoleGrants(ctx context.Context, termID int64, roleIDs []int64) error {
	if len(roleIDs) == 0 {
		return nil
	}
	if err := insertGrants(ctx, r.db, "term_role_grants", "rid", termID, roleIDs); err != nil {
		return fmt.Errorf("failed to insert role grants: %w", err)
	}
	return nil
}

// DeleteRoleGrants removes exactly the given (termID, roleID) pairs
func (r *PostgresGrantRepository) DeleteRoleGrants(ctx context.Context, termID int64, roleIDs []int64) error {
	if len(roleIDs) == 0 {
		return nil
	}
	if err := deleteGrants(ctx, r.db, "term_role_grants", "rid", termID, roleIDs); err != nil {
		return fmt.Errorf("failed to delete role grants: %w", err)
	}
	return nil
}

// ApplyDelta applies all removals and additions of a delta to the term in a
// single transaction. Deletes are scoped to the exact ID sets of the delta,
// never to "everything except" some ID.
func (r *PostgresGrantRepository) ApplyDelta(ctx context.Context, termID int64, delta *entities.GrantDelta) error {
	if delta == nil || delta.IsEmpty() {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if len(delta.UsersToRemove) > 0 {
		if err := deleteGrants(ctx, tx, "term_user_grants", "uid", termID, delta.UsersToRemove); err != nil {
			return fmt.Errorf("failed to delete user grants: %w", err)
		}
	}
	if len(delta.RolesToRemove) > 0 {
		if err := deleteGrants(ctx, tx, "term_role_grants", "rid", termID, delta.RolesToRemove); err != nil {
			return fmt.Errorf("failed to delete role grants: %w", err)
		}
	}
	if len(delta.UsersToAdd) > 0 {
		if err := insertGrants(ctx, tx, "term_user_grants", "uid", termID, delta.UsersToAdd); err != nil {
			return fmt.Errorf("failed to insert user grants: %w", err)
		}
	}
	if len(delta.RolesToAdd) > 0 {
		if err := insertGrants(ctx, tx, "term_role_grants", "rid", termID, delta.RolesToAdd); err != nil {
			return fmt.Errorf("failed to insert role grants: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertGrants(ctx context.Context, e execer, table, column string, termID int64, ids []int64) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (tid, %s)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING
	`, table, column)
	_, err := e.ExecContext(ctx, query, termID, pq.Array(ids))
	return err
}

func deleteGrants(ctx context.Context, e execer, table, column string, termID int64, ids []int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE tid = $1 AND %s = ANY($2)`, table, column)
	_, err := e.ExecContext(ctx, query, termID, pq.Array(ids))
	return err
}

func scanIDs(rows *sql.Rows, what string) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %ss: %w", what, err)
	}
	return ids, nil
}
