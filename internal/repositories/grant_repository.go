package repositories

import (
	"context"

	"github.com/uehara/kakine/internal/entities"
)

// GrantRepository defines the interface for term grant data access.
// Grants are the persistent ACL entries of a term: (term, user) and
// (term, role) pairs. All read methods distinguish "no rows" (empty
// result, nil error) from a storage failure (non-nil error); callers
// rely on that distinction for the default-allow policy.
type GrantRepository interface {
	// ListUserGrants returns the user IDs granted access to the term.
	ListUserGrants(ctx context.Context, termID int64) ([]int64, error)

	// ListRoleGrants returns the role IDs granted access to the term.
	ListRoleGrants(ctx context.Context, termID int64) ([]int64, error)

	// CountGrants returns the total number of grants (user and role)
	// recorded for the term.
	CountGrants(ctx context.Context, termID int64) (int, error)

	// HasUserGrant checks whether the user is granted access to the term.
	HasUserGrant(ctx context.Context, termID, userID int64) (bool, error)

	// HasAnyRoleGrant checks whether any of the given roles is granted
	// access to the term, in a single round trip.
	HasAnyRoleGrant(ctx context.Context, termID int64, roleIDs []int64) (bool, error)

	// ListGrantsForTerms loads the grants of all given terms in one batch.
	// The result contains an entry for every requested term ID; terms with
	// no stored grants map to an empty TermGrants.
	ListGrantsForTerms(ctx context.Context, termIDs []int64) (map[int64]*entities.TermGrants, error)

	// InsertUserGrants adds user grants to the term. Existing grants are
	// left untouched.
	InsertUserGrants(ctx context.Context, termID int64, userIDs []int64) error

	// DeleteUserGrants removes exactly the (termID, userID) pairs given.
	DeleteUserGrants(ctx context.Context, termID int64, userIDs []int64) error

	// InsertRoleGrants adds role grants to the term.
	InsertRoleGrants(ctx context.Context, termID int64, roleIDs []int64) error

	// DeleteRoleGrants removes exactly the (termID, roleID) pairs given.
	DeleteRoleGrants(ctx context.Context, termID int64, roleIDs []int64) error

	// ApplyDelta applies all removals and additions of a delta to the term
	// in a single transaction.
	ApplyDelta(ctx context.Context, termID int64, delta *entities.GrantDelta) error
}
