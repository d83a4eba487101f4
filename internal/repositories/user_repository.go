package repositories

import "context"

// UserRepository defines the interface for user identity lookup.
// User accounts are owned by the host; the reconciler only resolves
// submitted usernames to user IDs.
type UserRepository interface {
	// GetIDByName returns the ID of the user with the given name.
	// Returns ErrUserNotFound if no user matches.
	GetIDByName(ctx context.Context, name string) (int64, error)
}
