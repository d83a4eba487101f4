package repositories

import "context"

// TermRepository defines the interface for taxonomy term lookup.
// Terms themselves are owned by the host content system; the reconciler
// only needs to resolve a submitted term name to its ID.
type TermRepository interface {
	// GetIDByName returns the ID of the term with the given name.
	// When several terms share the name, the lowest ID wins.
	// Returns ErrTermNotFound if no term matches.
	GetIDByName(ctx context.Context, name string) (int64, error)
}
