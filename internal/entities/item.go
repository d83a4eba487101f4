package entities

// Item represents a content item together with the taxonomy terms it is
// classified under. The association is supplied by the host content system;
// an item with no terms is never restricted by term grants.
type Item struct {
	ID      int64
	TermIDs []int64
}
