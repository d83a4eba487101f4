package entities

// Term represents a taxonomy term that content items can be classified under.
// The ID is assigned by the host content system and is immutable.
type Term struct {
	ID   int64
	Name string
}

// TermGrants holds the full access-control list of one term:
// the user IDs and role IDs granted access. A term with no grants
// at all is unrestricted and visible to everyone.
type TermGrants struct {
	TermID  int64
	UserIDs []int64
	RoleIDs []int64
}

// IsRestricted reports whether the term carries at least one grant.
func (g *TermGrants) IsRestricted() bool {
	return len(g.UserIDs) > 0 || len(g.RoleIDs) > 0
}

// HasUser reports whether the given user is granted access directly.
func (g *TermGrants) HasUser(userID int64) bool {
	for _, uid := range g.UserIDs {
		if uid == userID {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether any of the given roles is granted access.
// The result does not depend on the order of roleIDs.
func (g *TermGrants) HasAnyRole(roleIDs []int64) bool {
	for _, rid := range roleIDs {
		for _, granted := range g.RoleIDs {
			if rid == granted {
				return true
			}
		}
	}
	return false
}
