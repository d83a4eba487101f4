package entities

import "fmt"

// DesiredACL is the administrator-submitted target state for one term's
// access-control list: the users (by name, resolved to IDs later) and the
// roles that should have access once the submission is applied.
type DesiredACL struct {
	TermName  string
	Usernames []string
	RoleIDs   []int64
}

// Validate checks that the desired ACL identifies a term.
// Empty user and role sets are valid: they mean "remove all grants".
func (a *DesiredACL) Validate() error {
	if a.TermName == "" {
		return fmt.Errorf("term name is required")
	}
	for _, name := range a.Usernames {
		if name == "" {
			return fmt.Errorf("username must not be empty")
		}
	}
	return nil
}

// GrantDelta is the set of grant operations needed to turn a term's stored
// ACL into a desired ACL. The four sets are disjoint per kind; order is
// irrelevant but implementations keep them sorted for determinism.
type GrantDelta struct {
	UsersToAdd    []int64
	UsersToRemove []int64
	RolesToAdd    []int64
	RolesToRemove []int64
}

// IsEmpty reports whether applying the delta would change nothing.
func (d *GrantDelta) IsEmpty() bool {
	return len(d.UsersToAdd) == 0 && len(d.UsersToRemove) == 0 &&
		len(d.RolesToAdd) == 0 && len(d.RolesToRemove) == 0
}
