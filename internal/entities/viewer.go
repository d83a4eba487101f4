package entities

// AdminUserID is the user ID of the super administrator.
// A viewer with this ID bypasses all term restrictions.
const AdminUserID int64 = 1

// Viewer represents the identity an access decision is made for:
// a user ID plus the set of role IDs that user holds.
// A Viewer is always passed explicitly; there is no ambient "current user".
type Viewer struct {
	UserID  int64
	RoleIDs []int64
}

// IsAdmin reports whether the viewer is the super administrator.
func (v *Viewer) IsAdmin() bool {
	return v.UserID == AdminUserID
}

// HasRole reports whether the viewer holds the given role.
func (v *Viewer) HasRole(roleID int64) bool {
	for _, rid := range v.RoleIDs {
		if rid == roleID {
			return true
		}
	}
	return false
}
