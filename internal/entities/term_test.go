package entities

import "testing"

func TestTermGrants_IsRestricted(t *testing.T) {
	tests := []struct {
		name   string
		grants TermGrants
		want   bool
	}{
		{
			name:   "no grants",
			grants: TermGrants{TermID: 5},
			want:   false,
		},
		{
			name:   "user grant only",
			grants: TermGrants{TermID: 5, UserIDs: []int64{9}},
			want:   true,
		},
		{
			name:   "role grant only",
			grants: TermGrants{TermID: 5, RoleIDs: []int64{3}},
			want:   true,
		},
		{
			name:   "both kinds",
			grants: TermGrants{TermID: 5, UserIDs: []int64{9}, RoleIDs: []int64{3}},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.grants.IsRestricted(); got != tt.want {
				t.Errorf("IsRestricted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTermGrants_HasUser(t *testing.T) {
	grants := TermGrants{TermID: 5, UserIDs: []int64{2, 9, 14}}

	if !grants.HasUser(9) {
		t.Error("expected user 9 to be granted")
	}
	if grants.HasUser(7) {
		t.Error("did not expect user 7 to be granted")
	}
}

func TestTermGrants_HasAnyRole(t *testing.T) {
	grants := TermGrants{TermID: 5, RoleIDs: []int64{3, 6}}

	tests := []struct {
		name    string
		roleIDs []int64
		want    bool
	}{
		{name: "no roles held", roleIDs: nil, want: false},
		{name: "unrelated role", roleIDs: []int64{4}, want: false},
		{name: "matching role", roleIDs: []int64{3}, want: true},
		{name: "match not first", roleIDs: []int64{4, 5, 6}, want: true},
		{name: "order irrelevant", roleIDs: []int64{6, 4}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := grants.HasAnyRole(tt.roleIDs); got != tt.want {
				t.Errorf("HasAnyRole(%v) = %v, want %v", tt.roleIDs, got, tt.want)
			}
		})
	}
}
