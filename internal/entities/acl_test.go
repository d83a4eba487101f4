package entities

import "testing"

func TestDesiredACL_Validate(t *testing.T) {
	tests := []struct {
		name    string
		acl     DesiredACL
		wantErr bool
	}{
		{
			name:    "valid with users and roles",
			acl:     DesiredACL{TermName: "internal", Usernames: []string{"alice"}, RoleIDs: []int64{3}},
			wantErr: false,
		},
		{
			name:    "valid with empty grant sets",
			acl:     DesiredACL{TermName: "internal"},
			wantErr: false,
		},
		{
			name:    "missing term name",
			acl:     DesiredACL{Usernames: []string{"alice"}},
			wantErr: true,
		},
		{
			name:    "empty username",
			acl:     DesiredACL{TermName: "internal", Usernames: []string{"alice", ""}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.acl.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGrantDelta_IsEmpty(t *testing.T) {
	empty := GrantDelta{}
	if !empty.IsEmpty() {
		t.Error("expected zero-value delta to be empty")
	}

	delta := GrantDelta{RolesToRemove: []int64{3}}
	if delta.IsEmpty() {
		t.Error("expected delta with removals to be non-empty")
	}
}
