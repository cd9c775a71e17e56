package domain

import "testing"

func TestRole_IsValid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleAdmin, true},
		{RoleReader, true},
		{Role("owner"), false},
		{Role(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := tt.role.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthContext_IsAdmin(t *testing.T) {
	if !(&AuthContext{Role: RoleAdmin}).IsAdmin() {
		t.Error("admin should be admin")
	}
	if (&AuthContext{Role: RoleReader}).IsAdmin() {
		t.Error("reader should not be admin")
	}
}
