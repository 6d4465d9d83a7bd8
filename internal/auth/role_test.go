package auth

import "testing"

func TestRoleCapabilities(t *testing.T) {
	cases := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleOwner, CapManageMembers, true},
		{RoleOwner, CapManageHousehold, true},
		{RoleOwner, CapEditPlants, true},
		{RoleMember, CapRead, true},
		{RoleMember, CapEditPlants, true},
		{RoleMember, CapManageMembers, false},
		{RoleMember, CapManageHousehold, false},
		{RoleCaretaker, CapRead, true},
		{RoleCaretaker, CapLogCare, true},
		{RoleCaretaker, CapEditPlants, false},
		{RoleCaretaker, CapManageMembers, false},
		{Role("visitor"), CapRead, false},
	}

	for _, c := range cases {
		if got := c.role.Can(c.cap); got != c.want {
			t.Errorf("%s.Can(%d) = %v, want %v", c.role, c.cap, got, c.want)
		}
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleOwner, RoleMember, RoleCaretaker} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if Role("admin").Valid() {
		t.Error("admin is not a recognized role")
	}
}
