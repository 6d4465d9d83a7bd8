package store

import (
	"fmt"
	"strings"
	"testing"
)

func TestGenerateInviteCodeAlphabet(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := GenerateInviteCode()
		if err != nil {
			t.Fatalf("generate code: %v", err)
		}
		if len(code) != inviteCodeLength {
			t.Fatalf("code length = %d, want %d", len(code), inviteCodeLength)
		}
		for _, c := range "0O1IL" {
			if strings.ContainsRune(code, c) {
				t.Fatalf("code %q contains ambiguous character %q", code, c)
			}
		}
		for _, c := range code {
			if !strings.ContainsRune(inviteCodeAlphabet, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
		if seen[code] {
			t.Fatalf("collision within 1000 codes: %q", code)
		}
		seen[code] = true
	}
}

func TestHouseholdCreateAssignsInviteCodeAndOwner(t *testing.T) {
	db := newTestDB(t)
	us := NewUserStore(db)
	hs := NewHouseholdStore(db)

	u, _ := us.Create("alice@example.com", "Alice")
	h, err := hs.Create("Greenhouse", u.ID)
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	if h.InviteCode == "" {
		t.Error("expected non-empty invite code")
	}
	if h.CreatedBy != u.ID {
		t.Errorf("created_by = %d, want %d", h.CreatedBy, u.ID)
	}

	m, err := hs.GetMember(h.ID, u.ID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if m == nil {
		t.Fatal("creator should be a member")
	}
	if m.Role != "owner" {
		t.Errorf("creator role = %q, want owner", m.Role)
	}
}

func TestHouseholdCreateRetriesOnCollision(t *testing.T) {
	db := newTestDB(t)
	us := NewUserStore(db)
	hs := NewHouseholdStore(db)

	u, _ := us.Create("alice@example.com", "Alice")
	first, err := hs.Create("First", u.ID)
	if err != nil {
		t.Fatalf("create first household: %v", err)
	}

	// Inject a generator that collides once, then yields a fresh code.
	calls := 0
	hs.codeGen = func() (string, error) {
		calls++
		if calls == 1 {
			return first.InviteCode, nil
		}
		return GenerateInviteCode()
	}

	second, err := hs.Create("Second", u.ID)
	if err != nil {
		t.Fatalf("create second household: %v", err)
	}
	if calls < 2 {
		t.Errorf("generator called %d times, want at least 2 (one retry)", calls)
	}
	if second.InviteCode == first.InviteCode {
		t.Error("collision was not resolved")
	}
}

func TestHouseholdCreateFailsAfterExhaustedRetries(t *testing.T) {
	db := newTestDB(t)
	us := NewUserStore(db)
	hs := NewHouseholdStore(db)

	u, _ := us.Create("alice@example.com", "Alice")
	first, err := hs.Create("First", u.ID)
	if err != nil {
		t.Fatalf("create first household: %v", err)
	}

	// Always collide.
	hs.codeGen = func() (string, error) {
		return first.InviteCode, nil
	}

	if _, err := hs.Create("Doomed", u.ID); err == nil {
		t.Fatal("expected hard failure after exhausted retries")
	}
}

func TestGetByInviteCode(t *testing.T) {
	db := newTestDB(t)
	us := NewUserStore(db)
	hs := NewHouseholdStore(db)

	u, _ := us.Create("alice@example.com", "Alice")
	h, _ := hs.Create("Greenhouse", u.ID)

	got, err := hs.GetByInviteCode(h.InviteCode)
	if err != nil {
		t.Fatalf("get by invite code: %v", err)
	}
	if got == nil || got.ID != h.ID {
		t.Errorf("got %v, want household %d", got, h.ID)
	}

	missing, err := hs.GetByInviteCode("XXXXXXXX")
	if err != nil {
		t.Fatalf("get by unknown code: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown invite code")
	}
}

func TestMembershipLifecycle(t *testing.T) {
	db := newTestDB(t)
	us := NewUserStore(db)
	hs := NewHouseholdStore(db)

	alice, _ := us.Create("alice@example.com", "Alice")
	bob, _ := us.Create("bob@example.com", "Bob")
	h, _ := hs.Create("Greenhouse", alice.ID)

	if _, err := hs.AddMember(h.ID, bob.ID, "caretaker"); err != nil {
		t.Fatalf("add member: %v", err)
	}

	members, err := hs.ListMembers(h.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("members = %d, want 2", len(members))
	}

	// Duplicate membership is rejected by the unique constraint.
	if _, err := hs.AddMember(h.ID, bob.ID, "member"); err == nil {
		t.Error("expected error for duplicate membership")
	}

	updated, err := hs.UpdateMemberRole(h.ID, bob.ID, "member")
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if updated.Role != "member" {
		t.Errorf("role = %q, want member", updated.Role)
	}

	if err := hs.RemoveMember(h.ID, bob.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	m, _ := hs.GetMember(h.ID, bob.ID)
	if m != nil {
		t.Error("expected nil after removal")
	}
}

func TestListHouseholdsForUserOrder(t *testing.T) {
	db := newTestDB(t)
	us := NewUserStore(db)
	hs := NewHouseholdStore(db)

	u, _ := us.Create("alice@example.com", "Alice")
	for i := 0; i < 3; i++ {
		if _, err := hs.Create(fmt.Sprintf("House %d", i), u.ID); err != nil {
			t.Fatalf("create household %d: %v", i, err)
		}
	}

	households, err := hs.ListHouseholdsForUser(u.ID)
	if err != nil {
		t.Fatalf("list households: %v", err)
	}
	if len(households) != 3 {
		t.Fatalf("households = %d, want 3", len(households))
	}
	if households[0].Name != "House 0" {
		t.Errorf("first household = %q, want oldest membership first", households[0].Name)
	}
}

func TestSeedDefaults(t *testing.T) {
	db := newTestDB(t)
	us := NewUserStore(db)
	hs := NewHouseholdStore(db)
	ls := NewLocationStore(db)
	ss := NewSpeciesStore(db)
	set := NewSettingsStore(db)

	u, _ := us.Create("alice@example.com", "Alice")
	h, _ := hs.Create("Greenhouse", u.ID)

	if err := hs.SeedDefaults(h.ID, u.ID); err != nil {
		t.Fatalf("seed defaults: %v", err)
	}

	locations, _ := ls.List(h.ID)
	if len(locations) != 5 {
		t.Errorf("locations = %d, want 5", len(locations))
	}
	species, _ := ss.List(h.ID)
	if len(species) != 8 {
		t.Errorf("species = %d, want 8", len(species))
	}
	if hour := set.ReminderHour(h.ID); hour != 9 {
		t.Errorf("reminder hour = %d, want 9", hour)
	}
	if !set.DigestEnabled(h.ID) {
		t.Error("digest should default to enabled")
	}
}
