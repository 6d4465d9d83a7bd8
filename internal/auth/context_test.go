package auth

import (
	"context"
	"testing"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{
		UserID:      1,
		HouseholdID: 2,
		Role:        RoleOwner,
		SessionID:   3,
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.UserID != 1 {
		t.Errorf("UserID = %d, want 1", got.UserID)
	}
	if got.HouseholdID != 2 {
		t.Errorf("HouseholdID = %d, want 2", got.HouseholdID)
	}
	if got.Role != RoleOwner {
		t.Errorf("Role = %q, want %q", got.Role, RoleOwner)
	}
	if got.SessionID != 3 {
		t.Errorf("SessionID = %d, want 3", got.SessionID)
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestHouseholdID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{HouseholdID: 42})
	if HouseholdID(ctx) != 42 {
		t.Errorf("HouseholdID = %d, want 42", HouseholdID(ctx))
	}
}

func TestHouseholdIDMissing(t *testing.T) {
	if HouseholdID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}

func TestUserID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: 7})
	if UserID(ctx) != 7 {
		t.Errorf("UserID = %d, want 7", UserID(ctx))
	}
}

func TestCan(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{Role: RoleCaretaker})
	if !Can(ctx, CapLogCare) {
		t.Error("caretaker should be able to log care")
	}
	if Can(ctx, CapEditPlants) {
		t.Error("caretaker must not edit plants")
	}
}

func TestCanMissingContext(t *testing.T) {
	if Can(context.Background(), CapRead) {
		t.Error("missing context grants nothing")
	}
}

func TestContextIsolation(t *testing.T) {
	base := context.Background()
	a := WithAuth(base, AuthContext{UserID: 1, HouseholdID: 10})
	b := WithAuth(base, AuthContext{UserID: 2, HouseholdID: 20})

	if HouseholdID(a) != 10 || HouseholdID(b) != 20 {
		t.Error("contexts must not share scoping state")
	}
	if _, ok := FromContext(base); ok {
		t.Error("base context must stay untouched")
	}
}
