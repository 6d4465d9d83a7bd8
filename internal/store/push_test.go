package store

import "testing"

func TestPushSubscriptionUpsert(t *testing.T) {
	db := newTestDB(t)
	ps := NewPushStore(db)
	userID, householdID := newTestHousehold(t, db, "alice@example.com")

	sub, err := ps.CreateSubscription(userID, householdID, "https://push.example/abc", "p256dh-1", "auth-1", "Phone")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if sub.Endpoint != "https://push.example/abc" {
		t.Errorf("endpoint = %q", sub.Endpoint)
	}

	// Same endpoint updates keys in place.
	updated, err := ps.CreateSubscription(userID, householdID, "https://push.example/abc", "p256dh-2", "auth-2", "Phone")
	if err != nil {
		t.Fatalf("upsert subscription: %v", err)
	}
	if updated.P256dhKey != "p256dh-2" {
		t.Errorf("p256dh = %q, want updated key", updated.P256dhKey)
	}

	subs, _ := ps.ListByUser(userID, householdID)
	if len(subs) != 1 {
		t.Errorf("subscriptions = %d, want 1 after upsert", len(subs))
	}
}

func TestPushSubscriptionScopedDelete(t *testing.T) {
	db := newTestDB(t)
	ps := NewPushStore(db)
	userID, householdID := newTestHousehold(t, db, "alice@example.com")
	_, otherHouse := newTestHousehold(t, db, "bob@example.com")

	sub, _ := ps.CreateSubscription(userID, householdID, "https://push.example/abc", "k", "a", "")

	// Delete under the wrong household leaves the row.
	if err := ps.DeleteSubscription(sub.ID, otherHouse); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := ps.GetByID(sub.ID, householdID); got == nil {
		t.Error("subscription deleted by foreign household")
	}
}

func TestPreferenceDefaultsEnabled(t *testing.T) {
	db := newTestDB(t)
	ps := NewPushStore(db)
	userID, householdID := newTestHousehold(t, db, "alice@example.com")

	enabled, err := ps.IsPreferenceEnabled(userID, householdID, "watering_reminder")
	if err != nil {
		t.Fatalf("preference: %v", err)
	}
	if !enabled {
		t.Error("missing preference row should default to enabled")
	}

	if err := ps.SetPreference(userID, householdID, "watering_reminder", false); err != nil {
		t.Fatalf("set preference: %v", err)
	}
	enabled, _ = ps.IsPreferenceEnabled(userID, householdID, "watering_reminder")
	if enabled {
		t.Error("preference should be disabled after opt-out")
	}
}

func TestNotificationLogDebounce(t *testing.T) {
	db := newTestDB(t)
	ps := NewPushStore(db)
	_, householdID := newTestHousehold(t, db, "alice@example.com")

	sent, err := ps.WasSent(householdID, "daily_digest", "2026-08-28")
	if err != nil {
		t.Fatalf("was sent: %v", err)
	}
	if sent {
		t.Error("nothing recorded yet")
	}

	if err := ps.RecordSent(householdID, "daily_digest", "2026-08-28"); err != nil {
		t.Fatalf("record sent: %v", err)
	}
	// Recording twice is a no-op, not an error.
	if err := ps.RecordSent(householdID, "daily_digest", "2026-08-28"); err != nil {
		t.Fatalf("record sent twice: %v", err)
	}

	sent, _ = ps.WasSent(householdID, "daily_digest", "2026-08-28")
	if !sent {
		t.Error("expected debounce hit after recording")
	}

	// A different ref id is independent.
	sent, _ = ps.WasSent(householdID, "daily_digest", "2026-08-29")
	if sent {
		t.Error("different ref id should not be debounced")
	}
}
