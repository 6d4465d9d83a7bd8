package store

import (
	"testing"
	"time"
)

func TestCareActivityAppendAndList(t *testing.T) {
	db := newTestDB(t)
	ps := NewPlantStore(db)
	cs := NewCareActivityStore(db)
	userID, householdID := newTestHousehold(t, db, "alice@example.com")

	p, _ := ps.Create(householdID, userID, "Monstera", nil, nil, 7, daysAgo(3), "", "")

	now := time.Now().UTC()
	kinds := []string{"watering", "fertilizing", "misting"}
	for i, kind := range kinds {
		if _, err := cs.Create(p.ID, householdID, userID, kind, "", now.Add(-time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("create %s activity: %v", kind, err)
		}
	}

	activities, err := cs.ListByPlant(p.ID, householdID)
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	if len(activities) != 3 {
		t.Fatalf("activities = %d, want 3", len(activities))
	}
	// Most recent first.
	if activities[0].Kind != "watering" {
		t.Errorf("first activity = %q, want watering", activities[0].Kind)
	}
	for _, a := range activities {
		if a.UserID != userID {
			t.Errorf("activity %d acting user = %d, want %d", a.ID, a.UserID, userID)
		}
	}
}

func TestCareActivityListRecentLimit(t *testing.T) {
	db := newTestDB(t)
	ps := NewPlantStore(db)
	cs := NewCareActivityStore(db)
	userID, householdID := newTestHousehold(t, db, "alice@example.com")

	p, _ := ps.Create(householdID, userID, "Monstera", nil, nil, 7, daysAgo(3), "", "")
	for i := 0; i < 10; i++ {
		cs.Create(p.ID, householdID, userID, "watering", "", time.Now().UTC().Add(-time.Duration(i)*time.Hour))
	}

	recent, err := cs.ListRecent(householdID, 5)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 5 {
		t.Errorf("recent = %d, want 5", len(recent))
	}
}
