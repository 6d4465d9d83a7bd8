package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rowanhale/verdant/internal/database"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// newTestHousehold creates a user and a household owned by that user.
func newTestHousehold(t *testing.T, db *sql.DB, email string) (userID, householdID int64) {
	t.Helper()
	us := NewUserStore(db)
	hs := NewHouseholdStore(db)

	u, err := us.Create(email, "Test User")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	h, err := hs.Create("Test Household", u.ID)
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	return u.ID, h.ID
}

func daysAgo(n int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -n)
}
