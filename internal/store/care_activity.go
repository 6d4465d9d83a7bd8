package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rowanhale/verdant/internal/model"
)

// CareActivityStore is append-only: activities are created and listed, never
// updated or deleted individually. Rows disappear only when their plant is
// deleted and the cascade removes them.
type CareActivityStore struct {
	db *sql.DB
}

func NewCareActivityStore(db *sql.DB) *CareActivityStore {
	return &CareActivityStore{db: db}
}

func scanCareActivity(scanner interface{ Scan(...any) error }) (*model.CareActivity, error) {
	var a model.CareActivity
	err := scanner.Scan(&a.ID, &a.PlantID, &a.HouseholdID, &a.UserID, &a.Kind, &a.Notes, &a.PerformedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const careActivityCols = `id, plant_id, household_id, user_id, kind, notes, performed_at, created_at`

func (s *CareActivityStore) Create(plantID, householdID, userID int64, kind, notes string, performedAt time.Time) (*model.CareActivity, error) {
	result, err := s.db.Exec(
		`INSERT INTO care_activities (plant_id, household_id, user_id, kind, notes, performed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		plantID, householdID, userID, kind, notes, performedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert care activity: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id, householdID)
}

func (s *CareActivityStore) GetByID(id, householdID int64) (*model.CareActivity, error) {
	row := s.db.QueryRow(
		`SELECT `+careActivityCols+` FROM care_activities WHERE id = ? AND household_id = ?`,
		id, householdID,
	)
	a, err := scanCareActivity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get care activity: %w", err)
	}
	return a, nil
}

func (s *CareActivityStore) ListByPlant(plantID, householdID int64) ([]model.CareActivity, error) {
	rows, err := s.db.Query(
		`SELECT `+careActivityCols+` FROM care_activities WHERE plant_id = ? AND household_id = ? ORDER BY performed_at DESC`,
		plantID, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list care activities: %w", err)
	}
	defer rows.Close()
	return scanCareActivities(rows)
}

// ListRecent returns the household's most recent activity across all plants.
func (s *CareActivityStore) ListRecent(householdID int64, limit int) ([]model.CareActivity, error) {
	rows, err := s.db.Query(
		`SELECT `+careActivityCols+` FROM care_activities WHERE household_id = ? ORDER BY performed_at DESC LIMIT ?`,
		householdID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent care activities: %w", err)
	}
	defer rows.Close()
	return scanCareActivities(rows)
}

func scanCareActivities(rows *sql.Rows) ([]model.CareActivity, error) {
	var activities []model.CareActivity
	for rows.Next() {
		a, err := scanCareActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan care activity: %w", err)
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}
