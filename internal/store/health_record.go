package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rowanhale/verdant/internal/model"
)

type HealthRecordStore struct {
	db *sql.DB
}

func NewHealthRecordStore(db *sql.DB) *HealthRecordStore {
	return &HealthRecordStore{db: db}
}

func scanHealthRecord(scanner interface{ Scan(...any) error }) (*model.HealthRecord, error) {
	var h model.HealthRecord
	err := scanner.Scan(&h.ID, &h.PlantID, &h.HouseholdID, &h.UserID, &h.Status, &h.Notes, &h.PhotoURL, &h.RecordedAt, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

const healthRecordCols = `id, plant_id, household_id, user_id, status, notes, photo_url, recorded_at, created_at`

func (s *HealthRecordStore) Create(plantID, householdID, userID int64, status, notes, photoURL string, recordedAt time.Time) (*model.HealthRecord, error) {
	result, err := s.db.Exec(
		`INSERT INTO health_records (plant_id, household_id, user_id, status, notes, photo_url, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		plantID, householdID, userID, status, notes, photoURL, recordedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert health record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id, householdID)
}

func (s *HealthRecordStore) GetByID(id, householdID int64) (*model.HealthRecord, error) {
	row := s.db.QueryRow(
		`SELECT `+healthRecordCols+` FROM health_records WHERE id = ? AND household_id = ?`,
		id, householdID,
	)
	h, err := scanHealthRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get health record: %w", err)
	}
	return h, nil
}

func (s *HealthRecordStore) ListByPlant(plantID, householdID int64) ([]model.HealthRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+healthRecordCols+` FROM health_records WHERE plant_id = ? AND household_id = ? ORDER BY recorded_at DESC`,
		plantID, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list health records: %w", err)
	}
	defer rows.Close()

	var records []model.HealthRecord
	for rows.Next() {
		h, err := scanHealthRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan health record: %w", err)
		}
		records = append(records, *h)
	}
	return records, rows.Err()
}
