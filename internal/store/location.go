package store

import (
	"database/sql"
	"fmt"

	"github.com/rowanhale/verdant/internal/model"
)

type LocationStore struct {
	db *sql.DB
}

func NewLocationStore(db *sql.DB) *LocationStore {
	return &LocationStore{db: db}
}

func scanLocation(scanner interface{ Scan(...any) error }) (*model.Location, error) {
	var l model.Location
	err := scanner.Scan(&l.ID, &l.HouseholdID, &l.UserID, &l.Name, &l.IsDefault, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

const locationCols = `id, household_id, user_id, name, is_default, created_at, updated_at`

func (s *LocationStore) Create(householdID, userID int64, name string, isDefault bool) (*model.Location, error) {
	result, err := s.db.Exec(
		`INSERT INTO locations (household_id, user_id, name, is_default) VALUES (?, ?, ?, ?)`,
		householdID, userID, name, isDefault,
	)
	if err != nil {
		return nil, fmt.Errorf("insert location: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id, householdID)
}

func (s *LocationStore) GetByID(id, householdID int64) (*model.Location, error) {
	row := s.db.QueryRow(
		`SELECT `+locationCols+` FROM locations WHERE id = ? AND household_id = ?`,
		id, householdID,
	)
	l, err := scanLocation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	return l, nil
}

func (s *LocationStore) List(householdID int64) ([]model.Location, error) {
	rows, err := s.db.Query(
		`SELECT `+locationCols+` FROM locations WHERE household_id = ? ORDER BY is_default DESC, name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, *l)
	}
	return locations, rows.Err()
}

func (s *LocationStore) Update(id, householdID int64, name string, isDefault bool) (*model.Location, error) {
	_, err := s.db.Exec(
		`UPDATE locations SET name = ?, is_default = ?, updated_at = datetime('now') WHERE id = ? AND household_id = ?`,
		name, isDefault, id, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("update location: %w", err)
	}
	return s.GetByID(id, householdID)
}

func (s *LocationStore) Delete(id, householdID int64) error {
	_, err := s.db.Exec(`DELETE FROM locations WHERE id = ? AND household_id = ?`, id, householdID)
	if err != nil {
		return fmt.Errorf("delete location: %w", err)
	}
	return nil
}
