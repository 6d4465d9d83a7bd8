package store

import (
	"database/sql"
	"fmt"

	"github.com/rowanhale/verdant/internal/model"
)

type SpeciesStore struct {
	db *sql.DB
}

func NewSpeciesStore(db *sql.DB) *SpeciesStore {
	return &SpeciesStore{db: db}
}

func scanSpecies(scanner interface{ Scan(...any) error }) (*model.Species, error) {
	var sp model.Species
	err := scanner.Scan(&sp.ID, &sp.HouseholdID, &sp.CommonName, &sp.LatinName, &sp.DefaultFrequencyDays, &sp.CareNotes, &sp.CreatedAt, &sp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

const speciesCols = `id, household_id, common_name, latin_name, default_frequency_days, care_notes, created_at, updated_at`

func (s *SpeciesStore) Create(householdID int64, commonName, latinName string, defaultFrequencyDays int, careNotes string) (*model.Species, error) {
	result, err := s.db.Exec(
		`INSERT INTO species (household_id, common_name, latin_name, default_frequency_days, care_notes) VALUES (?, ?, ?, ?, ?)`,
		householdID, commonName, latinName, defaultFrequencyDays, careNotes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert species: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id, householdID)
}

func (s *SpeciesStore) GetByID(id, householdID int64) (*model.Species, error) {
	row := s.db.QueryRow(
		`SELECT `+speciesCols+` FROM species WHERE id = ? AND household_id = ?`,
		id, householdID,
	)
	sp, err := scanSpecies(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get species: %w", err)
	}
	return sp, nil
}

func (s *SpeciesStore) List(householdID int64) ([]model.Species, error) {
	rows, err := s.db.Query(
		`SELECT `+speciesCols+` FROM species WHERE household_id = ? ORDER BY common_name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list species: %w", err)
	}
	defer rows.Close()

	var all []model.Species
	for rows.Next() {
		sp, err := scanSpecies(rows)
		if err != nil {
			return nil, fmt.Errorf("scan species: %w", err)
		}
		all = append(all, *sp)
	}
	return all, rows.Err()
}

func (s *SpeciesStore) Update(id, householdID int64, commonName, latinName string, defaultFrequencyDays int, careNotes string) (*model.Species, error) {
	_, err := s.db.Exec(
		`UPDATE species SET common_name = ?, latin_name = ?, default_frequency_days = ?, care_notes = ?, updated_at = datetime('now')
		 WHERE id = ? AND household_id = ?`,
		commonName, latinName, defaultFrequencyDays, careNotes, id, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("update species: %w", err)
	}
	return s.GetByID(id, householdID)
}

func (s *SpeciesStore) Delete(id, householdID int64) error {
	_, err := s.db.Exec(`DELETE FROM species WHERE id = ? AND household_id = ?`, id, householdID)
	if err != nil {
		return fmt.Errorf("delete species: %w", err)
	}
	return nil
}
