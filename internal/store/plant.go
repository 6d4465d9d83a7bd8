package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rowanhale/verdant/internal/model"
)

// PlantStore is household-scoped: every query filters on household_id so a
// plant id from another household resolves the same as a missing row.
type PlantStore struct {
	db *sql.DB
}

func NewPlantStore(db *sql.DB) *PlantStore {
	return &PlantStore{db: db}
}

func scanPlant(scanner interface{ Scan(...any) error }) (*model.Plant, error) {
	var p model.Plant
	var speciesID, locationID sql.NullInt64
	var snoozedUntil sql.NullTime

	err := scanner.Scan(
		&p.ID, &p.HouseholdID, &p.UserID, &p.Name, &speciesID, &locationID,
		&p.WateringFrequencyDays, &p.LastWatered, &snoozedUntil,
		&p.PhotoURL, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if speciesID.Valid {
		p.SpeciesID = &speciesID.Int64
	}
	if locationID.Valid {
		p.LocationID = &locationID.Int64
	}
	if snoozedUntil.Valid {
		p.SnoozedUntil = &snoozedUntil.Time
	}
	return &p, nil
}

const plantCols = `id, household_id, user_id, name, species_id, location_id, watering_frequency_days, last_watered, snoozed_until, photo_url, notes, created_at, updated_at`

// Create inserts a plant stamped with the given household and user. Ownership
// always comes from the scoping context, never from client input.
func (s *PlantStore) Create(householdID, userID int64, name string, speciesID, locationID *int64, frequencyDays int, lastWatered time.Time, photoURL, notes string) (*model.Plant, error) {
	var spID, locID sql.NullInt64
	if speciesID != nil {
		spID = sql.NullInt64{Int64: *speciesID, Valid: true}
	}
	if locationID != nil {
		locID = sql.NullInt64{Int64: *locationID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO plants (household_id, user_id, name, species_id, location_id, watering_frequency_days, last_watered, photo_url, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		householdID, userID, name, spID, locID, frequencyDays, lastWatered.UTC(), photoURL, notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert plant: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id, householdID)
}

func (s *PlantStore) GetByID(id, householdID int64) (*model.Plant, error) {
	row := s.db.QueryRow(
		`SELECT `+plantCols+` FROM plants WHERE id = ? AND household_id = ?`,
		id, householdID,
	)
	p, err := scanPlant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plant: %w", err)
	}
	return p, nil
}

func (s *PlantStore) List(householdID int64) ([]model.Plant, error) {
	rows, err := s.db.Query(
		`SELECT `+plantCols+` FROM plants WHERE household_id = ? ORDER BY name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list plants: %w", err)
	}
	defer rows.Close()
	return scanPlants(rows)
}

func (s *PlantStore) ListByLocation(locationID, householdID int64) ([]model.Plant, error) {
	rows, err := s.db.Query(
		`SELECT `+plantCols+` FROM plants WHERE location_id = ? AND household_id = ? ORDER BY name ASC`,
		locationID, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list plants by location: %w", err)
	}
	defer rows.Close()
	return scanPlants(rows)
}

func (s *PlantStore) Update(id, householdID int64, name string, speciesID, locationID *int64, frequencyDays int, photoURL, notes string) (*model.Plant, error) {
	var spID, locID sql.NullInt64
	if speciesID != nil {
		spID = sql.NullInt64{Int64: *speciesID, Valid: true}
	}
	if locationID != nil {
		locID = sql.NullInt64{Int64: *locationID, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE plants SET name = ?, species_id = ?, location_id = ?, watering_frequency_days = ?, photo_url = ?, notes = ?, updated_at = datetime('now')
		 WHERE id = ? AND household_id = ?`,
		name, spID, locID, frequencyDays, photoURL, notes, id, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("update plant: %w", err)
	}
	return s.GetByID(id, householdID)
}

// Delete removes a plant; care activities and health records cascade with it.
func (s *PlantStore) Delete(id, householdID int64) error {
	_, err := s.db.Exec(`DELETE FROM plants WHERE id = ? AND household_id = ?`, id, householdID)
	if err != nil {
		return fmt.Errorf("delete plant: %w", err)
	}
	return nil
}

// MarkWatered sets last_watered and clears any snooze; a snooze only overrides
// the due date it was set against.
func (s *PlantStore) MarkWatered(id, householdID int64, at time.Time) (*model.Plant, error) {
	_, err := s.db.Exec(
		`UPDATE plants SET last_watered = ?, snoozed_until = NULL, updated_at = datetime('now')
		 WHERE id = ? AND household_id = ?`,
		at.UTC(), id, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark watered: %w", err)
	}
	return s.GetByID(id, householdID)
}

func (s *PlantStore) Snooze(id, householdID int64, until time.Time) (*model.Plant, error) {
	_, err := s.db.Exec(
		`UPDATE plants SET snoozed_until = ?, updated_at = datetime('now') WHERE id = ? AND household_id = ?`,
		until.UTC(), id, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("snooze plant: %w", err)
	}
	return s.GetByID(id, householdID)
}

func (s *PlantStore) ClearSnooze(id, householdID int64) (*model.Plant, error) {
	_, err := s.db.Exec(
		`UPDATE plants SET snoozed_until = NULL, updated_at = datetime('now') WHERE id = ? AND household_id = ?`,
		id, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("clear snooze: %w", err)
	}
	return s.GetByID(id, householdID)
}

// ListHouseholdIDs returns distinct household IDs that have plants. Used by
// the background sweep, which iterates households and then reuses the scoped
// List per household.
func (s *PlantStore) ListHouseholdIDs() ([]int64, error) {
	rows, err := s.db.Query(`SELECT DISTINCT household_id FROM plants`)
	if err != nil {
		return nil, fmt.Errorf("list plant household ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan household id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanPlants(rows *sql.Rows) ([]model.Plant, error) {
	var plants []model.Plant
	for rows.Next() {
		p, err := scanPlant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plant: %w", err)
		}
		plants = append(plants, *p)
	}
	return plants, rows.Err()
}
