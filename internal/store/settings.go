package store

import (
	"database/sql"
	"fmt"
	"strconv"
)

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(householdID int64, key string) (string, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM settings WHERE household_id = ? AND key = ?`,
		householdID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) GetAll(householdID int64) (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings WHERE household_id = ?`, householdID)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

func (s *SettingsStore) Set(householdID int64, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (household_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(household_id, key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`,
		householdID, key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// ReminderHour returns the hour (0-23, UTC) for the household's daily digest.
// Missing or malformed values fall back to 9.
func (s *SettingsStore) ReminderHour(householdID int64) int {
	value, err := s.Get(householdID, "reminder_hour")
	if err != nil || value == "" {
		return 9
	}
	hour, err := strconv.Atoi(value)
	if err != nil || hour < 0 || hour > 23 {
		return 9
	}
	return hour
}

// DigestEnabled reports whether the household wants the daily digest.
func (s *SettingsStore) DigestEnabled(householdID int64) bool {
	value, err := s.Get(householdID, "digest_enabled")
	if err != nil {
		return false
	}
	return value != "false"
}
