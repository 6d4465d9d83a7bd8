package store

import (
	"database/sql"
	"fmt"

	"github.com/rowanhale/verdant/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

const pushSubCols = `id, user_id, household_id, endpoint, p256dh_key, auth_key, device_name, created_at`

func scanSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := scanner.Scan(&sub.ID, &sub.UserID, &sub.HouseholdID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *PushStore) CreateSubscription(userID, householdID int64, endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error) {
	result, err := s.db.Exec(
		`INSERT INTO push_subscriptions (user_id, household_id, endpoint, p256dh_key, auth_key, device_name)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET p256dh_key = excluded.p256dh_key, auth_key = excluded.auth_key, device_name = excluded.device_name`,
		userID, householdID, endpoint, p256dh, auth, deviceName,
	)
	if err != nil {
		return nil, fmt.Errorf("create push subscription: %w", err)
	}
	id, _ := result.LastInsertId()

	// LastInsertId may be 0 on conflict update; re-query by endpoint
	if id == 0 {
		return s.getByEndpoint(endpoint)
	}
	return s.GetByID(id, householdID)
}

func (s *PushStore) GetByID(id, householdID int64) (*model.PushSubscription, error) {
	row := s.db.QueryRow(`SELECT `+pushSubCols+` FROM push_subscriptions WHERE id = ? AND household_id = ?`, id, householdID)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return sub, nil
}

func (s *PushStore) getByEndpoint(endpoint string) (*model.PushSubscription, error) {
	row := s.db.QueryRow(`SELECT `+pushSubCols+` FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription by endpoint: %w", err)
	}
	return sub, nil
}

func (s *PushStore) ListByUser(userID, householdID int64) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT `+pushSubCols+` FROM push_subscriptions WHERE user_id = ? AND household_id = ? ORDER BY created_at DESC`,
		userID, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions by user: %w", err)
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

func (s *PushStore) ListByHousehold(householdID int64) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT `+pushSubCols+` FROM push_subscriptions WHERE household_id = ? ORDER BY created_at DESC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions by household: %w", err)
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

func (s *PushStore) DeleteSubscription(id, householdID int64) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE id = ? AND household_id = ?`, id, householdID)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

func (s *PushStore) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription by endpoint: %w", err)
	}
	return nil
}

func scanSubscriptions(rows *sql.Rows) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// --- Preferences ---

// IsPreferenceEnabled reports whether the user wants the given notification
// type. Absent rows default to enabled.
func (s *PushStore) IsPreferenceEnabled(userID, householdID int64, notificationType string) (bool, error) {
	var enabled bool
	err := s.db.QueryRow(
		`SELECT enabled FROM notification_preferences WHERE user_id = ? AND household_id = ? AND notification_type = ?`,
		userID, householdID, notificationType,
	).Scan(&enabled)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("get notification preference: %w", err)
	}
	return enabled, nil
}

func (s *PushStore) SetPreference(userID, householdID int64, notificationType string, enabled bool) error {
	_, err := s.db.Exec(
		`INSERT INTO notification_preferences (user_id, household_id, notification_type, enabled)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, household_id, notification_type) DO UPDATE SET enabled = excluded.enabled, updated_at = datetime('now')`,
		userID, householdID, notificationType, enabled,
	)
	if err != nil {
		return fmt.Errorf("set notification preference: %w", err)
	}
	return nil
}

func (s *PushStore) GetPreferences(userID, householdID int64) ([]model.NotificationPreference, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, household_id, notification_type, enabled, created_at, updated_at
		 FROM notification_preferences WHERE user_id = ? AND household_id = ? ORDER BY notification_type ASC`,
		userID, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notification preferences: %w", err)
	}
	defer rows.Close()

	var prefs []model.NotificationPreference
	for rows.Next() {
		var p model.NotificationPreference
		if err := rows.Scan(&p.ID, &p.UserID, &p.HouseholdID, &p.NotificationType, &p.Enabled, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan notification preference: %w", err)
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

// --- Notification log (sweep debounce) ---

// WasSent reports whether a notification with this type and ref id was already
// recorded for the household. The sweep uses it to debounce re-triggered runs.
func (s *PushStore) WasSent(householdID int64, notificationType, refID string) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM notification_log WHERE household_id = ? AND notification_type = ? AND ref_id = ?`,
		householdID, notificationType, refID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check notification log: %w", err)
	}
	return true, nil
}

func (s *PushStore) RecordSent(householdID int64, notificationType, refID string) error {
	_, err := s.db.Exec(
		`INSERT INTO notification_log (household_id, notification_type, ref_id) VALUES (?, ?, ?)
		 ON CONFLICT(household_id, notification_type, ref_id) DO NOTHING`,
		householdID, notificationType, refID,
	)
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

// PruneLog deletes log entries older than the given number of days.
func (s *PushStore) PruneLog(days int) (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM notification_log WHERE sent_at < datetime('now', ?)`,
		fmt.Sprintf("-%d days", days),
	)
	if err != nil {
		return 0, fmt.Errorf("prune notification log: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
