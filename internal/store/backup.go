package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rowanhale/verdant/internal/model"
)

type BackupStore struct {
	db *sql.DB
}

func NewBackupStore(db *sql.DB) *BackupStore {
	return &BackupStore{db: db}
}

const backupCols = `id, object_key, size_bytes, status, error, created_at`

func scanBackup(scanner interface{ Scan(...any) error }) (*model.BackupRecord, error) {
	var b model.BackupRecord
	err := scanner.Scan(&b.ID, &b.ObjectKey, &b.SizeBytes, &b.Status, &b.Error, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create records a new backup attempt in the pending state.
func (s *BackupStore) Create(objectKey string) (*model.BackupRecord, error) {
	result, err := s.db.Exec(
		`INSERT INTO backups (object_key, status) VALUES (?, ?)`,
		objectKey, model.BackupStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("insert backup record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *BackupStore) GetByID(id int64) (*model.BackupRecord, error) {
	row := s.db.QueryRow(`SELECT `+backupCols+` FROM backups WHERE id = ?`, id)
	b, err := scanBackup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup record: %w", err)
	}
	return b, nil
}

func (s *BackupStore) UpdateStatus(id int64, status, errMsg string) error {
	_, err := s.db.Exec(`UPDATE backups SET status = ?, error = ? WHERE id = ?`, status, errMsg, id)
	if err != nil {
		return fmt.Errorf("update backup status: %w", err)
	}
	return nil
}

func (s *BackupStore) UpdateCompleted(id, sizeBytes int64) error {
	_, err := s.db.Exec(
		`UPDATE backups SET status = ?, size_bytes = ?, error = '' WHERE id = ?`,
		model.BackupStatusCompleted, sizeBytes, id,
	)
	if err != nil {
		return fmt.Errorf("mark backup completed: %w", err)
	}
	return nil
}

func (s *BackupStore) ListRecent(limit int) ([]model.BackupRecord, error) {
	rows, err := s.db.Query(`SELECT `+backupCols+` FROM backups ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []model.BackupRecord
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup record: %w", err)
		}
		backups = append(backups, *b)
	}
	return backups, rows.Err()
}

// LatestCompleted returns the most recent successful backup, or nil.
func (s *BackupStore) LatestCompleted() (*model.BackupRecord, error) {
	row := s.db.QueryRow(`SELECT ` + backupCols + ` FROM backups WHERE status = 'completed' ORDER BY created_at DESC, id DESC LIMIT 1`)
	b, err := scanBackup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest backup: %w", err)
	}
	return b, nil
}

// DeleteOlderThan removes records created before the cutoff and returns their
// object keys so the caller can delete the stored objects.
func (s *BackupStore) DeleteOlderThan(before time.Time) ([]string, error) {
	rows, err := s.db.Query(`SELECT object_key FROM backups WHERE created_at < ?`, before)
	if err != nil {
		return nil, fmt.Errorf("list old backups: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan object key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(`DELETE FROM backups WHERE created_at < ?`, before); err != nil {
		return nil, fmt.Errorf("delete old backups: %w", err)
	}
	return keys, nil
}
