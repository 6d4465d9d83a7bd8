package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rowanhale/verdant/internal/model"
)

// codeTTL is how long an emailed login code stays redeemable.
const codeTTL = 15 * time.Minute

// MagicLinkStore manages one-time email login codes. A code is single-use,
// bound to one email address, and superseded by any newer code for the same
// address.
type MagicLinkStore struct {
	db *sql.DB
}

func NewMagicLinkStore(db *sql.DB) *MagicLinkStore {
	return &MagicLinkStore{db: db}
}

const magicLinkCols = `id, token, email, purpose, household_id, expires_at, used_at, attempts, created_at`

func scanMagicLink(scanner interface{ Scan(...any) error }) (*model.MagicLink, error) {
	var ml model.MagicLink
	var householdID sql.NullInt64
	var usedAt sql.NullTime

	err := scanner.Scan(
		&ml.ID, &ml.Token, &ml.Email, &ml.Purpose, &householdID,
		&ml.ExpiresAt, &usedAt, &ml.Attempts, &ml.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if householdID.Valid {
		ml.HouseholdID = &householdID.Int64
	}
	if usedAt.Valid {
		ml.UsedAt = &usedAt.Time
	}
	return &ml, nil
}

// generateCode draws a uniform 6-digit code from crypto/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Create issues a fresh code for the address, retiring any still-pending ones
// so only the newest code redeems.
func (s *MagicLinkStore) Create(email, purpose string, householdID *int64) (*model.MagicLink, error) {
	addr := strings.ToLower(strings.TrimSpace(email))

	_, err := s.db.Exec(
		`UPDATE magic_links SET used_at = datetime('now') WHERE email = ? AND used_at IS NULL AND expires_at > datetime('now')`,
		addr,
	)
	if err != nil {
		return nil, fmt.Errorf("retire previous codes: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}

	var hID sql.NullInt64
	if householdID != nil {
		hID = sql.NullInt64{Int64: *householdID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO magic_links (token, email, purpose, household_id, expires_at) VALUES (?, ?, ?, ?, ?)`,
		code, addr, purpose, hID, time.Now().UTC().Add(codeTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("insert login code: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+magicLinkCols+` FROM magic_links WHERE id = ?`, id)
	return scanMagicLink(row)
}

// GetByEmailAndCode returns the matching redeemable code, or nil when there is
// no live match.
func (s *MagicLinkStore) GetByEmailAndCode(email, code string) (*model.MagicLink, error) {
	row := s.db.QueryRow(
		`SELECT `+magicLinkCols+` FROM magic_links WHERE email = ? AND token = ? AND expires_at > datetime('now') AND used_at IS NULL`,
		strings.ToLower(strings.TrimSpace(email)), code,
	)
	ml, err := scanMagicLink(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get login code: %w", err)
	}
	return ml, nil
}

// GetLatestByEmail returns the newest redeemable code for an address, or nil.
func (s *MagicLinkStore) GetLatestByEmail(email string) (*model.MagicLink, error) {
	row := s.db.QueryRow(
		`SELECT `+magicLinkCols+` FROM magic_links WHERE email = ? AND expires_at > datetime('now') AND used_at IS NULL ORDER BY created_at DESC, id DESC LIMIT 1`,
		strings.ToLower(strings.TrimSpace(email)),
	)
	ml, err := scanMagicLink(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest login code: %w", err)
	}
	return ml, nil
}

// IncrementAttempts bumps the failed-guess counter and returns the new total.
func (s *MagicLinkStore) IncrementAttempts(id int64) (int, error) {
	_, err := s.db.Exec(`UPDATE magic_links SET attempts = attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	var attempts int
	if err := s.db.QueryRow(`SELECT attempts FROM magic_links WHERE id = ?`, id).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("read attempts: %w", err)
	}
	return attempts, nil
}

func (s *MagicLinkStore) MarkUsed(id int64) error {
	_, err := s.db.Exec(`UPDATE magic_links SET used_at = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark login code used: %w", err)
	}
	return nil
}

func (s *MagicLinkStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM magic_links WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("delete expired login codes: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
