package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"

	"github.com/rowanhale/verdant/internal/model"
)

// Invite codes are drawn from an alphabet without visually ambiguous
// characters (no 0/O, 1/I/L).
const (
	inviteCodeAlphabet    = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	inviteCodeLength      = 8
	maxInviteCodeAttempts = 5
)

type HouseholdStore struct {
	db *sql.DB

	// codeGen is swapped in tests to force collisions.
	codeGen func() (string, error)
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db, codeGen: GenerateInviteCode}
}

// GenerateInviteCode returns a crypto-random code from the unambiguous
// alphabet.
func GenerateInviteCode() (string, error) {
	code := make([]byte, inviteCodeLength)
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		code[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

func scanHousehold(scanner interface{ Scan(...any) error }) (*model.Household, error) {
	var h model.Household
	err := scanner.Scan(&h.ID, &h.Name, &h.InviteCode, &h.CreatedBy, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func scanHouseholdMember(scanner interface{ Scan(...any) error }) (*model.HouseholdMember, error) {
	var m model.HouseholdMember
	err := scanner.Scan(&m.ID, &m.HouseholdID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const householdCols = `id, name, invite_code, created_by, created_at, updated_at`
const householdMemberCols = `id, household_id, user_id, role, created_at, updated_at`

// Create inserts a household with a collision-checked invite code and adds the
// creator as owner. Fails hard if the bounded retry count is exhausted.
func (s *HouseholdStore) Create(name string, createdBy int64) (*model.Household, error) {
	var code string
	for attempt := 0; ; attempt++ {
		if attempt >= maxInviteCodeAttempts {
			return nil, fmt.Errorf("invite code generation: %d collisions in a row, giving up", maxInviteCodeAttempts)
		}
		c, err := s.codeGen()
		if err != nil {
			return nil, err
		}
		var exists int
		err = s.db.QueryRow(`SELECT 1 FROM households WHERE invite_code = ?`, c).Scan(&exists)
		if err == sql.ErrNoRows {
			code = c
			break
		}
		if err != nil {
			return nil, fmt.Errorf("check invite code: %w", err)
		}
	}

	result, err := s.db.Exec(
		`INSERT INTO households (name, invite_code, created_by) VALUES (?, ?, ?)`,
		name, code, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert household: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := s.AddMember(id, createdBy, "owner"); err != nil {
		return nil, fmt.Errorf("add creator as owner: %w", err)
	}
	return s.GetByID(id)
}

func (s *HouseholdStore) GetByID(id int64) (*model.Household, error) {
	row := s.db.QueryRow(`SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

// GetByInviteCode returns the household for a code, or nil if unknown.
func (s *HouseholdStore) GetByInviteCode(code string) (*model.Household, error) {
	row := s.db.QueryRow(`SELECT `+householdCols+` FROM households WHERE invite_code = ?`, code)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household by invite code: %w", err)
	}
	return h, nil
}

func (s *HouseholdStore) Update(id int64, name string) (*model.Household, error) {
	_, err := s.db.Exec(`UPDATE households SET name = ?, updated_at = datetime('now') WHERE id = ?`, name, id)
	if err != nil {
		return nil, fmt.Errorf("update household: %w", err)
	}
	return s.GetByID(id)
}

func (s *HouseholdStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM households WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete household: %w", err)
	}
	return nil
}

func (s *HouseholdStore) AddMember(householdID, userID int64, role string) (*model.HouseholdMember, error) {
	result, err := s.db.Exec(
		`INSERT INTO household_members (household_id, user_id, role) VALUES (?, ?, ?)`,
		householdID, userID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+householdMemberCols+` FROM household_members WHERE id = ?`, id)
	return scanHouseholdMember(row)
}

func (s *HouseholdStore) RemoveMember(householdID, userID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM household_members WHERE household_id = ? AND user_id = ?`,
		householdID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

func (s *HouseholdStore) GetMember(householdID, userID int64) (*model.HouseholdMember, error) {
	row := s.db.QueryRow(
		`SELECT `+householdMemberCols+` FROM household_members WHERE household_id = ? AND user_id = ?`,
		householdID, userID,
	)
	m, err := scanHouseholdMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *HouseholdStore) ListMembers(householdID int64) ([]model.HouseholdMember, error) {
	rows, err := s.db.Query(
		`SELECT `+householdMemberCols+` FROM household_members WHERE household_id = ? ORDER BY created_at ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.HouseholdMember
	for rows.Next() {
		m, err := scanHouseholdMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// ListHouseholdsForUser returns the user's households, oldest membership
// first. The first entry is the fallback household when no selector is sent.
func (s *HouseholdStore) ListHouseholdsForUser(userID int64) ([]model.Household, error) {
	rows, err := s.db.Query(
		`SELECT h.id, h.name, h.invite_code, h.created_by, h.created_at, h.updated_at
		 FROM households h
		 JOIN household_members hm ON h.id = hm.household_id
		 WHERE hm.user_id = ?
		 ORDER BY hm.created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list households for user: %w", err)
	}
	defer rows.Close()

	var households []model.Household
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		households = append(households, *h)
	}
	return households, rows.Err()
}

func (s *HouseholdStore) UpdateMemberRole(householdID, userID int64, role string) (*model.HouseholdMember, error) {
	_, err := s.db.Exec(
		`UPDATE household_members SET role = ?, updated_at = datetime('now') WHERE household_id = ? AND user_id = ?`,
		role, householdID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update member role: %w", err)
	}
	return s.GetMember(householdID, userID)
}

// SeedDefaults inserts default locations, a starter species catalog, and
// settings for a new household in a single transaction.
func (s *HouseholdStore) SeedDefaults(householdID, userID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	locations := []struct {
		name      string
		isDefault int
	}{
		{"Living Room", 1}, {"Bedroom", 0}, {"Kitchen", 0}, {"Balcony", 0}, {"Office", 0},
	}
	for _, l := range locations {
		if _, err := tx.Exec(
			`INSERT INTO locations (household_id, user_id, name, is_default) VALUES (?, ?, ?, ?)`,
			householdID, userID, l.name, l.isDefault,
		); err != nil {
			return fmt.Errorf("seed location %q: %w", l.name, err)
		}
	}

	species := []struct {
		common string
		latin  string
		freq   int
	}{
		{"Monstera", "Monstera deliciosa", 7},
		{"Pothos", "Epipremnum aureum", 7},
		{"Snake Plant", "Dracaena trifasciata", 14},
		{"Spider Plant", "Chlorophytum comosum", 7},
		{"Peace Lily", "Spathiphyllum wallisii", 5},
		{"Fiddle Leaf Fig", "Ficus lyrata", 7},
		{"ZZ Plant", "Zamioculcas zamiifolia", 14},
		{"Aloe Vera", "Aloe barbadensis", 21},
	}
	for _, sp := range species {
		if _, err := tx.Exec(
			`INSERT INTO species (household_id, common_name, latin_name, default_frequency_days) VALUES (?, ?, ?, ?)`,
			householdID, sp.common, sp.latin, sp.freq,
		); err != nil {
			return fmt.Errorf("seed species %q: %w", sp.common, err)
		}
	}

	settings := []struct {
		key   string
		value string
	}{
		{"reminder_hour", "9"},
		{"digest_enabled", "true"},
		{"quiet_hours_enabled", "false"},
		{"quiet_hours_start", "22:00"},
		{"quiet_hours_end", "07:00"},
	}
	for _, st := range settings {
		if _, err := tx.Exec(
			`INSERT INTO settings (household_id, key, value) VALUES (?, ?, ?)`,
			householdID, st.key, st.value,
		); err != nil {
			return fmt.Errorf("seed setting %q: %w", st.key, err)
		}
	}

	return tx.Commit()
}
