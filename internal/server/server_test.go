package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rowanhale/verdant/internal/auth"
	"github.com/rowanhale/verdant/internal/database"
	"github.com/rowanhale/verdant/internal/email"
	"github.com/rowanhale/verdant/internal/store"
)

type routerEnv struct {
	db     *sql.DB
	router http.Handler
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := New(
		db,
		email.NewClient("", "hello@verdant.test"),
		auth.NewTokenIssuer("test-secret", time.Hour),
		Config{},
		slog.New(slog.DiscardHandler),
	)
	return &routerEnv{db: db, router: srv.Router()}
}

func (e *routerEnv) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// signUp runs the register/verify flow for an address and returns the session
// cookie. The emailed code is read straight from the store since no email
// client is configured in tests.
func (e *routerEnv) signUp(t *testing.T, address, name string) *http.Cookie {
	t.Helper()
	rec := e.do(t, "POST", "/api/auth/register", map[string]string{"email": address, "name": name}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("register status = %d, want 200", rec.Code)
	}

	ml, err := store.NewMagicLinkStore(e.db).GetLatestByEmail(address)
	if err != nil || ml == nil {
		t.Fatalf("login code for %s: %v", address, err)
	}

	rec = e.do(t, "POST", "/api/auth/verify", map[string]string{
		"email": address, "code": ml.Token, "name": name,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "verdant_session" && c.Value != "" {
			return c
		}
	}
	t.Fatal("verify response set no session cookie")
	return nil
}

func TestOnboardingCreateHousehold(t *testing.T) {
	e := newRouterEnv(t)
	cookie := e.signUp(t, "ada@example.com", "Ada")

	// Household-scoped routes fail closed before the user has a household.
	rec := e.do(t, "GET", "/api/plants", nil, cookie)
	if rec.Code != http.StatusConflict {
		t.Fatalf("plants before household status = %d, want 409", rec.Code)
	}

	// Creating a household must not require one.
	rec = e.do(t, "POST", "/api/households", map[string]string{"name": "Greenhouse"}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create household status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID         int64  `json:"id"`
		InviteCode string `json:"invite_code"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode household: %v", err)
	}
	if created.InviteCode == "" {
		t.Fatal("created household has no invite code")
	}

	rec = e.do(t, "GET", "/api/auth/me", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d, want 200", rec.Code)
	}
	var me struct {
		HouseholdID int64  `json:"household_id"`
		Role        string `json:"role"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.HouseholdID != created.ID {
		t.Errorf("me household_id = %d, want %d", me.HouseholdID, created.ID)
	}
	if me.Role != "owner" {
		t.Errorf("me role = %q, want owner", me.Role)
	}

	// With a household resolved, scoped routes open up.
	rec = e.do(t, "GET", "/api/plants", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Errorf("plants after household status = %d, want 200", rec.Code)
	}
}

func TestOnboardingJoinByInviteCode(t *testing.T) {
	e := newRouterEnv(t)
	owner := e.signUp(t, "ada@example.com", "Ada")

	rec := e.do(t, "POST", "/api/households", map[string]string{"name": "Greenhouse"}, owner)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create household status = %d, want 201", rec.Code)
	}
	var created struct {
		InviteCode string `json:"invite_code"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode household: %v", err)
	}

	joiner := e.signUp(t, "grace@example.com", "Grace")
	rec = e.do(t, "GET", "/api/plants", nil, joiner)
	if rec.Code != http.StatusConflict {
		t.Fatalf("plants before join status = %d, want 409", rec.Code)
	}

	rec = e.do(t, "POST", "/api/households/join", map[string]string{"invite_code": created.InviteCode}, joiner)
	if rec.Code != http.StatusOK {
		t.Fatalf("join status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, "GET", "/api/plants", nil, joiner)
	if rec.Code != http.StatusOK {
		t.Errorf("plants after join status = %d, want 200", rec.Code)
	}

	rec = e.do(t, "POST", "/api/households/join", map[string]string{"invite_code": "XXXXXXXX"}, joiner)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad code status = %d, want 400", rec.Code)
	}
}
