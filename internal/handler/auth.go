package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rowanhale/verdant/internal/auth"
	"github.com/rowanhale/verdant/internal/email"
	"github.com/rowanhale/verdant/internal/store"
)

const (
	sessionCookieName = "verdant_session"
	maxCodeAttempts   = 5
	sessionMaxAge     = 90 * 24 * time.Hour
)

type AuthHandler struct {
	users      *store.UserStore
	households *store.HouseholdStore
	sessions   *store.SessionStore
	magicLinks *store.MagicLinkStore
	email      *email.Client
	tokens     *auth.TokenIssuer
	secure     bool
	logger     *slog.Logger
}

func NewAuthHandler(
	us *store.UserStore,
	hs *store.HouseholdStore,
	ss *store.SessionStore,
	mls *store.MagicLinkStore,
	ec *email.Client,
	tokens *auth.TokenIssuer,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:      us,
		households: hs,
		sessions:   ss,
		magicLinks: mls,
		email:      ec,
		tokens:     tokens,
		secure:     secureCookies,
		logger:     logger,
	}
}

type requestCodeRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Register handles POST /api/auth/register. It emails a one-time code; the
// account is created on verification. The response is identical whether or
// not the address already has an account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.sendCode(w, r, "register")
}

// Login handles POST /api/auth/login. Same response shape as Register so the
// endpoint never reveals which addresses are registered.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.sendCode(w, r, "login")
}

func (h *AuthHandler) sendCode(w http.ResponseWriter, r *http.Request, purpose string) {
	var req requestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	addr := strings.ToLower(strings.TrimSpace(req.Email))
	if addr == "" || !strings.Contains(addr, "@") {
		errorJSON(w, http.StatusBadRequest, "invalid_email")
		return
	}

	// Always answer "sent" from here on so the endpoint never reveals
	// which addresses exist.
	defer writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})

	if purpose == "login" {
		user, err := h.users.GetByEmail(addr)
		if err != nil {
			h.logger.Error("login lookup", "error", err)
			return
		}
		if user == nil {
			return
		}
	}

	ml, err := h.magicLinks.Create(addr, purpose, nil)
	if err != nil {
		h.logger.Error("create login code", "error", err)
		return
	}
	if err := h.email.SendLoginCode(r.Context(), addr, ml.Token, purpose); err != nil {
		h.logger.Error("send login code", "error", err)
	}
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	Name  string `json:"name"`
}

/// Verify handles POST /api/auth/verify: exchanges an emailed code for a
// session cookie and, when a signing secret is configured, a bearer token.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	addr := strings.ToLower(strings.TrimSpace(req.Email))
	code := strings.TrimSpace(req.Code)
	if addr == "" || code == "" {
		errorJSON(w, http.StatusBadRequest, "email_and_code_required")
		return
	}

	ml, err := h.magicLinks.GetLatestByEmail(addr)
	if err != nil {
		h.logger.Error("verify lookup", "error", err)
		serverError(w)
		return
	}
	if ml == nil || ml.UsedAt != nil || time.Now().UTC().After(ml.ExpiresAt) {
		errorJSON(w, http.StatusBadRequest, "invalid_code")
		return
	}
	if ml.Attempts >= maxCodeAttempts {
		errorJSON(w, http.StatusBadRequest, "too_many_attempts")
		return
	}
	if ml.Token != code {
		if _, err := h.magicLinks.IncrementAttempts(ml.ID); err != nil {
			h.logger.Error("increment attempts", "error", err)
		}
		errorJSON(w, http.StatusBadRequest, "invalid_code")
		return
	}
	if err := h.magicLinks.MarkUsed(ml.ID); err != nil {
		h.logger.Error("mark code used", "error", err)
		serverError(w)
		return
	}

	user, err := h.users.GetByEmail(addr)
	if err != nil {
		h.logger.Error("verify user lookup", "error", err)
		serverError(w)
		return
	}
	if user == nil {
		user, err = h.users.Create(addr, strings.TrimSpace(req.Name))
		if err != nil {
			h.logger.Error("create user", "error", err)
			serverError(w)
			return
		}
	}

	var householdID int64
	households, err := h.households.ListHouseholdsForUser(user.ID)
	if err != nil {
		h.logger.Error("verify households", "error", err)
	} else if len(households) > 0 {
		householdID = households[0].ID
	}

	sess, err := h.sessions.Create(user.ID, householdID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		serverError(w)
		return
	}
	h.setSessionCookie(w, sess.Token)

	resp := map[string]any{
		"user":         user,
		"household_id": householdID,
	}
	if h.tokens != nil && h.tokens.Configured() {
		token, err := h.tokens.Issue(user.ID, householdID)
		if err != nil {
			h.logger.Error("issue token", "error", err)
		} else {
			resp["token"] = token
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/auth/logout. Requires auth middleware.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if ac, ok := auth.FromContext(r.Context()); ok && ac.SessionID != 0 {
		if err := h.sessions.Delete(ac.SessionID); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	user, err := h.users.GetByID(ac.UserID)
	if err != nil || user == nil {
		serverError(w)
		return
	}
	households, err := h.households.ListHouseholdsForUser(ac.UserID)
	if err != nil {
		serverError(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":         user,
		"household_id": ac.HouseholdID,
		"role":         ac.Role,
		"households":   households,
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
