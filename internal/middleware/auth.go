package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rowanhale/verdant/internal/auth"
	"github.com/rowanhale/verdant/internal/store"
)

const (
	sessionCookieName = "verdant_session"
	householdHeader   = "X-Household-ID"
)

// RequireAuth authenticates the request (session cookie or bearer token) and
// resolves the active household, then populates AuthContext.
//
// Household resolution: an explicit X-Household-ID header must name a
// household the user is a member of; anything else is rejected as not found,
// never silently reassigned. Without the header the session's (or token's)
// household is used, falling back to the user's first household. A user with
// no household at all fails closed with a distinct error so clients can prompt
// household creation.
func RequireAuth(sessions *store.SessionStore, households *store.HouseholdStore, tokens *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, preferredHousehold, sessionID, ok := identify(r, sessions, tokens)
			if !ok {
				errorJSON(w, http.StatusUnauthorized, "not_authenticated", "authentication required")
				return
			}

			householdID, role, ok := resolveHousehold(w, r, households, userID, preferredHousehold)
			if !ok {
				return
			}

			ac := auth.AuthContext{
				UserID:      userID,
				HouseholdID: householdID,
				Role:        role,
				SessionID:   sessionID,
			}
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

// RequireUser authenticates the request without requiring a household. It
// covers the routes a user must reach before belonging to one: creating or
// joining a household, listing their memberships, logging out, and reading
// their own account. Household resolution is best effort; a user with no
// memberships passes through with a zero household.
func RequireUser(sessions *store.SessionStore, households *store.HouseholdStore, tokens *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, preferredHousehold, sessionID, ok := identify(r, sessions, tokens)
			if !ok {
				errorJSON(w, http.StatusUnauthorized, "not_authenticated", "authentication required")
				return
			}

			ac := auth.AuthContext{UserID: userID, SessionID: sessionID}
			if hid, role, ok := lookupHousehold(households, userID, preferredHousehold); ok {
				ac.HouseholdID = hid
				ac.Role = role
			}
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

// lookupHousehold resolves the user's active household without writing any
// response: the preferred (session/token) household when the membership still
// holds, otherwise the first household the user belongs to.
func lookupHousehold(households *store.HouseholdStore, userID, preferred int64) (int64, auth.Role, bool) {
	if preferred != 0 {
		member, err := households.GetMember(preferred, userID)
		if err == nil && member != nil {
			return preferred, auth.Role(member.Role), true
		}
	}
	list, err := households.ListHouseholdsForUser(userID)
	if err != nil || len(list) == 0 {
		return 0, "", false
	}
	member, err := households.GetMember(list[0].ID, userID)
	if err != nil || member == nil {
		return 0, "", false
	}
	return list[0].ID, auth.Role(member.Role), true
}

func identify(r *http.Request, sessions *store.SessionStore, tokens *auth.TokenIssuer) (userID, householdID, sessionID int64, ok bool) {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") && tokens != nil && tokens.Configured() {
		uid, hid, err := tokens.Verify(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			return 0, 0, 0, false
		}
		return uid, hid, 0, true
	}

	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return 0, 0, 0, false
	}
	sess, err := sessions.GetByToken(cookie.Value)
	if err != nil || sess == nil {
		return 0, 0, 0, false
	}
	return sess.UserID, sess.HouseholdID, sess.ID, true
}

func resolveHousehold(w http.ResponseWriter, r *http.Request, households *store.HouseholdStore, userID, preferred int64) (int64, auth.Role, bool) {
	if selector := r.Header.Get(householdHeader); selector != "" {
		id, err := strconv.ParseInt(selector, 10, 64)
		if err != nil {
			errorJSON(w, http.StatusBadRequest, "invalid_household", "malformed household selector")
			return 0, "", false
		}
		member, err := households.GetMember(id, userID)
		if err != nil {
			// A store failure is an operational problem, not a missing
			// membership.
			errorJSON(w, http.StatusInternalServerError, "internal_error", "membership lookup failed")
			return 0, "", false
		}
		if member == nil {
			// A household the user does not belong to is indistinguishable
			// from one that does not exist.
			errorJSON(w, http.StatusNotFound, "not_found", "household not found")
			return 0, "", false
		}
		return id, auth.Role(member.Role), true
	}

	hid, role, ok := lookupHousehold(households, userID, preferred)
	if !ok {
		errorJSON(w, http.StatusConflict, "no_household", "no household for this account; create or join one")
		return 0, "", false
	}
	return hid, role, true
}

// RequireCapability rejects requests whose role does not grant the capability.
// This is the only place role comparisons happen on the request path.
func RequireCapability(c auth.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Can(r.Context(), c) {
				errorJSON(w, http.StatusForbidden, "forbidden", "insufficient role for this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func errorJSON(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
