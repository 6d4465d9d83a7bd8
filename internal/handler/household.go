package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rowanhale/verdant/internal/auth"
	"github.com/rowanhale/verdant/internal/email"
	"github.com/rowanhale/verdant/internal/push"
	"github.com/rowanhale/verdant/internal/store"
	"github.com/rowanhale/verdant/internal/websocket"
)

type HouseholdHandler struct {
	households *store.HouseholdStore
	users      *store.UserStore
	sessions   *store.SessionStore
	email      *email.Client
	scheduler  *push.Scheduler
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewHouseholdHandler(
	hs *store.HouseholdStore,
	us *store.UserStore,
	ss *store.SessionStore,
	ec *email.Client,
	scheduler *push.Scheduler,
	hub *websocket.Hub,
	logger *slog.Logger,
) *HouseholdHandler {
	return &HouseholdHandler{
		households: hs,
		users:      us,
		sessions:   ss,
		email:      ec,
		scheduler:  scheduler,
		hub:        hub,
		logger:     logger,
	}
}

type createHouseholdRequest struct {
	Name string `json:"name"`
}

// Create handles POST /api/households. The creator becomes owner and the
// household is seeded with starter locations, a species catalog, and default
// settings.
func (h *HouseholdHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req createHouseholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		errorJSON(w, http.StatusBadRequest, "name_required")
		return
	}

	household, err := h.households.Create(name, ac.UserID)
	if err != nil {
		h.logger.Error("create household", "error", err)
		serverError(w)
		return
	}
	if err := h.households.SeedDefaults(household.ID, ac.UserID); err != nil {
		h.logger.Error("seed household defaults", "household_id", household.ID, "error", err)
	}
	if ac.SessionID != 0 {
		if err := h.sessions.UpdateHousehold(ac.SessionID, household.ID); err != nil {
			h.logger.Error("update session household", "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, household)
}

type joinHouseholdRequest struct {
	InviteCode string `json:"invite_code"`
}

// Join handles POST /api/households/join. An unknown code is a validation
// failure, not a missing resource.
func (h *HouseholdHandler) Join(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req joinHouseholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.InviteCode))
	if code == "" {
		errorJSON(w, http.StatusBadRequest, "invite_code_required")
		return
	}

	household, err := h.households.GetByInviteCode(code)
	if err != nil {
		h.logger.Error("invite code lookup", "error", err)
		serverError(w)
		return
	}
	if household == nil {
		errorJSON(w, http.StatusBadRequest, "invalid_invite_code")
		return
	}

	existing, err := h.households.GetMember(household.ID, ac.UserID)
	if err != nil {
		serverError(w)
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusOK, map[string]any{"household": household, "member": existing})
		return
	}

	member, err := h.households.AddMember(household.ID, ac.UserID, string(auth.RoleMember))
	if err != nil {
		h.logger.Error("add member", "error", err)
		serverError(w)
		return
	}
	if ac.SessionID != 0 {
		if err := h.sessions.UpdateHousehold(ac.SessionID, household.ID); err != nil {
			h.logger.Error("update session household", "error", err)
		}
	}

	user, err := h.users.GetByID(ac.UserID)
	if err == nil && user != nil {
		name := user.Name
		if name == "" {
			name = user.Email
		}
		h.scheduler.SendMemberJoined(household.ID, ac.UserID, name)
	}
	h.hub.Broadcast(household.ID, websocket.NewMessage("member", "joined", ac.UserID, nil))

	writeJSON(w, http.StatusOK, map[string]any{"household": household, "member": member})
}

// List handles GET /api/households: every household the user belongs to.
func (h *HouseholdHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	households, err := h.households.ListHouseholdsForUser(ac.UserID)
	if err != nil {
		serverError(w)
		return
	}
	if households == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, households)
}

// Get handles GET /api/household: the active household with its members.
func (h *HouseholdHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	household, err := h.households.GetByID(ac.HouseholdID)
	if err != nil || household == nil {
		serverError(w)
		return
	}
	members, err := h.households.ListMembers(ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"household": household, "members": members})
}

type updateHouseholdRequest struct {
	Name string `json:"name"`
}

// Update handles PUT /api/household. Owner only.
func (h *HouseholdHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req updateHouseholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		errorJSON(w, http.StatusBadRequest, "name_required")
		return
	}

	household, err := h.households.Update(ac.HouseholdID, name)
	if err != nil {
		serverError(w)
		return
	}
	writeJSON(w, http.StatusOK, household)
}

// Members handles GET /api/household/members.
func (h *HouseholdHandler) Members(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	members, err := h.households.ListMembers(ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateMemberRole handles PUT /api/household/members/{id} where {id} is the
// member's user id. Owner only; the last owner cannot be demoted.
func (h *HouseholdHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	targetUserID, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_id")
		return
	}

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	role := auth.Role(strings.TrimSpace(req.Role))
	if !role.Valid() {
		errorJSON(w, http.StatusBadRequest, "invalid_role")
		return
	}

	target, err := h.households.GetMember(ac.HouseholdID, targetUserID)
	if err != nil {
		serverError(w)
		return
	}
	if target == nil {
		notFound(w)
		return
	}

	if auth.Role(target.Role) == auth.RoleOwner && role != auth.RoleOwner {
		sole, err := h.isSoleOwner(ac.HouseholdID, targetUserID)
		if err != nil {
			serverError(w)
			return
		}
		if sole {
			errorJSON(w, http.StatusBadRequest, "last_owner")
			return
		}
	}

	member, err := h.households.UpdateMemberRole(ac.HouseholdID, targetUserID, string(role))
	if err != nil {
		serverError(w)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// RemoveMember handles DELETE /api/household/members/{id}. Members may remove
// themselves (leave); removing anyone else requires the manage-members
// capability, enforced here because self-leave is exempt.
func (h *HouseholdHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	targetUserID, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_id")
		return
	}

	if targetUserID != ac.UserID && !ac.Role.Can(auth.CapManageMembers) {
		errorJSON(w, http.StatusForbidden, "forbidden")
		return
	}

	target, err := h.households.GetMember(ac.HouseholdID, targetUserID)
	if err != nil {
		serverError(w)
		return
	}
	if target == nil {
		notFound(w)
		return
	}

	if auth.Role(target.Role) == auth.RoleOwner {
		sole, err := h.isSoleOwner(ac.HouseholdID, targetUserID)
		if err != nil {
			serverError(w)
			return
		}
		if sole {
			errorJSON(w, http.StatusBadRequest, "last_owner")
			return
		}
	}

	if err := h.households.RemoveMember(ac.HouseholdID, targetUserID); err != nil {
		serverError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type inviteRequest struct {
	Email string `json:"email"`
}

// Invite handles POST /api/household/invite: emails the invite code.
func (h *HouseholdHandler) Invite(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	addr := strings.ToLower(strings.TrimSpace(req.Email))
	if addr == "" || !strings.Contains(addr, "@") {
		errorJSON(w, http.StatusBadRequest, "invalid_email")
		return
	}

	household, err := h.households.GetByID(ac.HouseholdID)
	if err != nil || household == nil {
		serverError(w)
		return
	}
	if err := h.email.SendInvite(r.Context(), addr, household.Name, household.InviteCode); err != nil {
		h.logger.Error("send invite", "error", err)
		errorJSON(w, http.StatusBadGateway, "email_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *HouseholdHandler) isSoleOwner(householdID, userID int64) (bool, error) {
	members, err := h.households.ListMembers(householdID)
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if m.UserID != userID && auth.Role(m.Role) == auth.RoleOwner {
			return false, nil
		}
	}
	return true, nil
}
