package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rowanhale/verdant/internal/auth"
	"github.com/rowanhale/verdant/internal/push"
	"github.com/rowanhale/verdant/internal/store"
)

type PushHandler struct {
	pushStore *store.PushStore
	service   *push.Service
	logger    *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushStore: ps, service: svc, logger: logger}
}

type subscribeRequest struct {
	Endpoint   string `json:"endpoint"`
	P256dh     string `json:"p256dh"`
	Auth       string `json:"auth"`
	DeviceName string `json:"device_name"`
}

// Subscribe handles POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		errorJSON(w, http.StatusBadRequest, "endpoint_keys_required")
		return
	}

	sub, err := h.pushStore.CreateSubscription(ac.UserID, ac.HouseholdID, req.Endpoint, req.P256dh, req.Auth, req.DeviceName)
	if err != nil {
		h.logger.Error("create push subscription", "error", err)
		serverError(w)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /api/push/subscriptions/{id}
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_id")
		return
	}
	if err := h.pushStore.DeleteSubscription(id, ac.HouseholdID); err != nil {
		h.logger.Error("delete push subscription", "error", err)
		serverError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSubscriptions handles GET /api/push/subscriptions
func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	subs, err := h.pushStore.ListByUser(ac.UserID, ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	if subs == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// GetVAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

// GetPreferences handles GET /api/push/preferences
func (h *PushHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	prefs, err := h.pushStore.GetPreferences(ac.UserID, ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	if prefs == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

type updatePreferencesRequest struct {
	Preferences []prefItem `json:"preferences"`
}

type prefItem struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

// UpdatePreferences handles PUT /api/push/preferences
func (h *PushHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req updatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}

	for _, p := range req.Preferences {
		if err := h.pushStore.SetPreference(ac.UserID, ac.HouseholdID, p.Type, p.Enabled); err != nil {
			h.logger.Error("set notification preference", "type", p.Type, "error", err)
			serverError(w)
			return
		}
	}

	prefs, err := h.pushStore.GetPreferences(ac.UserID, ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
