package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rowanhale/verdant/internal/auth"
	"github.com/rowanhale/verdant/internal/store"
)

type SettingsHandler struct {
	settings *store.SettingsStore
	logger   *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: ss, logger: logger}
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	settings, err := h.settings.GetAll(ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type updateSettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Update handles PUT /api/settings. Owner only.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req updateSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if !validSetting(req.Key, req.Value) {
		errorJSON(w, http.StatusBadRequest, "invalid_setting")
		return
	}

	if err := h.settings.Set(ac.HouseholdID, req.Key, req.Value); err != nil {
		h.logger.Error("set setting", "key", req.Key, "error", err)
		serverError(w)
		return
	}

	settings, err := h.settings.GetAll(ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func validSetting(key, value string) bool {
	switch key {
	case "reminder_hour":
		hour, err := strconv.Atoi(value)
		return err == nil && hour >= 0 && hour <= 23
	case "digest_enabled", "quiet_hours_enabled":
		return value == "true" || value == "false"
	case "quiet_hours_start", "quiet_hours_end":
		return validClock(value)
	}
	return false
}

func validClock(value string) bool {
	if len(value) != 5 || value[2] != ':' {
		return false
	}
	hour, err := strconv.Atoi(value[:2])
	if err != nil || hour < 0 || hour > 23 {
		return false
	}
	minute, err := strconv.Atoi(value[3:])
	return err == nil && minute >= 0 && minute <= 59
}
