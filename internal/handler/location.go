package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rowanhale/verdant/internal/auth"
	"github.com/rowanhale/verdant/internal/store"
)

type LocationHandler struct {
	locations *store.LocationStore
	logger    *slog.Logger
}

func NewLocationHandler(ls *store.LocationStore, logger *slog.Logger) *LocationHandler {
	return &LocationHandler{locations: ls, logger: logger}
}

type locationRequest struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	locations, err := h.locations.List(ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	if locations == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, locations)
}

func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		errorJSON(w, http.StatusBadRequest, "name_required")
		return
	}

	location, err := h.locations.Create(ac.HouseholdID, ac.UserID, req.Name, req.IsDefault)
	if err != nil {
		h.logger.Error("create location", "error", err)
		errorJSON(w, http.StatusConflict, "duplicate_location")
		return
	}
	writeJSON(w, http.StatusCreated, location)
}

func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_id")
		return
	}
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		errorJSON(w, http.StatusBadRequest, "name_required")
		return
	}

	location, err := h.locations.Update(id, ac.HouseholdID, req.Name, req.IsDefault)
	if err != nil {
		serverError(w)
		return
	}
	if location == nil {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, location)
}

func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_id")
		return
	}
	location, err := h.locations.GetByID(id, ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	if location == nil {
		notFound(w)
		return
	}
	if err := h.locations.Delete(id, ac.HouseholdID); err != nil {
		serverError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
