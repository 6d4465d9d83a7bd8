package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rowanhale/verdant/internal/auth"
	"github.com/rowanhale/verdant/internal/store"
)

type SpeciesHandler struct {
	species *store.SpeciesStore
	logger  *slog.Logger
}

func NewSpeciesHandler(sp *store.SpeciesStore, logger *slog.Logger) *SpeciesHandler {
	return &SpeciesHandler{species: sp, logger: logger}
}

type speciesRequest struct {
	CommonName           string `json:"common_name"`
	LatinName            string `json:"latin_name"`
	DefaultFrequencyDays int    `json:"default_frequency_days"`
	CareNotes            string `json:"care_notes"`
}

func (r *speciesRequest) validate(w http.ResponseWriter) bool {
	r.CommonName = strings.TrimSpace(r.CommonName)
	if r.CommonName == "" {
		errorJSON(w, http.StatusBadRequest, "common_name_required")
		return false
	}
	if r.DefaultFrequencyDays < 1 {
		errorJSON(w, http.StatusBadRequest, "invalid_default_frequency")
		return false
	}
	return true
}

func (h *SpeciesHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	species, err := h.species.List(ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	if species == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, species)
}

func (h *SpeciesHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_id")
		return
	}
	species, err := h.species.GetByID(id, ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	if species == nil {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, species)
}

func (h *SpeciesHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req speciesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if !req.validate(w) {
		return
	}

	species, err := h.species.Create(ac.HouseholdID, req.CommonName, req.LatinName, req.DefaultFrequencyDays, req.CareNotes)
	if err != nil {
		h.logger.Error("create species", "error", err)
		serverError(w)
		return
	}
	writeJSON(w, http.StatusCreated, species)
}

func (h *SpeciesHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_id")
		return
	}
	var req speciesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if !req.validate(w) {
		return
	}

	species, err := h.species.Update(id, ac.HouseholdID, req.CommonName, req.LatinName, req.DefaultFrequencyDays, req.CareNotes)
	if err != nil {
		serverError(w)
		return
	}
	if species == nil {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, species)
}

func (h *SpeciesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_id")
		return
	}
	species, err := h.species.GetByID(id, ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	if species == nil {
		notFound(w)
		return
	}
	if err := h.species.Delete(id, ac.HouseholdID); err != nil {
		serverError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
