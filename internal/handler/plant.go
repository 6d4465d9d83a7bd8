package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rowanhale/verdant/internal/auth"
	"github.com/rowanhale/verdant/internal/model"
	"github.com/rowanhale/verdant/internal/push"
	"github.com/rowanhale/verdant/internal/store"
	"github.com/rowanhale/verdant/internal/watering"
	"github.com/rowanhale/verdant/internal/websocket"
)

type PlantHandler struct {
	plants     *store.PlantStore
	species    *store.SpeciesStore
	locations  *store.LocationStore
	activities *store.CareActivityStore
	scheduler  *push.Scheduler
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewPlantHandler(
	ps *store.PlantStore,
	sp *store.SpeciesStore,
	ls *store.LocationStore,
	cas *store.CareActivityStore,
	scheduler *push.Scheduler,
	hub *websocket.Hub,
	logger *slog.Logger,
) *PlantHandler {
	return &PlantHandler{
		plants:     ps,
		species:    sp,
		locations:  ls,
		activities: cas,
		scheduler:  scheduler,
		hub:        hub,
		logger:     logger,
	}
}

// plantView is a plant plus its computed watering state.
type plantView struct {
	model.Plant
	Status       watering.Status `json:"status"`
	DaysUntil    int             `json:"days_until"`
	NextWatering time.Time       `json:"next_watering"`
}

func viewOf(p model.Plant, now time.Time) plantView {
	return plantView{
		Plant:        p,
		Status:       watering.Classify(p, now),
		DaysUntil:    watering.DaysUntil(p.LastWatered, p.WateringFrequencyDays, p.SnoozedUntil, now),
		NextWatering: watering.NextWateringDate(p.LastWatered, p.WateringFrequencyDays, p.SnoozedUntil),
	}
}

func viewsOf(plants []model.Plant, now time.Time) []plantView {
	views := make([]plantView, 0, len(plants))
	for _, p := range plants {
		views = append(views, viewOf(p, now))
	}
	return views
}

// List handles GET /api/plants, optionally filtered by ?location_id=.
func (h *PlantHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var (
		plants []model.Plant
		err    error
	)
	if loc := r.URL.Query().Get("location_id"); loc != "" {
		locationID, parseErr := strconv.ParseInt(loc, 10, 64)
		if parseErr != nil {
			errorJSON(w, http.StatusBadRequest, "invalid_location_id")
			return
		}
		plants, err = h.plants.ListByLocation(locationID, ac.HouseholdID)
	} else {
		plants, err = h.plants.List(ac.HouseholdID)
	}
	if err != nil {
		h.logger.Error("list plants", "error", err)
		serverError(w)
		return
	}
	writeJSON(w, http.StatusOK, viewsOf(plants, time.Now().UTC()))
}

// Grouped handles GET /api/plants/grouped: the dashboard partition.
func (h *PlantHandler) Grouped(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	plants, err := h.plants.List(ac.HouseholdID)
	if err != nil {
		h.logger.Error("list plants", "error", err)
		serverError(w)
		return
	}

	now := time.Now().UTC()
	groups := watering.GroupByStatus(plants, now)
	writeJSON(w, http.StatusOK, map[string]any{
		"due_today":        viewsOf(groups.DueToday, now),
		"upcoming":         viewsOf(groups.Upcoming, now),
		"recently_watered": viewsOf(groups.RecentlyWatered, now),
	})
}

type plantRequest struct {
	Name                  string     `json:"name"`
	SpeciesID             *int64     `json:"species_id"`
	LocationID            *int64     `json:"location_id"`
	WateringFrequencyDays int        `json:"watering_frequency_days"`
	LastWatered           *time.Time `json:"last_watered"`
	PhotoURL              string     `json:"photo_url"`
	Notes                 string     `json:"notes"`
}

func (h *PlantHandler) validate(w http.ResponseWriter, householdID int64, req *plantRequest) bool {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		errorJSON(w, http.StatusBadRequest, "name_required")
		return false
	}
	if req.WateringFrequencyDays < 1 {
		errorJSON(w, http.StatusBadRequest, "invalid_watering_frequency")
		return false
	}
	if req.SpeciesID != nil {
		sp, err := h.species.GetByID(*req.SpeciesID, householdID)
		if err != nil {
			serverError(w)
			return false
		}
		if sp == nil {
			errorJSON(w, http.StatusBadRequest, "unknown_species")
			return false
		}
	}
	if req.LocationID != nil {
		loc, err := h.locations.GetByID(*req.LocationID, householdID)
		if err != nil {
			serverError(w)
			return false
		}
		if loc == nil {
			errorJSON(w, http.StatusBadRequest, "unknown_location")
			return false
		}
	}
	return true
}

// Create handles POST /api/plants.
func (h *PlantHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req plantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if !h.validate(w, ac.HouseholdID, &req) {
		return
	}

	now := time.Now().UTC()
	lastWatered := now
	if req.LastWatered != nil {
		if req.LastWatered.After(now) {
			errorJSON(w, http.StatusBadRequest, "last_watered_in_future")
			return
		}
		lastWatered = req.LastWatered.UTC()
	}

	plant, err := h.plants.Create(ac.HouseholdID, ac.UserID, req.Name, req.SpeciesID, req.LocationID, req.WateringFrequencyDays, lastWatered, req.PhotoURL, req.Notes)
	if err != nil {
		h.logger.Error("create plant", "error", err)
		serverError(w)
		return
	}

	h.hub.Broadcast(ac.HouseholdID, websocket.NewMessage("plant", "created", plant.ID, nil))
	writeJSON(w, http.StatusCreated, viewOf(*plant, now))
}

// Get handles GET /api/plants/{id}.
func (h *PlantHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_id")
		return
	}
	plant, err := h.plants.GetByID(id, ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	if plant == nil {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(*plant, time.Now().UTC()))
}

// Update handles PUT /api/plants/{id}. Watering state is not updated here;
// that goes through Water and Snooze.
func (h *PlantHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_id")
		return
	}

	var req plantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if !h.validate(w, ac.HouseholdID, &req) {
		return
	}

	plant, err := h.plants.Update(id, ac.HouseholdID, req.Name, req.SpeciesID, req.LocationID, req.WateringFrequencyDays, req.PhotoURL, req.Notes)
	if err != nil {
		serverError(w)
		return
	}
	if plant == nil {
		notFound(w)
		return
	}

	h.hub.Broadcast(ac.HouseholdID, websocket.NewMessage("plant", "updated", plant.ID, nil))
	writeJSON(w, http.StatusOK, viewOf(*plant, time.Now().UTC()))
}

// Delete handles DELETE /api/plants/{id}. Care history goes with the plant.
func (h *PlantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_id")
		return
	}
	plant, err := h.plants.GetByID(id, ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	if plant == nil {
		notFound(w)
		return
	}
	if err := h.plants.Delete(id, ac.HouseholdID); err != nil {
		serverError(w)
		return
	}

	h.hub.Broadcast(ac.HouseholdID, websocket.NewMessage("plant", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

type waterRequest struct {
	At    *time.Time `json:"at"`
	Notes string     `json:"notes"`
}

// Water handles POST /api/plants/{id}/water: stamps last_watered, clears any
// snooze, and appends a watering activity to the care log.
func (h *PlantHandler) Water(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_id")
		return
	}

	var req waterRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errorJSON(w, http.StatusBadRequest, "invalid_json")
			return
		}
	}

	now := time.Now().UTC()
	at := now
	if req.At != nil {
		if req.At.After(now) {
			errorJSON(w, http.StatusBadRequest, "watered_in_future")
			return
		}
		at = req.At.UTC()
	}

	plant, err := h.plants.MarkWatered(id, ac.HouseholdID, at)
	if err != nil {
		h.logger.Error("mark watered", "error", err)
		serverError(w)
		return
	}
	if plant == nil {
		notFound(w)
		return
	}

	if _, err := h.activities.Create(plant.ID, ac.HouseholdID, ac.UserID, model.CareWatering, req.Notes, at); err != nil {
		h.logger.Error("log watering activity", "error", err)
	}

	h.hub.Broadcast(ac.HouseholdID, websocket.NewMessage("plant", "watered", plant.ID, map[string]any{"by": ac.UserID}))
	h.scheduler.SendCareLogged(ac.HouseholdID, ac.UserID, plant.Name, model.CareWatering)

	writeJSON(w, http.StatusOK, viewOf(*plant, now))
}

type snoozeRequest struct {
	Days int `json:"days"`
}

// Snooze handles POST /api/plants/{id}/snooze: pushes the next due date out
// by whole days from now.
func (h *PlantHandler) Snooze(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_id")
		return
	}

	var req snoozeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Days < 1 || req.Days > 90 {
		errorJSON(w, http.StatusBadRequest, "invalid_snooze_days")
		return
	}

	now := time.Now().UTC()
	until := now.AddDate(0, 0, req.Days)
	plant, err := h.plants.Snooze(id, ac.HouseholdID, until)
	if err != nil {
		serverError(w)
		return
	}
	if plant == nil {
		notFound(w)
		return
	}

	h.hub.Broadcast(ac.HouseholdID, websocket.NewMessage("plant", "snoozed", plant.ID, nil))
	writeJSON(w, http.StatusOK, viewOf(*plant, now))
}

// Unsnooze handles DELETE /api/plants/{id}/snooze.
func (h *PlantHandler) Unsnooze(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_id")
		return
	}
	plant, err := h.plants.ClearSnooze(id, ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	if plant == nil {
		notFound(w)
		return
	}

	h.hub.Broadcast(ac.HouseholdID, websocket.NewMessage("plant", "updated", plant.ID, nil))
	writeJSON(w, http.StatusOK, viewOf(*plant, time.Now().UTC()))
}
