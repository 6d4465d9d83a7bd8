package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rowanhale/verdant/internal/auth"
	"github.com/rowanhale/verdant/internal/model"
	"github.com/rowanhale/verdant/internal/push"
	"github.com/rowanhale/verdant/internal/store"
	"github.com/rowanhale/verdant/internal/websocket"
)

type CareHandler struct {
	activities *store.CareActivityStore
	health     *store.HealthRecordStore
	plants     *store.PlantStore
	scheduler  *push.Scheduler
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewCareHandler(
	cas *store.CareActivityStore,
	hrs *store.HealthRecordStore,
	ps *store.PlantStore,
	scheduler *push.Scheduler,
	hub *websocket.Hub,
	logger *slog.Logger,
) *CareHandler {
	return &CareHandler{
		activities: cas,
		health:     hrs,
		plants:     ps,
		scheduler:  scheduler,
		hub:        hub,
		logger:     logger,
	}
}

type careActivityRequest struct {
	Kind        string     `json:"kind"`
	Notes       string     `json:"notes"`
	PerformedAt *time.Time `json:"performed_at"`
}

// CreateActivity handles POST /api/plants/{id}/care. The care log is append
// only; a watering entry also advances the plant's schedule.
func (h *CareHandler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	plantID, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_id")
		return
	}

	var req careActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if !model.ValidCareKind(req.Kind) {
		errorJSON(w, http.StatusBadRequest, "invalid_care_kind")
		return
	}

	now := time.Now().UTC()
	performedAt := now
	if req.PerformedAt != nil {
		if req.PerformedAt.After(now) {
			errorJSON(w, http.StatusBadRequest, "performed_in_future")
			return
		}
		performedAt = req.PerformedAt.UTC()
	}

	plant, err := h.plants.GetByID(plantID, ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	if plant == nil {
		notFound(w)
		return
	}

	activity, err := h.activities.Create(plantID, ac.HouseholdID, ac.UserID, req.Kind, req.Notes, performedAt)
	if err != nil {
		h.logger.Error("create care activity", "error", err)
		serverError(w)
		return
	}

	if req.Kind == model.CareWatering {
		if _, err := h.plants.MarkWatered(plantID, ac.HouseholdID, performedAt); err != nil {
			h.logger.Error("mark watered from care log", "error", err)
		}
	}

	h.hub.Broadcast(ac.HouseholdID, websocket.NewMessage("care_activity", "created", activity.ID, map[string]any{"plant_id": plantID}))
	h.scheduler.SendCareLogged(ac.HouseholdID, ac.UserID, plant.Name, req.Kind)

	writeJSON(w, http.StatusCreated, activity)
}

// ListActivities handles GET /api/plants/{id}/care.
func (h *CareHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	plantID, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_id")
		return
	}
	plant, err := h.plants.GetByID(plantID, ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	if plant == nil {
		notFound(w)
		return
	}

	activities, err := h.activities.ListByPlant(plantID, ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	if activities == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

// RecentActivity handles GET /api/care/recent?limit=: the household feed.
func (h *CareHandler) RecentActivity(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			errorJSON(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		limit = n
	}

	activities, err := h.activities.ListRecent(ac.HouseholdID, limit)
	if err != nil {
		serverError(w)
		return
	}
	if activities == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

type healthRecordRequest struct {
	Status     string     `json:"status"`
	Notes      string     `json:"notes"`
	PhotoURL   string     `json:"photo_url"`
	RecordedAt *time.Time `json:"recorded_at"`
}

// CreateHealthRecord handles POST /api/plants/{id}/health.
func (h *CareHandler) CreateHealthRecord(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	plantID, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_id")
		return
	}

	var req healthRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if !model.ValidHealthStatus(req.Status) {
		errorJSON(w, http.StatusBadRequest, "invalid_health_status")
		return
	}

	now := time.Now().UTC()
	recordedAt := now
	if req.RecordedAt != nil {
		if req.RecordedAt.After(now) {
			errorJSON(w, http.StatusBadRequest, "recorded_in_future")
			return
		}
		recordedAt = req.RecordedAt.UTC()
	}

	plant, err := h.plants.GetByID(plantID, ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	if plant == nil {
		notFound(w)
		return
	}

	record, err := h.health.Create(plantID, ac.HouseholdID, ac.UserID, req.Status, req.Notes, req.PhotoURL, recordedAt)
	if err != nil {
		h.logger.Error("create health record", "error", err)
		serverError(w)
		return
	}

	h.hub.Broadcast(ac.HouseholdID, websocket.NewMessage("health_record", "created", record.ID, map[string]any{"plant_id": plantID}))
	writeJSON(w, http.StatusCreated, record)
}

// ListHealthRecords handles GET /api/plants/{id}/health.
func (h *CareHandler) ListHealthRecords(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	plantID, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_id")
		return
	}
	plant, err := h.plants.GetByID(plantID, ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	if plant == nil {
		notFound(w)
		return
	}

	records, err := h.health.ListByPlant(plantID, ac.HouseholdID)
	if err != nil {
		serverError(w)
		return
	}
	if records == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, records)
}
