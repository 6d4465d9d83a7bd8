package handler

import (
	"log/slog"
	"net/http"

	"github.com/rowanhale/verdant/internal/backup"
	"github.com/rowanhale/verdant/internal/store"
)

type BackupHandler struct {
	manager *backup.Manager
	backups *store.BackupStore
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, bs *store.BackupStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, backups: bs, logger: logger}
}

// Run handles POST /api/backup/run. Owner only.
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	record, err := h.manager.RunNow(r.Context())
	if err != nil {
		h.logger.Error("manual backup", "error", err)
		errorJSON(w, http.StatusServiceUnavailable, "backup_failed")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Status handles GET /api/backup/status.
func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

// List handles GET /api/backups.
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.backups.ListRecent(30)
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
