package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/centsibleapp/centsible/internal/model"
	"github.com/centsibleapp/centsible/internal/store"
)

const defaultBackupListLimit = 50

// BackupHandler exposes the snapshot upload history. Admin only.
type BackupHandler struct {
	backupStore *store.BackupStore
	logger      *slog.Logger
}

func NewBackupHandler(bs *store.BackupStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{backupStore: bs, logger: logger}
}

// List returns recent backup uploads, newest first. `?limit=` caps the count.
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultBackupListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	backups, err := h.backupStore.List(limit)
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"backups": backups,
		"count":   len(backups),
	})
}

// Delete removes one history record.
func (h *BackupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	deleted, err := h.backupStore.Delete(id)
	if err != nil {
		h.logger.Error("delete backup", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete backup")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "backup not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
