package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/crucial707/patient-sync/internal/models"
	"github.com/crucial707/patient-sync/internal/repo"
	"github.com/crucial707/patient-sync/internal/scheduler"
	"github.com/crucial707/patient-sync/internal/syncer"
)

// StatusSource reports the live orchestrator state.
type StatusSource interface {
	Status() syncer.Status
}

// SyncHandler serves orchestrator status and run history.
type SyncHandler struct {
	Runs     *repo.SyncRunRepo
	Settings *repo.SettingsRepo
	Status   StatusSource
}

type statusResponse struct {
	syncer.Status
	Paused       bool       `json:"paused"`
	NextImportAt *time.Time `json:"next_import_at,omitempty"`
	NextExportAt *time.Time `json:"next_export_at,omitempty"`
}

// GetStatus returns the orchestrator state, checkpoints and the next
// scheduled occurrence of each task.
func (h *SyncHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	out := statusResponse{Status: h.Status.Status()}

	s, err := h.Settings.Get(r.Context())
	if err != nil {
		slog.Error("load settings", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if s != nil {
		out.Paused = s.IsPaused
		if !s.IsPaused {
			out.NextImportAt = nextOccurrence(s.ImportSchedule, out.ImportCheckpoint)
			out.NextExportAt = nextOccurrence(s.ExportSchedule, out.ExportCheckpoint)
		}
	}
	writeJSON(w, out)
}

func nextOccurrence(expr string, after time.Time) *time.Time {
	next, err := scheduler.NextAfter(expr, after)
	if err != nil || next.IsZero() {
		return nil
	}
	return &next
}

// ListRuns returns recent task runs, newest first. Query: task (import|export), limit (default 50, max 200), offset.
func (h *SyncHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50, 200)
	task := r.URL.Query().Get("task")
	switch scheduler.Task(task) {
	case "", scheduler.TaskImport, scheduler.TaskExport:
	default:
		JSONValidationError(w, "validation failed", map[string]string{"task": "must be import or export"}, http.StatusBadRequest)
		return
	}

	runs, err := h.Runs.List(r.Context(), task, limit, offset)
	if err != nil {
		slog.Error("list sync runs", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []models.SyncRun{}
	}
	writeJSON(w, runs)
}
