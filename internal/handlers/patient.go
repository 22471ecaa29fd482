package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/crucial707/patient-sync/internal/models"
	"github.com/crucial707/patient-sync/internal/repo"
	"github.com/go-chi/chi/v5"
)

// PatientHandler serves read-only access to the patient store.
type PatientHandler struct {
	Repo *repo.PatientRepo
}

// ListPatients returns patients in id order with the total count. Query: limit (default 50, max 500), offset.
func (h *PatientHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50, 500)

	list, err := h.Repo.List(r.Context(), limit, offset)
	if err != nil {
		slog.Error("list patients", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	total, err := h.Repo.Count(r.Context())
	if err != nil {
		slog.Error("count patients", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []models.Patient{}
	}

	writeJSON(w, struct {
		Items  []models.Patient `json:"items"`
		Total  int              `json:"total"`
		Limit  int              `json:"limit"`
		Offset int              `json:"offset"`
	}{list, total, limit, offset})
}

// GetPatient returns one patient by id.
func (h *PatientHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		JSONError(w, "invalid patient id", http.StatusBadRequest)
		return
	}

	p, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		slog.Error("get patient", "id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if p == nil {
		JSONError(w, "patient not found", http.StatusNotFound)
		return
	}
	writeJSON(w, p)
}
