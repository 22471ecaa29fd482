package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/crucial707/patient-sync/internal/repo"
	"github.com/crucial707/patient-sync/internal/scheduler"
	"github.com/go-playground/validator/v10"
)

// SettingsHandler serves the sync settings row. Changes are picked up by the
// orchestrator on its next tick.
type SettingsHandler struct {
	Repo     *repo.SettingsRepo
	validate *validator.Validate
}

// NewSettingsHandler returns a SettingsHandler whose validator knows the
// "cron" tag.
func NewSettingsHandler(r *repo.SettingsRepo) *SettingsHandler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		return scheduler.Validate(fl.Field().String()) == nil
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &SettingsHandler{Repo: r, validate: v}
}

type settingsInput struct {
	ImportSchedule string `json:"import_schedule" validate:"required,max=255,cron"`
	ExportSchedule string `json:"export_schedule" validate:"required,max=255,cron"`
	ImportFolder   string `json:"import_folder" validate:"required,max=1024"`
	ExportFolder   string `json:"export_folder" validate:"required,max=1024"`
	IsPaused       *bool  `json:"is_paused"`
}

// GetSettings returns the settings row.
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Repo.Get(r.Context())
	if err != nil {
		slog.Error("load settings", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if s == nil {
		JSONError(w, "settings not found", http.StatusNotFound)
		return
	}
	writeJSON(w, s)
}

// UpdateSettings replaces schedules and folders. Body:
// {"import_schedule": "0 */2 * * *", "export_schedule": "0 0 * * *", "import_folder": "...", "export_folder": "...", "is_paused": false}.
// is_paused is optional and left unchanged when omitted.
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var input settingsInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	input.ImportSchedule = strings.TrimSpace(input.ImportSchedule)
	input.ExportSchedule = strings.TrimSpace(input.ExportSchedule)

	if err := h.validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = validationMessage(fe)
			}
			JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
			return
		}
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	current, err := h.Repo.Get(r.Context())
	if err != nil {
		slog.Error("load settings", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if current == nil {
		JSONError(w, "settings not found", http.StatusNotFound)
		return
	}

	next := *current
	next.ImportSchedule = input.ImportSchedule
	next.ExportSchedule = input.ExportSchedule
	next.ImportFolder = input.ImportFolder
	next.ExportFolder = input.ExportFolder
	if input.IsPaused != nil {
		next.IsPaused = *input.IsPaused
	}

	ok, err := h.Repo.Update(r.Context(), next)
	if err != nil {
		slog.Error("update settings", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if !ok {
		JSONError(w, "settings not found", http.StatusNotFound)
		return
	}
	slog.Info("sync settings updated",
		"import_schedule", next.ImportSchedule, "export_schedule", next.ExportSchedule,
		"import_folder", next.ImportFolder, "export_folder", next.ExportFolder, "paused", next.IsPaused)
	h.GetSettings(w, r)
}

// Pause sets the pause flag. Scheduled occurrences that pass while paused are skipped, not queued.
func (h *SettingsHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, true)
}

// Resume clears the pause flag.
func (h *SettingsHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, false)
}

func (h *SettingsHandler) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	ok, err := h.Repo.SetPaused(r.Context(), paused)
	if err != nil {
		slog.Error("set pause flag", "paused", paused, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if !ok {
		JSONError(w, "settings not found", http.StatusNotFound)
		return
	}
	slog.Info("sync pause flag changed", "paused", paused)
	h.GetSettings(w, r)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "cron":
		return "invalid cron expression (want 5 fields: minute hour day month weekday)"
	case "max":
		return "too long (max " + fe.Param() + ")"
	default:
		return fe.Tag()
	}
}
