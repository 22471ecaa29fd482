package repo

import (
	"context"
	"database/sql"

	"github.com/crucial707/patient-sync/internal/models"
)

// SettingsRepo reads and writes the singleton sync settings row.
type SettingsRepo struct {
	DB *sql.DB
}

// NewSettingsRepo returns a new SettingsRepo.
func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{DB: db}
}

// Get returns the settings row, or nil when it has not been seeded.
func (r *SettingsRepo) Get(ctx context.Context) (*models.SyncSettings, error) {
	query := `
		SELECT id, import_schedule, export_schedule, import_folder, export_folder, is_paused, updated_at
		FROM service_settings
		WHERE id = $1
	`
	s := &models.SyncSettings{}
	err := r.DB.QueryRowContext(ctx, query, models.SettingsID).Scan(
		&s.ID, &s.ImportSchedule, &s.ExportSchedule, &s.ImportFolder, &s.ExportFolder, &s.IsPaused, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Update overwrites schedules, folders and the pause flag. It reports false
// when the settings row does not exist.
func (r *SettingsRepo) Update(ctx context.Context, s models.SyncSettings) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE service_settings
		 SET import_schedule = $1, export_schedule = $2, import_folder = $3, export_folder = $4, is_paused = $5, updated_at = NOW()
		 WHERE id = $6`,
		s.ImportSchedule, s.ExportSchedule, s.ImportFolder, s.ExportFolder, s.IsPaused, models.SettingsID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SetPaused flips only the pause flag.
func (r *SettingsRepo) SetPaused(ctx context.Context, paused bool) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE service_settings SET is_paused = $1, updated_at = NOW() WHERE id = $2`,
		paused, models.SettingsID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
