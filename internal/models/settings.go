package models

import "time"

// SettingsID is the primary key of the singleton settings row.
const SettingsID = 1

// SyncSettings controls when and where the import and export tasks run.
type SyncSettings struct {
	ID             int       `json:"id"`
	ImportSchedule string    `json:"import_schedule"`
	ExportSchedule string    `json:"export_schedule"`
	ImportFolder   string    `json:"import_folder"`
	ExportFolder   string    `json:"export_folder"`
	IsPaused       bool      `json:"is_paused"`
	UpdatedAt      time.Time `json:"updated_at"`
}
