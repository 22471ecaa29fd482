package models

import "time"

// SyncRun is one executed import or export task.
type SyncRun struct {
	ID         int       `json:"id"`
	Task       string    `json:"task"`   // import, export
	Status     string    `json:"status"` // completed, failed
	Detail     string    `json:"detail,omitempty"`
	Files      int       `json:"files"`
	Failed     int       `json:"failed"`
	Affected   int       `json:"affected"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)
