package repo

import (
	"context"
	"database/sql"

	"github.com/crucial707/patient-sync/internal/models"
)

// SyncRunRepo persists the history of executed sync tasks.
type SyncRunRepo struct {
	db *sql.DB
}

// NewSyncRunRepo returns a new SyncRunRepo.
func NewSyncRunRepo(db *sql.DB) *SyncRunRepo {
	return &SyncRunRepo{db: db}
}

// Record inserts one run.
func (r *SyncRunRepo) Record(ctx context.Context, run models.SyncRun) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_runs (task, status, detail, files, failed, affected, started_at, finished_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.Task, run.Status, run.Detail, run.Files, run.Failed, run.Affected, run.StartedAt, run.FinishedAt,
	)
	return err
}

// List returns recent runs, newest first. task filters by task name when not empty.
func (r *SyncRunRepo) List(ctx context.Context, task string, limit, offset int) ([]models.SyncRun, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, task, status, COALESCE(detail,''), files, failed, affected, started_at, finished_at FROM sync_runs WHERE ($1 = '' OR task = $1) ORDER BY started_at DESC LIMIT $2 OFFSET $3`,
		task, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		var run models.SyncRun
		if err := rows.Scan(&run.ID, &run.Task, &run.Status, &run.Detail, &run.Files, &run.Failed, &run.Affected, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
