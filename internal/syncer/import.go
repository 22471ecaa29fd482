package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/crucial707/patient-sync/internal/csvio"
	"github.com/crucial707/patient-sync/internal/metrics"
	"github.com/crucial707/patient-sync/internal/models"
	"github.com/crucial707/patient-sync/internal/syncerr"
)

// importTask processes every CSV file in folder. A file that fails is logged
// and counted; the remaining files still run. Only an unreadable folder fails
// the task.
func (o *Orchestrator) importTask(ctx context.Context, folder string, run *models.SyncRun) error {
	files, err := listCSV(folder)
	if err != nil {
		return err
	}

	for _, path := range files {
		run.Files++
		n, err := o.ImportFile(ctx, path)
		run.Affected += n
		if err != nil {
			run.Failed++
			metrics.IncImportFile(models.RunFailed)
			if syncerr.IsFormat(err) {
				o.logger.Warn("import file rejected", "task", "import", "path", path, "error", err)
			} else {
				o.logger.Error("import file failed", "task", "import", "path", path, "affected", n, "error", err)
			}
			continue
		}
		metrics.IncImportFile(models.RunCompleted)
		o.logger.Info("import file completed", "task", "import", "path", path, "affected", n)
	}

	if run.Failed > 0 {
		run.Detail = fmt.Sprintf("%d of %d files failed", run.Failed, run.Files)
	}
	return nil
}

// ImportFile reconciles one CSV file into the store and returns the number of
// rows written. The file is validated in full before anything is written, so
// a malformed row aborts the file with no records committed from it.
func (o *Orchestrator) ImportFile(ctx context.Context, path string) (int, error) {
	rows, err := csvio.Scan(path)
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return 0, nil
	}

	r, err := csvio.Open(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	size := o.reconciler.ChunkSize()
	batch := make([]models.Patient, 0, size)
	// Rows without an id wait until every explicit id in the file is stored.
	var fresh []models.Patient
	affected := 0

	flush := func(records []models.Patient) error {
		n, err := o.reconciler.UpsertBatch(ctx, records)
		affected += n
		if err != nil {
			return &syncerr.IOError{Op: "upsert", Path: path, Err: err}
		}
		return nil
	}

	for r.Next() {
		p := r.Record()
		if p.ID == 0 {
			fresh = append(fresh, p)
			continue
		}
		batch = append(batch, p)
		if len(batch) >= size {
			if err := flush(batch); err != nil {
				return affected, err
			}
			batch = batch[:0]
		}
	}
	if err := r.Err(); err != nil {
		// The file changed after validation; chunks already flushed stay committed.
		return affected, err
	}
	if len(batch) > 0 {
		if err := flush(batch); err != nil {
			return affected, err
		}
	}
	if len(fresh) > 0 {
		if err := flush(fresh); err != nil {
			return affected, err
		}
	}
	return affected, nil
}

// listCSV returns the regular *.csv files in folder, sorted by name. The
// extension match ignores case.
func listCSV(folder string) ([]string, error) {
	if strings.TrimSpace(folder) == "" {
		return nil, &syncerr.ConfigError{Field: "import_folder", Value: folder, Err: errors.New("empty path")}
	}
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, &syncerr.IOError{Op: "list import folder", Path: folder, Err: err}
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			files = append(files, filepath.Join(folder, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
