package syncer

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/crucial707/patient-sync/internal/csvio"
	"github.com/crucial707/patient-sync/internal/models"
	"github.com/crucial707/patient-sync/internal/syncerr"
)

// ExportFileName is the name of the file written by an export started at t.
func ExportFileName(t time.Time) string {
	return "export_" + t.Format("2006_01_02_15_04_05") + ".csv"
}

func (o *Orchestrator) exportTask(ctx context.Context, folder string, run *models.SyncRun) error {
	path, n, err := o.Export(ctx, folder)
	run.Files = 1
	run.Affected = n
	run.Detail = path
	return err
}

// Export writes every stored patient to a new timestamped CSV file in folder
// and returns its path and the number of rows written.
func (o *Orchestrator) Export(ctx context.Context, folder string) (string, int, error) {
	if strings.TrimSpace(folder) == "" {
		return "", 0, &syncerr.ConfigError{Field: "export_folder", Value: folder, Err: errors.New("empty path")}
	}
	info, err := os.Stat(folder)
	if err != nil {
		return "", 0, &syncerr.IOError{Op: "stat export folder", Path: folder, Err: err}
	}
	if !info.IsDir() {
		return "", 0, &syncerr.ConfigError{Field: "export_folder", Value: folder, Err: errors.New("not a directory")}
	}

	path := filepath.Join(folder, ExportFileName(o.Now()))
	n, err := csvio.WriteFile(ctx, path, o.patients(ctx), o.cfg.FlushEvery)
	if err != nil {
		return path, n, err
	}
	return path, n, nil
}

// patients yields every stored patient in id order, one page at a time. The
// sequence ends at the first empty page or stops with the page error.
func (o *Orchestrator) patients(ctx context.Context) iter.Seq2[models.Patient, error] {
	return func(yield func(models.Patient, error) bool) {
		after := 0
		for {
			page, err := o.pager.PageAfter(ctx, after, o.cfg.PageSize)
			if err != nil {
				yield(models.Patient{}, &syncerr.IOError{Op: "read patients page", Err: err})
				return
			}
			if len(page) == 0 {
				return
			}
			for _, p := range page {
				if !yield(p, nil) {
					return
				}
			}
			after = page[len(page)-1].ID
		}
	}
}
