package repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/patient-sync/internal/models"
)

var settingsCols = []string{"id", "import_schedule", "export_schedule", "import_folder", "export_folder", "is_paused", "updated_at"}

func TestSettingsRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, import_schedule, export_schedule, import_folder, export_folder, is_paused, updated_at`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(settingsCols).
			AddRow(1, "0 */2 * * *", "0 0 * * *", "/in", "/out", false, time.Now()))

	s, err := NewSettingsRepo(db).Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s == nil {
		t.Fatal("expected settings, got nil")
	}
	if s.ImportSchedule != "0 */2 * * *" || s.ExportFolder != "/out" || s.IsPaused {
		t.Errorf("unexpected settings: %+v", s)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestSettingsRepo_Get_Missing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, import_schedule`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(settingsCols))

	s, err := NewSettingsRepo(db).Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s != nil {
		t.Errorf("expected nil, got %+v", s)
	}
}

func TestSettingsRepo_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE service_settings SET import_schedule = \$1`).
		WithArgs("*/5 * * * *", "0 0 * * *", "/in", "/out", true, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := NewSettingsRepo(db).Update(context.Background(), models.SyncSettings{
		ImportSchedule: "*/5 * * * *",
		ExportSchedule: "0 0 * * *",
		ImportFolder:   "/in",
		ExportFolder:   "/out",
		IsPaused:       true,
	})
	if err != nil || !ok {
		t.Fatalf("Update: ok=%v err=%v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestSettingsRepo_SetPaused_NoRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE service_settings SET is_paused = \$1`).
		WithArgs(true, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := NewSettingsRepo(db).SetPaused(context.Background(), true)
	if err != nil {
		t.Fatalf("SetPaused: %v", err)
	}
	if ok {
		t.Error("expected false when no settings row exists")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
