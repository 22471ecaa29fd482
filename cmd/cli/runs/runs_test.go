package runs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crucial707/patient-sync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Table(t *testing.T) {
	next := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sync/status", r.URL.Path)
		json.NewEncoder(w).Encode(status{State: "importing", NextImportAt: &next})
	}))
	defer srv.Close()
	t.Setenv("PSYNC_API_URL", srv.URL)

	var out bytes.Buffer
	cmd := statusCmd()
	cmd.SetOut(&out)
	require.NoError(t, cmd.RunE(cmd, nil))

	assert.Contains(t, out.String(), "importing")
	assert.Contains(t, out.String(), "2024-01-01T10:00:00Z")
}

func TestListRuns_FiltersByTask(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sync/runs", r.URL.Path)
		assert.Equal(t, "export", r.URL.Query().Get("task"))
		json.NewEncoder(w).Encode([]models.SyncRun{{
			ID: 9, Task: "export", Status: models.RunCompleted, Files: 1, Affected: 150,
			Detail: "/out/export_2024_01_01_10_00_00.csv", StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond),
		}})
	}))
	defer srv.Close()
	t.Setenv("PSYNC_API_URL", srv.URL)

	var out bytes.Buffer
	cmd := listRunsCmd()
	cmd.SetOut(&out)
	require.NoError(t, cmd.Flags().Set("task", "export"))
	require.NoError(t, cmd.RunE(cmd, nil))

	assert.Contains(t, out.String(), "export_2024_01_01_10_00_00.csv")
	assert.Contains(t, out.String(), "1.5s")
}

func TestListRuns_JSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()
	t.Setenv("PSYNC_API_URL", srv.URL)

	var out bytes.Buffer
	cmd := listRunsCmd()
	cmd.SetOut(&out)
	require.NoError(t, cmd.Flags().Set("json", "true"))
	require.NoError(t, cmd.RunE(cmd, nil))
	assert.JSONEq(t, `[]`, out.String())
}
