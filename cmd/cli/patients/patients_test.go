package patients

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

func TestListPatients_Table(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/patients", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(page{
			Items: []models.Patient{{ID: 1, Name: "Ann", Surname: "Lee", DateOfBirth: time.Date(1980, 2, 3, 0, 0, 0, 0, time.UTC), Email: "ann@test.com"}},
			Total: 12, Limit: 5,
		})
	}))
	defer srv.Close()
	t.Setenv("PSYNC_API_URL", srv.URL)

	var out bytes.Buffer
	cmd := listPatientsCmd()
	cmd.SetOut(&out)
	require.NoError(t, cmd.Flags().Set("limit", "5"))
	require.NoError(t, cmd.RunE(cmd, nil))

	assert.Contains(t, out.String(), "Ann")
	assert.Contains(t, out.String(), "1980-02-03")
	assert.Contains(t, out.String(), "Showing 1-1 of 12")
}

func TestGetPatient_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"patient not found"}`))
	}))
	defer srv.Close()
	t.Setenv("PSYNC_API_URL", srv.URL)

	cmd := getPatientCmd()
	err := cmd.RunE(cmd, []string{"42"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "patient not found")
}

func TestGetPatient_BadID(t *testing.T) {
	cmd := getPatientCmd()
	err := cmd.RunE(cmd, []string{"abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid patient id")
}
