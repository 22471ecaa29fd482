package client

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_ValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"validation failed","fields":{"import_schedule":"invalid cron expression","export_folder":"required"}}`))
	}))
	defer srv.Close()
	t.Setenv("PSYNC_API_URL", srv.URL+"/")

	err := New().Do(http.MethodPut, "/settings", map[string]string{}, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "API error (400): validation failed [export_folder: required; import_schedule: invalid cron expression]", apiErr.Error())
}

func TestDo_PlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()
	t.Setenv("PSYNC_API_URL", srv.URL)

	err := New().Get("/sync/status", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad gateway")
}
