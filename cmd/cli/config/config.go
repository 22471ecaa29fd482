package config

import (
	"os"
	"strings"
)

const defaultAPIURL = "http://localhost:8080"

// APIURL returns the base URL of the patient sync control API.
// It can be overridden with the PSYNC_API_URL environment variable.
func APIURL() string {
	if v := os.Getenv("PSYNC_API_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return defaultAPIURL
}
