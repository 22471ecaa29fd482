package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/crucial707/patient-sync/internal/syncerr"
)

type Config struct {
	Port string

	DBHost    string
	DBPort    string
	DBName    string
	DBUser    string
	DBPass    string
	DBSSLMode string

	// DBMaxOpenConns is the maximum number of open connections to the database (default 10).
	DBMaxOpenConns int
	// DBMaxIdleConns is the maximum number of idle connections (default 2).
	DBMaxIdleConns int

	// MigrateOnStart applies pending migrations before the sync loop starts.
	MigrateOnStart bool

	// Env is "dev" (default) or "prod".
	Env string

	// LogFormat is "text" (default) or "json" for structured logging.
	LogFormat string
	// LogLevel is debug, info (default), warn or error.
	LogLevel string
	// LogFile, when set, sends logs to a rotating file instead of stderr.
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int

	// SyncTickInterval is the pause between two orchestrator ticks (default 1m).
	SyncTickInterval time.Duration
	// SyncChunkSize bounds the records committed per store transaction (default 100).
	SyncChunkSize int
	// SyncPageSize is the number of records read per export page (default 100).
	SyncPageSize int
	// SyncFlushEvery is how many exported rows are written between flushes (default 100).
	SyncFlushEvery int
	// SyncTimezone is the IANA zone cron expressions and export file names use (default UTC).
	SyncTimezone string

	// TLSCertFile and TLSKeyFile enable HTTPS for the control API when both are set.
	TLSCertFile string
	TLSKeyFile  string
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		DBHost:    getEnv("DB_HOST", "localhost"),
		DBPort:    getEnv("DB_PORT", "5432"),
		DBName:    getEnv("DB_NAME", "patientsync"),
		DBUser:    getEnv("DB_USER", "patientsync"),
		DBPass:    getEnv("DB_PASS", "patientsync"),
		DBSSLMode: getEnv("DB_SSLMODE", "disable"),

		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 2),

		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),

		Env: getEnv("ENV", "dev"),

		LogFormat:     getEnv("LOG_FORMAT", "text"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),

		SyncTickInterval: getEnvDuration("SYNC_TICK_INTERVAL", time.Minute),
		SyncChunkSize:    getEnvInt("SYNC_CHUNK_SIZE", 100),
		SyncPageSize:     getEnvInt("SYNC_PAGE_SIZE", 100),
		SyncFlushEvery:   getEnvInt("SYNC_FLUSH_EVERY", 100),
		SyncTimezone:     getEnv("SYNC_TIMEZONE", "UTC"),

		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),
	}
}

// Validate checks the values Load cannot reject on its own.
func (c Config) Validate() error {
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return &syncerr.ConfigError{Field: "LOG_FORMAT", Value: c.LogFormat, Err: fmt.Errorf("must be text or json")}
	}
	if _, err := c.Location(); err != nil {
		return &syncerr.ConfigError{Field: "SYNC_TIMEZONE", Value: c.SyncTimezone, Err: err}
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return &syncerr.ConfigError{Field: "TLS_CERT_FILE", Value: c.TLSCertFile, Err: fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")}
	}
	return nil
}

// Location resolves SyncTimezone.
func (c Config) Location() (*time.Location, error) {
	if c.SyncTimezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.SyncTimezone)
}

// DSN is the lib/pq keyword connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPass, c.DBSSLMode,
	)
}

// DatabaseURL is the postgres:// form of DSN, as golang-migrate expects it.
func (c Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPass),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
