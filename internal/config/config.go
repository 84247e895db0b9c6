package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite3  = "sqlite3"
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
	DriverMemory   = "memory"
)

type Config struct {
	AppEnv   string `validate:"oneof=dev prod"`
	LogLevel slog.Level
	HTTPAddr string `validate:"required"`

	HTTPReadHeaderTimeout time.Duration

	DBDriver string `validate:"oneof=sqlite3 sqlite pgx memory"`
	// DBDSN overrides SQLitePath when set. Required for the pgx driver.
	DBDSN      string `validate:"required_if=DBDriver pgx"`
	SQLitePath string
	// DataDir holds hawaii_measurements.csv and hawaii_stations.csv.
	DataDir   string
	DBMigrate bool

	DBMaxOpenConns    int `validate:"gte=0"`
	DBMaxIdleConns    int `validate:"gte=0"`
	DBConnMaxLifetime time.Duration
}

var validate = validator.New()

// LoadFromEnv reads the process environment. A .env file in the working
// directory is loaded first when present; variables already set win.
func LoadFromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	readHeaderTimeout, err := getenvDuration("HTTP_READ_HEADER_TIMEOUT", "5s")
	if err != nil {
		return Config{}, err
	}

	driver := strings.ToLower(getenvDefault("DB_DRIVER", DriverSQLite3))

	migrateStr := getenvDefault("DB_MIGRATE", "false")
	dbMigrate, err := strconv.ParseBool(migrateStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MIGRATE %q: %w", migrateStr, err)
	}

	maxOpenConns, err := getenvInt("DB_MAX_OPEN_CONNS", "4")
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := getenvInt("DB_MAX_IDLE_CONNS", "4")
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := getenvDuration("DB_CONN_MAX_LIFETIME", "0s")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:                getenvDefault("APP_ENV", "dev"),
		LogLevel:              level,
		HTTPAddr:              getenvDefault("HTTP_ADDR", ":8080"),
		HTTPReadHeaderTimeout: readHeaderTimeout,
		DBDriver:              driver,
		DBDSN:                 strings.TrimSpace(os.Getenv("DB_DSN")),
		SQLitePath:            getenvDefault("SQLITE_PATH", "Resources/hawaii.sqlite"),
		DataDir:               getenvDefault("DATA_DIR", "Resources"),
		DBMigrate:             dbMigrate,
		DBMaxOpenConns:        maxOpenConns,
		DBMaxIdleConns:        maxIdleConns,
		DBConnMaxLifetime:     connMaxLifetime,
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key, def string) (int, error) {
	s := getenvDefault(key, def)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	s := getenvDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
