package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"climate-server/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Open returns a pooled handle for the configured driver. The handle is safe
// for concurrent use and is shared by all request handlers.
func Open(cfg config.Config, logger *slog.Logger) (*sql.DB, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if cfg.DBDriver == config.DriverSQLite3 && cfg.LogLevel <= slog.LevelDebug {
		connector, err := NewLoggingConnector(dsn, logger)
		if err != nil {
			return nil, fmt.Errorf("db connector: %w", err)
		}
		db = sql.OpenDB(connector)
	} else {
		db, err = sql.Open(cfg.DBDriver, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
	if cfg.DBConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	}
	// Every connection to :memory: opens its own empty database, so the pool
	// keeps exactly one and never retires it.
	if isMemorySQLite(cfg) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

// Rebind rewrites '?' placeholders into the form the driver expects.
// PostgreSQL wants $1..$n; both SQLite drivers accept '?' as is.
// Placeholders inside quoted literals are left alone.
func Rebind(driver, query string) string {
	if driver != config.DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isMemorySQLite(cfg config.Config) bool {
	if cfg.DBDSN != "" {
		return false
	}
	switch cfg.DBDriver {
	case config.DriverSQLite3, config.DriverSQLite:
		return cfg.SQLitePath == ":memory:"
	}
	return false
}

func buildDSN(cfg config.Config) (string, error) {
	if cfg.DBDSN != "" {
		return cfg.DBDSN, nil
	}

	switch cfg.DBDriver {
	case config.DriverSQLite3, config.DriverSQLite:
	default:
		return "", fmt.Errorf("DB_DSN is required for driver %q", cfg.DBDriver)
	}

	path := cfg.SQLitePath
	if path == ":memory:" {
		return path, nil
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	// mattn/go-sqlite3 takes underscore-prefixed options; modernc.org/sqlite
	// takes repeated _pragma parameters.
	var params []string
	if cfg.DBDriver == config.DriverSQLite3 {
		params = []string{
			"_foreign_keys=on",
			"_busy_timeout=5000",
		}
	} else {
		params = []string{
			"_pragma=foreign_keys(1)",
			"_pragma=busy_timeout(5000)",
		}
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
