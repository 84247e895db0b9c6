package db

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"climate-server/internal/config"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		in     string
		want   string
	}{
		{name: "sqlite3 untouched", driver: config.DriverSQLite3, in: "SELECT ? , ?", want: "SELECT ? , ?"},
		{name: "modernc untouched", driver: config.DriverSQLite, in: "a = ?", want: "a = ?"},
		{name: "pgx numbered", driver: config.DriverPostgres, in: "a = ? AND b = ?", want: "a = $1 AND b = $2"},
		{name: "pgx skips literals", driver: config.DriverPostgres, in: "a = '?' AND b = ?", want: "a = '?' AND b = $1"},
		{name: "pgx no placeholders", driver: config.DriverPostgres, in: "SELECT 1", want: "SELECT 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rebind(tt.driver, tt.in); got != tt.want {
				t.Errorf("Rebind(%q, %q) = %q; want %q", tt.driver, tt.in, got, tt.want)
			}
		})
	}
}

func TestBuildDSN(t *testing.T) {
	dir := t.TempDir()

	t.Run("explicit DSN wins", func(t *testing.T) {
		got, err := buildDSN(config.Config{DBDriver: config.DriverPostgres, DBDSN: "postgres://x"})
		if err != nil || got != "postgres://x" {
			t.Fatalf("buildDSN = %q, %v", got, err)
		}
	})

	t.Run("pgx without DSN fails", func(t *testing.T) {
		if _, err := buildDSN(config.Config{DBDriver: config.DriverPostgres}); err == nil {
			t.Fatal("buildDSN error = nil; want non-nil")
		}
	})

	t.Run("sqlite3 file path gets mattn params", func(t *testing.T) {
		path := filepath.Join(dir, "nested", "hawaii.sqlite")
		got, err := buildDSN(config.Config{DBDriver: config.DriverSQLite3, SQLitePath: path})
		if err != nil {
			t.Fatalf("buildDSN: %v", err)
		}
		if !strings.HasPrefix(got, "file:"+path+"?") || !strings.Contains(got, "_busy_timeout=5000") {
			t.Errorf("dsn = %q", got)
		}
	})

	t.Run("modernc gets pragmas", func(t *testing.T) {
		got, err := buildDSN(config.Config{DBDriver: config.DriverSQLite, SQLitePath: filepath.Join(dir, "a.db")})
		if err != nil {
			t.Fatalf("buildDSN: %v", err)
		}
		if !strings.Contains(got, "_pragma=busy_timeout(5000)") {
			t.Errorf("dsn = %q", got)
		}
	})

	t.Run("file URI keeps its query", func(t *testing.T) {
		got, err := buildDSN(config.Config{DBDriver: config.DriverSQLite3, SQLitePath: "file:" + filepath.Join(dir, "b.db") + "?mode=ro"})
		if err != nil {
			t.Fatalf("buildDSN: %v", err)
		}
		if !strings.Contains(got, "?mode=ro&_foreign_keys=on") {
			t.Errorf("dsn = %q", got)
		}
	})
}

func TestOpen_SQLiteDrivers(t *testing.T) {
	for _, driver := range []string{config.DriverSQLite3, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			cfg := config.Config{
				DBDriver:       driver,
				SQLitePath:     filepath.Join(t.TempDir(), "hawaii.sqlite"),
				DBMaxOpenConns: 1,
				DBMaxIdleConns: 1,
			}
			conn, err := Open(cfg, nil)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer func() {
				if err := Close(conn); err != nil {
					t.Errorf("Close: %v", err)
				}
			}()
			var one int
			if err := conn.QueryRow(`SELECT 1`).Scan(&one); err != nil || one != 1 {
				t.Fatalf("SELECT 1 = %d, %v", one, err)
			}
		})
	}
}

func TestOpen_MemorySQLiteSharesOneConnection(t *testing.T) {
	for _, driver := range []string{config.DriverSQLite3, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			cfg := config.Config{
				DBDriver:       driver,
				SQLitePath:     ":memory:",
				DBMaxOpenConns: 4,
				DBMaxIdleConns: 0,
			}
			conn, err := Open(cfg, nil)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer func() { _ = Close(conn) }()

			if got := conn.Stats().MaxOpenConnections; got != 1 {
				t.Fatalf("MaxOpenConnections = %d; want 1", got)
			}
			if _, err := conn.Exec(`CREATE TABLE measurement (id INTEGER PRIMARY KEY, date TEXT)`); err != nil {
				t.Fatalf("create table: %v", err)
			}

			var wg sync.WaitGroup
			errs := make(chan error, 8)
			for range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					var n int
					errs <- conn.QueryRow(`SELECT COUNT(*) FROM measurement`).Scan(&n)
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				if err != nil {
					t.Errorf("query from another caller: %v", err)
				}
			}
		})
	}
}

func TestClose_Nil(t *testing.T) {
	if err := Close(nil); err != nil {
		t.Fatalf("Close(nil) = %v; want nil", err)
	}
}
