package migrate

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"

	"climate-server/internal/config"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := conn.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return conn
}

func TestRun_AppliesSchemaOnce(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	n, err := Run(ctx, conn, config.DriverSQLite3)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 2 {
		t.Fatalf("first Run applied %d migrations; want 2", n)
	}

	for _, table := range []string{"measurement", "station", tableName} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	n, err = Run(ctx, conn, config.DriverSQLite3)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if n != 0 {
		t.Fatalf("second Run applied %d migrations; want 0", n)
	}
}

func TestRun_ToleratesExistingTables(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	// Layout of a dataset file produced outside this tool.
	_, err := conn.Exec(`
		CREATE TABLE measurement (id INTEGER NOT NULL, station TEXT, date TEXT, prcp FLOAT, tobs FLOAT, PRIMARY KEY (id));
		CREATE TABLE station (id INTEGER NOT NULL, station TEXT, name TEXT, latitude FLOAT, longitude FLOAT, elevation FLOAT, PRIMARY KEY (id));
		INSERT INTO measurement (id, station, date, prcp, tobs) VALUES (1, 'USC00519397', '2010-01-01', 0.08, 65.0);
	`)
	if err != nil {
		t.Fatalf("seed legacy schema: %v", err)
	}

	if _, err := Run(ctx, conn, config.DriverSQLite3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM measurement`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("measurement rows = %d; want 1", count)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		in          string
		wantVersion string
		wantName    string
		wantOK      bool
	}{
		{in: "0001_schema.sql", wantVersion: "0001", wantName: "schema", wantOK: true},
		{in: "0012_add_index.sql", wantVersion: "0012", wantName: "add_index", wantOK: true},
		{in: "1_schema.sql"},
		{in: "0001_schema.txt"},
		{in: "README.md"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, n, ok := parseMigrationFilename(tt.in)
			if ok != tt.wantOK || v != tt.wantVersion || n != tt.wantName {
				t.Errorf("parseMigrationFilename(%q) = %q, %q, %v", tt.in, v, n, ok)
			}
		})
	}
}

func TestPendingMigrations_SortsAndSkipsApplied(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/0003_c.sql": {Data: []byte("SELECT 3")},
		"sql/0001_a.sql": {Data: []byte("SELECT 1")},
		"sql/0002_b.sql": {Data: []byte("SELECT 2")},
		"sql/notes.txt":  {Data: []byte("ignored")},
	}

	got, err := pendingMigrations(fsys, map[string]bool{"0002": true})
	if err != nil {
		t.Fatalf("pendingMigrations: %v", err)
	}
	if len(got) != 2 || got[0].version != "0001" || got[1].version != "0003" {
		t.Fatalf("pending = %+v; want versions 0001, 0003", got)
	}
	if got[1].body != "SELECT 3" {
		t.Errorf("body = %q", got[1].body)
	}
}
