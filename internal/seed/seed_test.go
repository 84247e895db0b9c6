package seed

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"climate-server/internal/config"
	"climate-server/internal/migrate"
)

const measurementsCSV = `station,date,prcp,tobs
USC00519397,2010-01-01,0.08,65.0
USC00519397,2010-01-02,,63.0
USC00513117,2010-01-01,0.28,67.0
`

const stationsCSV = `station,name,latitude,longitude,elevation
USC00519397,"WAIKIKI 717.2, HI US",21.2716,-157.8168,3.0
USC00513117,"KANEOHE 838.1, HI US",21.4234,-157.8015,14.6
`

func TestReadMeasurements(t *testing.T) {
	got, err := ReadMeasurements(strings.NewReader(measurementsCSV))
	if err != nil {
		t.Fatalf("ReadMeasurements: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d rows; want 3", len(got))
	}
	for i, m := range got {
		if m.ID != int64(i+1) {
			t.Errorf("row %d id = %d; want %d", i, m.ID, i+1)
		}
	}
	if got[0].Prcp == nil || *got[0].Prcp != 0.08 {
		t.Errorf("row 0 prcp = %v; want 0.08", got[0].Prcp)
	}
	if got[1].Prcp != nil {
		t.Errorf("row 1 prcp = %v; want nil", *got[1].Prcp)
	}
	if got[2].Station != "USC00513117" || got[2].Date != "2010-01-01" || got[2].Tobs != 67 {
		t.Errorf("row 2 = %+v", got[2])
	}
}

func TestReadMeasurements_errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{name: "missing column", csv: "station,date,prcp\nA,2010-01-01,0.1\n"},
		{name: "missing tobs", csv: "station,date,prcp,tobs\nA,2010-01-01,0.1,\n"},
		{name: "bad date", csv: "station,date,prcp,tobs\nA,01/01/2010,0.1,60\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadMeasurements(strings.NewReader(tt.csv)); err == nil {
				t.Fatal("ReadMeasurements() err = nil; want error")
			}
		})
	}
}

func TestReadStations(t *testing.T) {
	got, err := ReadStations(strings.NewReader(stationsCSV))
	if err != nil {
		t.Fatalf("ReadStations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d stations; want 2", len(got))
	}
	if got[0].Name != "WAIKIKI 717.2, HI US" || got[0].Latitude != 21.2716 {
		t.Errorf("station 0 = %+v", got[0])
	}
	if got[1].ID != 2 || got[1].Elevation != 14.6 {
		t.Errorf("station 1 = %+v", got[1])
	}
}

func writeDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, MeasurementsFile), []byte(measurementsCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, StationsFile), []byte(stationsCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadDir(t *testing.T) {
	ds, err := LoadDir(writeDataDir(t))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(ds.Measurements) != 3 || len(ds.Stations) != 2 {
		t.Errorf("dataset = %d measurements, %d stations; want 3, 2", len(ds.Measurements), len(ds.Stations))
	}

	if _, err := LoadDir(t.TempDir()); err == nil {
		t.Error("LoadDir(empty dir) err = nil; want error")
	}
}

func openMigrated(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })
	if _, err := migrate.Run(context.Background(), conn, config.DriverSQLite3); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func countRows(t *testing.T, conn *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	ds, err := LoadDir(writeDataDir(t))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	conn := openMigrated(t)

	imported, err := Import(ctx, conn, config.DriverSQLite3, ds, false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !imported {
		t.Fatal("imported = false; want true on empty tables")
	}
	if n := countRows(t, conn, "measurement"); n != 3 {
		t.Errorf("measurement rows = %d; want 3", n)
	}
	if n := countRows(t, conn, "station"); n != 2 {
		t.Errorf("station rows = %d; want 2", n)
	}

	var prcp sql.NullFloat64
	if err := conn.QueryRow(`SELECT prcp FROM measurement WHERE id = 2`).Scan(&prcp); err != nil {
		t.Fatalf("select prcp: %v", err)
	}
	if prcp.Valid {
		t.Errorf("prcp = %v; want NULL", prcp.Float64)
	}

	t.Run("second import is skipped", func(t *testing.T) {
		imported, err := Import(ctx, conn, config.DriverSQLite3, ds, false)
		if err != nil {
			t.Fatalf("Import: %v", err)
		}
		if imported {
			t.Error("imported = true; want false when rows exist")
		}
		if n := countRows(t, conn, "measurement"); n != 3 {
			t.Errorf("measurement rows = %d; want 3", n)
		}
	})

	t.Run("force replaces rows", func(t *testing.T) {
		smaller := Dataset{Measurements: ds.Measurements[:1], Stations: ds.Stations[:1]}
		imported, err := Import(ctx, conn, config.DriverSQLite3, smaller, true)
		if err != nil {
			t.Fatalf("Import: %v", err)
		}
		if !imported {
			t.Error("imported = false; want true with force")
		}
		if n := countRows(t, conn, "measurement"); n != 1 {
			t.Errorf("measurement rows = %d; want 1", n)
		}
		if n := countRows(t, conn, "station"); n != 1 {
			t.Errorf("station rows = %d; want 1", n)
		}
	})
}

func TestImport_rollsBackOnFailure(t *testing.T) {
	conn := openMigrated(t)
	ds, err := ReadStations(strings.NewReader(stationsCSV))
	if err != nil {
		t.Fatalf("ReadStations: %v", err)
	}
	ms, err := ReadMeasurements(strings.NewReader(measurementsCSV))
	if err != nil {
		t.Fatalf("ReadMeasurements: %v", err)
	}
	ms[2].ID = ms[1].ID

	_, err = Import(context.Background(), conn, config.DriverSQLite3, Dataset{Measurements: ms, Stations: ds}, false)
	if err == nil {
		t.Fatal("Import() err = nil; want duplicate id error")
	}
	if n := countRows(t, conn, "station"); n != 0 {
		t.Errorf("station rows = %d; want 0 after rollback", n)
	}
	if n := countRows(t, conn, "measurement"); n != 0 {
		t.Errorf("measurement rows = %d; want 0 after rollback", n)
	}
}
