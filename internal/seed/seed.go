// Package seed loads the measurement and station CSV exports, either into
// memory for the in-memory repository or into the SQL tables.
package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"climate-server/internal/db"
	"climate-server/internal/modules/climate/types"
)

const (
	MeasurementsFile = "hawaii_measurements.csv"
	StationsFile     = "hawaii_stations.csv"
)

type Dataset struct {
	Measurements []types.Measurement
	Stations     []types.Station
}

var measurementColumns = map[string]series.Type{
	"station": series.String,
	"date":    series.String,
	"prcp":    series.Float,
	"tobs":    series.Float,
}

var stationColumns = map[string]series.Type{
	"station":   series.String,
	"name":      series.String,
	"latitude":  series.Float,
	"longitude": series.Float,
	"elevation": series.Float,
}

func readFrame(r io.Reader, columns map[string]series.Type) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(columns),
	)
	if df.Err != nil {
		return df, df.Err
	}
	for name := range columns {
		if col := df.Col(name); col.Err != nil {
			return df, fmt.Errorf("missing column %q", name)
		}
	}
	return df, nil
}

// ReadMeasurements parses a measurement CSV. Rows get 1-based ids in file
// order. An empty prcp cell becomes nil; an empty tobs cell is an error.
func ReadMeasurements(r io.Reader) ([]types.Measurement, error) {
	df, err := readFrame(r, measurementColumns)
	if err != nil {
		return nil, fmt.Errorf("read measurements: %w", err)
	}
	stations := df.Col("station").Records()
	dates := df.Col("date").Records()
	prcp := df.Col("prcp").Float()
	tobs := df.Col("tobs").Float()

	out := make([]types.Measurement, df.Nrow())
	for i := range out {
		if math.IsNaN(tobs[i]) {
			return nil, fmt.Errorf("read measurements: row %d: tobs is missing", i+1)
		}
		if _, err := time.Parse(types.DateLayout, dates[i]); err != nil {
			return nil, fmt.Errorf("read measurements: row %d: date %q: %w", i+1, dates[i], err)
		}
		m := types.Measurement{
			ID:      int64(i + 1),
			Station: stations[i],
			Date:    dates[i],
			Tobs:    tobs[i],
		}
		if !math.IsNaN(prcp[i]) {
			v := prcp[i]
			m.Prcp = &v
		}
		out[i] = m
	}
	return out, nil
}

// ReadStations parses a station CSV. Rows get 1-based ids in file order.
func ReadStations(r io.Reader) ([]types.Station, error) {
	df, err := readFrame(r, stationColumns)
	if err != nil {
		return nil, fmt.Errorf("read stations: %w", err)
	}
	ids := df.Col("station").Records()
	names := df.Col("name").Records()
	lat := df.Col("latitude").Float()
	lng := df.Col("longitude").Float()
	elevation := df.Col("elevation").Float()

	out := make([]types.Station, df.Nrow())
	for i := range out {
		out[i] = types.Station{
			ID:        int64(i + 1),
			Station:   ids[i],
			Name:      names[i],
			Latitude:  zeroNaN(lat[i]),
			Longitude: zeroNaN(lng[i]),
			Elevation: zeroNaN(elevation[i]),
		}
	}
	return out, nil
}

// LoadDir reads MeasurementsFile and StationsFile from dir.
func LoadDir(dir string) (Dataset, error) {
	measurements, err := readFile(filepath.Join(dir, MeasurementsFile), ReadMeasurements)
	if err != nil {
		return Dataset{}, err
	}
	stations, err := readFile(filepath.Join(dir, StationsFile), ReadStations)
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{Measurements: measurements, Stations: stations}, nil
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("close csv file", "path", path, "error", err)
		}
	}()
	rows, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// Import writes ds into the station and measurement tables in one
// transaction. A table that already holds measurements is left alone unless
// force is set, in which case both tables are replaced. imported reports
// whether any rows were written.
func Import(ctx context.Context, conn *sql.DB, driver string, ds Dataset, force bool) (imported bool, err error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Error("rollback import", "error", rbErr)
			}
		}
	}()

	var existing int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM measurement`).Scan(&existing); err != nil {
		return false, fmt.Errorf("count measurements: %w", err)
	}
	if existing > 0 && !force {
		slog.Info("measurement table not empty, skipping import", "rows", existing)
		err = tx.Rollback()
		return false, err
	}
	if force {
		for _, table := range []string{"measurement", "station"} {
			if _, err = tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return false, fmt.Errorf("clear %s: %w", table, err)
			}
		}
	}

	stationStmt, err := tx.PrepareContext(ctx, db.Rebind(driver,
		`INSERT INTO station (id, station, name, latitude, longitude, elevation) VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return false, fmt.Errorf("prepare station insert: %w", err)
	}
	defer stationStmt.Close()
	for _, s := range ds.Stations {
		if _, err = stationStmt.ExecContext(ctx, s.ID, s.Station, s.Name, s.Latitude, s.Longitude, s.Elevation); err != nil {
			return false, fmt.Errorf("insert station %s: %w", s.Station, err)
		}
	}

	measurementStmt, err := tx.PrepareContext(ctx, db.Rebind(driver,
		`INSERT INTO measurement (id, station, date, prcp, tobs) VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return false, fmt.Errorf("prepare measurement insert: %w", err)
	}
	defer measurementStmt.Close()
	for _, m := range ds.Measurements {
		if _, err = measurementStmt.ExecContext(ctx, m.ID, m.Station, m.Date, m.Prcp, m.Tobs); err != nil {
			return false, fmt.Errorf("insert measurement %d: %w", m.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}
	slog.Info("dataset imported", "stations", len(ds.Stations), "measurements", len(ds.Measurements))
	return true, nil
}

func zeroNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
