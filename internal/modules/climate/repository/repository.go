package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	"climate-server/internal/db"
	"climate-server/internal/modules/climate/types"
)

//go:embed sql/get-max-date.sql
var getMaxDateSQL string

//go:embed sql/count-by-station.sql
var countByStationSQL string

//go:embed sql/scan-measurements.sql
var scanMeasurementsSQL string

//go:embed sql/aggregate-temperature.sql
var aggregateTemperatureSQL string

//go:embed sql/get-stations.sql
var getStationsSQL string

// ClimateRepository is the read-only view of the measurement and station
// tables. Implementations must be safe for concurrent use.
type ClimateRepository interface {
	// MaxMeasurementDate returns the greatest measurement date, or ok=false
	// when there are no measurements.
	MaxMeasurementDate(ctx context.Context) (date string, ok bool, err error)
	// CountByStation returns the number of measurement rows per station.
	CountByStation(ctx context.Context) (map[string]int, error)
	// ScanMeasurements returns matching rows in storage (id) order.
	ScanMeasurements(ctx context.Context, filter types.MeasurementFilter) ([]types.Measurement, error)
	// AggregateTemperature returns min/avg/max tobs over matching rows.
	AggregateTemperature(ctx context.Context, filter types.MeasurementFilter) (types.TemperatureStats, error)
	// GetStations returns the station reference set ordered by station id.
	GetStations(ctx context.Context) ([]types.Station, error)
	PingContext(ctx context.Context) error
}

type repositoryImpl struct {
	db *sql.DB

	maxDateSQL     string
	countSQL       string
	scanSQL        string
	aggregateSQL   string
	getStationsSQL string
}

// NewRepository returns a ClimateRepository backed by conn. driver selects
// the placeholder style of the embedded queries.
func NewRepository(conn *sql.DB, driver string) ClimateRepository {
	return &repositoryImpl{
		db:             conn,
		maxDateSQL:     db.Rebind(driver, getMaxDateSQL),
		countSQL:       db.Rebind(driver, countByStationSQL),
		scanSQL:        db.Rebind(driver, scanMeasurementsSQL),
		aggregateSQL:   db.Rebind(driver, aggregateTemperatureSQL),
		getStationsSQL: db.Rebind(driver, getStationsSQL),
	}
}

func (r *repositoryImpl) PingContext(ctx context.Context) error {
	var ok int
	if err := r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&ok); err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("unexpected ping result %d", ok)
	}
	return nil
}

func (r *repositoryImpl) MaxMeasurementDate(ctx context.Context) (string, bool, error) {
	var date sql.NullString
	if err := r.db.QueryRowContext(ctx, r.maxDateSQL).Scan(&date); err != nil {
		return "", false, fmt.Errorf("max measurement date: %w", err)
	}
	return date.String, date.Valid, nil
}

func (r *repositoryImpl) CountByStation(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, r.countSQL)
	if err != nil {
		return nil, fmt.Errorf("count by station: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close station count rows", "error", err)
		}
	}()
	out := make(map[string]int)
	for rows.Next() {
		var (
			station string
			n       int
		)
		if err := rows.Scan(&station, &n); err != nil {
			return nil, err
		}
		out[station] = n
	}
	return out, rows.Err()
}

func (r *repositoryImpl) ScanMeasurements(ctx context.Context, filter types.MeasurementFilter) ([]types.Measurement, error) {
	rows, err := r.db.QueryContext(ctx, r.scanSQL, filterArgs(filter)...)
	if err != nil {
		return nil, fmt.Errorf("scan measurements: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close measurement rows", "error", err)
		}
	}()
	var out []types.Measurement
	for rows.Next() {
		var (
			m    types.Measurement
			prcp sql.NullFloat64
			tobs sql.NullFloat64
		)
		if err := rows.Scan(&m.ID, &m.Station, &m.Date, &prcp, &tobs); err != nil {
			return nil, err
		}
		if !tobs.Valid {
			return nil, fmt.Errorf("measurement %d: tobs is NULL", m.ID)
		}
		if prcp.Valid {
			v := prcp.Float64
			m.Prcp = &v
		}
		m.Tobs = tobs.Float64
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) AggregateTemperature(ctx context.Context, filter types.MeasurementFilter) (types.TemperatureStats, error) {
	var lo, avg, hi sql.NullFloat64
	err := r.db.QueryRowContext(ctx, r.aggregateSQL, filterArgs(filter)...).Scan(&lo, &avg, &hi)
	if err != nil {
		return types.TemperatureStats{}, fmt.Errorf("aggregate temperature: %w", err)
	}
	return types.TemperatureStats{
		Min: nullFloat(lo),
		Avg: nullFloat(avg),
		Max: nullFloat(hi),
	}, nil
}

func (r *repositoryImpl) GetStations(ctx context.Context) ([]types.Station, error) {
	rows, err := r.db.QueryContext(ctx, r.getStationsSQL)
	if err != nil {
		return nil, fmt.Errorf("get stations: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close stations rows", "error", err)
		}
	}()
	var out []types.Station
	for rows.Next() {
		var (
			s                   types.Station
			name                sql.NullString
			lat, lng, elevation sql.NullFloat64
		)
		if err := rows.Scan(&s.ID, &s.Station, &name, &lat, &lng, &elevation); err != nil {
			return nil, err
		}
		s.Name = name.String
		s.Latitude = lat.Float64
		s.Longitude = lng.Float64
		s.Elevation = elevation.Float64
		out = append(out, s)
	}
	return out, rows.Err()
}

// filterArgs expands a filter into the (value, value) pairs the embedded
// queries expect: an empty value disables its condition.
func filterArgs(f types.MeasurementFilter) []any {
	return []any{f.From, f.From, f.To, f.To, f.Station, f.Station}
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
