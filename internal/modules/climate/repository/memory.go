package repository

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"climate-server/internal/modules/climate/types"
)

// memoryRepository serves a dataset held entirely in memory. It is never
// mutated after construction, so concurrent reads need no locking.
type memoryRepository struct {
	measurements []types.Measurement
	stations     []types.Station
}

// NewMemoryRepository copies the given rows. Measurements keep storage order
// by ID; stations are ordered by station id.
func NewMemoryRepository(measurements []types.Measurement, stations []types.Station) ClimateRepository {
	ms := make([]types.Measurement, len(measurements))
	copy(ms, measurements)
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].ID < ms[j].ID })

	ss := make([]types.Station, len(stations))
	copy(ss, stations)
	sort.SliceStable(ss, func(i, j int) bool {
		if ss[i].Station != ss[j].Station {
			return ss[i].Station < ss[j].Station
		}
		return ss[i].ID < ss[j].ID
	})

	return &memoryRepository{measurements: ms, stations: ss}
}

func (r *memoryRepository) PingContext(ctx context.Context) error {
	return ctx.Err()
}

func (r *memoryRepository) MaxMeasurementDate(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if len(r.measurements) == 0 {
		return "", false, nil
	}
	latest := r.measurements[0].Date
	for _, m := range r.measurements[1:] {
		if m.Date > latest {
			latest = m.Date
		}
	}
	return latest, true, nil
}

func (r *memoryRepository) CountByStation(ctx context.Context) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, m := range r.measurements {
		out[m.Station]++
	}
	return out, nil
}

func (r *memoryRepository) ScanMeasurements(ctx context.Context, filter types.MeasurementFilter) ([]types.Measurement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []types.Measurement
	for _, m := range r.measurements {
		if filter.Matches(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryRepository) AggregateTemperature(ctx context.Context, filter types.MeasurementFilter) (types.TemperatureStats, error) {
	if err := ctx.Err(); err != nil {
		return types.TemperatureStats{}, err
	}
	var tobs []float64
	for _, m := range r.measurements {
		if filter.Matches(m) {
			tobs = append(tobs, m.Tobs)
		}
	}
	if len(tobs) == 0 {
		return types.TemperatureStats{}, nil
	}
	lo := floats.Min(tobs)
	avg := stat.Mean(tobs, nil)
	hi := floats.Max(tobs)
	return types.TemperatureStats{Min: &lo, Avg: &avg, Max: &hi}, nil
}

func (r *memoryRepository) GetStations(ctx context.Context) ([]types.Station, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]types.Station, len(r.stations))
	copy(out, r.stations)
	return out, nil
}
