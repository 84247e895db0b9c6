// Package service computes the dataset-relative aggregates behind the climate
// API: the most recent date, the one-year lookback window, the most active
// station and temperature statistics.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"climate-server/internal/modules/climate/repository"
	"climate-server/internal/modules/climate/types"
)

// ErrEmptyDataset is returned by queries that need at least one measurement.
var ErrEmptyDataset = errors.New("dataset has no measurements")

type Service struct {
	repository repository.ClimateRepository
}

func NewService(repository repository.ClimateRepository) *Service {
	return &Service{repository: repository}
}

// MostRecentDate returns the latest measurement date.
func (s *Service) MostRecentDate(ctx context.Context) (time.Time, error) {
	raw, ok, err := s.repository.MaxMeasurementDate(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, ErrEmptyDataset
	}
	d, err := time.Parse(types.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("stored measurement date %q: %w", raw, err)
	}
	return d, nil
}

// OneYearWindow returns anchor moved back one calendar year, keeping month and
// day. Feb 29 maps to Feb 28 of the previous year.
func OneYearWindow(anchor time.Time) time.Time {
	y, m, d := anchor.Date()
	if last := daysIn(y-1, m); d > last {
		d = last
	}
	return time.Date(y-1, m, d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// LookbackWindow returns [OneYearWindow(latest), latest] for the dataset.
func (s *Service) LookbackWindow(ctx context.Context) (from, to time.Time, err error) {
	latest, err := s.MostRecentDate(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return OneYearWindow(latest), latest, nil
}

// MostActiveStation returns the station with the most measurement rows.
// Ties go to the lowest station id.
func (s *Service) MostActiveStation(ctx context.Context) (string, error) {
	counts, err := s.repository.CountByStation(ctx)
	if err != nil {
		return "", err
	}
	if len(counts) == 0 {
		return "", ErrEmptyDataset
	}
	stations := make([]string, 0, len(counts))
	for station := range counts {
		stations = append(stations, station)
	}
	sort.Strings(stations)

	best := stations[0]
	for _, station := range stations[1:] {
		if counts[station] > counts[best] {
			best = station
		}
	}
	return best, nil
}

// TemperatureStats aggregates tobs over from..to inclusive, optionally for a
// single station. An empty match yields nil fields and no error.
func (s *Service) TemperatureStats(ctx context.Context, from, to time.Time, station string) (types.TemperatureStats, error) {
	return s.repository.AggregateTemperature(ctx, types.MeasurementFilter{
		From:    from.Format(types.DateLayout),
		To:      to.Format(types.DateLayout),
		Station: station,
	})
}

// Precipitation maps each date in the lookback window to its precipitation.
// Rows are visited in storage order, so when several stations report on the
// same date the last row wins.
func (s *Service) Precipitation(ctx context.Context) (map[string]*float64, error) {
	from, _, err := s.LookbackWindow(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.repository.ScanMeasurements(ctx, types.MeasurementFilter{
		From: from.Format(types.DateLayout),
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]*float64, len(rows))
	for _, m := range rows {
		out[m.Date] = m.Prcp
	}
	return out, nil
}

// MostActiveStationObservations returns the most active station's
// temperature observations inside the lookback window, ordered by date.
func (s *Service) MostActiveStationObservations(ctx context.Context) ([]types.TemperatureObservation, error) {
	station, err := s.MostActiveStation(ctx)
	if err != nil {
		return nil, err
	}
	from, to, err := s.LookbackWindow(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.repository.ScanMeasurements(ctx, types.MeasurementFilter{
		From:    from.Format(types.DateLayout),
		To:      to.Format(types.DateLayout),
		Station: station,
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })

	out := make([]types.TemperatureObservation, 0, len(rows))
	for _, m := range rows {
		out = append(out, types.TemperatureObservation{Date: m.Date, Tobs: m.Tobs})
	}
	return out, nil
}

// Stations returns the station reference set.
func (s *Service) Stations(ctx context.Context) ([]types.Station, error) {
	return s.repository.GetStations(ctx)
}
