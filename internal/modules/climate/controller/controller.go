package controller

import (
	"context"
	"net/http"
	"time"

	"climate-server/internal/modules/climate/types"
)

// ClimateService is the aggregation engine as seen by the HTTP layer.
type ClimateService interface {
	MostRecentDate(ctx context.Context) (time.Time, error)
	TemperatureStats(ctx context.Context, from, to time.Time, station string) (types.TemperatureStats, error)
	Precipitation(ctx context.Context) (map[string]*float64, error)
	MostActiveStationObservations(ctx context.Context) ([]types.TemperatureObservation, error)
	Stations(ctx context.Context) ([]types.Station, error)
}

type ClimateController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type climateControllerImpl struct {
	service ClimateService
}

func NewClimateController(service ClimateService) ClimateController {
	return &climateControllerImpl{service: service}
}

// Routes lists the public API routes in the order they are advertised on the
// index page.
func Routes() []string {
	return []string{
		"/api/v1.0/precipitation",
		"/api/v1.0/stations",
		"/api/v1.0/tobs",
		"/api/v1.0/<start>",
		"/api/v1.0/<start>/<end>",
	}
}

func (c *climateControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleIndex)
	mux.HandleFunc("GET /api/v1.0/precipitation", c.handlePrecipitation)
	mux.HandleFunc("GET /api/v1.0/stations", c.handleStations)
	mux.HandleFunc("GET /api/v1.0/tobs", c.handleTemperatureObservations)
	mux.HandleFunc("GET /api/v1.0/{start}", c.handleStatsFromStart)
	mux.HandleFunc("GET /api/v1.0/{start}/{end}", c.handleStatsRange)
	// A trailing slash with no end date means "up to the most recent date".
	mux.HandleFunc("GET /api/v1.0/{start}/{$}", c.handleStatsRange)
}
