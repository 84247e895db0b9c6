package controller

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"climate-server/internal/modules/climate/service"
	"climate-server/internal/modules/climate/types"
	"climate-server/internal/modules/climate/views"
	"climate-server/internal/utils"
)

func (c *climateControllerImpl) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	data := &views.IndexData{Title: "Climate API", Routes: Routes()}
	if err := views.RenderIndex(&buf, data); err != nil {
		slog.Error("index template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("index: write response failed", "error", err)
	}
}

func (c *climateControllerImpl) handlePrecipitation(w http.ResponseWriter, r *http.Request) {
	prcp, err := c.service.Precipitation(r.Context())
	if err != nil {
		writeServiceError(w, "precipitation", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, prcp)
}

func (c *climateControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.service.Stations(r.Context())
	if err != nil {
		writeServiceError(w, "stations", err)
		return
	}
	out := make([]types.StationRecord, 0, len(stations))
	for _, s := range stations {
		out = append(out, types.StationRecord{Station: s.Station})
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

func (c *climateControllerImpl) handleTemperatureObservations(w http.ResponseWriter, r *http.Request) {
	obs, err := c.service.MostActiveStationObservations(r.Context())
	if err != nil {
		writeServiceError(w, "tobs", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, obs)
}

func (c *climateControllerImpl) handleStatsFromStart(w http.ResponseWriter, r *http.Request) {
	day, err := parseStartDate(r.PathValue("start"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	stats, err := c.service.TemperatureStats(r.Context(), day, day, "")
	if err != nil {
		writeServiceError(w, "stats from start", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, types.DateStats{
		Date: day.Format(types.DateLayout),
		TMin: stats.Min,
		TAvg: stats.Avg,
		TMax: stats.Max,
	})
}

func (c *climateControllerImpl) handleStatsRange(w http.ResponseWriter, r *http.Request) {
	start, end, hasEnd, err := parseRangeDates(r.PathValue("start"), r.PathValue("end"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !hasEnd {
		end, err = c.service.MostRecentDate(r.Context())
		if err != nil {
			writeServiceError(w, "stats range", err)
			return
		}
	}
	stats, err := c.service.TemperatureStats(r.Context(), start, end, "")
	if err != nil {
		writeServiceError(w, "stats range", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, types.RangeStats{
		StartDate: start.Format(types.DateLayout),
		EndDate:   end.Format(types.DateLayout),
		TMin:      stats.Min,
		TAvg:      stats.Avg,
		TMax:      stats.Max,
	})
}

// writeServiceError maps engine failures to a 500. Details of data source
// errors are logged, not returned.
func writeServiceError(w http.ResponseWriter, route string, err error) {
	if errors.Is(err, service.ErrEmptyDataset) {
		slog.Warn(route+": dataset is empty")
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	slog.Error(route+": query failed", "error", err)
	utils.WriteError(w, http.StatusInternalServerError, "failed to query climate data")
}
