package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"climate-server/internal/utils"
)

// Pinger is satisfied by *sql.DB and by the climate repositories.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	source Pinger
}

func NewHealthchecker(source Pinger) healthchecker {
	return &healthcheckerImpl{source: source}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.source.PingContext(r.Context()); err != nil {
		slog.Error("failed to check data source connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check data source connectivity")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func registerHealthcheck(mux *http.ServeMux, source Pinger) {
	healthchecker := NewHealthchecker(source)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
