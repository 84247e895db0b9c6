package climate

import (
	"net/http"

	"climate-server/internal/modules/climate/controller"
	"climate-server/internal/modules/climate/repository"
	"climate-server/internal/modules/climate/service"
)

func RegisterFeature(mux *http.ServeMux, climateRepository repository.ClimateRepository) {
	climateService := service.NewService(climateRepository)
	climateController := controller.NewClimateController(climateService)
	climateController.RegisterRoutes(mux)
}
