package routes

import (
	"github.com/gorilla/mux"

	"string_server/controllers"
	"string_server/services"
)

// RegisterRadarRoutes sets up routes for radar scans under /api/radar-scans
func RegisterRadarRoutes(r *mux.Router, radarService *services.RadarService) {
	controller := controllers.NewRadarController(radarService)

	radarRouter := r.PathPrefix("/api/radar-scans").Subrouter()
	radarRouter.HandleFunc("", controller.CreateScan).Methods("POST")
	radarRouter.HandleFunc("/user/{userId}/active", controller.ActiveScans).Methods("GET")
}
