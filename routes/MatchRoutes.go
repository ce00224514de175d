package routes

import (
	"github.com/gorilla/mux"

	"string_server/controllers"
	"string_server/services"
)

// RegisterMatchRoutes sets up routes for matches under /api/matches
func RegisterMatchRoutes(r *mux.Router, matchService *services.MatchService) {
	controller := controllers.NewMatchController(matchService)

	matchRouter := r.PathPrefix("/api/matches").Subrouter()
	matchRouter.HandleFunc("/user/{userId}", controller.ListMatches).Methods("GET")
	matchRouter.HandleFunc("/{id}", controller.GetMatch).Methods("GET")
	matchRouter.HandleFunc("/{id}", controller.UpdateMatch).Methods("PATCH")
}
