package routes

import (
	"github.com/gorilla/mux"

	"string_server/controllers"
	"string_server/services"
)

// RegisterTugRoutes sets up routes for tugs under /api/tugs
func RegisterTugRoutes(r *mux.Router, tugService *services.TugService) {
	controller := controllers.NewTugController(tugService)

	tugRouter := r.PathPrefix("/api/tugs").Subrouter()
	tugRouter.HandleFunc("", controller.CreateTug).Methods("POST")
	tugRouter.HandleFunc("/user/{userId}", controller.ListTugs).Methods("GET")
	tugRouter.HandleFunc("/check/{user1Id}/{user2Id}", controller.CheckMutual).Methods("GET")
}
