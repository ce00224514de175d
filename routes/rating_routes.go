package routes

import (
	"github.com/gorilla/mux"

	"string_server/controllers"
	"string_server/services"
)

// RegisterRatingRoutes sets up routes for ratings under /api/ratings
func RegisterRatingRoutes(r *mux.Router, reputationService *services.ReputationService) {
	controller := controllers.NewRatingController(reputationService)

	ratingRouter := r.PathPrefix("/api/ratings").Subrouter()
	ratingRouter.HandleFunc("", controller.CreateRating).Methods("POST")
	ratingRouter.HandleFunc("/user/{userId}", controller.ListRatings).Methods("GET")
}
