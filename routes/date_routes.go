package routes

import (
	"github.com/gorilla/mux"

	"string_server/controllers"
	"string_server/services"
)

// RegisterDateRoutes sets up date routes under /api/matches/{id}/dates
func RegisterDateRoutes(r *mux.Router, dateService *services.DateService) {
	controller := controllers.NewDateController(dateService)

	dateRouter := r.PathPrefix("/api/matches/{id}/dates").Subrouter()
	dateRouter.HandleFunc("", controller.SuggestDate).Methods("POST")
	dateRouter.HandleFunc("/confirm", controller.ConfirmDate).Methods("POST")
	dateRouter.HandleFunc("/cancel", controller.CancelDate).Methods("POST")
	dateRouter.HandleFunc("/feedback", controller.SubmitFeedback).Methods("POST")
}
