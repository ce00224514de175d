package routes

import (
	"github.com/gorilla/mux"

	"string_server/controllers"
	"string_server/services"
)

// RegisterChatRoutes sets up message and knot routes under /api/matches/{id}
func RegisterChatRoutes(r *mux.Router, connectionService *services.ConnectionService) {
	controller := controllers.NewConnectionController(connectionService)

	chatRouter := r.PathPrefix("/api/matches/{id}").Subrouter()
	chatRouter.HandleFunc("/messages", controller.ListMessages).Methods("GET")
	chatRouter.HandleFunc("/messages", controller.SendMessage).Methods("POST")
	chatRouter.HandleFunc("/knot", controller.KnotProgress).Methods("GET")
	chatRouter.HandleFunc("/knot/request", controller.RequestKnot).Methods("POST")
	chatRouter.HandleFunc("/knot/accept", controller.AcceptKnot).Methods("POST")
	chatRouter.HandleFunc("/knot/revoke", controller.RevokeKnot).Methods("POST")
	chatRouter.HandleFunc("/knot/refuse", controller.RefuseKnot).Methods("POST")
}
