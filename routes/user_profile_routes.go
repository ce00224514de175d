package routes

import (
	"github.com/gorilla/mux"

	"string_server/controllers"
	"string_server/services"
)

// RegisterUserProfileRoutes sets up routes for users under /api/users
func RegisterUserProfileRoutes(r *mux.Router, userProfileService *services.UserProfileService, quotaService *services.QuotaService) {
	controller := controllers.NewUserProfileController(userProfileService, quotaService)

	userRouter := r.PathPrefix("/api/users").Subrouter()
	userRouter.HandleFunc("", controller.ListUsers).Methods("GET")
	userRouter.HandleFunc("", controller.CreateUser).Methods("POST")
	userRouter.HandleFunc("/{id}", controller.GetUser).Methods("GET")
	userRouter.HandleFunc("/{id}", controller.UpdateProfile).Methods("PATCH")
	userRouter.HandleFunc("/{id}/tug-refill", controller.RefillTugs).Methods("POST")
}
