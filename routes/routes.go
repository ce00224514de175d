package routes

import (
	"github.com/gorilla/mux"

	"string_server/controllers"
	"string_server/services"
	"string_server/store"
)

// RegisterHealthRoutes sets up the health check
func RegisterHealthRoutes(r *mux.Router, st store.Store) {
	controller := controllers.NewHealthController(st)
	r.HandleFunc("/health", controller.HealthCheck).Methods("GET")
}

// Services bundles everything the API routes call into.
type Services struct {
	Users   *services.UserProfileService
	Quota   *services.QuotaService
	Tugs    *services.TugService
	Matches *services.MatchService
	Conn    *services.ConnectionService
	Dates   *services.DateService
	Ratings *services.ReputationService
	Radar   *services.RadarService
}

// NewRouter builds the full HTTP surface under /api with recovery and request logging.
func NewRouter(st store.Store, svc Services) *mux.Router {
	r := mux.NewRouter()
	r.Use(Recovery, RequestLogger)

	RegisterHealthRoutes(r, st)
	RegisterUserProfileRoutes(r, svc.Users, svc.Quota)
	RegisterTugRoutes(r, svc.Tugs)
	RegisterMatchRoutes(r, svc.Matches)
	RegisterChatRoutes(r, svc.Conn)
	RegisterDateRoutes(r, svc.Dates)
	RegisterRatingRoutes(r, svc.Ratings)
	RegisterRadarRoutes(r, svc.Radar)
	return r
}
