package controllers

import (
	"net/http"

	"string_server/store"
	"string_server/utils"
)

// userRequest is the body of actions that only name the acting user.
type userRequest struct {
	UserID string `json:"userId"`
}

// HealthController reports whether the ledger store is reachable.
type HealthController struct {
	Store store.Store
}

// NewHealthController creates a new HealthController instance
func NewHealthController(st store.Store) *HealthController {
	return &HealthController{Store: st}
}

// HealthCheck pings the store.
func (c *HealthController) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := c.Store.Ping(r.Context()); err != nil {
		utils.WriteJSONResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}
