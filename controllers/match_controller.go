package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"string_server/services"
	"string_server/utils"
)

// MatchController handles HTTP requests for matches
type MatchController struct {
	MatchService *services.MatchService
}

// NewMatchController creates a new MatchController instance
func NewMatchController(matchService *services.MatchService) *MatchController {
	return &MatchController{MatchService: matchService}
}

// ListMatches handles GET /api/matches/user/{userId}
func (c *MatchController) ListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := c.MatchService.ListMatches(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, matches)
}

// GetMatch handles GET /api/matches/{id}
func (c *MatchController) GetMatch(w http.ResponseWriter, r *http.Request) {
	match, err := c.MatchService.GetMatch(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, match)
}

// UpdateMatch handles PATCH /api/matches/{id}
func (c *MatchController) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	var upd services.MatchUpdate
	if err := utils.DecodeJSON(r, &upd); err != nil {
		utils.WriteError(w, err)
		return
	}
	match, err := c.MatchService.UpdateMatch(r.Context(), mux.Vars(r)["id"], upd)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, match)
}
