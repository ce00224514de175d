package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"string_server/services"
	"string_server/utils"
)

// RatingController handles rating submissions and history
type RatingController struct {
	ReputationService *services.ReputationService
}

// NewRatingController creates a new RatingController instance
func NewRatingController(reputationService *services.ReputationService) *RatingController {
	return &RatingController{ReputationService: reputationService}
}

// CreateRating handles POST /api/ratings
func (c *RatingController) CreateRating(w http.ResponseWriter, r *http.Request) {
	var in services.RatingInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	rating, err := c.ReputationService.ApplyRating(r.Context(), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, rating)
}

// ListRatings handles GET /api/ratings/user/{userId}
func (c *RatingController) ListRatings(w http.ResponseWriter, r *http.Request) {
	ratings, err := c.ReputationService.ListRatings(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, ratings)
}
