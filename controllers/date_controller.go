package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"string_server/services"
	"string_server/utils"
)

// DateController handles date planning and feedback for a match
type DateController struct {
	DateService *services.DateService
}

// NewDateController creates a new DateController instance
func NewDateController(dateService *services.DateService) *DateController {
	return &DateController{DateService: dateService}
}

// SuggestDate handles POST /api/matches/{id}/dates
func (c *DateController) SuggestDate(w http.ResponseWriter, r *http.Request) {
	var in services.DateSuggestion
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	match, err := c.DateService.SuggestDate(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, match)
}

// ConfirmDate handles POST /api/matches/{id}/dates/confirm
func (c *DateController) ConfirmDate(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	match, err := c.DateService.ConfirmDate(r.Context(), mux.Vars(r)["id"], req.UserID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, match)
}

// CancelDate handles POST /api/matches/{id}/dates/cancel
func (c *DateController) CancelDate(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	match, err := c.DateService.CancelDate(r.Context(), mux.Vars(r)["id"], req.UserID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, match)
}

// SubmitFeedback handles POST /api/matches/{id}/dates/feedback
func (c *DateController) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var in services.FeedbackInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	match, err := c.DateService.SubmitDateFeedback(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, match)
}
