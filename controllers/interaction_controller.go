package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"string_server/services"
	"string_server/utils"
)

// TugController handles tug requests
type TugController struct {
	TugService *services.TugService
}

// NewTugController creates a new TugController instance
func NewTugController(tugService *services.TugService) *TugController {
	return &TugController{TugService: tugService}
}

type tugRequest struct {
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
}

// CreateTug handles POST /api/tugs
func (c *TugController) CreateTug(w http.ResponseWriter, r *http.Request) {
	var req tugRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	res, err := c.TugService.Tug(r.Context(), req.FromUserID, req.ToUserID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, res)
}

// ListTugs handles GET /api/tugs/user/{userId}
func (c *TugController) ListTugs(w http.ResponseWriter, r *http.Request) {
	tugs, err := c.TugService.ListTugs(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, tugs)
}

// CheckMutual handles GET /api/tugs/check/{user1Id}/{user2Id}
func (c *TugController) CheckMutual(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	mutual, err := c.TugService.CheckMutual(r.Context(), vars["user1Id"], vars["user2Id"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, map[string]bool{"isMutual": mutual})
}
