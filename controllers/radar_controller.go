package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"string_server/services"
	"string_server/utils"
)

// RadarController handles radar scan purchases
type RadarController struct {
	RadarService *services.RadarService
}

// NewRadarController creates a new RadarController instance
func NewRadarController(radarService *services.RadarService) *RadarController {
	return &RadarController{RadarService: radarService}
}

type scanRequest struct {
	UserID  string `json:"userId"`
	FPSpent *int   `json:"fpSpent,omitempty"`
}

// CreateScan handles POST /api/radar-scans
func (c *RadarController) CreateScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	res, err := c.RadarService.Scan(r.Context(), req.UserID, req.FPSpent)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, res)
}

// ActiveScans handles GET /api/radar-scans/user/{userId}/active
func (c *RadarController) ActiveScans(w http.ResponseWriter, r *http.Request) {
	scans, err := c.RadarService.ActiveScans(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, scans)
}
