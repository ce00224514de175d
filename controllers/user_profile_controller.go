package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"string_server/services"
	"string_server/utils"
)

// UserProfileController handles requests related to users
type UserProfileController struct {
	UserProfileService *services.UserProfileService
	QuotaService       *services.QuotaService
}

// NewUserProfileController creates a new instance of UserProfileController
func NewUserProfileController(userProfileService *services.UserProfileService, quotaService *services.QuotaService) *UserProfileController {
	return &UserProfileController{UserProfileService: userProfileService, QuotaService: quotaService}
}

// CreateUser handles POST /api/users
func (c *UserProfileController) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in services.NewUserInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	user, err := c.UserProfileService.CreateUser(r.Context(), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, user)
}

// GetUser handles GET /api/users/{id}
func (c *UserProfileController) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := c.UserProfileService.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, user)
}

// ListUsers handles GET /api/users?excludeUserId=
func (c *UserProfileController) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := c.UserProfileService.ListUsers(r.Context(), r.URL.Query().Get("excludeUserId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, users)
}

// UpdateProfile handles PATCH /api/users/{id}
func (c *UserProfileController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd services.ProfileUpdate
	if err := utils.DecodeJSON(r, &upd); err != nil {
		utils.WriteError(w, err)
		return
	}
	user, err := c.UserProfileService.UpdateProfile(r.Context(), mux.Vars(r)["id"], upd)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, user)
}

// RefillTugs handles POST /api/users/{id}/tug-refill
func (c *UserProfileController) RefillTugs(w http.ResponseWriter, r *http.Request) {
	user, err := c.QuotaService.RefillTugs(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, user)
}
