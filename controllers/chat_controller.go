package controllers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"string_server/models"
	"string_server/services"
	"string_server/utils"
)

// ConnectionController handles chat and knot requests for a match
type ConnectionController struct {
	ConnectionService *services.ConnectionService
}

// NewConnectionController creates a new ConnectionController instance
func NewConnectionController(connectionService *services.ConnectionService) *ConnectionController {
	return &ConnectionController{ConnectionService: connectionService}
}

type sendMessageRequest struct {
	SenderID string `json:"senderId"`
	Content  string `json:"content"`
}

// ListMessages handles GET /api/matches/{id}/messages
func (c *ConnectionController) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := c.ConnectionService.ListMessages(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, messages)
}

// SendMessage handles POST /api/matches/{id}/messages
func (c *ConnectionController) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	msg, err := c.ConnectionService.SendMessage(r.Context(), mux.Vars(r)["id"], req.SenderID, req.Content)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, msg)
}

// KnotProgress handles GET /api/matches/{id}/knot
func (c *ConnectionController) KnotProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := c.ConnectionService.KnotProgress(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, progress)
}

func (c *ConnectionController) knotAction(action func(ctx context.Context, matchID, userID string) (*models.Match, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req userRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.WriteError(w, err)
			return
		}
		match, err := action(r.Context(), mux.Vars(r)["id"], req.UserID)
		if err != nil {
			utils.WriteError(w, err)
			return
		}
		utils.WriteJSONResponse(w, http.StatusOK, match)
	}
}

// RequestKnot handles POST /api/matches/{id}/knot/request
func (c *ConnectionController) RequestKnot(w http.ResponseWriter, r *http.Request) {
	c.knotAction(c.ConnectionService.RequestKnot)(w, r)
}

// AcceptKnot handles POST /api/matches/{id}/knot/accept
func (c *ConnectionController) AcceptKnot(w http.ResponseWriter, r *http.Request) {
	c.knotAction(c.ConnectionService.AcceptKnot)(w, r)
}

// RevokeKnot handles POST /api/matches/{id}/knot/revoke
func (c *ConnectionController) RevokeKnot(w http.ResponseWriter, r *http.Request) {
	c.knotAction(c.ConnectionService.RevokeKnot)(w, r)
}

// RefuseKnot handles POST /api/matches/{id}/knot/refuse
func (c *ConnectionController) RefuseKnot(w http.ResponseWriter, r *http.Request) {
	c.knotAction(c.ConnectionService.RefuseKnot)(w, r)
}
