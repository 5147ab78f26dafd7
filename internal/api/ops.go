package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ghostlayer/internal/auth"
	"ghostlayer/internal/enrich"
	"ghostlayer/internal/lifecycle"
	"ghostlayer/internal/state"
)

// Request structures for administrative operations
type BroadcastRequest struct {
	Text  string      `json:"text,omitempty"`  // Verbatim broadcast body
	Topic string      `json:"topic,omitempty"` // Topic to draft a body from instead
	Tone  enrich.Tone `json:"tone,omitempty"`  // Register of the drafted body
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=4"`
}

type ApproveRequestBody struct {
	ServerID string `json:"server_id,omitempty"` // Node to bind the new account to
}

// Status returns the administrative summary of the whole deployment.
func (api *API) Status(c *gin.Context) {
	snap := api.mgr.Snapshot()

	activeUsers := 0
	for i := range snap.Users {
		if snap.Users[i].Status == state.UserActive {
			activeUsers++
		}
	}
	pending := 0
	for i := range snap.Requests {
		if snap.Requests[i].Status == state.RequestPending {
			pending++
		}
	}
	byStatus := map[state.ServerStatus]int{}
	for i := range snap.Servers {
		byStatus[snap.Servers[i].Status]++
	}

	c.JSON(http.StatusOK, gin.H{
		"users":               len(snap.Users),
		"active_users":        activeUsers,
		"servers":             len(snap.Servers),
		"servers_by_status":   byStatus,
		"pending_requests":    pending,
		"engine_running":      api.engine.Running(),
		"last_sync_time":      snap.LastSyncTime,
		"last_day_settlement": snap.LastDaySettlement,
	})
}

// TriggerSync runs one synchronization cycle immediately, outside the
// ticker schedule, and returns the resulting sync timestamp.
func (api *API) TriggerSync(c *gin.Context) {
	next, err := api.engine.RunOnce()
	if err != nil {
		api.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Synchronization cycle completed",
		"last_sync_time": next.LastSyncTime,
	})
}

// ChangePassword rotates the admin credential. The current password must
// verify against the stored hash before the new one is hashed and saved.
func (api *API) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := auth.AuthenticateAdmin(api.mgr.Snapshot(), req.CurrentPassword); err != nil {
		api.writeError(c, err)
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		api.writeError(c, err)
		return
	}

	if _, err := api.mgr.Apply(func(s state.AppState) (state.AppState, error) {
		return lifecycle.ChangeAdminPassword(s, hash)
	}); err != nil {
		api.writeError(c, err)
		return
	}

	api.log.Info().Msg("admin password changed")
	c.JSON(http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}

// ListRequests returns all join requests, pending and reviewed.
func (api *API) ListRequests(c *gin.Context) {
	snap := api.mgr.Snapshot()
	c.JSON(http.StatusOK, gin.H{"requests": snap.Requests, "count": len(snap.Requests)})
}

// ApproveRequest converts a pending join request into an active user,
// optionally bound to a server node, and sends the new account a drafted
// welcome message.
func (api *API) ApproveRequest(c *gin.Context) {
	var body ApproveRequestBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}
	id := c.Param("id")

	snap := api.mgr.Snapshot()
	idx := snap.FindRequest(id)
	if idx == -1 || snap.Requests[idx].Status != state.RequestPending {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No pending request with that id"})
		return
	}

	var created state.UserData
	next, err := api.mgr.Apply(func(s state.AppState) (state.AppState, error) {
		n, u, err := lifecycle.ApproveJoinRequest(s, api.ids, id, body.ServerID, time.Now())
		created = u
		return n, err
	})
	if err != nil {
		api.writeError(c, err)
		return
	}
	if created.ID == "" {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No pending request with that id"})
		return
	}

	welcome := api.enricher.DraftWelcome(c.Request.Context(), created.Username)
	next, err = api.mgr.Apply(func(s state.AppState) (state.AppState, error) {
		return lifecycle.SendMessage(s, api.ids, created.ID, welcome, state.SenderAdmin, time.Now()), nil
	})
	if err != nil {
		api.writeError(c, err)
		return
	}
	if idx := next.FindUser(created.ID); idx != -1 {
		created = next.Users[idx]
	}

	api.log.Info().Str("user", created.Username).Msg("join request approved")
	c.JSON(http.StatusCreated, api.userView(next, created))
}

// RejectRequest marks a pending join request as rejected.
func (api *API) RejectRequest(c *gin.Context) {
	id := c.Param("id")

	snap := api.mgr.Snapshot()
	idx := snap.FindRequest(id)
	if idx == -1 || snap.Requests[idx].Status != state.RequestPending {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No pending request with that id"})
		return
	}

	if _, err := api.mgr.Apply(func(s state.AppState) (state.AppState, error) {
		return lifecycle.RejectJoinRequest(s, id), nil
	}); err != nil {
		api.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Request rejected"})
}

// SendBroadcast appends one admin message to every user's log. The body
// is either the verbatim "text" or drafted from "topic" and "tone".
func (api *API) SendBroadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	text := req.Text
	if text == "" && req.Topic != "" {
		text = api.enricher.DraftBroadcast(c.Request.Context(), req.Topic, req.Tone)
	}

	next, err := api.mgr.Apply(func(s state.AppState) (state.AppState, error) {
		return lifecycle.Broadcast(s, api.ids, text, time.Now())
	})
	if err != nil {
		api.writeError(c, err)
		return
	}

	api.log.Info().Int("recipients", len(next.Users)).Msg("broadcast sent")
	c.JSON(http.StatusOK, gin.H{"message": "Broadcast sent", "recipients": len(next.Users), "text": text})
}

// SuggestReply drafts a short support reply to the text in the "message"
// query parameter. The draft is advisory; nothing is sent.
func (api *API) SuggestReply(c *gin.Context) {
	message := c.Query("message")
	if message == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message query parameter is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestion": api.enricher.SuggestReply(c.Request.Context(), message)})
}
