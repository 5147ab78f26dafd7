package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ghostlayer/internal/auth"
	"ghostlayer/internal/lifecycle"
	"ghostlayer/internal/state"
)

// sessionUser resolves the account behind the current user session. A
// token whose account was deleted after issuance yields a 401.
func (api *API) sessionUser(c *gin.Context) (state.AppState, state.UserData, bool) {
	snap := api.mgr.Snapshot()
	userID := c.GetString(auth.ContextUserIDKey)
	idx := snap.FindUser(userID)
	if idx == -1 {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Account no longer exists"})
		return state.AppState{}, state.UserData{}, false
	}
	return snap, snap.Users[idx], true
}

// Me returns the authenticated user's own profile, including the derived
// connect link and the notice of the bound server node.
func (api *API) Me(c *gin.Context) {
	snap, user, ok := api.sessionUser(c)
	if !ok {
		return
	}

	view := api.userView(snap, user)
	resp := gin.H{"user": view}
	if idx := snap.FindServer(user.ServerID); idx != -1 {
		node := snap.Servers[idx]
		resp["server"] = gin.H{
			"name":           node.Name,
			"status":         node.Status,
			"notice":         node.Notice,
			"days_remaining": node.DaysRemaining,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// UserSendMessage appends a user-authored message to the caller's own
// support log.
func (api *API) UserSendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	_, user, ok := api.sessionUser(c)
	if !ok {
		return
	}

	next, err := api.mgr.Apply(func(s state.AppState) (state.AppState, error) {
		return lifecycle.SendMessage(s, api.ids, user.ID, req.Text, state.SenderUser, time.Now()), nil
	})
	if err != nil {
		api.writeError(c, err)
		return
	}

	if idx := next.FindUser(user.ID); idx != -1 {
		c.JSON(http.StatusCreated, gin.H{"messages": next.Users[idx].Messages})
		return
	}
	c.JSON(http.StatusCreated, MessageResponse{Message: "Message sent"})
}

// UserMarkRead marks every admin-authored message in the caller's log as
// read.
func (api *API) UserMarkRead(c *gin.Context) {
	_, user, ok := api.sessionUser(c)
	if !ok {
		return
	}

	if _, err := api.mgr.Apply(func(s state.AppState) (state.AppState, error) {
		return lifecycle.MarkMessagesRead(s, user.ID, state.SenderUser), nil
	}); err != nil {
		api.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Messages marked as read"})
}
