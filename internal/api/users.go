package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ghostlayer/internal/lifecycle"
	"ghostlayer/internal/state"
	"ghostlayer/internal/utils"
)

// Request/Response structures for user management
type CreateUserRequest struct {
	Username   string `json:"username" binding:"required"`
	ServerID   string `json:"server_id,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
}

type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// UserView is the account representation returned by the API: the raw
// user record plus fields derived from the bound server node.
type UserView struct {
	state.UserData
	ServerName  string `json:"server_name,omitempty"`  // Display name of the bound node
	ConnectLink string `json:"connect_link,omitempty"` // Per-user connection descriptor
	UnreadCount int    `json:"unread_count"`           // Messages the admin has not read yet
}

// userView derives the API representation of a user from a snapshot.
func (api *API) userView(s state.AppState, u state.UserData) UserView {
	view := UserView{UserData: u}
	if idx := s.FindServer(u.ServerID); idx != -1 {
		node := s.Servers[idx]
		view.ServerName = node.Name
		view.ConnectLink = utils.BuildConnectLink(node, u.Username)
	}
	for _, m := range u.Messages {
		if m.Sender == state.SenderUser && !m.Read {
			view.UnreadCount++
		}
	}
	return view
}

// ListUsers returns all user accounts with their derived server fields.
func (api *API) ListUsers(c *gin.Context) {
	snap := api.mgr.Snapshot()
	views := make([]UserView, 0, len(snap.Users))
	for _, u := range snap.Users {
		views = append(views, api.userView(snap, u))
	}
	c.JSON(http.StatusOK, gin.H{"users": views, "count": len(views)})
}

// CreateUser provisions a new account with a fresh unique access code.
// An optional server_id binds the account to an existing node.
func (api *API) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	var created state.UserData
	next, err := api.mgr.Apply(func(s state.AppState) (state.AppState, error) {
		n, u, err := lifecycle.CreateUser(s, api.ids, req.Username, req.ServerID, req.ExternalID, time.Now())
		created = u
		return n, err
	})
	if err != nil {
		api.writeError(c, err)
		return
	}

	api.log.Info().Str("user", created.Username).Msg("user created")
	c.JSON(http.StatusCreated, api.userView(next, created))
}

// DeleteUser removes an account. Deleting a nonexistent account responds
// 404 without changing any state.
func (api *API) DeleteUser(c *gin.Context) {
	id := c.Param("id")

	snap := api.mgr.Snapshot()
	if snap.FindUser(id) == -1 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
		return
	}

	if _, err := api.mgr.Apply(func(s state.AppState) (state.AppState, error) {
		return lifecycle.DeleteUser(s, id), nil
	}); err != nil {
		api.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

// UserQRCode renders the user's connect link as a QR code. The "format"
// query selects a raw PNG ("png", the default) or a base64 data URI
// ("base64"). Unbound users have no connect link and get a 404.
func (api *API) UserQRCode(c *gin.Context) {
	snap := api.mgr.Snapshot()
	idx := snap.FindUser(c.Param("id"))
	if idx == -1 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
		return
	}
	user := snap.Users[idx]

	sIdx := snap.FindServer(user.ServerID)
	if sIdx == -1 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User is not bound to a server node"})
		return
	}
	link := utils.BuildConnectLink(snap.Servers[sIdx], user.Username)

	if c.DefaultQuery("format", "png") == "base64" {
		encoded, err := api.qr.GenerateBase64(link)
		if err != nil {
			api.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"qrcode": encoded, "connect_link": link})
		return
	}

	png, err := api.qr.GeneratePNG(link)
	if err != nil {
		api.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// AdminSendMessage appends an admin-authored message to the user's
// support log.
func (api *API) AdminSendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	id := c.Param("id")

	snap := api.mgr.Snapshot()
	if snap.FindUser(id) == -1 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
		return
	}

	next, err := api.mgr.Apply(func(s state.AppState) (state.AppState, error) {
		return lifecycle.SendMessage(s, api.ids, id, req.Text, state.SenderAdmin, time.Now()), nil
	})
	if err != nil {
		api.writeError(c, err)
		return
	}

	if idx := next.FindUser(id); idx != -1 {
		c.JSON(http.StatusCreated, gin.H{"messages": next.Users[idx].Messages})
		return
	}
	c.JSON(http.StatusCreated, MessageResponse{Message: "Message sent"})
}

// AdminMarkRead marks every user-authored message in the log as read.
func (api *API) AdminMarkRead(c *gin.Context) {
	id := c.Param("id")

	snap := api.mgr.Snapshot()
	if snap.FindUser(id) == -1 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
		return
	}

	if _, err := api.mgr.Apply(func(s state.AppState) (state.AppState, error) {
		return lifecycle.MarkMessagesRead(s, id, state.SenderAdmin), nil
	}); err != nil {
		api.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Messages marked as read"})
}
