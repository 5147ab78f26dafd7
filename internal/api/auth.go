package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ghostlayer/internal/auth"
	"ghostlayer/internal/lifecycle"
	"ghostlayer/internal/state"
)

// Request/Response structures for authentication
type AdminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

type UserLoginRequest struct {
	AccessCode string `json:"access_code" binding:"required"`
}

type SignUpRequest struct {
	Username string `json:"username" binding:"required"`
}

type AuthResponse struct {
	Token string    `json:"token"`
	Role  auth.Role `json:"role"`
	User  *UserView `json:"user,omitempty"`
}

// AdminLogin handles the administrator password login. On success it
// returns an admin-role session token.
func (api *API) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	snap := api.mgr.Snapshot()
	if err := auth.AuthenticateAdmin(snap, req.Password); err != nil {
		api.writeError(c, err)
		return
	}

	token, err := api.tokens.GenerateToken(auth.RoleAdmin, "")
	if err != nil {
		api.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, AuthResponse{Token: token, Role: auth.RoleAdmin})
}

// UserLogin handles access-code login. The access code is the sole user
// credential; on success it returns a user-role session token and the
// account profile.
func (api *API) UserLogin(c *gin.Context) {
	var req UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	snap := api.mgr.Snapshot()
	user, err := auth.AuthenticateUser(snap, req.AccessCode)
	if err != nil {
		api.writeError(c, err)
		return
	}

	token, err := api.tokens.GenerateToken(auth.RoleUser, user.ID)
	if err != nil {
		api.writeError(c, err)
		return
	}
	view := api.userView(snap, user)
	c.JSON(http.StatusOK, AuthResponse{Token: token, Role: auth.RoleUser, User: &view})
}

// UserAutoLogin logs in the user bound to the host-platform identity of
// the current session, when the hosting environment supplies one. It
// responds 404 when no provider is configured or no account matches.
func (api *API) UserAutoLogin(c *gin.Context) {
	externalID, ok := api.idp.ExternalID()
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No host identity available"})
		return
	}

	snap := api.mgr.Snapshot()
	user, found := auth.MatchExternalIdentity(snap, externalID)
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No account for this identity"})
		return
	}

	token, err := api.tokens.GenerateToken(auth.RoleUser, user.ID)
	if err != nil {
		api.writeError(c, err)
		return
	}
	view := api.userView(snap, user)
	c.JSON(http.StatusOK, AuthResponse{Token: token, Role: auth.RoleUser, User: &view})
}

// SignUp records a join request from the public landing surface. The
// request is reviewed by an administrator; no account exists until it is
// approved.
func (api *API) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	var request state.JoinRequest
	_, err := api.mgr.Apply(func(s state.AppState) (state.AppState, error) {
		next, r, err := lifecycle.SubmitJoinRequest(s, api.ids, req.Username, time.Now())
		request = r
		return next, err
	})
	if err != nil {
		api.writeError(c, err)
		return
	}

	welcome := api.enricher.DraftWelcome(c.Request.Context(), request.Username)
	c.JSON(http.StatusCreated, gin.H{
		"request": request,
		"welcome": welcome,
	})
}
