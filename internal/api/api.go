// Package api provides the REST endpoints of the control plane. The
// handlers are a thin presentation layer: every mutation is a lifecycle
// operation applied through the snapshot manager, and reads work on
// manager snapshots.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"ghostlayer/internal/auth"
	"ghostlayer/internal/engine"
	"ghostlayer/internal/enrich"
	"ghostlayer/internal/ident"
	"ghostlayer/internal/identity"
	"ghostlayer/internal/lifecycle"
	"ghostlayer/internal/manager"
	"ghostlayer/internal/store"
	"ghostlayer/internal/utils"
)

// API bundles the collaborators of the HTTP handlers.
type API struct {
	mgr      *manager.Manager
	ids      ident.Generator
	tokens   *auth.TokenManager
	enricher enrich.Service
	idp      identity.Provider
	engine   *engine.Engine
	qr       *utils.QRCodeGenerator
	log      zerolog.Logger
}

// ErrorResponse is the error body shared by all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the generic acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// New creates the API with its collaborators.
func New(mgr *manager.Manager, ids ident.Generator, tokens *auth.TokenManager, enricher enrich.Service, idp identity.Provider, eng *engine.Engine, log zerolog.Logger) *API {
	return &API{
		mgr:      mgr,
		ids:      ids,
		tokens:   tokens,
		enricher: enricher,
		idp:      idp,
		engine:   eng,
		qr:       utils.NewQRCodeGenerator(),
		log:      log.With().Str("component", "api").Logger(),
	}
}

// RegisterRoutes mounts all endpoints on the router. Login endpoints sit
// behind the rate limiter; administrative and self-service groups behind
// their role middleware.
func (api *API) RegisterRoutes(router *gin.Engine, mw *auth.Middleware, loginRateCount int, loginRateWindow time.Duration) {
	public := router.Group("/api")
	{
		login := public.Group("/auth")
		login.Use(auth.RateLimit(loginRateCount, loginRateWindow))
		{
			login.POST("/admin/login", api.AdminLogin)
			login.POST("/user/login", api.UserLogin)
			login.POST("/user/auto", api.UserAutoLogin)
		}
		public.POST("/signup", api.SignUp)
	}

	admin := router.Group("/api/admin")
	admin.Use(mw.Require(auth.RoleAdmin))
	{
		admin.GET("/status", api.Status)
		admin.POST("/sync", api.TriggerSync)
		admin.PUT("/password", api.ChangePassword)

		admin.GET("/users", api.ListUsers)
		admin.POST("/users", api.CreateUser)
		admin.DELETE("/users/:id", api.DeleteUser)
		admin.GET("/users/:id/qrcode", api.UserQRCode)
		admin.POST("/users/:id/messages", api.AdminSendMessage)
		admin.POST("/users/:id/messages/read", api.AdminMarkRead)

		admin.GET("/servers", api.ListServers)
		admin.POST("/servers", api.UpsertServer)
		admin.DELETE("/servers/:id", api.DeleteServer)

		admin.GET("/requests", api.ListRequests)
		admin.POST("/requests/:id/approve", api.ApproveRequest)
		admin.POST("/requests/:id/reject", api.RejectRequest)

		admin.POST("/broadcast", api.SendBroadcast)
		admin.GET("/suggest-reply", api.SuggestReply)
	}

	me := router.Group("/api/me")
	me.Use(mw.Require(auth.RoleUser))
	{
		me.GET("", api.Me)
		me.POST("/messages", api.UserSendMessage)
		me.POST("/messages/read", api.UserMarkRead)
	}
}

// writeError maps domain errors onto HTTP statuses.
func (api *API) writeError(c *gin.Context, err error) {
	var vErr *lifecycle.ValidationError
	var cErr *lifecycle.ConflictError
	var pErr *store.PersistenceError

	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: vErr.Error()})
	case errors.As(err, &cErr):
		c.JSON(http.StatusConflict, ErrorResponse{Error: cErr.Error()})
	case errors.Is(err, auth.ErrBadCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid credentials"})
	case errors.As(err, &pErr):
		api.log.Error().Err(err).Msg("persistence failure")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to persist state"})
	default:
		api.log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal error"})
	}
}
