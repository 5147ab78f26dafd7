// Package web wires the REST API into an HTTP server: router
// construction, the health and metrics endpoints, request logging, and
// graceful shutdown.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"ghostlayer/internal/api"
	"ghostlayer/internal/auth"
	"ghostlayer/internal/config"
	"ghostlayer/internal/metrics"
)

// Server is the HTTP front of the control plane.
type Server struct {
	router *gin.Engine
	server *http.Server
	log    zerolog.Logger
}

// New builds the router and the HTTP server around the API.
func New(cfg config.Server, a *api.API, mw *auth.Middleware, m *metrics.Metrics, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now()})
	})
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	a.RegisterRoutes(router, mw, cfg.LoginRateCount, cfg.LoginRateWindow)

	return &Server{
		router: router,
		server: &http.Server{
			Addr:         cfg.Address,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		log: log.With().Str("component", "web").Logger(),
	}
}

// requestLogger logs one line per request with latency and status.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// Start begins serving. It blocks until the listener fails or Shutdown
// is called; a clean shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info().Str("address", s.server.Addr).Msg("starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the underlying router for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
