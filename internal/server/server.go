// Package server assembles the application from its components: storage
// backend, state manager, synchronization engine, enrichment client, and
// the HTTP front. It owns startup order and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"ghostlayer/internal/api"
	"ghostlayer/internal/auth"
	"ghostlayer/internal/config"
	"ghostlayer/internal/engine"
	"ghostlayer/internal/enrich"
	"ghostlayer/internal/ident"
	"ghostlayer/internal/identity"
	"ghostlayer/internal/logging"
	"ghostlayer/internal/manager"
	"ghostlayer/internal/metrics"
	"ghostlayer/internal/store"
	"ghostlayer/internal/web"
)

// Server is the assembled application.
type Server struct {
	cfg    *config.Config
	log    zerolog.Logger
	docs   store.DocumentStore
	mgr    *manager.Manager
	engine *engine.Engine
	web    *web.Server
}

// New parses configuration, opens the storage backend, loads or seeds
// the state document, and wires every component together.
func New(args []string) (*Server, error) {
	cfg, err := config.Parse(args)
	if err != nil {
		return nil, err
	}

	log := logging.Setup(cfg.Logger)

	docs, err := openBackend(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage backend: %w", err)
	}

	ss := store.NewStateStore(docs, auth.HashPassword, log)
	initial, err := ss.Load(time.Now())
	if err != nil {
		docs.Close()
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	m := metrics.New()
	mgr := manager.New(ss, initial, m, log)

	accrual := engine.RandomAccrual{MaxGB: cfg.Sync.MaxAccrualGB}
	eng := engine.New(mgr, accrual, cfg.Sync.Interval, m, log)

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret, err = auth.GenerateSecureSecret()
		if err != nil {
			docs.Close()
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		log.Warn().Msg("no JWT secret configured, generated an ephemeral one; sessions will not survive restarts")
	}
	tokens := auth.NewTokenManagerWithExpiry(secret, cfg.Auth.TokenExpiry)

	a := api.New(mgr, ident.Source{}, tokens, buildEnricher(cfg.Enrich, log), buildIdentity(cfg.Identity), eng, log)
	ws := web.New(cfg.Server, a, auth.NewMiddleware(tokens), m, log)

	return &Server{
		cfg:    cfg,
		log:    log,
		docs:   docs,
		mgr:    mgr,
		engine: eng,
		web:    ws,
	}, nil
}

func openBackend(cfg config.Storage) (store.DocumentStore, error) {
	switch cfg.Backend {
	case config.BackendBolt:
		return store.NewBoltStore(cfg.Path)
	default:
		return store.NewSQLiteStore(cfg.Path)
	}
}

func buildEnricher(cfg config.Enrich, log zerolog.Logger) enrich.Service {
	if cfg.Endpoint == "" {
		return enrich.Fallback{}
	}
	completer := &enrich.HTTPCompleter{Endpoint: cfg.Endpoint, APIKey: cfg.APIKey}
	return enrich.NewClient(completer, cfg.Timeout, log)
}

func buildIdentity(cfg config.Identity) identity.Provider {
	if cfg.EnvVar == "" {
		return identity.None{}
	}
	return identity.EnvProvider{Var: cfg.EnvVar}
}

// Start launches the synchronization engine and serves HTTP until a
// termination signal arrives, then shuts everything down in order.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.engine.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.web.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		s.log.Error().Err(err).Msg("HTTP server exited")
		return err
	case sig := <-sigCh:
		s.log.Info().Str("signal", sig.String()).Msg("termination signal received")
	}

	return s.Stop()
}

// Stop shuts down the HTTP server, the engine, and the storage backend.
// The snapshot persisted by the last completed cycle is left as-is.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.web.Shutdown(ctx); err != nil {
		s.log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	if s.engine.Running() {
		if err := s.engine.Stop(); err != nil {
			s.log.Error().Err(err).Msg("engine stop failed")
		}
	}
	if err := s.docs.Close(); err != nil {
		s.log.Error().Err(err).Msg("storage close failed")
		return err
	}
	s.log.Info().Msg("shutdown complete")
	return nil
}
