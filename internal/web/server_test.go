package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghostlayer/internal/api"
	"ghostlayer/internal/auth"
	"ghostlayer/internal/config"
	"ghostlayer/internal/engine"
	"ghostlayer/internal/enrich"
	"ghostlayer/internal/ident"
	"ghostlayer/internal/identity"
	"ghostlayer/internal/manager"
	"ghostlayer/internal/metrics"
	"ghostlayer/internal/state"
	"ghostlayer/internal/store"
)

func setupServer(t *testing.T) *Server {
	t.Helper()

	log := zerolog.Nop()
	hash, err := auth.HashPassword("admin")
	require.NoError(t, err)

	ss := store.NewStateStore(store.NewMemoryStore(), auth.HashPassword, log)
	mgr := manager.New(ss, state.Default(time.Now(), hash), nil, log)
	tokens := auth.NewTokenManager("test-secret")
	eng := engine.New(mgr, engine.FixedAccrual{GB: 0.1}, time.Hour, nil, log)
	a := api.New(mgr, ident.Source{}, tokens, enrich.Fallback{}, identity.None{}, eng, log)

	cfg := config.Server{
		Address:         ":0",
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		LoginRateCount:  100,
		LoginRateWindow: time.Minute,
	}
	return New(cfg, a, auth.NewMiddleware(tokens), metrics.New(), log)
}

func TestHealthEndpoint(t *testing.T) {
	srv := setupServer(t)

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := setupServer(t)

	req, _ := http.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ghostlayer")
}

func TestAPIRoutesMounted(t *testing.T) {
	srv := setupServer(t)

	t.Run("should expose the public login route", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/api/auth/admin/login", nil)
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should guard the admin surface", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/api/admin/users", nil)
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestShutdownWithoutStart(t *testing.T) {
	srv := setupServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}
