package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("should apply defaults with no arguments", func(t *testing.T) {
		cfg, err := Parse(nil)
		require.NoError(t, err)

		assert.Equal(t, ":8080", cfg.Server.Address)
		assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
		assert.Equal(t, "ghostlayer.db", cfg.Storage.Path)
		assert.Equal(t, 10*time.Minute, cfg.Sync.Interval)
		assert.Equal(t, 0.5, cfg.Sync.MaxAccrualGB)
		assert.Equal(t, 24*time.Hour, cfg.Auth.TokenExpiry)
		assert.Equal(t, 10, cfg.Server.LoginRateCount)
	})

	t.Run("should accept the bolt backend", func(t *testing.T) {
		cfg, err := Parse([]string{"--db.backend", "bolt", "--db.path", "/tmp/gl.bolt"})
		require.NoError(t, err)
		assert.Equal(t, BackendBolt, cfg.Storage.Backend)
		assert.Equal(t, "/tmp/gl.bolt", cfg.Storage.Path)
	})

	t.Run("should override the listen address and sync interval", func(t *testing.T) {
		cfg, err := Parse([]string{"-l", ":9090", "--sync.interval", "30s"})
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Server.Address)
		assert.Equal(t, 30*time.Second, cfg.Sync.Interval)
	})

	t.Run("should reject an unknown backend", func(t *testing.T) {
		_, err := Parse([]string{"--db.backend", "etcd"})
		assert.Error(t, err)
	})

	t.Run("should reject a non-positive sync interval", func(t *testing.T) {
		_, err := Parse([]string{"--sync.interval", "0s"})
		assert.Error(t, err)
	})

	t.Run("should reject a negative accrual bound", func(t *testing.T) {
		_, err := Parse([]string{"--sync.max-accrual-gb=-1"})
		assert.Error(t, err)
	})
}
