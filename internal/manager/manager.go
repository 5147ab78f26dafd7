// Package manager owns the canonical state snapshot. Every lifecycle
// operation and every synchronization cycle is funneled through Apply,
// which serializes transitions, persists the result, and only then swaps
// the canonical reference. No caller ever writes from a cached copy, so
// there is no stale-snapshot race.
package manager

import (
	"sync"

	"github.com/rs/zerolog"

	"ghostlayer/internal/metrics"
	"ghostlayer/internal/state"
	"ghostlayer/internal/store"
)

// Manager is the single writer of the application state.
type Manager struct {
	mu      sync.Mutex    // Serializes all reads and transitions
	current state.AppState
	store   *store.StateStore
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New creates a manager owning the given initial snapshot.
func New(ss *store.StateStore, initial state.AppState, m *metrics.Metrics, log zerolog.Logger) *Manager {
	return &Manager{
		current: initial,
		store:   ss,
		metrics: m,
		log:     log.With().Str("component", "manager").Logger(),
	}
}

// Snapshot returns a deep copy of the canonical state for reading.
func (m *Manager) Snapshot() state.AppState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Clone()
}

// Apply runs a state transition against the latest snapshot, persists
// the result, and swaps the canonical reference. If the transition or
// the persistence fails, the canonical snapshot is left untouched so the
// in-memory state never diverges from the persisted document. The
// returned snapshot is a deep copy.
func (m *Manager) Apply(fn func(state.AppState) (state.AppState, error)) (state.AppState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := fn(m.current.Clone())
	if err != nil {
		return m.current.Clone(), err
	}

	if err := m.store.Save(next); err != nil {
		if m.metrics != nil {
			m.metrics.StateSaveErrors.Inc()
		}
		m.log.Error().Err(err).Msg("state write failed, keeping previous snapshot")
		return m.current.Clone(), err
	}
	if m.metrics != nil {
		m.metrics.StateSaves.Inc()
	}

	m.current = next
	return next.Clone(), nil
}
