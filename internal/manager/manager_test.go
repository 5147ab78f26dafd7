package manager

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghostlayer/internal/metrics"
	"ghostlayer/internal/state"
	"ghostlayer/internal/store"
)

func testHash(password string) (string, error) {
	return "hashed:" + password, nil
}

// failingDocs rejects writes after the failAfter-th save.
type failingDocs struct {
	*store.MemoryStore
	mu        sync.Mutex
	saves     int
	failAfter int
}

func (f *failingDocs) Save(key string, doc []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saves > f.failAfter {
		return errors.New("disk full")
	}
	return f.MemoryStore.Save(key, doc)
}

func newManager(t *testing.T, docs store.DocumentStore) (*Manager, state.AppState) {
	t.Helper()
	now := time.Unix(1700000000, 0)
	ss := store.NewStateStore(docs, testHash, zerolog.Nop())
	initial, err := ss.Load(now)
	require.NoError(t, err)
	return New(ss, initial, metrics.New(), zerolog.Nop()), initial
}

func TestManager_Apply(t *testing.T) {
	t.Run("should persist the transition before swapping the snapshot", func(t *testing.T) {
		docs := store.NewMemoryStore()
		mgr, _ := newManager(t, docs)

		next, err := mgr.Apply(func(s state.AppState) (state.AppState, error) {
			s.Servers[0].Notice = "updated"
			return s, nil
		})

		require.NoError(t, err)
		assert.Equal(t, "updated", next.Servers[0].Notice)
		assert.Equal(t, "updated", mgr.Snapshot().Servers[0].Notice)

		// The persisted document reflects the new snapshot.
		doc, found, err := docs.Load(store.CurrentStateKey)
		require.NoError(t, err)
		require.True(t, found)
		assert.Contains(t, string(doc), "updated")
	})

	t.Run("should keep the previous snapshot when the transition fails", func(t *testing.T) {
		mgr, initial := newManager(t, store.NewMemoryStore())

		_, err := mgr.Apply(func(s state.AppState) (state.AppState, error) {
			return state.AppState{}, errors.New("rejected")
		})

		require.Error(t, err)
		assert.Equal(t, initial.Servers, mgr.Snapshot().Servers)
	})

	t.Run("should keep the previous snapshot when persistence fails", func(t *testing.T) {
		mgr, initial := newManager(t, &failingDocs{MemoryStore: store.NewMemoryStore(), failAfter: 0})

		_, err := mgr.Apply(func(s state.AppState) (state.AppState, error) {
			s.Servers[0].Notice = "never persisted"
			return s, nil
		})

		var pErr *store.PersistenceError
		require.ErrorAs(t, err, &pErr)
		assert.Equal(t, initial.Servers[0].Notice, mgr.Snapshot().Servers[0].Notice)
	})

	t.Run("should hand each transition a private copy", func(t *testing.T) {
		mgr, _ := newManager(t, store.NewMemoryStore())

		before := mgr.Snapshot()
		_, err := mgr.Apply(func(s state.AppState) (state.AppState, error) {
			s.Servers[0].Notice = "scribbled"
			return s, errors.New("rejected")
		})

		require.Error(t, err)
		assert.Equal(t, before.Servers[0].Notice, mgr.Snapshot().Servers[0].Notice)
	})

	t.Run("should serialize concurrent transitions", func(t *testing.T) {
		docs := store.NewMemoryStore()
		mgr, _ := newManager(t, docs)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := mgr.Apply(func(s state.AppState) (state.AppState, error) {
					s.Servers[0].DaysRemaining--
					s.Servers[0].Normalize()
					return s, nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		// 15 initial days minus 20 decrements, clamped at zero.
		assert.Equal(t, 0, mgr.Snapshot().Servers[0].DaysRemaining)
	})
}

func TestManager_Snapshot(t *testing.T) {
	t.Run("should return an isolated copy", func(t *testing.T) {
		mgr, _ := newManager(t, store.NewMemoryStore())

		snap := mgr.Snapshot()
		snap.Servers[0].Notice = "scribbled"

		assert.NotEqual(t, "scribbled", mgr.Snapshot().Servers[0].Notice)
	})
}
