package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghostlayer/internal/metrics"
	"ghostlayer/internal/state"
)

func nodeState(node state.ServerNode, settledAt time.Time) state.AppState {
	return state.AppState{
		Servers:           []state.ServerNode{node},
		LastSyncTime:      settledAt,
		LastDaySettlement: settledAt,
	}
}

func TestTick_UsageAccrual(t *testing.T) {
	base := time.Unix(1700000000, 0)

	t.Run("should accrue usage on an active server", func(t *testing.T) {
		s := nodeState(state.ServerNode{
			ID: "srv-1", Name: "n", TotalCapacityGB: 100, UsedCapacityGB: 10,
			TotalDays: 30, DaysRemaining: 20, Status: state.ServerActive,
		}, base)

		next := Tick(s, base.Add(time.Minute), FixedAccrual{GB: 0.25})

		assert.InDelta(t, 10.25, next.Servers[0].UsedCapacityGB, 1e-9)
		assert.Equal(t, state.ServerActive, next.Servers[0].Status)
		assert.Equal(t, base.Add(time.Minute), next.LastSyncTime)
	})

	t.Run("should clamp usage at capacity and downgrade to maintenance", func(t *testing.T) {
		s := nodeState(state.ServerNode{
			ID: "srv-1", Name: "n", TotalCapacityGB: 10, UsedCapacityGB: 9.95,
			TotalDays: 30, DaysRemaining: 20, Status: state.ServerActive,
		}, base)

		next := Tick(s, base.Add(time.Minute), FixedAccrual{GB: 0.3})

		assert.Equal(t, 10.0, next.Servers[0].UsedCapacityGB)
		assert.Equal(t, state.ServerMaintenance, next.Servers[0].Status)
	})

	t.Run("should never touch an offline server", func(t *testing.T) {
		s := nodeState(state.ServerNode{
			ID: "srv-1", Name: "n", TotalCapacityGB: 10, UsedCapacityGB: 5,
			TotalDays: 30, DaysRemaining: 0, Status: state.ServerOffline,
		}, base)

		next := Tick(s, base.Add(time.Minute), FixedAccrual{GB: 100})

		assert.Equal(t, 5.0, next.Servers[0].UsedCapacityGB)
		assert.Equal(t, state.ServerOffline, next.Servers[0].Status)
	})

	t.Run("should keep accruing on a maintenance server without promoting it", func(t *testing.T) {
		s := nodeState(state.ServerNode{
			ID: "srv-1", Name: "n", TotalCapacityGB: 10, UsedCapacityGB: 10,
			TotalDays: 30, DaysRemaining: 20, Status: state.ServerMaintenance,
		}, base)

		next := Tick(s, base.Add(time.Minute), FixedAccrual{GB: 0})

		assert.Equal(t, state.ServerMaintenance, next.Servers[0].Status)
	})

	t.Run("should satisfy the capacity invariant across many ticks", func(t *testing.T) {
		s := nodeState(state.ServerNode{
			ID: "srv-1", Name: "n", TotalCapacityGB: 3, UsedCapacityGB: 0,
			TotalDays: 30, DaysRemaining: 20, Status: state.ServerActive,
		}, base)

		accrual := NewRandomAccrual()
		now := base
		for i := 0; i < 50; i++ {
			now = now.Add(time.Minute)
			s = Tick(s, now, accrual)
			node := s.Servers[0]
			assert.GreaterOrEqual(t, node.UsedCapacityGB, 0.0)
			assert.LessOrEqual(t, node.UsedCapacityGB, node.TotalCapacityGB)
			assert.GreaterOrEqual(t, node.DaysRemaining, 0)
			assert.LessOrEqual(t, node.DaysRemaining, node.TotalDays)
		}
	})
}

func TestTick_DailySettlement(t *testing.T) {
	base := time.Unix(1700000000, 0)

	t.Run("should decrement validity at most once per elapsed day", func(t *testing.T) {
		s := nodeState(state.ServerNode{
			ID: "srv-1", Name: "n", TotalCapacityGB: 100, UsedCapacityGB: 0,
			TotalDays: 30, DaysRemaining: 20, Status: state.ServerActive,
		}, base)

		// First tick a day and an hour later settles once.
		s = Tick(s, base.Add(25*time.Hour), FixedAccrual{GB: 0})
		assert.Equal(t, 19, s.Servers[0].DaysRemaining)

		// A second tick shortly after accrues again but does not settle.
		s = Tick(s, base.Add(26*time.Hour), FixedAccrual{GB: 0})
		assert.Equal(t, 19, s.Servers[0].DaysRemaining)
	})

	t.Run("should deduct a single day even after multi-day downtime", func(t *testing.T) {
		s := nodeState(state.ServerNode{
			ID: "srv-1", Name: "n", TotalCapacityGB: 100, UsedCapacityGB: 0,
			TotalDays: 30, DaysRemaining: 20, Status: state.ServerActive,
		}, base)

		s = Tick(s, base.Add(5*24*time.Hour), FixedAccrual{GB: 0})
		assert.Equal(t, 19, s.Servers[0].DaysRemaining)
	})

	t.Run("should force an expired server offline and keep it there", func(t *testing.T) {
		s := nodeState(state.ServerNode{
			ID: "srv-1", Name: "n", TotalCapacityGB: 100, UsedCapacityGB: 0,
			TotalDays: 30, DaysRemaining: 1, Status: state.ServerActive,
		}, base)

		s = Tick(s, base.Add(25*time.Hour), FixedAccrual{GB: 0})
		assert.Equal(t, 0, s.Servers[0].DaysRemaining)
		assert.Equal(t, state.ServerOffline, s.Servers[0].Status)

		// Another settlement-eligible tick leaves both unchanged.
		s = Tick(s, base.Add(50*time.Hour), FixedAccrual{GB: 0})
		assert.Equal(t, 0, s.Servers[0].DaysRemaining)
		assert.Equal(t, state.ServerOffline, s.Servers[0].Status)
	})

	t.Run("should never promote a downgraded server", func(t *testing.T) {
		s := nodeState(state.ServerNode{
			ID: "srv-1", Name: "n", TotalCapacityGB: 100, UsedCapacityGB: 100,
			TotalDays: 30, DaysRemaining: 10, Status: state.ServerMaintenance,
		}, base)

		now := base
		for i := 0; i < 5; i++ {
			now = now.Add(30 * time.Hour)
			s = Tick(s, now, FixedAccrual{GB: 0})
			assert.NotEqual(t, state.ServerActive, s.Servers[0].Status)
		}
	})

	t.Run("should not mutate the input snapshot", func(t *testing.T) {
		s := nodeState(state.ServerNode{
			ID: "srv-1", Name: "n", TotalCapacityGB: 100, UsedCapacityGB: 0,
			TotalDays: 30, DaysRemaining: 20, Status: state.ServerActive,
		}, base)

		Tick(s, base.Add(25*time.Hour), FixedAccrual{GB: 1})

		assert.Equal(t, 20, s.Servers[0].DaysRemaining)
		assert.Equal(t, 0.0, s.Servers[0].UsedCapacityGB)
	})
}

// applyFunc adapts a bare function to the Applier interface.
type applyFunc struct {
	current state.AppState
}

func (a *applyFunc) Apply(fn func(state.AppState) (state.AppState, error)) (state.AppState, error) {
	next, err := fn(a.current.Clone())
	if err != nil {
		return a.current, err
	}
	a.current = next
	return next.Clone(), nil
}

func TestEngine_StartStop(t *testing.T) {
	newEngine := func() *Engine {
		applier := &applyFunc{current: state.Default(time.Unix(1700000000, 0), "hash")}
		return New(applier, FixedAccrual{GB: 0}, time.Hour, metrics.New(), zerolog.Nop())
	}

	t.Run("should refuse to start twice", func(t *testing.T) {
		e := newEngine()
		require.NoError(t, e.Start(context.Background()))
		defer e.Stop()

		assert.Error(t, e.Start(context.Background()))
		assert.True(t, e.Running())
	})

	t.Run("should stop and allow a clean restart", func(t *testing.T) {
		e := newEngine()
		require.NoError(t, e.Start(context.Background()))
		require.NoError(t, e.Stop())
		assert.False(t, e.Running())

		require.NoError(t, e.Start(context.Background()))
		require.NoError(t, e.Stop())
	})

	t.Run("should refuse to stop when not running", func(t *testing.T) {
		e := newEngine()
		assert.Error(t, e.Stop())
	})
}

func TestEngine_RunOnce(t *testing.T) {
	t.Run("should advance the snapshot through the applier", func(t *testing.T) {
		start := time.Unix(1700000000, 0)
		applier := &applyFunc{current: state.Default(start, "hash")}
		e := New(applier, FixedAccrual{GB: 1}, time.Hour, metrics.New(), zerolog.Nop())
		e.now = func() time.Time { return start.Add(time.Minute) }

		next, err := e.RunOnce()

		require.NoError(t, err)
		assert.Equal(t, start.Add(time.Minute), next.LastSyncTime)
		assert.InDelta(t, 125.5, next.Servers[0].UsedCapacityGB, 1e-9)
	})
}
