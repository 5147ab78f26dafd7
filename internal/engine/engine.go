package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ghostlayer/internal/metrics"
	"ghostlayer/internal/state"
)

// Applier serializes a state transition against the canonical snapshot
// and persists the result. The manager package provides the production
// implementation.
type Applier interface {
	Apply(fn func(state.AppState) (state.AppState, error)) (state.AppState, error)
}

// Engine drives synchronization cycles on a fixed interval. A process
// runs at most one active engine instance: Start refuses to run twice,
// and Stop leaves the last persisted snapshot intact.
type Engine struct {
	applier  Applier
	accrual  Accrual
	interval time.Duration
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// New creates an engine ticking at the given interval. The interval is a
// caller-supplied parameter, not a core concern.
func New(applier Applier, accrual Accrual, interval time.Duration, m *metrics.Metrics, log zerolog.Logger) *Engine {
	return &Engine{
		applier:  applier,
		accrual:  accrual,
		interval: interval,
		metrics:  m,
		log:      log.With().Str("component", "engine").Logger(),
		now:      time.Now,
	}
}

// Start launches the ticker goroutine. It returns an error if the engine
// is already running, so a restart is idempotent and never produces
// overlapping timers.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return fmt.Errorf("synchronization engine is already running")
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.log.Info().Dur("interval", e.interval).Msg("starting synchronization engine")

	go e.loop(ctx, e.stopCh)
	return nil
}

// Stop signals the ticker goroutine to exit. The snapshot persisted by
// the last completed cycle is left as-is; no cleanup mutation runs.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return fmt.Errorf("synchronization engine is not running")
	}
	close(e.stopCh)
	e.running = false
	e.log.Info().Msg("stopping synchronization engine")
	return nil
}

// Running reports whether the ticker goroutine is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine) loop(ctx context.Context, stopCh <-chan struct{}) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("context cancelled, synchronization loop exiting")
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if _, err := e.RunOnce(); err != nil {
				e.log.Error().Err(err).Msg("synchronization cycle failed")
			}
		}
	}
}

// RunOnce performs a single synchronization cycle against the canonical
// snapshot and returns the resulting state. It is also the entry point
// for the manual sync trigger.
func (e *Engine) RunOnce() (state.AppState, error) {
	var prev state.AppState
	next, err := e.applier.Apply(func(s state.AppState) (state.AppState, error) {
		prev = s
		return Tick(s, e.now(), e.accrual), nil
	})
	if err != nil {
		return next, err
	}

	e.record(prev, next)
	return next, nil
}

// record updates instrumentation by diffing the snapshots of one cycle.
func (e *Engine) record(prev, next state.AppState) {
	if e.metrics == nil {
		return
	}

	e.metrics.SyncTicks.Inc()
	if !next.LastDaySettlement.Equal(prev.LastDaySettlement) {
		e.metrics.DailySettlements.Inc()
	}

	for _, node := range next.Servers {
		i := prev.FindServer(node.ID)
		if i == -1 {
			continue
		}
		before := prev.Servers[i]
		if before.Status == node.Status {
			continue
		}
		switch node.Status {
		case state.ServerOffline:
			e.metrics.Downgrades.WithLabelValues(metrics.ReasonExpiry).Inc()
			e.log.Warn().Str("server", node.Name).Msg("server validity expired, forced offline")
		case state.ServerMaintenance:
			e.metrics.Downgrades.WithLabelValues(metrics.ReasonCapacity).Inc()
			e.log.Warn().Str("server", node.Name).Msg("server capacity exhausted, downgraded to maintenance")
		}
	}
}
