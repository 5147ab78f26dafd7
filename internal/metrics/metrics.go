// Package metrics exposes Prometheus instrumentation for the control
// plane: synchronization activity, automatic downgrades, and state
// persistence outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors on a private registry so tests can
// create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	SyncTicks        prometheus.Counter     // Completed synchronization cycles
	DailySettlements prometheus.Counter     // Daily settlements performed
	Downgrades       *prometheus.CounterVec // Automatic status downgrades by reason
	StateSaves       prometheus.Counter     // Successful state document writes
	StateSaveErrors  prometheus.Counter     // Failed state document writes
}

// Downgrade reasons used as label values.
const (
	ReasonExpiry   = "expiry"
	ReasonCapacity = "capacity"
)

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SyncTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ghostlayer_sync_ticks_total",
			Help: "Number of completed synchronization cycles.",
		}),
		DailySettlements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ghostlayer_daily_settlements_total",
			Help: "Number of daily validity settlements performed.",
		}),
		Downgrades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ghostlayer_server_downgrades_total",
			Help: "Automatic server status downgrades by reason.",
		}, []string{"reason"}),
		StateSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ghostlayer_state_saves_total",
			Help: "Number of successful state document writes.",
		}),
		StateSaveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ghostlayer_state_save_errors_total",
			Help: "Number of failed state document writes.",
		}),
	}

	m.registry.MustRegister(
		m.SyncTicks,
		m.DailySettlements,
		m.Downgrades,
		m.StateSaves,
		m.StateSaveErrors,
	)
	return m
}

// Handler returns an HTTP handler serving the registry in the Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
