// Package engine implements the periodic reconciliation of server node
// state: daily validity settlement, usage accrual against the upstream
// metering reference, and the automatic one-way status degradation
// policy. The engine never promotes a node's health; only an
// administrative edit can bring a downgraded node back.
package engine

import (
	"math"
	"time"

	"ghostlayer/internal/state"
)

// settlementInterval is how much time must elapse before another daily
// settlement is performed.
const settlementInterval = 24 * time.Hour

// Tick advances one synchronization cycle and returns the new snapshot.
// In order: the daily settlement gate decrements every node's remaining
// validity by exactly one day when more than a day has elapsed since the
// last settlement (never proportionally to downtime), forcing expired
// nodes offline; then usage accrual adds a bounded increment to every
// non-offline node, clamped to its capacity, downgrading to maintenance
// when the clamp is hit; finally lastSyncTime is stamped.
func Tick(s state.AppState, now time.Time, accrual Accrual) state.AppState {
	next := s.Clone()

	if now.Sub(next.LastDaySettlement) > settlementInterval {
		settleDay(&next)
		next.LastDaySettlement = now
	}

	accrue(&next, accrual)
	next.LastSyncTime = now
	return next
}

// settleDay deducts one day of validity from every server node. A node
// that reaches zero days is forced offline regardless of its previous
// status.
func settleDay(s *state.AppState) {
	for i := range s.Servers {
		node := &s.Servers[i]
		if node.DaysRemaining > 0 {
			node.DaysRemaining--
		}
		if node.DaysRemaining == 0 {
			node.Status = state.ServerOffline
		}
	}
}

// accrue adds the strategy's increment to every node that is not
// offline, clamped to the node's capacity. Hitting the clamp downgrades
// the node to maintenance; an offline node is never touched.
func accrue(s *state.AppState, accrual Accrual) {
	for i := range s.Servers {
		node := &s.Servers[i]
		if node.Status == state.ServerOffline {
			continue
		}

		used := node.UsedCapacityGB + accrual.Increment(*node)
		if used >= node.TotalCapacityGB {
			node.UsedCapacityGB = node.TotalCapacityGB
			node.Status = state.ServerMaintenance
			continue
		}
		node.UsedCapacityGB = roundGB(used)
	}
}

// roundGB keeps accrued usage at two decimal places, matching what the
// upstream metering reports.
func roundGB(v float64) float64 {
	return math.Round(v*100) / 100
}
