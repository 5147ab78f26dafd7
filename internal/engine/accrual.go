package engine

import (
	"math/rand"

	"ghostlayer/internal/state"
)

// DefaultMaxAccrualGB is the upper bound of the simulated per-tick usage
// increment.
const DefaultMaxAccrualGB = 0.5

// Accrual supplies the per-tick usage increment for a server node. The
// default implementation simulates metered traffic; a production
// deployment replaces it with a strategy that queries the upstream
// metering endpoint stored in the node's SyncURL.
type Accrual interface {
	// Increment returns the amount of usage, in GB, to add to the node
	// for one synchronization cycle. It must be non-negative.
	Increment(node state.ServerNode) float64
}

// RandomAccrual simulates metered traffic with a uniformly distributed
// increment in [0, MaxGB).
type RandomAccrual struct {
	MaxGB float64
}

// NewRandomAccrual returns a RandomAccrual with the default bound.
func NewRandomAccrual() RandomAccrual {
	return RandomAccrual{MaxGB: DefaultMaxAccrualGB}
}

// Increment returns a pseudo-random usage increment for the node.
func (a RandomAccrual) Increment(state.ServerNode) float64 {
	return rand.Float64() * a.MaxGB
}

// FixedAccrual returns the same increment for every node. It exists for
// deterministic tests and for dry-run operation.
type FixedAccrual struct {
	GB float64
}

// Increment returns the fixed increment.
func (a FixedAccrual) Increment(state.ServerNode) float64 {
	return a.GB
}
