// Package risk is the admission-control core: every proposed position is
// checked against a set of independent policy plugins before it may be
// opened. Plugins vote, the coordinator combines the votes with AND
// semantics, and a capital-preservation circuit breaker can veto everything.
package risk

import "time"

// GroupID identifies a correlation group (a bucket of instruments that tend
// to move together under stress).
type GroupID string

// StrategyID identifies the strategy proposing or holding a position.
type StrategyID string

// Phase is the account-growth tier. Higher phases permit more concurrent
// exposure per correlation group.
type Phase int

const (
	Phase1 Phase = 1
	Phase2 Phase = 2
	Phase3 Phase = 3
	Phase4 Phase = 4
)

// Account-value thresholds for phase advancement, in account currency.
const (
	phase2Value = 40_000.0
	phase3Value = 55_000.0
	phase4Value = 75_000.0
)

// PhaseForValue maps account value to a growth phase.
func PhaseForValue(v float64) Phase {
	switch {
	case v >= phase4Value:
		return Phase4
	case v >= phase3Value:
		return Phase3
	case v >= phase2Value:
		return Phase2
	default:
		return Phase1
	}
}

// VixRegime is a discretized volatility classification derived from the
// latest VIX reading. It is recomputed on every market-data event and never
// persisted into the limit tables themselves.
type VixRegime int

const (
	RegimeLow VixRegime = iota
	RegimeNormal
	RegimeElevated
	RegimeHigh
	RegimeExtreme
)

func (r VixRegime) String() string {
	switch r {
	case RegimeLow:
		return "low"
	case RegimeNormal:
		return "normal"
	case RegimeElevated:
		return "elevated"
	case RegimeHigh:
		return "high"
	case RegimeExtreme:
		return "extreme"
	default:
		return "unknown"
	}
}

// RegimeFromVIX classifies a VIX level.
func RegimeFromVIX(vix float64) VixRegime {
	switch {
	case vix >= 30:
		return RegimeExtreme
	case vix >= 25:
		return RegimeHigh
	case vix >= 20:
		return RegimeElevated
	case vix >= 16:
		return RegimeNormal
	default:
		return RegimeLow
	}
}

// MarketData is one tick as seen by the engine: a symbol price plus the
// ambient readings every plugin needs (volatility index, portfolio value).
// VIX and PortfolioValue are zero when the feed does not carry them.
type MarketData struct {
	Symbol         string
	Price          float64
	VIX            float64
	PortfolioValue float64
	Time           time.Time
}
