package correlation

import "github.com/KaidenAngle/TomKingTrading-sub001/risk"

// CombinedEquityCap bounds the total position count across the two
// equity-like groups regardless of individual group headroom. Six
// correlated equity positions once cost 58% of an account in one session;
// this cap is the non-negotiable lesson.
const CombinedEquityCap = 3

// PhaseLimits maps growth phase to per-group maximum concurrent position
// counts. For groups with positive crisis weight the limits are
// non-decreasing as phase increases (verified by tests).
var PhaseLimits = map[risk.Phase]map[risk.GroupID]int{
	risk.Phase1: {
		GroupEquityIndexFutures: 1,
		GroupEquityETFs:         1,
		GroupSafeHaven:          1,
		GroupIndustrialMetals:   1,
		GroupCrudeComplex:       1,
		GroupNatGas:             1,
		GroupGrains:             1,
		GroupProteins:           1,
		GroupCurrencies:         1,
	},
	risk.Phase2: {
		GroupEquityIndexFutures: 2,
		GroupEquityETFs:         2,
		GroupSafeHaven:          2,
		GroupIndustrialMetals:   1,
		GroupCrudeComplex:       2,
		GroupNatGas:             1,
		GroupGrains:             1,
		GroupProteins:           1,
		GroupCurrencies:         1,
	},
	risk.Phase3: {
		GroupEquityIndexFutures: 3,
		GroupEquityETFs:         3,
		GroupSafeHaven:          2,
		GroupIndustrialMetals:   2,
		GroupCrudeComplex:       2,
		GroupNatGas:             2,
		GroupGrains:             2,
		GroupProteins:           1,
		GroupCurrencies:         2,
	},
	risk.Phase4: {
		GroupEquityIndexFutures: 4,
		GroupEquityETFs:         4,
		GroupSafeHaven:          3,
		GroupIndustrialMetals:   2,
		GroupCrudeComplex:       3,
		GroupNatGas:             2,
		GroupGrains:             2,
		GroupProteins:           2,
		GroupCurrencies:         2,
	},
}

// LimitFor returns the base (pre-regime) limit for a group at a phase.
// Unknown phases clamp to the nearest defined tier.
func LimitFor(phase risk.Phase, group risk.GroupID) int {
	if phase < risk.Phase1 {
		phase = risk.Phase1
	}
	if phase > risk.Phase4 {
		phase = risk.Phase4
	}
	return PhaseLimits[phase][group]
}
