// Package correlation enforces correlated-group concentration limits. The
// taxonomy is a fixed, closed mapping of tradable symbols to correlation
// groups; unknown symbols are never silently allowed.
package correlation

import "github.com/KaidenAngle/TomKingTrading-sub001/risk"

// Correlation group identifiers. The set is closed; limits tables and the
// taxonomy below must only reference these.
const (
	GroupEquityIndexFutures risk.GroupID = "equity-index-futures"
	GroupEquityETFs         risk.GroupID = "equity-etfs"
	GroupSafeHaven          risk.GroupID = "safe-haven"
	GroupIndustrialMetals   risk.GroupID = "industrial-metals"
	GroupCrudeComplex       risk.GroupID = "crude-complex"
	GroupNatGas             risk.GroupID = "natgas"
	GroupGrains             risk.GroupID = "grains"
	GroupProteins           risk.GroupID = "proteins"
	GroupCurrencies         risk.GroupID = "currencies"
)

// GroupMeta describes one correlation group. CrisisWeight is how strongly
// the group moves with equities in a stress event (-1..1); it feeds the
// advisory risk score only, never the hard limits. EquityLike marks the two
// most correlated groups, which share a combined cap.
type GroupMeta struct {
	CrisisWeight float64
	EquityLike   bool
}

var Groups = map[risk.GroupID]GroupMeta{
	GroupEquityIndexFutures: {CrisisWeight: 0.95, EquityLike: true},
	GroupEquityETFs:         {CrisisWeight: 0.90, EquityLike: true},
	GroupSafeHaven:          {CrisisWeight: -0.30},
	GroupIndustrialMetals:   {CrisisWeight: 0.55},
	GroupCrudeComplex:       {CrisisWeight: 0.65},
	GroupNatGas:             {CrisisWeight: 0.35},
	GroupGrains:             {CrisisWeight: 0.25},
	GroupProteins:           {CrisisWeight: 0.15},
	GroupCurrencies:         {CrisisWeight: -0.10},
}

// symbolGroups maps every tradable symbol to its group. Futures and their
// micro variants classify together with the cash ETFs that track the same
// underlying.
var symbolGroups = map[string]risk.GroupID{
	// Equity index futures
	"ES":  GroupEquityIndexFutures,
	"MES": GroupEquityIndexFutures,
	"NQ":  GroupEquityIndexFutures,
	"MNQ": GroupEquityIndexFutures,
	"RTY": GroupEquityIndexFutures,
	"M2K": GroupEquityIndexFutures,
	"YM":  GroupEquityIndexFutures,
	"MYM": GroupEquityIndexFutures,

	// Equity ETFs
	"SPY": GroupEquityETFs,
	"QQQ": GroupEquityETFs,
	"IWM": GroupEquityETFs,
	"DIA": GroupEquityETFs,
	"VTI": GroupEquityETFs,
	"EFA": GroupEquityETFs,
	"EEM": GroupEquityETFs,

	// Safe haven: gold and treasuries
	"GC":  GroupSafeHaven,
	"MGC": GroupSafeHaven,
	"GLD": GroupSafeHaven,
	"TLT": GroupSafeHaven,
	"ZB":  GroupSafeHaven,
	"ZN":  GroupSafeHaven,

	// Industrial metals
	"SI":  GroupIndustrialMetals,
	"SIL": GroupIndustrialMetals,
	"HG":  GroupIndustrialMetals,
	"PL":  GroupIndustrialMetals,
	"PA":  GroupIndustrialMetals,
	"SLV": GroupIndustrialMetals,

	// Crude complex
	"CL":  GroupCrudeComplex,
	"MCL": GroupCrudeComplex,
	"QM":  GroupCrudeComplex,
	"RB":  GroupCrudeComplex,
	"HO":  GroupCrudeComplex,
	"USO": GroupCrudeComplex,
	"XLE": GroupCrudeComplex,

	// Natural gas
	"NG":  GroupNatGas,
	"QG":  GroupNatGas,
	"UNG": GroupNatGas,

	// Grains
	"ZC": GroupGrains,
	"ZS": GroupGrains,
	"ZW": GroupGrains,
	"ZL": GroupGrains,
	"ZM": GroupGrains,

	// Proteins
	"HE": GroupProteins,
	"LE": GroupProteins,
	"GF": GroupProteins,

	// Currencies
	"6E":  GroupCurrencies,
	"6B":  GroupCurrencies,
	"6A":  GroupCurrencies,
	"6C":  GroupCurrencies,
	"6J":  GroupCurrencies,
	"6S":  GroupCurrencies,
	"M6E": GroupCurrencies,
	"M6B": GroupCurrencies,
	"FXE": GroupCurrencies,
	"UUP": GroupCurrencies,
}

// GroupFor resolves a symbol to its correlation group. The second return is
// false for symbols outside the taxonomy; callers must fail closed.
func GroupFor(symbol string) (risk.GroupID, bool) {
	g, ok := symbolGroups[symbol]
	return g, ok
}
