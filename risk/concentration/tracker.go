// Package concentration tracks grouped delta and notional exposure per
// strategy across asset families and denies proposals that would breach a
// family's delta cap, strategy cap, or notional share of the portfolio.
// Unlike the correlation plugin this one reasons about size, not counts.
package concentration

import (
	"context"
	"time"

	"github.com/KaidenAngle/TomKingTrading-sub001/broker"
	"github.com/KaidenAngle/TomKingTrading-sub001/logging"
	"github.com/KaidenAngle/TomKingTrading-sub001/risk"
)

// FamilyID identifies an asset family tracked for concentration.
type FamilyID string

const (
	FamilyIndexCore   FamilyID = "index-core"
	FamilyTechIndex   FamilyID = "tech-index"
	FamilySmallCap    FamilyID = "small-cap"
	FamilyLargeCapInd FamilyID = "large-cap-industrial"
)

// FamilyConfig is the independently configurable cap set for one family.
type FamilyConfig struct {
	Family         FamilyID
	Symbols        []string
	MaxDelta       float64 // cap on |aggregate delta|
	MaxStrategies  int     // distinct strategies allowed in the family
	MaxNotionalPct float64 // family notional as fraction of portfolio value
}

// DefaultFamilies covers the four index families.
func DefaultFamilies() []FamilyConfig {
	return []FamilyConfig{
		{Family: FamilyIndexCore, Symbols: []string{"SPY", "ES", "MES"}, MaxDelta: 300, MaxStrategies: 3, MaxNotionalPct: 0.30},
		{Family: FamilyTechIndex, Symbols: []string{"QQQ", "NQ", "MNQ"}, MaxDelta: 200, MaxStrategies: 2, MaxNotionalPct: 0.25},
		{Family: FamilySmallCap, Symbols: []string{"IWM", "RTY", "M2K"}, MaxDelta: 150, MaxStrategies: 2, MaxNotionalPct: 0.20},
		{Family: FamilyLargeCapInd, Symbols: []string{"DIA", "YM", "MYM"}, MaxDelta: 150, MaxStrategies: 2, MaxNotionalPct: 0.20},
	}
}

// StaleAge is how old a tracked allocation must be, with no matching real
// holding, before cleanup purges it and returns its reserved capacity.
const StaleAge = 4 * time.Hour

type allocation struct {
	Symbol   string
	Delta    float64
	Notional float64
	OpenedAt time.Time
}

type familyState struct {
	cfg         FamilyConfig
	delta       float64
	notional    float64
	allocations map[risk.StrategyID]allocation
}

// Tracker owns the per-family exposure maps. Reserved delta/notional is
// credited back exactly once when an allocation closes or goes stale;
// cleanup deletes the record atomically with the credit so repeated passes
// cannot double-credit.
type Tracker struct {
	bus      *risk.EventBus
	provider broker.SnapshotProvider
	log      *logging.Logger

	families     map[FamilyID]*familyState
	symbolFamily map[string]FamilyID
	lastValue    float64
	stalePurges  int
}

func New(families []FamilyConfig, provider broker.SnapshotProvider, bus *risk.EventBus) *Tracker {
	t := &Tracker{
		bus:          bus,
		provider:     provider,
		log:          logging.NewComponentLogger("concentration"),
		families:     make(map[FamilyID]*familyState, len(families)),
		symbolFamily: make(map[string]FamilyID),
	}
	for _, fc := range families {
		t.families[fc.Family] = &familyState{
			cfg:         fc,
			allocations: make(map[risk.StrategyID]allocation),
		}
		for _, sym := range fc.Symbols {
			t.symbolFamily[sym] = fc.Family
		}
	}
	return t
}

func (t *Tracker) Name() string { return "concentration" }

func (t *Tracker) CanOpenPosition(req risk.Request) risk.Decision {
	famID, ok := t.symbolFamily[req.Symbol]
	if !ok {
		return risk.Approve("symbol %s outside tracked concentration families", req.Symbol)
	}
	fs := t.families[famID]

	projected := fs.delta + req.Delta
	if abs(projected) > fs.cfg.MaxDelta {
		return risk.Deny("family %s delta %+.1f would exceed cap %.1f", famID, projected, fs.cfg.MaxDelta)
	}

	if _, has := fs.allocations[req.Strategy]; !has && len(fs.allocations) >= fs.cfg.MaxStrategies {
		return risk.Deny("family %s at strategy cap: %d/%d", famID, len(fs.allocations), fs.cfg.MaxStrategies)
	}

	if t.lastValue > 0 {
		projNotional := fs.notional + req.Notional
		capNotional := fs.cfg.MaxNotionalPct * t.lastValue
		if projNotional > capNotional {
			return risk.Deny("family %s notional $%.0f would exceed %.0f%% of portfolio ($%.0f)",
				famID, projNotional, fs.cfg.MaxNotionalPct*100, capNotional)
		}
	}

	// Conflict heuristic: a lone strategy opposing an already-large family
	// position is more likely to be a hedging mistake than a view.
	if opposed(fs.delta, req.Delta) && abs(fs.delta) > 0.5*fs.cfg.MaxDelta && len(fs.allocations) < 2 {
		return risk.Deny("family %s has large opposing exposure %+.1f held by a single strategy",
			famID, fs.delta)
	}

	return risk.Approve("family %s: delta %+.1f/%.1f, %d strategies", famID, projected, fs.cfg.MaxDelta, len(fs.allocations))
}

func (t *Tracker) OnPositionOpened(pos risk.Position) {
	famID, ok := t.symbolFamily[pos.Symbol]
	if !ok {
		return
	}
	fs := t.families[famID]
	if prev, has := fs.allocations[pos.Strategy]; has {
		// Same strategy adding to the family: fold into one allocation.
		pos.Delta += prev.Delta
		pos.Notional += prev.Notional
		fs.delta -= prev.Delta
		fs.notional -= prev.Notional
	}
	fs.allocations[pos.Strategy] = allocation{
		Symbol:   pos.Symbol,
		Delta:    pos.Delta,
		Notional: pos.Notional,
		OpenedAt: pos.OpenedAt,
	}
	fs.delta += pos.Delta
	fs.notional += pos.Notional
}

func (t *Tracker) OnPositionClosed(pos risk.Position, realizedPnL float64) {
	famID, ok := t.symbolFamily[pos.Symbol]
	if !ok {
		return
	}
	fs := t.families[famID]
	alloc, has := fs.allocations[pos.Strategy]
	if !has {
		// Duplicate or unknown close: no-op, capacity was already returned.
		return
	}
	if pos.Delta != 0 && abs(pos.Delta) < abs(alloc.Delta) {
		// One leg of a folded allocation: release only what closed and keep
		// the rest reserved.
		rem := allocation{
			Symbol:   alloc.Symbol,
			Delta:    alloc.Delta - pos.Delta,
			Notional: alloc.Notional - pos.Notional,
			OpenedAt: alloc.OpenedAt,
		}
		if rem.Notional < 0 {
			rem.Notional = 0
		}
		fs.allocations[pos.Strategy] = rem
		t.credit(fs, allocation{Delta: pos.Delta, Notional: pos.Notional})
		return
	}
	delete(fs.allocations, pos.Strategy)
	t.credit(fs, alloc)
}

// credit returns an allocation's reserved capacity to the family, flooring
// notional at zero and zeroing residue when the family empties.
func (t *Tracker) credit(fs *familyState, alloc allocation) {
	fs.delta -= alloc.Delta
	fs.notional -= alloc.Notional
	if fs.notional < 0 {
		fs.notional = 0
	}
	if len(fs.allocations) == 0 {
		fs.delta = 0
		fs.notional = 0
	}
}

func (t *Tracker) OnMarketData(md risk.MarketData) {
	if md.PortfolioValue > 0 {
		t.lastValue = md.PortfolioValue
	}
}

// PeriodicCheck purges stale allocations and flags allocation leaks. An
// allocation is stale when its symbol no longer appears among real
// holdings and it is older than StaleAge; the purge deletes the record in
// the same step as the capacity credit, so a second pass over an
// already-purged record is a no-op.
func (t *Tracker) PeriodicCheck(ctx context.Context, now time.Time) []risk.Event {
	if t.provider == nil {
		return nil
	}
	holdings, err := t.provider.Holdings(ctx)
	if err != nil {
		t.log.Warnf("holdings snapshot unavailable, skipping stale-allocation cleanup: %v", err)
		return nil
	}

	// Before the first tick carries a portfolio value, seed it from the
	// snapshot so the notional cap is enforceable from the start.
	if t.lastValue == 0 {
		if v, err := t.provider.PortfolioValue(ctx); err == nil && v > 0 {
			t.lastValue = v
		}
	}

	held := make(map[string]bool, len(holdings))
	for _, h := range holdings {
		if h.Quantity != 0 {
			held[h.Symbol] = true
		}
	}

	var events []risk.Event
	for famID, fs := range t.families {
		for strat, alloc := range fs.allocations {
			if held[alloc.Symbol] {
				continue
			}
			if now.Sub(alloc.OpenedAt) < StaleAge {
				continue
			}
			delete(fs.allocations, strat)
			t.credit(fs, alloc)
			t.stalePurges++
			events = append(events, risk.NewEvent(risk.EventConcentrationWarning, risk.LevelWarning,
				"stale allocation purged from family "+string(famID),
				map[string]any{
					"family":   string(famID),
					"strategy": string(strat),
					"symbol":   alloc.Symbol,
					"delta":    alloc.Delta,
					"notional": alloc.Notional,
					"age":      now.Sub(alloc.OpenedAt).String(),
				},
				now))
		}

		// Leak detection: real exposure with zero tracked allocation. Warn,
		// never fabricate an allocation for it.
		tracked := make(map[string]bool, len(fs.allocations))
		for _, alloc := range fs.allocations {
			tracked[alloc.Symbol] = true
		}
		for _, sym := range fs.cfg.Symbols {
			if held[sym] && !tracked[sym] {
				events = append(events, risk.NewEvent(risk.EventConcentrationWarning, risk.LevelWarning,
					"holding "+sym+" has no tracked allocation in family "+string(famID),
					map[string]any{"family": string(famID), "symbol": sym},
					now))
			}
		}
	}
	return events
}

func (t *Tracker) Metrics() map[string]any {
	families := make(map[string]any, len(t.families))
	for famID, fs := range t.families {
		families[string(famID)] = map[string]any{
			"delta":      fs.delta,
			"notional":   fs.notional,
			"strategies": len(fs.allocations),
			"max_delta":  fs.cfg.MaxDelta,
		}
	}
	return map[string]any{
		"portfolio_value": t.lastValue,
		"stale_purges":    t.stalePurges,
		"families":        families,
	}
}

func opposed(a, b float64) bool {
	return (a > 0 && b < 0) || (a < 0 && b > 0)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
