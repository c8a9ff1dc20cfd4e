package correlation

import (
	"context"
	"time"

	"github.com/KaidenAngle/TomKingTrading-sub001/broker"
	"github.com/KaidenAngle/TomKingTrading-sub001/logging"
	"github.com/KaidenAngle/TomKingTrading-sub001/risk"
)

type Config struct {
	// FixedPhase pins the growth phase; zero derives it from the latest
	// reported portfolio value.
	FixedPhase risk.Phase

	// DeltaConflictTolerance is the net group delta magnitude above which an
	// opposite-signed proposal is treated as a directional conflict.
	DeltaConflictTolerance float64

	// ReconcileGrace exempts recently opened positions from subtractive
	// reconciliation, so holdings-report lag does not purge live exposure.
	ReconcileGrace time.Duration
}

func (c *Config) applyDefaults() {
	if c.DeltaConflictTolerance == 0 {
		c.DeltaConflictTolerance = 5
	}
	if c.ReconcileGrace == 0 {
		c.ReconcileGrace = 15 * time.Minute
	}
}

type posKey struct {
	strategy risk.StrategyID
	symbol   string
}

// groupState is the incrementally maintained exposure picture for one
// correlation group. It is recomputed by diffing on open/close, never by
// full re-derivation outside reconciliation.
type groupState struct {
	count    int
	delta    float64
	notional float64
}

// Plugin admits or denies proposals based on per-group position counts,
// the combined equity-like cap, and directional conflicts, with limits
// tightened one notch when the VIX regime reaches high.
type Plugin struct {
	cfg      Config
	bus      *risk.EventBus
	provider broker.SnapshotProvider
	log      *logging.Logger

	positions map[posKey]risk.Position
	groups    map[risk.GroupID]*groupState

	lastVIX   float64
	regime    risk.VixRegime
	lastValue float64
}

func New(cfg Config, provider broker.SnapshotProvider, bus *risk.EventBus) *Plugin {
	cfg.applyDefaults()
	return &Plugin{
		cfg:       cfg,
		bus:       bus,
		provider:  provider,
		log:       logging.NewComponentLogger("correlation"),
		positions: make(map[posKey]risk.Position),
		groups:    make(map[risk.GroupID]*groupState),
		regime:    risk.RegimeNormal,
	}
}

func (p *Plugin) Name() string { return "correlation" }

func (p *Plugin) phase() risk.Phase {
	if p.cfg.FixedPhase != 0 {
		return p.cfg.FixedPhase
	}
	return risk.PhaseForValue(p.lastValue)
}

// effectiveLimit applies the volatility tightening: at regime high or above
// the base limit drops by one, floored at one.
func (p *Plugin) effectiveLimit(phase risk.Phase, group risk.GroupID) int {
	limit := LimitFor(phase, group)
	if p.regime >= risk.RegimeHigh && limit > 1 {
		limit--
	}
	return limit
}

func (p *Plugin) CanOpenPosition(req risk.Request) risk.Decision {
	group, ok := GroupFor(req.Symbol)
	if !ok {
		return risk.FailClosed("symbol %q not in correlation taxonomy", req.Symbol)
	}

	phase := p.phase()
	limit := p.effectiveLimit(phase, group)
	if limit <= 0 {
		return risk.Deny("group %s not permitted in phase %d", group, phase)
	}

	gs := p.groups[group]
	count := 0
	if gs != nil {
		count = gs.count
	}
	if count >= limit {
		return risk.Deny("correlation group %s at limit: %d/%d (phase %d, %s regime)",
			group, count, limit, phase, p.regime)
	}

	if Groups[group].EquityLike {
		combined := p.equityLikeCount()
		if combined >= CombinedEquityCap {
			return risk.Deny("combined equity exposure at cap: %d/%d across equity-like groups",
				combined, CombinedEquityCap)
		}
	}

	if gs != nil && opposed(gs.delta, req.Delta) && abs(gs.delta) > p.cfg.DeltaConflictTolerance {
		return risk.Deny("directional conflict in %s: group delta %+.1f opposes proposed %+.1f",
			group, gs.delta, req.Delta)
	}

	return risk.Approve("group %s: %d/%d positions after open (phase %d, %s regime)",
		group, count+1, limit, phase, p.regime)
}

func (p *Plugin) equityLikeCount() int {
	total := 0
	for g, meta := range Groups {
		if !meta.EquityLike {
			continue
		}
		if gs := p.groups[g]; gs != nil {
			total += gs.count
		}
	}
	return total
}

func (p *Plugin) OnPositionOpened(pos risk.Position) {
	group, ok := GroupFor(pos.Symbol)
	if !ok {
		p.log.WithField("symbol", pos.Symbol).Debug("ignoring open outside taxonomy")
		return
	}
	key := posKey{pos.Strategy, pos.Symbol}
	if prev, exists := p.positions[key]; exists {
		// Re-registration of a tracked position: replace, keeping the count.
		p.subtract(group, prev, false)
	} else {
		p.group(group).count++
	}
	p.positions[key] = pos
	gs := p.group(group)
	gs.delta += pos.Delta
	gs.notional += pos.Notional
}

func (p *Plugin) OnPositionClosed(pos risk.Position, realizedPnL float64) {
	group, ok := GroupFor(pos.Symbol)
	if !ok {
		return
	}
	key := posKey{pos.Strategy, pos.Symbol}
	tracked, exists := p.positions[key]
	if !exists {
		// Over-close or duplicate close report: a no-op, never a negative.
		return
	}
	delete(p.positions, key)
	p.subtract(group, tracked, true)
}

// subtract removes a position's contribution using the values recorded at
// open, so aggregates return to their prior baseline exactly.
func (p *Plugin) subtract(group risk.GroupID, pos risk.Position, decCount bool) {
	gs := p.group(group)
	if decCount {
		gs.count--
		if gs.count < 0 {
			gs.count = 0
		}
	}
	gs.delta -= pos.Delta
	gs.notional -= pos.Notional
	if gs.notional < 0 {
		gs.notional = 0
	}
	if gs.count == 0 {
		// No residue from float arithmetic once a group empties out.
		gs.delta = 0
		gs.notional = 0
	}
}

func (p *Plugin) group(g risk.GroupID) *groupState {
	gs := p.groups[g]
	if gs == nil {
		gs = &groupState{}
		p.groups[g] = gs
	}
	return gs
}

func (p *Plugin) OnMarketData(md risk.MarketData) {
	if md.PortfolioValue > 0 {
		p.lastValue = md.PortfolioValue
	}
	if md.VIX <= 0 {
		return
	}
	p.lastVIX = md.VIX
	next := risk.RegimeFromVIX(md.VIX)
	if next == p.regime {
		return
	}
	prev := p.regime
	p.regime = next
	level := risk.LevelInfo
	if next >= risk.RegimeHigh {
		level = risk.LevelWarning
	}
	if p.bus != nil {
		p.bus.Publish(risk.NewEvent(risk.EventRegimeChange, level,
			"VIX regime changed: "+prev.String()+" -> "+next.String(),
			map[string]any{"vix": md.VIX, "from": prev.String(), "to": next.String()},
			md.Time))
	}
}

// PeriodicCheck reconciles tracked positions against actual holdings. The
// reconciliation only diffs: tracked exposure with no matching holding
// (past the grace window) is subtracted, and real exposure with no tracked
// position is surfaced as a warning rather than fabricated.
func (p *Plugin) PeriodicCheck(ctx context.Context, now time.Time) []risk.Event {
	if p.provider == nil {
		return nil
	}
	holdings, err := p.provider.Holdings(ctx)
	if err != nil {
		p.log.Warnf("holdings snapshot unavailable, skipping reconciliation: %v", err)
		return nil
	}

	// Before the first tick carries a portfolio value, seed it from the
	// snapshot so phase derivation has something to work with.
	if p.lastValue == 0 {
		if v, err := p.provider.PortfolioValue(ctx); err == nil && v > 0 {
			p.lastValue = v
		}
	}

	held := make(map[string]bool, len(holdings))
	for _, h := range holdings {
		if h.Quantity != 0 {
			held[h.Symbol] = true
		}
	}

	var events []risk.Event
	for key, pos := range p.positions {
		if held[pos.Symbol] {
			continue
		}
		if now.Sub(pos.OpenedAt) < p.cfg.ReconcileGrace {
			continue
		}
		group, _ := GroupFor(pos.Symbol)
		delete(p.positions, key)
		p.subtract(group, pos, true)
		events = append(events, risk.NewEvent(risk.EventConcentrationWarning, risk.LevelWarning,
			"tracked position has no matching holding, removed from group "+string(group),
			map[string]any{
				"strategy": string(pos.Strategy),
				"symbol":   pos.Symbol,
				"group":    string(group),
				"delta":    pos.Delta,
			},
			now))
	}

	tracked := make(map[string]bool, len(p.positions))
	for _, pos := range p.positions {
		tracked[pos.Symbol] = true
	}
	for sym := range held {
		if _, inTaxonomy := GroupFor(sym); !inTaxonomy {
			continue
		}
		if !tracked[sym] {
			events = append(events, risk.NewEvent(risk.EventConcentrationWarning, risk.LevelWarning,
				"holding "+sym+" has no tracked position (allocation leak)",
				map[string]any{"symbol": sym},
				now))
		}
	}
	return events
}

func (p *Plugin) Metrics() map[string]any {
	groups := make(map[string]any, len(p.groups))
	for g, gs := range p.groups {
		groups[string(g)] = map[string]any{
			"count":    gs.count,
			"delta":    gs.delta,
			"notional": gs.notional,
		}
	}
	return map[string]any{
		"risk_score": p.RiskScore(),
		"regime":     p.regime.String(),
		"vix":        p.lastVIX,
		"phase":      int(p.phase()),
		"positions":  len(p.positions),
		"groups":     groups,
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
