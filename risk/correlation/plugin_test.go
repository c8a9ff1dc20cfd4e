package correlation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	brokersim "github.com/KaidenAngle/TomKingTrading-sub001/broker/sim"
	"github.com/KaidenAngle/TomKingTrading-sub001/risk"
)

func newPhase2Plugin() *Plugin {
	return New(Config{FixedPhase: risk.Phase2}, nil, risk.NewEventBus())
}

func open(p *Plugin, strategy, symbol string, delta, notional float64) {
	p.OnPositionOpened(risk.Position{
		Strategy: risk.StrategyID(strategy),
		Symbol:   symbol,
		Delta:    delta,
		Notional: notional,
		OpenedAt: time.Now().UTC(),
	})
}

func TestUnknownSymbolFailsClosed(t *testing.T) {
	t.Parallel()

	p := newPhase2Plugin()
	d := p.CanOpenPosition(risk.Request{Strategy: "s1", Symbol: "XYZ"})
	assert.False(t, d.Approved())
	assert.Equal(t, risk.OutcomeUnresolvable, d.Outcome)
	assert.Contains(t, d.Reason, "XYZ")
}

// Phase-2 account, futures group limit 2: two approvals, then a denial
// citing 2/2.
func TestGroupLimitPhase2(t *testing.T) {
	t.Parallel()

	p := newPhase2Plugin()

	d1 := p.CanOpenPosition(risk.Request{Strategy: "s1", Symbol: "ES", Delta: 10})
	require.True(t, d1.Approved())
	assert.Contains(t, d1.Reason, "1/2")
	open(p, "s1", "ES", 10, 5000)

	d2 := p.CanOpenPosition(risk.Request{Strategy: "s2", Symbol: "NQ", Delta: 8})
	require.True(t, d2.Approved())
	assert.Contains(t, d2.Reason, "2/2")
	open(p, "s2", "NQ", 8, 4000)

	d3 := p.CanOpenPosition(risk.Request{Strategy: "s3", Symbol: "RTY", Delta: 6})
	assert.False(t, d3.Approved())
	assert.Contains(t, d3.Reason, "2/2")
}

// VIX rising into the high regime reduces the effective limit by one.
func TestVIXTighteningMidSession(t *testing.T) {
	t.Parallel()

	p := newPhase2Plugin()
	open(p, "s1", "ES", 10, 5000)

	d := p.CanOpenPosition(risk.Request{Strategy: "s2", Symbol: "NQ", Delta: 8})
	require.True(t, d.Approved(), "base limit 2 with one position has headroom")

	p.OnMarketData(risk.MarketData{Symbol: "VIX", Price: 27, VIX: 27, Time: time.Now().UTC()})

	d = p.CanOpenPosition(risk.Request{Strategy: "s2", Symbol: "NQ", Delta: 8})
	assert.False(t, d.Approved())
	assert.Contains(t, d.Reason, "1/1")
	assert.Contains(t, d.Reason, "high")
}

func TestEffectiveLimitFloorsAtOne(t *testing.T) {
	t.Parallel()

	p := New(Config{FixedPhase: risk.Phase1}, nil, risk.NewEventBus())
	p.OnMarketData(risk.MarketData{VIX: 35, Time: time.Now().UTC()})

	// Base limit 1 must not drop to 0 under extreme volatility.
	d := p.CanOpenPosition(risk.Request{Strategy: "s1", Symbol: "ES", Delta: 5})
	assert.True(t, d.Approved())
}

// The combined cap across the two equity-like groups holds regardless of
// individual group headroom.
func TestCombinedEquityCap(t *testing.T) {
	t.Parallel()

	p := New(Config{FixedPhase: risk.Phase4}, nil, risk.NewEventBus())
	open(p, "s1", "ES", 10, 5000)
	open(p, "s2", "NQ", 8, 4000)
	open(p, "s3", "SPY", 20, 6000)

	d := p.CanOpenPosition(risk.Request{Strategy: "s4", Symbol: "QQQ", Delta: 15})
	assert.False(t, d.Approved())
	assert.Contains(t, d.Reason, "3/3")

	// Non-equity groups are unaffected by the combined cap.
	d = p.CanOpenPosition(risk.Request{Strategy: "s4", Symbol: "GC", Delta: -5})
	assert.True(t, d.Approved())
}

func TestDirectionalConflict(t *testing.T) {
	t.Parallel()

	p := newPhase2Plugin()
	open(p, "s1", "GC", -10, 7000)

	d := p.CanOpenPosition(risk.Request{Strategy: "s2", Symbol: "GLD", Delta: 8})
	assert.False(t, d.Approved())
	assert.Contains(t, d.Reason, "directional conflict")

	// Same direction is fine.
	d = p.CanOpenPosition(risk.Request{Strategy: "s2", Symbol: "GLD", Delta: -3})
	assert.True(t, d.Approved())
}

func TestConflictToleranceAllowsSmallOpposition(t *testing.T) {
	t.Parallel()

	p := newPhase2Plugin()
	open(p, "s1", "GC", -4, 7000) // within the ±5 tolerance

	d := p.CanOpenPosition(risk.Request{Strategy: "s2", Symbol: "GLD", Delta: 8})
	assert.True(t, d.Approved())
}

// Closing restores the group aggregates to their prior baseline exactly; a
// duplicate close is a no-op.
func TestCloseRestoresBaselineAndDoubleCloseIsNoOp(t *testing.T) {
	t.Parallel()

	p := newPhase2Plugin()
	open(p, "s1", "GC", -10, 7000)

	gs := p.groups[GroupSafeHaven]
	require.NotNil(t, gs)
	assert.Equal(t, 1, gs.count)
	assert.Equal(t, -10.0, gs.delta)

	pos := risk.Position{Strategy: "s1", Symbol: "GC"}
	p.OnPositionClosed(pos, 500)
	assert.Equal(t, 0, gs.count)
	assert.Equal(t, 0.0, gs.delta)
	assert.Equal(t, 0.0, gs.notional)

	p.OnPositionClosed(pos, 500)
	assert.Equal(t, 0, gs.count, "double close must not go negative")
	assert.Equal(t, 0.0, gs.delta)
	assert.Equal(t, 0.0, gs.notional)
}

func TestPhaseDerivedFromPortfolioValue(t *testing.T) {
	t.Parallel()

	p := New(Config{}, nil, risk.NewEventBus())
	p.OnMarketData(risk.MarketData{PortfolioValue: 30_000, Time: time.Now().UTC()})
	assert.Equal(t, risk.Phase1, p.phase())

	p.OnMarketData(risk.MarketData{PortfolioValue: 80_000, Time: time.Now().UTC()})
	assert.Equal(t, risk.Phase4, p.phase())
}

func TestRegimeChangeEmitsEvent(t *testing.T) {
	t.Parallel()

	bus := risk.NewEventBus()
	var events []risk.Event
	bus.SubscribeFunc(func(e risk.Event) { events = append(events, e) })

	p := New(Config{FixedPhase: risk.Phase2}, nil, bus)
	p.OnMarketData(risk.MarketData{VIX: 27, Time: time.Now().UTC()})

	require.Len(t, events, 1)
	assert.Equal(t, risk.EventRegimeChange, events[0].Type)
	assert.Equal(t, risk.LevelWarning, events[0].Level)
	assert.Contains(t, events[0].Message, "high")

	// Same regime again: no event.
	p.OnMarketData(risk.MarketData{VIX: 26, Time: time.Now().UTC()})
	assert.Len(t, events, 1)
}

func TestReconciliationRemovesUnheldPositions(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	provider := brokersim.NewProvider(50_000)
	p := New(Config{FixedPhase: risk.Phase2}, provider, risk.NewEventBus())

	p.OnPositionOpened(risk.Position{
		Strategy: "s1", Symbol: "ES", Delta: 10, Notional: 5000,
		OpenedAt: now.Add(-time.Hour),
	})

	events := p.PeriodicCheck(context.Background(), now)
	require.Len(t, events, 1)
	assert.Equal(t, risk.EventConcentrationWarning, events[0].Type)

	gs := p.groups[GroupEquityIndexFutures]
	assert.Equal(t, 0, gs.count)
	assert.Equal(t, 0.0, gs.delta)

	// Second pass over the already-removed position is a no-op.
	events = p.PeriodicCheck(context.Background(), now)
	assert.Empty(t, events)
}

func TestReconciliationGraceWindow(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	provider := brokersim.NewProvider(50_000)
	p := New(Config{FixedPhase: risk.Phase2}, provider, risk.NewEventBus())

	// Opened moments ago: the holdings report may simply lag.
	p.OnPositionOpened(risk.Position{
		Strategy: "s1", Symbol: "ES", Delta: 10, Notional: 5000,
		OpenedAt: now.Add(-time.Minute),
	})

	events := p.PeriodicCheck(context.Background(), now)
	assert.Empty(t, events)
	assert.Equal(t, 1, p.groups[GroupEquityIndexFutures].count)
}

func TestReconciliationFlagsAllocationLeak(t *testing.T) {
	t.Parallel()

	provider := brokersim.NewProvider(50_000)
	provider.SetHolding("SPY", 100, 450)
	p := New(Config{FixedPhase: risk.Phase2}, provider, risk.NewEventBus())

	events := p.PeriodicCheck(context.Background(), time.Now().UTC())
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Message, "SPY")
	assert.Contains(t, events[0].Message, "leak")

	// The leak is surfaced, never fabricated into tracking.
	assert.Empty(t, p.positions)
}

// With no tick seen yet, reconciliation seeds the portfolio value from the
// broker snapshot, so phase derivation does not sit at phase 1 forever.
func TestReconciliationSeedsPortfolioValue(t *testing.T) {
	t.Parallel()

	provider := brokersim.NewProvider(80_000)
	p := New(Config{}, provider, risk.NewEventBus())
	require.Equal(t, risk.Phase1, p.phase())

	p.PeriodicCheck(context.Background(), time.Now().UTC())
	assert.Equal(t, risk.Phase4, p.phase())
}

func TestRiskScore(t *testing.T) {
	t.Parallel()

	p := newPhase2Plugin()
	assert.Equal(t, 0.0, p.RiskScore(), "no exposure scores zero")

	open(p, "s1", "ES", 10, 5000)
	open(p, "s2", "SPY", 20, 5000)
	concentrated := p.RiskScore()
	assert.Greater(t, concentrated, 0.0)
	assert.LessOrEqual(t, concentrated, 100.0)

	// Diversifying into weakly correlated groups lowers the score.
	p2 := newPhase2Plugin()
	open(p2, "s1", "ES", 10, 2500)
	open(p2, "s2", "GC", -5, 2500)
	open(p2, "s3", "ZC", 3, 2500)
	open(p2, "s4", "6E", 2, 2500)
	assert.Less(t, p2.RiskScore(), concentrated)
}

func TestMetricsReadOnly(t *testing.T) {
	t.Parallel()

	p := newPhase2Plugin()
	open(p, "s1", "ES", 10, 5000)

	before := p.groups[GroupEquityIndexFutures].count
	m := p.Metrics()
	assert.Equal(t, before, p.groups[GroupEquityIndexFutures].count)
	assert.Contains(t, m, "risk_score")
	assert.Contains(t, m, "groups")
}
