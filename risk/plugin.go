package risk

import (
	"context"
	"time"
)

// Request is a proposed position change submitted by a strategy caller.
type Request struct {
	Strategy     StrategyID
	Symbol       string
	PositionType string // e.g. "strangle", "futures", "long_call"
	Delta        float64
	Contracts    int
	Notional     float64
	Now          time.Time
}

// Position is an opened exposure as reported back to the engine. It is the
// record plugins bookkeep against; each plugin keeps its own copy of
// whatever it needs, never shared mutable state.
type Position struct {
	Strategy  StrategyID
	Symbol    string
	Delta     float64
	Contracts int
	Notional  float64
	OpenedAt  time.Time
}

// Plugin is the contract every risk policy implements. The coordinator
// serializes all calls, so implementations may assume they run under one
// global critical section and must never leave partial updates observable
// mid-call.
//
// CanOpenPosition must have zero side effects on the deny path. Open and
// close notifications arrive unconditionally, even for positions a plugin
// voted against: a position may have been opened outside this engine and
// still has to be tracked once reported.
type Plugin interface {
	Name() string
	CanOpenPosition(req Request) Decision
	OnPositionOpened(pos Position)
	OnPositionClosed(pos Position, realizedPnL float64)
	OnMarketData(md MarketData)

	// PeriodicCheck runs reconciliation and recovery logic and returns the
	// events it produced, in order. The ctx covers any snapshot-provider
	// I/O; nothing here blocks otherwise.
	PeriodicCheck(ctx context.Context, now time.Time) []Event

	// Metrics returns a read-only snapshot of the plugin's view of risk.
	// It must not mutate state.
	Metrics() map[string]any
}
