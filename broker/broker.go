// Package broker defines the engine's view of the portfolio/broker
// collaborator: a point-in-time snapshot of actual holdings and account
// value. Snapshots serve reconciliation and seed the portfolio value before
// the first tick carries one; the market feed stays the primary source of
// truth for admission decisions.
package broker

import "context"

// Holding is one actually-held exposure as reported by the broker.
type Holding struct {
	Symbol   string
	Quantity float64
	AvgPrice float64
}

// SnapshotProvider is the injectable port the plugins reconcile against.
// Implementations may do I/O; callers pass a context.
type SnapshotProvider interface {
	Holdings(ctx context.Context) ([]Holding, error)
	PortfolioValue(ctx context.Context) (float64, error)
}
