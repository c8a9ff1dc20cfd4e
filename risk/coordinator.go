package risk

import (
	"context"
	"sync"
	"time"

	"github.com/KaidenAngle/TomKingTrading-sub001/logging"
)

// Coordinator composes the registered policy plugins behind one contract.
// A proposal is admitted only if every plugin approves; the first denial
// short-circuits and its reason is surfaced verbatim. Plugins are evaluated
// in registration order, which is fixed, so results are reproducible.
//
// The coordinator holds one mutex across every operation. The engine is
// designed for a single-threaded callback-driven host, but multiple
// strategy callers may propose within the same evaluation cycle; the lock
// plus OpenPosition give those callers an atomic reserve-then-commit path.
type Coordinator struct {
	mu      sync.Mutex
	plugins []Plugin
	bus     *EventBus
	log     *logging.Logger
}

func NewCoordinator(bus *EventBus) *Coordinator {
	if bus == nil {
		bus = NewEventBus()
	}
	return &Coordinator{
		bus: bus,
		log: logging.NewComponentLogger("coordinator"),
	}
}

// Bus returns the event bus the coordinator republishes on.
func (c *Coordinator) Bus() *EventBus { return c.bus }

// Register appends a plugin. Registration order is evaluation order; the
// circuit breaker should be registered first so its veto short-circuits.
func (c *Coordinator) Register(p Plugin) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plugins = append(c.plugins, p)
}

// CanOpenPosition asks every plugin whether the proposal is admissible.
// The check has no side effects; callers that act on an approval must
// follow up with NotifyOpened, or use OpenPosition to do both atomically.
func (c *Coordinator) CanOpenPosition(req Request) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkAll(req)
}

// OpenPosition is the atomic reserve-then-commit variant: it checks every
// plugin and, if approved, registers the exposure with all of them before
// returning. Two proposals interleaving between check and commit can no
// longer both pass against the same headroom.
func (c *Coordinator) OpenPosition(req Request) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := c.checkAll(req)
	if !d.Approved() {
		return d
	}
	pos := Position{
		Strategy:  req.Strategy,
		Symbol:    req.Symbol,
		Delta:     req.Delta,
		Contracts: req.Contracts,
		Notional:  req.Notional,
		OpenedAt:  req.Now,
	}
	c.broadcastOpened(pos)
	return d
}

func (c *Coordinator) checkAll(req Request) Decision {
	for _, p := range c.plugins {
		d := c.safeCheck(p, req)
		if !d.Approved() {
			return d
		}
	}
	return Approve("all %d risk plugins approved %s for %s", len(c.plugins), req.Symbol, req.Strategy)
}

// safeCheck converts a plugin panic into a fail-closed denial. A plugin
// internal fault must never crash the host's per-tick loop, and must never
// be swallowed as an approval.
func (c *Coordinator) safeCheck(p Plugin, req Request) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("plugin", p.Name()).Warnf("plugin fault during admission check: %v", r)
			d = FailClosed("plugin %s internal fault: %v", p.Name(), r)
		}
	}()
	return p.CanOpenPosition(req)
}

// NotifyOpened broadcasts an opened position to every plugin, including
// ones that denied it.
func (c *Coordinator) NotifyOpened(pos Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcastOpened(pos)
}

func (c *Coordinator) broadcastOpened(pos Position) {
	for _, p := range c.plugins {
		c.safeNotify(p, func() { p.OnPositionOpened(pos) })
	}
}

// NotifyClosed broadcasts a closed position and its realized P&L.
func (c *Coordinator) NotifyClosed(pos Position, realizedPnL float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.plugins {
		c.safeNotify(p, func() { p.OnPositionClosed(pos, realizedPnL) })
	}
}

// OnMarketData fans a tick out to every plugin.
func (c *Coordinator) OnMarketData(md MarketData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.plugins {
		c.safeNotify(p, func() { p.OnMarketData(md) })
	}
}

func (c *Coordinator) safeNotify(p Plugin, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("plugin", p.Name()).Warnf("plugin fault during notification: %v", r)
		}
	}()
	fn()
}

// PeriodicCheck runs every plugin's reconciliation/recovery pass, publishes
// the produced events on the bus in plugin order, and returns the merged
// stream.
func (c *Coordinator) PeriodicCheck(ctx context.Context, now time.Time) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	var merged []Event
	for _, p := range c.plugins {
		evs := c.safePeriodic(ctx, p, now)
		for _, e := range evs {
			c.bus.Publish(e)
		}
		merged = append(merged, evs...)
	}
	return merged
}

func (c *Coordinator) safePeriodic(ctx context.Context, p Plugin, now time.Time) (evs []Event) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("plugin", p.Name()).Warnf("plugin fault during periodic check: %v", r)
		}
	}()
	return p.PeriodicCheck(ctx, now)
}

// Snapshot is the composite read-only risk picture for dashboards.
type Snapshot struct {
	Time    time.Time
	Plugins map[string]map[string]any
}

// Metrics assembles a snapshot of every plugin's metrics. It never mutates
// engine state.
func (c *Coordinator) Metrics() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Time:    time.Now().UTC(),
		Plugins: make(map[string]map[string]any, len(c.plugins)),
	}
	for _, p := range c.plugins {
		snap.Plugins[p.Name()] = p.Metrics()
	}
	return snap
}

// PluginNames reports the registered evaluation order.
func (c *Coordinator) PluginNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.plugins))
	for i, p := range c.plugins {
		names[i] = p.Name()
	}
	return names
}
