package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlugin is a scriptable plugin for coordinator tests.
type fakePlugin struct {
	name      string
	decision  Decision
	panicOn   bool
	opened    []Position
	closed    []Position
	ticks     []MarketData
	periodics []Event
	checks    int
}

func (f *fakePlugin) Name() string { return f.name }

func (f *fakePlugin) CanOpenPosition(req Request) Decision {
	f.checks++
	if f.panicOn {
		panic("boom")
	}
	return f.decision
}

func (f *fakePlugin) OnPositionOpened(pos Position)                  { f.opened = append(f.opened, pos) }
func (f *fakePlugin) OnPositionClosed(pos Position, pnl float64)     { f.closed = append(f.closed, pos) }
func (f *fakePlugin) OnMarketData(md MarketData)                     { f.ticks = append(f.ticks, md) }
func (f *fakePlugin) Metrics() map[string]any                        { return map[string]any{"name": f.name} }
func (f *fakePlugin) PeriodicCheck(_ context.Context, _ time.Time) []Event {
	return f.periodics
}

func TestCoordinatorANDSemantics(t *testing.T) {
	t.Parallel()

	approve := &fakePlugin{name: "a", decision: Approve("ok")}
	deny := &fakePlugin{name: "b", decision: Deny("group at limit: 2/2")}
	after := &fakePlugin{name: "c", decision: Approve("ok")}

	c := NewCoordinator(nil)
	c.Register(approve)
	c.Register(deny)
	c.Register(after)

	d := c.CanOpenPosition(Request{Symbol: "ES"})
	assert.False(t, d.Approved())
	assert.Equal(t, "group at limit: 2/2", d.Reason, "denial reason surfaces verbatim")
	assert.Equal(t, 1, approve.checks)
	assert.Equal(t, 1, deny.checks)
	assert.Equal(t, 0, after.checks, "first denial short-circuits")
}

func TestCoordinatorAllApprove(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(nil)
	c.Register(&fakePlugin{name: "a", decision: Approve("ok")})
	c.Register(&fakePlugin{name: "b", decision: Approve("ok")})

	d := c.CanOpenPosition(Request{Symbol: "ES", Strategy: "s1"})
	assert.True(t, d.Approved())
	assert.Contains(t, d.Reason, "2 risk plugins")
}

func TestCoordinatorPanicFailsClosed(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(nil)
	c.Register(&fakePlugin{name: "faulty", panicOn: true})

	d := c.CanOpenPosition(Request{Symbol: "ES"})
	assert.False(t, d.Approved())
	assert.Equal(t, OutcomeUnresolvable, d.Outcome)
	assert.Contains(t, d.Reason, "faulty")
}

func TestCoordinatorBroadcastsToDenier(t *testing.T) {
	t.Parallel()

	denier := &fakePlugin{name: "denier", decision: Deny("no")}
	c := NewCoordinator(nil)
	c.Register(denier)

	pos := Position{Strategy: "s1", Symbol: "ES"}
	c.NotifyOpened(pos)
	c.NotifyClosed(pos, -100)

	require.Len(t, denier.opened, 1)
	require.Len(t, denier.closed, 1)
	assert.Equal(t, pos.Symbol, denier.opened[0].Symbol)
}

// capacityPlugin approves until one position has been registered. Used to
// prove OpenPosition commits atomically with the check.
type capacityPlugin struct {
	fakePlugin
	capacity int
}

func (p *capacityPlugin) CanOpenPosition(req Request) Decision {
	if len(p.opened) >= p.capacity {
		return Deny("at capacity: %d/%d", len(p.opened), p.capacity)
	}
	return Approve("capacity ok")
}

func TestOpenPositionReserveThenCommit(t *testing.T) {
	t.Parallel()

	p := &capacityPlugin{fakePlugin: fakePlugin{name: "cap"}, capacity: 1}
	c := NewCoordinator(nil)
	c.Register(p)

	first := c.OpenPosition(Request{Strategy: "s1", Symbol: "ES", Delta: 10})
	second := c.OpenPosition(Request{Strategy: "s2", Symbol: "ES", Delta: 10})

	assert.True(t, first.Approved())
	assert.False(t, second.Approved(), "commit happened before the second check")
	assert.Contains(t, second.Reason, "at capacity: 1/1")
	assert.Len(t, p.opened, 1)
}

func TestOpenPositionDenyHasNoSideEffects(t *testing.T) {
	t.Parallel()

	denier := &fakePlugin{name: "denier", decision: Deny("no")}
	c := NewCoordinator(nil)
	c.Register(denier)

	d := c.OpenPosition(Request{Strategy: "s1", Symbol: "ES"})
	assert.False(t, d.Approved())
	assert.Empty(t, denier.opened, "denied proposal must not register exposure")
}

func TestPeriodicCheckMergesAndPublishes(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	e1 := NewEvent(EventConcentrationWarning, LevelWarning, "w1", nil, now)
	e2 := NewEvent(EventRecovery, LevelInfo, "r1", nil, now)

	bus := NewEventBus()
	var published []string
	bus.SubscribeFunc(func(e Event) { published = append(published, e.Message) })

	c := NewCoordinator(bus)
	c.Register(&fakePlugin{name: "a", periodics: []Event{e1}})
	c.Register(&fakePlugin{name: "b", periodics: []Event{e2}})

	merged := c.PeriodicCheck(context.Background(), now)
	require.Len(t, merged, 2)
	assert.Equal(t, "w1", merged[0].Message, "plugin order preserved")
	assert.Equal(t, "r1", merged[1].Message)
	assert.Equal(t, []string{"w1", "r1"}, published)
}

func TestMetricsSnapshot(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(nil)
	c.Register(&fakePlugin{name: "a", decision: Approve("ok")})
	c.Register(&fakePlugin{name: "b", decision: Approve("ok")})

	snap := c.Metrics()
	assert.Len(t, snap.Plugins, 2)
	assert.Equal(t, "a", snap.Plugins["a"]["name"])
	assert.Equal(t, []string{"a", "b"}, c.PluginNames())
}
