package risk

import (
	"sync"
	"time"

	"github.com/KaidenAngle/TomKingTrading-sub001/pkg/id"
)

// EventType enumerates the risk-event stream vocabulary.
type EventType string

const (
	EventThresholdBreach      EventType = "threshold_breach"
	EventCircuitTrip          EventType = "circuit_trip"
	EventRegimeChange         EventType = "regime_change"
	EventRecovery             EventType = "recovery"
	EventConcentrationWarning EventType = "concentration_warning"
)

// Level is the severity of a risk event.
type Level string

const (
	LevelInfo      Level = "info"
	LevelWarning   Level = "warning"
	LevelCritical  Level = "critical"
	LevelEmergency Level = "emergency"
)

// Event is one entry on the risk-event stream. Events are immutable once
// emitted; observers consume them, never mutate them.
type Event struct {
	ID      string
	Type    EventType
	Level   Level
	Message string
	Payload map[string]any
	Time    time.Time
}

// NewEvent builds an event with a fresh ULID so the stream stays
// time-sortable across plugins.
func NewEvent(t EventType, level Level, msg string, payload map[string]any, now time.Time) Event {
	return Event{
		ID:      id.New(),
		Type:    t,
		Level:   level,
		Message: msg,
		Payload: payload,
		Time:    now,
	}
}

// EventSink receives emitted events.
type EventSink interface {
	Publish(Event)
}

// EventFunc adapts a function to the EventSink interface.
type EventFunc func(Event)

func (f EventFunc) Publish(e Event) { f(e) }

// EventBus fans events out to subscribers in subscription order. Plugins
// publish regime changes and circuit trips directly; the coordinator
// republishes everything returned by periodic checks.
type EventBus struct {
	mu   sync.Mutex
	subs []EventSink
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

func (b *EventBus) Subscribe(s EventSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, s)
}

func (b *EventBus) SubscribeFunc(f func(Event)) {
	b.Subscribe(EventFunc(f))
}

func (b *EventBus) Publish(e Event) {
	b.mu.Lock()
	subs := make([]EventSink, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.Publish(e)
	}
}
