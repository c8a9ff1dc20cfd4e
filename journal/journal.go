// journal/journal.go
package journal

import (
	"time"

	"github.com/KaidenAngle/TomKingTrading-sub001/risk"
)

// DecisionRecord is one admission decision as journaled for audit. Every
// denial reason is preserved verbatim.
type DecisionRecord struct {
	ID       string
	Strategy string
	Symbol   string
	Outcome  string
	Approved bool
	Reason   string
	Time     time.Time
}

// Journal persists the risk-event stream and admission decisions for
// external observability. This is write-only audit output; the engine
// never reads it back to rebuild state.
type Journal interface {
	RecordEvent(risk.Event) error
	RecordDecision(DecisionRecord) error
	Close() error
}
