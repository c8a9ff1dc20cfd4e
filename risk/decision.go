package risk

import "fmt"

// Outcome distinguishes the three ways an admission check can end. An
// unresolvable input (unknown symbol, missing market data) is its own
// outcome so that fail-closed behavior is explicit rather than an
// incidental catch-all.
type Outcome int

const (
	OutcomeApproved Outcome = iota
	OutcomeDenied
	OutcomeUnresolvable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApproved:
		return "approved"
	case OutcomeDenied:
		return "denied"
	case OutcomeUnresolvable:
		return "unresolvable"
	default:
		return "unknown"
	}
}

// Decision is the result of an admission check. Every denial carries a
// specific, auditable reason.
type Decision struct {
	Outcome Outcome
	Reason  string
}

// Approved reports whether the proposal may proceed. Both Denied and
// Unresolvable answer false.
func (d Decision) Approved() bool {
	return d.Outcome == OutcomeApproved
}

func (d Decision) String() string {
	return fmt.Sprintf("%s: %s", d.Outcome, d.Reason)
}

func Approve(format string, args ...any) Decision {
	return Decision{Outcome: OutcomeApproved, Reason: fmt.Sprintf(format, args...)}
}

func Deny(format string, args ...any) Decision {
	return Decision{Outcome: OutcomeDenied, Reason: fmt.Sprintf(format, args...)}
}

// FailClosed denies a proposal the engine could not confidently classify.
func FailClosed(format string, args ...any) Decision {
	return Decision{Outcome: OutcomeUnresolvable, Reason: fmt.Sprintf(format, args...)}
}
