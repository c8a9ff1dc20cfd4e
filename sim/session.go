// Package sim drives the risk coordinator through a scripted session:
// market ticks, position proposals, closes, and periodic checks, in order.
// It powers the demo CLI command and end-to-end tests.
package sim

import (
	"context"
	"fmt"
	"time"

	brokersim "github.com/KaidenAngle/TomKingTrading-sub001/broker/sim"
	"github.com/KaidenAngle/TomKingTrading-sub001/journal"
	"github.com/KaidenAngle/TomKingTrading-sub001/logging"
	"github.com/KaidenAngle/TomKingTrading-sub001/risk"
)

// MarketStep feeds one tick. Zero VIX or PortfolioValue means the feed
// does not carry that reading this tick.
type MarketStep struct {
	Symbol         string
	Price          float64
	VIX            float64
	PortfolioValue float64
}

// ProposeStep submits a position proposal through the atomic
// reserve-then-commit path. Approved proposals become simulated holdings.
type ProposeStep struct {
	Strategy     string
	Symbol       string
	PositionType string
	Delta        float64
	Contracts    int
	Notional     float64
}

// CloseStep reports a position close with its realized P&L.
type CloseStep struct {
	Strategy    string
	Symbol      string
	RealizedPnL float64
}

// Step is one scripted action. Exactly one action field should be set;
// Advance moves the session clock before the action runs.
type Step struct {
	Advance  time.Duration
	Market   *MarketStep
	Propose  *ProposeStep
	Close    *CloseStep
	Periodic bool
}

// Result records what one step did.
type Result struct {
	Step     int
	Kind     string
	Strategy string
	Symbol   string
	Decision risk.Decision
	Events   []risk.Event
	Time     time.Time
}

// Session owns the wiring between a scripted feed, the coordinator, the
// simulated broker snapshot, and an optional journal.
type Session struct {
	coord    *risk.Coordinator
	provider *brokersim.Provider
	journal  journal.Journal
	log      *logging.Logger
	clock    time.Time
}

func NewSession(coord *risk.Coordinator, provider *brokersim.Provider, j journal.Journal, start time.Time) *Session {
	return &Session{
		coord:    coord,
		provider: provider,
		journal:  j,
		log:      logging.NewComponentLogger("sim"),
		clock:    start,
	}
}

// Clock returns the session's current simulated time.
func (s *Session) Clock() time.Time { return s.clock }

// Run executes the script in order and returns one result per step.
func (s *Session) Run(ctx context.Context, script []Step) ([]Result, error) {
	results := make([]Result, 0, len(script))
	for i, step := range script {
		s.clock = s.clock.Add(step.Advance)
		res := Result{Step: i, Time: s.clock}

		switch {
		case step.Market != nil:
			res.Kind = "market"
			res.Symbol = step.Market.Symbol
			s.runMarket(*step.Market)
		case step.Propose != nil:
			res.Kind = "propose"
			res.Strategy = step.Propose.Strategy
			res.Symbol = step.Propose.Symbol
			res.Decision = s.runPropose(*step.Propose)
		case step.Close != nil:
			res.Kind = "close"
			res.Strategy = step.Close.Strategy
			res.Symbol = step.Close.Symbol
			s.runClose(*step.Close)
		case step.Periodic:
			res.Kind = "periodic"
			res.Events = s.coord.PeriodicCheck(ctx, s.clock)
		default:
			return results, fmt.Errorf("step %d: no action set", i)
		}
		results = append(results, res)

		if err := ctx.Err(); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (s *Session) runMarket(m MarketStep) {
	if m.PortfolioValue > 0 && s.provider != nil {
		s.provider.SetValue(m.PortfolioValue)
	}
	s.coord.OnMarketData(risk.MarketData{
		Symbol:         m.Symbol,
		Price:          m.Price,
		VIX:            m.VIX,
		PortfolioValue: m.PortfolioValue,
		Time:           s.clock,
	})
}

func (s *Session) runPropose(p ProposeStep) risk.Decision {
	req := risk.Request{
		Strategy:     risk.StrategyID(p.Strategy),
		Symbol:       p.Symbol,
		PositionType: p.PositionType,
		Delta:        p.Delta,
		Contracts:    p.Contracts,
		Notional:     p.Notional,
		Now:          s.clock,
	}
	d := s.coord.OpenPosition(req)
	if d.Approved() && s.provider != nil {
		qty := float64(p.Contracts)
		if qty == 0 {
			qty = p.Delta
		}
		s.provider.SetHolding(p.Symbol, qty, 0)
	}
	s.record(journal.DecisionRecord{
		Strategy: p.Strategy,
		Symbol:   p.Symbol,
		Outcome:  d.Outcome.String(),
		Approved: d.Approved(),
		Reason:   d.Reason,
		Time:     s.clock,
	})
	return d
}

func (s *Session) runClose(c CloseStep) {
	s.coord.NotifyClosed(risk.Position{
		Strategy: risk.StrategyID(c.Strategy),
		Symbol:   c.Symbol,
	}, c.RealizedPnL)
	if s.provider != nil {
		s.provider.RemoveHolding(c.Symbol)
	}
}

func (s *Session) record(rec journal.DecisionRecord) {
	if s.journal == nil {
		return
	}
	if err := s.journal.RecordDecision(rec); err != nil {
		s.log.Warnf("journal decision: %v", err)
	}
}
