// Package breaker implements the capital-preservation circuit breaker: a
// two-state machine (enabled/triggered) that vetoes every new admission
// once loss, drawdown, or losing-streak thresholds are breached.
package breaker

import (
	"context"
	"fmt"
	"time"

	"github.com/KaidenAngle/TomKingTrading-sub001/logging"
	"github.com/KaidenAngle/TomKingTrading-sub001/risk"
)

type Config struct {
	MaxDailyLossPct        float64       // daily loss vs day anchor
	MaxWeeklyLossPct       float64       // weekly loss vs week anchor
	MaxMonthlyLossPct      float64       // monthly loss vs month anchor
	MaxIntradayDrawdownPct float64       // drawdown from intraday high-water mark
	MaxConsecutiveLosses   int           // losing closes in a row
	MaxLossRate            float64       // losses_today / trades_today
	MinLossesForRate       int           // loss-rate check needs this many losses
	RecoveryWait           time.Duration // minimum time tripped
	RecoveryThresholdPct   float64       // value vs day anchor required to re-enable
}

func DefaultConfig() Config {
	return Config{
		MaxDailyLossPct:        0.05,
		MaxWeeklyLossPct:       0.10,
		MaxMonthlyLossPct:      0.15,
		MaxIntradayDrawdownPct: 0.03,
		MaxConsecutiveLosses:   3,
		MaxLossRate:            0.50,
		MinLossesForRate:       3,
		RecoveryWait:           24 * time.Hour,
		RecoveryThresholdPct:   0.98,
	}
}

// Breaker tracks daily/weekly/monthly anchors, the intraday high-water
// mark, and streak counters. Anchors start at the portfolio value seen at
// construction and reset once per calendar boundary crossing.
type Breaker struct {
	cfg Config
	bus *risk.EventBus
	log *logging.Logger

	tradingEnabled bool
	triggered      bool
	triggerReason  string
	triggerTime    time.Time

	dailyAnchor   float64
	weeklyAnchor  float64
	monthlyAnchor float64
	highWaterMark float64
	lastValue     float64

	consecutiveLosses int
	tradesToday       int
	lossesToday       int
	totalTrades       int
	totalLosses       int

	lastSeen time.Time
}

func New(cfg Config, startValue float64, now time.Time, bus *risk.EventBus) *Breaker {
	return &Breaker{
		cfg:            cfg,
		bus:            bus,
		log:            logging.NewComponentLogger("breaker"),
		tradingEnabled: true,
		dailyAnchor:    startValue,
		weeklyAnchor:   startValue,
		monthlyAnchor:  startValue,
		highWaterMark:  startValue,
		lastValue:      startValue,
		lastSeen:       now,
	}
}

func (b *Breaker) Name() string { return "breaker" }

func (b *Breaker) Triggered() bool { return b.triggered }

func (b *Breaker) CanOpenPosition(req risk.Request) risk.Decision {
	if b.triggered {
		return risk.Deny("circuit breaker tripped: %s (since %s)",
			b.triggerReason, b.triggerTime.Format(time.RFC3339))
	}
	return risk.Approve("capital preservation checks passed")
}

func (b *Breaker) OnPositionOpened(pos risk.Position) {
	// Opens do not move P&L; nothing to track until the close.
}

// OnPositionClosed updates the streak and daily tallies, then re-evaluates
// every limit. A win resets the streak; any loss extends it.
func (b *Breaker) OnPositionClosed(pos risk.Position, realizedPnL float64) {
	b.tradesToday++
	b.totalTrades++
	if realizedPnL < 0 {
		b.consecutiveLosses++
		b.lossesToday++
		b.totalLosses++
	} else {
		b.consecutiveLosses = 0
	}
	b.checkAllLimits(b.lastSeen)
}

// OnMarketData rolls calendar anchors, advances the high-water mark
// (monotonically non-decreasing within the day), and re-checks limits.
func (b *Breaker) OnMarketData(md risk.MarketData) {
	if md.PortfolioValue <= 0 {
		return
	}
	b.rollCalendar(md.Time, md.PortfolioValue)
	b.lastValue = md.PortfolioValue
	if md.PortfolioValue > b.highWaterMark {
		b.highWaterMark = md.PortfolioValue
	}
	b.checkAllLimits(md.Time)
}

// rollCalendar resets anchors exactly once per boundary crossing, detected
// by comparing dates rather than by timers.
func (b *Breaker) rollCalendar(now time.Time, value float64) {
	ly, lm, ld := b.lastSeen.Date()
	ny, nm, nd := now.Date()
	sameDay := ly == ny && lm == nm && ld == nd
	if !sameDay {
		b.dailyAnchor = value
		b.highWaterMark = value
		b.tradesToday = 0
		b.lossesToday = 0

		lyw, lw := b.lastSeen.ISOWeek()
		nyw, nw := now.ISOWeek()
		if lyw != nyw || lw != nw {
			b.weeklyAnchor = value
		}
		if ly != ny || lm != nm {
			b.monthlyAnchor = value
		}
	}
	b.lastSeen = now
}

func (b *Breaker) checkAllLimits(now time.Time) {
	if b.triggered {
		return
	}

	if b.dailyAnchor > 0 {
		pct := (b.lastValue - b.dailyAnchor) / b.dailyAnchor
		if pct < -b.cfg.MaxDailyLossPct {
			b.trip(fmt.Sprintf("daily loss %.2f%% < -%.2f%%", pct*100, b.cfg.MaxDailyLossPct*100), now)
			return
		}
	}
	if b.weeklyAnchor > 0 {
		pct := (b.lastValue - b.weeklyAnchor) / b.weeklyAnchor
		if pct < -b.cfg.MaxWeeklyLossPct {
			b.trip(fmt.Sprintf("weekly loss %.2f%% < -%.2f%%", pct*100, b.cfg.MaxWeeklyLossPct*100), now)
			return
		}
	}
	if b.monthlyAnchor > 0 {
		pct := (b.lastValue - b.monthlyAnchor) / b.monthlyAnchor
		if pct < -b.cfg.MaxMonthlyLossPct {
			b.trip(fmt.Sprintf("monthly loss %.2f%% < -%.2f%%", pct*100, b.cfg.MaxMonthlyLossPct*100), now)
			return
		}
	}
	if b.highWaterMark > 0 {
		dd := (b.highWaterMark - b.lastValue) / b.highWaterMark
		if dd > b.cfg.MaxIntradayDrawdownPct {
			b.trip(fmt.Sprintf("intraday drawdown %.2f%% > %.2f%% from high-water mark", dd*100, b.cfg.MaxIntradayDrawdownPct*100), now)
			return
		}
	}
	if b.consecutiveLosses >= b.cfg.MaxConsecutiveLosses {
		b.trip(fmt.Sprintf("%d consecutive losing trades", b.consecutiveLosses), now)
		return
	}
	if b.tradesToday > 0 && b.lossesToday >= b.cfg.MinLossesForRate {
		rate := float64(b.lossesToday) / float64(b.tradesToday)
		if rate > b.cfg.MaxLossRate {
			b.trip(fmt.Sprintf("loss rate %.0f%% > %.0f%% with %d losses today", rate*100, b.cfg.MaxLossRate*100, b.lossesToday), now)
			return
		}
	}
}

func (b *Breaker) trip(reason string, now time.Time) {
	b.triggered = true
	b.tradingEnabled = false
	b.triggerReason = reason
	b.triggerTime = now
	b.log.WithField("reason", reason).Error("circuit breaker tripped, all admissions disabled")
	if b.bus != nil {
		b.bus.Publish(risk.NewEvent(risk.EventCircuitTrip, risk.LevelEmergency,
			"circuit breaker tripped: "+reason,
			map[string]any{
				"reason":       reason,
				"value":        b.lastValue,
				"daily_anchor": b.dailyAnchor,
			},
			now))
	}
}

// PeriodicCheck evaluates recovery by polling wall-clock time: re-enable
// only after the wait has elapsed AND the portfolio is back within the
// recovery threshold of the daily anchor. Re-entry resets the losing
// streak but keeps the historical trade tally.
func (b *Breaker) PeriodicCheck(ctx context.Context, now time.Time) []risk.Event {
	if !b.triggered {
		return nil
	}
	if now.Sub(b.triggerTime) < b.cfg.RecoveryWait {
		return nil
	}
	if b.dailyAnchor <= 0 || b.lastValue < b.cfg.RecoveryThresholdPct*b.dailyAnchor {
		return nil
	}

	b.triggered = false
	b.tradingEnabled = true
	b.consecutiveLosses = 0
	reason := b.triggerReason
	b.triggerReason = ""
	b.log.Info("circuit breaker recovered, admissions re-enabled")
	return []risk.Event{risk.NewEvent(risk.EventRecovery, risk.LevelInfo,
		"circuit breaker recovered, trading re-enabled",
		map[string]any{
			"tripped_for": now.Sub(b.triggerTime).String(),
			"was":         reason,
			"value":       b.lastValue,
		},
		now)}
}

func (b *Breaker) Metrics() map[string]any {
	return map[string]any{
		"trading_enabled":     b.tradingEnabled,
		"triggered":           b.triggered,
		"trigger_reason":      b.triggerReason,
		"daily_anchor":        b.dailyAnchor,
		"weekly_anchor":       b.weeklyAnchor,
		"monthly_anchor":      b.monthlyAnchor,
		"high_water_mark":     b.highWaterMark,
		"last_value":          b.lastValue,
		"consecutive_losses":  b.consecutiveLosses,
		"trades_today":        b.tradesToday,
		"losses_today":        b.lossesToday,
		"total_trades":        b.totalTrades,
		"total_losses":        b.totalLosses,
	}
}
