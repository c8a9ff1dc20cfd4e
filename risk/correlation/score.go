package correlation

import "github.com/KaidenAngle/TomKingTrading-sub001/risk"

// Regime multipliers for the advisory score. Hard limits get their own
// tightening in effectiveLimit; this only shades the 0-100 number.
var regimeMultiplier = map[risk.VixRegime]float64{
	risk.RegimeLow:      0.85,
	risk.RegimeNormal:   1.0,
	risk.RegimeElevated: 1.15,
	risk.RegimeHigh:     1.3,
	risk.RegimeExtreme:  1.5,
}

// RiskScore computes the advisory 0-100 portfolio correlation score: each
// group's share of notional weighted by |crisis weight|, plus an equity
// concentration term, scaled by the volatility regime, with a discount for
// diversification across more than three groups. Advisory only; admission
// decisions never read it.
func (p *Plugin) RiskScore() float64 {
	totalNotional := 0.0
	activeGroups := 0
	for _, gs := range p.groups {
		if gs.count > 0 {
			activeGroups++
			totalNotional += gs.notional
		}
	}
	if totalNotional <= 0 {
		return 0
	}

	score := 0.0
	equityShare := 0.0
	for g, gs := range p.groups {
		if gs.count == 0 {
			continue
		}
		share := gs.notional / totalNotional
		score += share * abs(Groups[g].CrisisWeight) * 60
		if Groups[g].EquityLike {
			equityShare += share
		}
	}
	score += equityShare * 25

	score *= regimeMultiplier[p.regime]
	if activeGroups > 3 {
		score *= 0.85
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}
