// Package sim provides an in-memory SnapshotProvider for tests and the
// demo scenario engine.
package sim

import (
	"context"
	"sync"

	"github.com/KaidenAngle/TomKingTrading-sub001/broker"
)

type Provider struct {
	mu       sync.Mutex
	holdings map[string]broker.Holding
	value    float64
}

func NewProvider(value float64) *Provider {
	return &Provider{
		holdings: make(map[string]broker.Holding),
		value:    value,
	}
}

func (p *Provider) SetValue(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = v
}

func (p *Provider) SetHolding(symbol string, qty, avgPrice float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.holdings[symbol] = broker.Holding{Symbol: symbol, Quantity: qty, AvgPrice: avgPrice}
}

func (p *Provider) RemoveHolding(symbol string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.holdings, symbol)
}

func (p *Provider) Holdings(ctx context.Context) ([]broker.Holding, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]broker.Holding, 0, len(p.holdings))
	for _, h := range p.holdings {
		out = append(out, h)
	}
	return out, nil
}

func (p *Provider) PortfolioValue(ctx context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, nil
}
