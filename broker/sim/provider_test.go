package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderHoldingsAndValue(t *testing.T) {
	t.Parallel()

	p := NewProvider(100_000)
	p.SetHolding("ES", 2, 5600)
	p.SetHolding("GC", -1, 2400)

	v, err := p.PortfolioValue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100_000.0, v)

	holdings, err := p.Holdings(context.Background())
	require.NoError(t, err)
	assert.Len(t, holdings, 2)

	p.RemoveHolding("ES")
	p.SetValue(95_000)

	holdings, err = p.Holdings(context.Background())
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "GC", holdings[0].Symbol)

	v, err = p.PortfolioValue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 95_000.0, v)
}
