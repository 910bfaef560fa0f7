package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotelab/kalshi-avellaneda/internal/core/market"
)

const sampleYAML = `
fed_rate_march:
  market_ticker: KXFED-26MAR-T4.50
  trade_side: yes
  dt: 2.5
  market_maker:
    gamma: 0.2
    T: 7200
    max_position: 50

weather_nyc:
  market_ticker: KXHIGHNY-26AUG30-T90
  trade_side: "no"
  market_maker:
    order_expiration: 120
`

func TestParseStrategiesOverridesAndDefaults(t *testing.T) {
	got, err := parseStrategies([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, got, 2)

	fed := got["fed_rate_march"]
	assert.Equal(t, "KXFED-26MAR-T4.50", fed.MarketTicker)
	assert.Equal(t, 0.2, fed.Quoter.Gamma, "overridden")
	assert.Equal(t, 1.5, fed.Quoter.K, "default kept")
	assert.Equal(t, 50, fed.Quoter.MaxPosition)
	assert.Equal(t, 2500*time.Millisecond, fed.Interval())
	assert.Equal(t, 2*time.Hour, fed.Horizon())
	assert.Equal(t, 5*time.Minute, fed.Expiration())

	ny := got["weather_nyc"]
	assert.Equal(t, market.SideNo, ny.Params().TradeSide)
	assert.Equal(t, time.Second, ny.Interval(), "dt defaults to 1s")
	assert.Equal(t, 2*time.Minute, ny.Expiration())
}

func TestParseStrategiesRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing ticker", "s1:\n  trade_side: yes\n"},
		{"bad side", "s1:\n  market_ticker: X\n  trade_side: both\n"},
		{"zero dt", "s1:\n  market_ticker: X\n  dt: 0\n"},
		{"zero max position", "s1:\n  market_ticker: X\n  market_maker:\n    max_position: 0\n"},
		{"negative k", "s1:\n  market_ticker: X\n  market_maker:\n    k: -1\n"},
		{"zero horizon", "s1:\n  market_ticker: X\n  market_maker:\n    T: 0\n"},
		{"zero expiration", "s1:\n  market_ticker: X\n  market_maker:\n    order_expiration: 0\n"},
		{"empty file", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseStrategies([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}
