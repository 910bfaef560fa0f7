package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quotelab/kalshi-avellaneda/internal/core/market"
	"github.com/quotelab/kalshi-avellaneda/internal/core/quote"
)

// QuoterConfig is the market_maker block of one strategy entry.
type QuoterConfig struct {
	Gamma               float64 `yaml:"gamma"`
	K                   float64 `yaml:"k"`
	Sigma               float64 `yaml:"sigma"`
	T                   float64 `yaml:"T"` // run horizon, seconds
	MaxPosition         int     `yaml:"max_position"`
	OrderExpiration     int     `yaml:"order_expiration"` // seconds
	MinSpread           float64 `yaml:"min_spread"`
	PositionLimitBuffer float64 `yaml:"position_limit_buffer"`
	InventorySkewFactor float64 `yaml:"inventory_skew_factor"`
}

// StrategyConfig is one named entry in the strategies YAML file.
type StrategyConfig struct {
	MarketTicker string       `yaml:"market_ticker"`
	TradeSide    string       `yaml:"trade_side"`
	LogLevel     string       `yaml:"log_level"`
	DT           float64      `yaml:"dt"` // cycle period, seconds
	Quoter       QuoterConfig `yaml:"market_maker"`
}

// defaultStrategy carries the reference parameter set; YAML entries
// override only the fields they name.
func defaultStrategy() StrategyConfig {
	return StrategyConfig{
		TradeSide: string(market.SideYes),
		LogLevel:  "info",
		DT:        1.0,
		Quoter: QuoterConfig{
			Gamma:               0.1,
			K:                   1.5,
			Sigma:               0.5,
			T:                   3600,
			MaxPosition:         100,
			OrderExpiration:     300,
			MinSpread:           0.01,
			PositionLimitBuffer: 0.1,
			InventorySkewFactor: 0.01,
		},
	}
}

// LoadStrategies reads the YAML strategies file: a map of strategy
// name to configuration. Validation failures are fatal at startup;
// every parameter below feeds a divisor or clock somewhere.
func LoadStrategies(path string) (map[string]StrategyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategies file: %w", err)
	}
	return parseStrategies(data)
}

func parseStrategies(data []byte) (map[string]StrategyConfig, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse strategies file: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("strategies file names no strategies")
	}

	out := make(map[string]StrategyConfig, len(raw))
	for name, node := range raw {
		sc := defaultStrategy()
		if err := node.Decode(&sc); err != nil {
			return nil, fmt.Errorf("strategy %s: %w", name, err)
		}
		if err := sc.validate(); err != nil {
			return nil, fmt.Errorf("strategy %s: %w", name, err)
		}
		out[name] = sc
	}
	return out, nil
}

func (sc StrategyConfig) validate() error {
	if sc.MarketTicker == "" {
		return fmt.Errorf("market_ticker is required")
	}
	if sc.DT <= 0 {
		return fmt.Errorf("dt must be > 0, got %g", sc.DT)
	}
	if sc.Quoter.OrderExpiration <= 0 {
		return fmt.Errorf("order_expiration must be > 0, got %d", sc.Quoter.OrderExpiration)
	}
	return sc.Params().Validate()
}

// Params maps the YAML entry onto the quoting model's parameter set.
func (sc StrategyConfig) Params() quote.Params {
	return quote.Params{
		Gamma:               sc.Quoter.Gamma,
		K:                   sc.Quoter.K,
		Sigma:               sc.Quoter.Sigma,
		Horizon:             sc.Quoter.T,
		MaxPosition:         sc.Quoter.MaxPosition,
		MinSpread:           sc.Quoter.MinSpread,
		PositionLimitBuffer: sc.Quoter.PositionLimitBuffer,
		InventorySkewFactor: sc.Quoter.InventorySkewFactor,
		TradeSide:           market.Side(sc.TradeSide),
	}
}

// Interval returns dt as a duration.
func (sc StrategyConfig) Interval() time.Duration {
	return time.Duration(sc.DT * float64(time.Second))
}

// Horizon returns T as a duration.
func (sc StrategyConfig) Horizon() time.Duration {
	return time.Duration(sc.Quoter.T * float64(time.Second))
}

// Expiration returns the resting-order lifetime as a duration.
func (sc StrategyConfig) Expiration() time.Duration {
	return time.Duration(sc.Quoter.OrderExpiration) * time.Second
}
