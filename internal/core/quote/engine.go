package quote

import (
	"fmt"
	"math"

	"github.com/quotelab/kalshi-avellaneda/internal/core/market"
)

// spreadScale converts the raw Avellaneda-Stoikov spread into the
// strategy's working price units. A fixed calibration constant of the
// model, not a tunable.
const spreadScale = 0.01

// Params are the immutable per-run inputs to the quoting model.
type Params struct {
	Gamma               float64     // base risk aversion, > 0
	K                   float64     // order-book liquidity density, > 0
	Sigma               float64     // price volatility estimate, >= 0
	Horizon             float64     // total run horizon T, seconds, > 0
	MaxPosition         int         // inventory cap, > 0
	MinSpread           float64     // spread floor in price units, >= 0
	PositionLimitBuffer float64     // fraction of MaxPosition sizing the inventory-increasing order, (0, 1]
	InventorySkewFactor float64     // linear mean-reversion skew strength, >= 0
	TradeSide           market.Side // yes or no
}

// Validate reports the first invalid parameter. Every field below is a
// divisor or log argument somewhere in the model, so a violation is
// fatal at startup rather than per cycle.
func (p Params) Validate() error {
	switch {
	case p.Gamma <= 0:
		return fmt.Errorf("gamma must be > 0, got %g", p.Gamma)
	case p.K <= 0:
		return fmt.Errorf("k must be > 0, got %g", p.K)
	case p.Sigma < 0:
		return fmt.Errorf("sigma must be >= 0, got %g", p.Sigma)
	case p.Horizon <= 0:
		return fmt.Errorf("T must be > 0, got %g", p.Horizon)
	case p.MaxPosition <= 0:
		return fmt.Errorf("max_position must be > 0, got %d", p.MaxPosition)
	case p.MinSpread < 0:
		return fmt.Errorf("min_spread must be >= 0, got %g", p.MinSpread)
	case p.PositionLimitBuffer <= 0 || p.PositionLimitBuffer > 1:
		return fmt.Errorf("position_limit_buffer must be in (0, 1], got %g", p.PositionLimitBuffer)
	case p.InventorySkewFactor < 0:
		return fmt.Errorf("inventory_skew_factor must be >= 0, got %g", p.InventorySkewFactor)
	case !p.TradeSide.Valid():
		return fmt.Errorf("trade_side must be yes or no, got %q", p.TradeSide)
	}
	return nil
}

// Desired is one evaluation of the model: the quotes the strategy wants
// resting right now. Recomputed from scratch every cycle, never stored.
type Desired struct {
	BidPrice float64
	AskPrice float64
	BuySize  int
	SellSize int
}

// Engine computes inventory-aware reservation prices and spreads. Pure
// besides Params; safe to share across goroutines.
type Engine struct {
	p Params
}

func NewEngine(p Params) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("quote params: %w", err)
	}
	return &Engine{p: p}, nil
}

// RiskAversion returns the effective risk aversion for the current
// inventory: gamma * exp(-|q/Qmax|). As inventory approaches the cap
// this shrinks, widening the reservation skew while narrowing the
// symmetric spread, so quotes lean harder toward flattening. Always in
// (0, gamma].
func (e *Engine) RiskAversion(inventory int) float64 {
	ratio := float64(inventory) / float64(e.p.MaxPosition)
	return e.p.Gamma * math.Exp(-math.Abs(ratio))
}

// ReservationPrice is the inventory-adjusted fair value at elapsed time
// t (seconds since the run started). The skew term pushes the price
// away from the held position; the risk term is the classical
// Avellaneda-Stoikov penalty that decays as the horizon approaches.
func (e *Engine) ReservationPrice(mid float64, inventory int, t float64) float64 {
	q := float64(inventory)
	gamma := e.RiskAversion(inventory)
	skew := q * e.p.InventorySkewFactor * mid
	risk := q * gamma * e.p.Sigma * e.p.Sigma * (1 - t/e.p.Horizon)
	return clamp01(mid + skew - risk)
}

// OptimalSpread returns the symmetric spread before asymmetric
// adjustment, floored at MinSpread. The quadratic term compresses the
// spread as the position fills up.
func (e *Engine) OptimalSpread(t float64, inventory int) float64 {
	gamma := e.RiskAversion(inventory)
	base := gamma*e.p.Sigma*e.p.Sigma*(1-t/e.p.Horizon) +
		(2/gamma)*math.Log(1+gamma/e.p.K)

	ratio := math.Abs(float64(inventory)) / float64(e.p.MaxPosition)
	adjustment := 1 - ratio*ratio

	return math.Max(base*adjustment*spreadScale, e.p.MinSpread)
}

// Quotes returns the bid/ask pair around the reservation price. The
// side that would grow the position quotes further out, the reducing
// side quotes closer in, and both legs are clamped so the bid never
// exceeds mid and the ask never drops below it, so the strategy does
// not cross its own fair-value estimate.
func (e *Engine) Quotes(mid float64, inventory int, t float64) (bid, ask float64) {
	reservation := e.ReservationPrice(mid, inventory, t)
	baseSpread := e.OptimalSpread(t, inventory)

	positionRatio := float64(inventory) / float64(e.p.MaxPosition)
	adjustment := baseSpread * math.Abs(positionRatio) * 3

	var bidSpread, askSpread float64
	if inventory > 0 {
		bidSpread = baseSpread/2 + adjustment
		askSpread = math.Max(baseSpread/2-adjustment, e.p.MinSpread/2)
	} else {
		bidSpread = math.Max(baseSpread/2-adjustment, e.p.MinSpread/2)
		askSpread = baseSpread/2 + adjustment
	}

	bid = math.Max(0, math.Min(mid, reservation-bidSpread))
	ask = math.Min(1, math.Max(mid, reservation+askSpread))
	return bid, ask
}

// Sizes returns the buy and sell order sizes. The side that would
// increase inventory is capped by the position-limit buffer and the
// remaining capacity; the reducing side quotes the full cap to flatten
// aggressively. Both are at least 1.
func (e *Engine) Sizes(inventory int) (buySize, sellSize int) {
	remaining := e.p.MaxPosition - abs(inventory)
	buffer := int(float64(e.p.MaxPosition) * e.p.PositionLimitBuffer)

	if inventory > 0 {
		buySize = max(1, min(buffer, remaining))
		sellSize = max(1, e.p.MaxPosition)
	} else {
		buySize = max(1, e.p.MaxPosition)
		sellSize = max(1, min(buffer, remaining))
	}
	return buySize, sellSize
}

// Evaluate runs the full model for one cycle.
func (e *Engine) Evaluate(mid float64, inventory int, t float64) Desired {
	bid, ask := e.Quotes(mid, inventory, t)
	buySize, sellSize := e.Sizes(inventory)
	return Desired{BidPrice: bid, AskPrice: ask, BuySize: buySize, SellSize: sellSize}
}

// Side returns the traded side of the market.
func (e *Engine) Side() market.Side { return e.p.TradeSide }

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
