package events

import (
	"time"

	"github.com/quotelab/kalshi-avellaneda/internal/core/market"
)

// QuoteComputed is published once per strategy cycle with the full
// output of the quoting model, before reconciliation runs.
type QuoteComputed struct {
	Side        market.Side `json:"side"`
	Mid         float64     `json:"mid"`
	Inventory   int         `json:"inventory"`
	Reservation float64     `json:"reservation"`
	Bid         float64     `json:"bid"`
	Ask         float64     `json:"ask"`
	BuySize     int         `json:"buy_size"`
	SellSize    int         `json:"sell_size"`
	Elapsed     float64     `json:"elapsed"` // seconds since the run started
}

// OrderPlaced is published after the venue accepts a new limit order.
type OrderPlaced struct {
	OrderID   string        `json:"order_id"`
	Side      market.Side   `json:"side"`
	Action    market.Action `json:"action"`
	Price     float64       `json:"price"`
	Size      int           `json:"size"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// OrderCancelled is published after a resting order is cancelled
// because it no longer matches the desired quote.
type OrderCancelled struct {
	OrderID string        `json:"order_id"`
	Action  market.Action `json:"action"`
	Price   float64       `json:"price"`
}

// MarketTick is published when the Kalshi WebSocket reports a price
// change on a subscribed market. Prices are in cents as sent by the
// venue; the tick is observational and never feeds the quoting model.
type MarketTick struct {
	YesBid int   `json:"yes_bid"`
	YesAsk int   `json:"yes_ask"`
	Price  int   `json:"price"`
	Volume int64 `json:"volume"`
}
