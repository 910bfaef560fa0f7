package market

import "time"

// Side is the contract side of a binary market.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Valid reports whether s is one of the two tradable sides.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// Action is the direction of an order.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Snapshot holds the mid price of each side of a market, in fractional
// units where one dollar = 1.0. Mids are derived from the venue's
// bid/ask at fetch time; nothing here outlives one strategy cycle.
type Snapshot struct {
	YesMid float64
	NoMid  float64
}

// Mid returns the mid price for the given side.
func (s Snapshot) Mid(side Side) float64 {
	if side == SideNo {
		return s.NoMid
	}
	return s.YesMid
}

// RestingOrder is an open limit order as reported by the venue. The
// venue owns it; the strategy may cancel it but never mutate it.
type RestingOrder struct {
	ID            string
	Side          Side
	Action        Action
	Price         float64 // fractional units, [0, 1]
	RemainingSize int
}

// PlaceRequest describes a new limit order to rest on the book.
type PlaceRequest struct {
	MarketID  string
	Side      Side
	Action    Action
	Size      int
	Price     float64 // fractional units, converted to cents at the adapter
	ExpiresAt time.Time
	Token     string // process-unique client order id
}
