package events

import "time"

// Event is the envelope that flows through the event bus. Every domain
// event (quote decision, order mutation, market tick) is wrapped in one.
type Event struct {
	Type      EventType
	Strategy  string
	MarketID  string
	Timestamp time.Time
	Payload   any
}

type EventType string

const (
	// Strategy loop events
	EventQuoteComputed EventType = "quote_computed"
	// Reconciler order events
	EventOrderPlaced    EventType = "order_placed"
	EventOrderCancelled EventType = "order_cancelled"
	// Kalshi ticker events
	EventMarketTick EventType = "market_tick"
)
