package market

import (
	"context"
	"fmt"
)

// Gateway is the venue surface the core consumes. Satisfied by
// *kalshi_http.Gateway. Implementations are safe for use by multiple
// strategy goroutines and serialize outbound calls through their own
// rate limiting; every method is a blocking network round-trip.
type Gateway interface {
	// MarketSnapshot returns the current yes/no mid prices.
	MarketSnapshot(ctx context.Context, marketID string) (Snapshot, error)

	// Position returns the signed net contract count on the traded
	// market. Positive is long, negative is short.
	Position(ctx context.Context, marketID string) (int, error)

	// RestingOrders lists the strategy's open orders on the market.
	RestingOrders(ctx context.Context, marketID string) ([]RestingOrder, error)

	// PlaceOrder rests a new limit order and returns its venue id.
	// Venue-side validation failures are reported as *RejectedError.
	PlaceOrder(ctx context.Context, req PlaceRequest) (string, error)

	// CancelOrder cancels a resting order. A *CancelError means the
	// order no longer exists or is already filled.
	CancelOrder(ctx context.Context, orderID string) error
}

// RejectedError reports a venue-side order validation failure. It is
// recovered per-order: the reconciler logs it and the cycle continues.
type RejectedError struct {
	Status int
	Body   string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("order rejected: status=%d body=%s", e.Status, e.Body)
}

// CancelError reports a failed cancellation, typically because the
// order was already filled or removed.
type CancelError struct {
	OrderID string
	Status  int
}

func (e *CancelError) Error() string {
	return fmt.Sprintf("cancel failed: order=%s status=%d", e.OrderID, e.Status)
}
