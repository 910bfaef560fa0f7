package kalshi_http

import (
	"context"
	"fmt"
	"math"

	"github.com/quotelab/kalshi-avellaneda/internal/core/market"
)

// Gateway adapts the REST client to the core's venue port. It owns the
// cents-to-fraction boundary: the API speaks integer cents, the core
// speaks [0, 1].
type Gateway struct {
	client *Client
}

var _ market.Gateway = (*Gateway)(nil)

func NewGateway(client *Client) *Gateway {
	return &Gateway{client: client}
}

// MarketSnapshot derives both mids from the venue's bid/ask, rounded
// to whole cents like the venue's own display price.
func (g *Gateway) MarketSnapshot(ctx context.Context, marketID string) (market.Snapshot, error) {
	m, err := g.client.GetMarket(ctx, marketID)
	if err != nil {
		return market.Snapshot{}, err
	}
	return market.Snapshot{
		YesMid: midOf(m.YesBid, m.YesAsk),
		NoMid:  midOf(m.NoBid, m.NoAsk),
	}, nil
}

// Position sums the unsettled net position for the market. The venue
// may report multiple position rows; their positions add.
func (g *Gateway) Position(ctx context.Context, marketID string) (int, error) {
	resp, err := g.client.GetPositions(ctx, marketID)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, p := range resp.MarketPositions {
		if p.Ticker == marketID {
			total += p.Position
		}
	}
	return total, nil
}

func (g *Gateway) RestingOrders(ctx context.Context, marketID string) ([]market.RestingOrder, error) {
	orders, err := g.client.GetRestingOrders(ctx, marketID)
	if err != nil {
		return nil, err
	}

	out := make([]market.RestingOrder, 0, len(orders))
	for _, o := range orders {
		price := o.YesPrice
		if market.Side(o.Side) == market.SideNo {
			price = o.NoPrice
		}
		out = append(out, market.RestingOrder{
			ID:            o.OrderID,
			Side:          market.Side(o.Side),
			Action:        market.Action(o.Action),
			Price:         centsToFraction(price),
			RemainingSize: o.RemainingCount,
		})
	}
	return out, nil
}

func (g *Gateway) PlaceOrder(ctx context.Context, req market.PlaceRequest) (string, error) {
	create := CreateOrderRequest{
		Ticker:       req.MarketID,
		ClientID:     req.Token,
		Side:         string(req.Side),
		Action:       string(req.Action),
		Count:        req.Size,
		Type:         "limit",
		ExpirationTs: req.ExpiresAt.Unix(),
	}
	cents := fractionToCents(req.Price)
	if req.Side == market.SideNo {
		create.NoPrice = cents
	} else {
		create.YesPrice = cents
	}

	resp, status, body, err := g.client.CreateOrder(ctx, create)
	if err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}
	if resp == nil {
		return "", &market.RejectedError{Status: status, Body: string(body)}
	}
	return resp.Order.OrderID, nil
}

func (g *Gateway) CancelOrder(ctx context.Context, orderID string) error {
	status, err := g.client.CancelOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	if status < 200 || status >= 300 {
		return &market.CancelError{OrderID: orderID, Status: status}
	}
	return nil
}

// midOf returns the bid/ask midpoint in fractional units, rounded to
// two decimals (whole cents).
func midOf(bidCents, askCents int) float64 {
	mid := (centsToFraction(bidCents) + centsToFraction(askCents)) / 2
	return math.Round(mid*100) / 100
}
