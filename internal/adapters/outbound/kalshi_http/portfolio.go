package kalshi_http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

type BalanceResponse struct {
	Balance int `json:"balance"` // cents
}

func (c *Client) GetBalance(ctx context.Context) (int, error) {
	body, status, err := c.Get(ctx, "/trade-api/v2/portfolio/balance")
	if err != nil {
		return 0, err
	}
	if status != 200 {
		return 0, fmt.Errorf("get balance: status=%d", status)
	}
	var resp BalanceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("unmarshal balance: %w", err)
	}
	return resp.Balance, nil
}

type PositionsResponse struct {
	MarketPositions []struct {
		Ticker   string `json:"ticker"`
		Position int    `json:"position"`
	} `json:"market_positions"`
}

// GetPositions lists unsettled positions filtered to one market.
func (c *Client) GetPositions(ctx context.Context, ticker string) (*PositionsResponse, error) {
	q := url.Values{}
	q.Set("ticker", ticker)
	q.Set("settlement_status", "unsettled")

	body, status, err := c.Get(ctx, "/trade-api/v2/portfolio/positions?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, fmt.Errorf("get positions: status=%d", status)
	}
	var resp PositionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal positions: %w", err)
	}
	return &resp, nil
}

// Order is a resting order as the portfolio endpoint reports it.
type Order struct {
	OrderID        string `json:"order_id"`
	Ticker         string `json:"ticker"`
	Side           string `json:"side"`   // "yes" or "no"
	Action         string `json:"action"` // "buy" or "sell"
	YesPrice       int    `json:"yes_price"`
	NoPrice        int    `json:"no_price"`
	RemainingCount int    `json:"remaining_count"`
}

type OrdersResponse struct {
	Orders []Order `json:"orders"`
}

// GetRestingOrders lists the account's resting orders on one market.
func (c *Client) GetRestingOrders(ctx context.Context, ticker string) ([]Order, error) {
	q := url.Values{}
	q.Set("ticker", ticker)
	q.Set("status", "resting")

	body, status, err := c.Get(ctx, "/trade-api/v2/portfolio/orders?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, fmt.Errorf("get orders: status=%d", status)
	}
	var resp OrdersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal orders: %w", err)
	}
	return resp.Orders, nil
}

// CreateOrderRequest is the payload for POST /trade-api/v2/portfolio/orders.
// Exactly one of YesPrice/NoPrice is set, matching Side.
type CreateOrderRequest struct {
	Ticker       string `json:"ticker"`
	ClientID     string `json:"client_order_id"`
	Side         string `json:"side"`   // "yes" or "no"
	Action       string `json:"action"` // "buy" or "sell"
	Count        int    `json:"count"`
	Type         string `json:"type"` // always "limit" here
	YesPrice     int    `json:"yes_price,omitempty"`
	NoPrice      int    `json:"no_price,omitempty"`
	ExpirationTs int64  `json:"expiration_ts,omitempty"`
}

type CreateOrderResponse struct {
	Order struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
	} `json:"order"`
}

// CreateOrder posts a new limit order. The (status, body) pair is
// returned alongside any transport error so the caller can distinguish
// venue rejection from communication failure.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, int, []byte, error) {
	body, status, err := c.Post(ctx, "/trade-api/v2/portfolio/orders", req)
	if err != nil {
		return nil, status, body, err
	}
	if status < 200 || status >= 300 {
		return nil, status, body, nil
	}

	var resp CreateOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, status, body, fmt.Errorf("unmarshal order response: %w", err)
	}
	return &resp, status, body, nil
}

// CancelOrder cancels a resting order. The status code is returned so
// the caller can treat a missing/filled order differently from a
// transport failure.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (int, error) {
	_, status, err := c.Delete(ctx, "/trade-api/v2/portfolio/orders/"+orderID)
	if err != nil {
		return status, err
	}
	return status, nil
}

// centsToFraction converts the API's integer cents to [0, 1] price units.
func centsToFraction(cents int) float64 {
	return float64(cents) / 100
}

// fractionToCents converts a [0, 1] price to integer cents. Truncation
// is intentional: a bid never rounds up past the model's price.
func fractionToCents(price float64) int {
	return int(price * 100)
}
