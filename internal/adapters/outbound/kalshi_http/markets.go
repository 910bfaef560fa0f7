package kalshi_http

import (
	"context"
	"encoding/json"
	"fmt"
)

// Market is the subset of GET /trade-api/v2/markets/{ticker} the
// quoter consumes. The API quotes all prices in integer cents.
type Market struct {
	Ticker string `json:"ticker"`
	Status string `json:"status"`
	YesBid int    `json:"yes_bid"`
	YesAsk int    `json:"yes_ask"`
	NoBid  int    `json:"no_bid"`
	NoAsk  int    `json:"no_ask"`
}

type marketResponse struct {
	Market Market `json:"market"`
}

func (c *Client) GetMarket(ctx context.Context, ticker string) (Market, error) {
	body, status, err := c.Get(ctx, "/trade-api/v2/markets/"+ticker)
	if err != nil {
		return Market{}, err
	}
	if status != 200 {
		return Market{}, fmt.Errorf("get market %s: status=%d", ticker, status)
	}

	var resp marketResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Market{}, fmt.Errorf("unmarshal market: %w", err)
	}
	return resp.Market, nil
}
