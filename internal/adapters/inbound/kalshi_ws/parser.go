package kalshi_ws

import (
	"encoding/json"
	"time"

	"github.com/quotelab/kalshi-avellaneda/internal/events"
	"github.com/quotelab/kalshi-avellaneda/internal/telemetry"
)

// wsMessage is a raw frame from the Kalshi WebSocket.
type wsMessage struct {
	Type string          `json:"type"`
	Msg  json.RawMessage `json:"msg"`
	SID  int64           `json:"sid"`
}

// tickerMsg is the ticker channel payload. Prices are integer cents.
type tickerMsg struct {
	MarketTicker string `json:"market_ticker"`
	Price        int    `json:"price"`
	YesBid       int    `json:"yes_bid"`
	YesAsk       int    `json:"yes_ask"`
	Volume       int64  `json:"volume"`
}

// ParseMessage converts a raw WebSocket frame into domain events.
func ParseMessage(data []byte) []events.Event {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		telemetry.Warnf("kalshi_ws: parse error: %v", err)
		return nil
	}

	switch msg.Type {
	case "ticker":
		return parseTickerUpdate(msg.Msg)
	case "subscribed", "unsubscribed", "ok":
		return nil
	case "error":
		telemetry.Warnf("kalshi_ws: server error: %s", string(msg.Msg))
		return nil
	default:
		return nil
	}
}

func parseTickerUpdate(raw json.RawMessage) []events.Event {
	var t tickerMsg
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil
	}
	if t.MarketTicker == "" {
		return nil
	}

	telemetry.Metrics.MarketTicks.Inc()
	return []events.Event{{
		Type:      events.EventMarketTick,
		MarketID:  t.MarketTicker,
		Timestamp: time.Now(),
		Payload: events.MarketTick{
			YesBid: t.YesBid,
			YesAsk: t.YesAsk,
			Price:  t.Price,
			Volume: t.Volume,
		},
	}}
}
