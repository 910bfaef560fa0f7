package kalshi_ws

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quotelab/kalshi-avellaneda/internal/adapters/kalshi_auth"
	"github.com/quotelab/kalshi-avellaneda/internal/events"
	"github.com/quotelab/kalshi-avellaneda/internal/telemetry"
)

// Client follows the Kalshi ticker channel for the quoted markets and
// publishes each update onto the event bus. The feed is observational:
// the strategy loop polls REST for its own snapshots, this stream only
// feeds the journal and logs.
//
// Gorilla/websocket allows one concurrent reader and one concurrent
// writer, so all writes are serialized through mu.
type Client struct {
	url    string
	signer *kalshi_auth.Signer
	bus    *events.Bus
	conn   *websocket.Conn
	done   chan struct{}

	mu      sync.Mutex
	tickers map[string]bool
	subID   int
}

func NewClient(wsURL string, signer *kalshi_auth.Signer, bus *events.Bus) *Client {
	return &Client{
		url:     wsURL,
		signer:  signer,
		bus:     bus,
		done:    make(chan struct{}),
		tickers: make(map[string]bool),
	}
}

func (c *Client) Connect(ctx context.Context) error {
	if err := c.dial(ctx); err != nil {
		return err
	}
	go c.runLoop(ctx)
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	parsed, _ := url.Parse(c.url)
	wsPath := parsed.Path
	if wsPath == "" {
		wsPath = "/trade-api/ws/v2"
	}
	header := c.signer.Headers("GET", wsPath)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

// SubscribeTickers adds markets to the subscription set. Safe to call
// from any goroutine; markets added before the connection is up are
// subscribed on connect.
func (c *Client) SubscribeTickers(tickers []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var fresh []string
	for _, t := range tickers {
		if !c.tickers[t] {
			c.tickers[t] = true
			fresh = append(fresh, t)
		}
	}

	if len(fresh) == 0 || c.conn == nil {
		return nil
	}

	return c.sendSubscribe(fresh)
}

// runLoop reads messages and reconnects on failure with exponential backoff.
func (c *Client) runLoop(ctx context.Context) {
	defer close(c.done)

	first := true
	for {
		if first {
			telemetry.Infof("kalshi_ws: connected to %s", c.url)
			first = false
		} else {
			telemetry.Infof("kalshi_ws: reconnected")
		}

		c.resubscribeAll()
		c.readLoop(ctx)

		select {
		case <-ctx.Done():
			return
		default:
		}

		backoff := 1 * time.Second
		const maxBackoff = 30 * time.Second
		for attempt := 1; ; attempt++ {
			telemetry.Warnf("kalshi_ws: reconnecting (attempt %d) in %s", attempt, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if err := c.dial(ctx); err != nil {
				telemetry.Warnf("kalshi_ws: dial failed: %v", err)
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}
			break
		}
	}
}

// resubscribeAll sends a subscribe for every known market. Called after
// each successful connection.
func (c *Client) resubscribeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.tickers) == 0 {
		return
	}

	all := make([]string, 0, len(c.tickers))
	for t := range c.tickers {
		all = append(all, t)
	}

	if err := c.sendSubscribe(all); err != nil {
		telemetry.Warnf("kalshi_ws: resubscribe failed: %v", err)
	}
}

// sendSubscribe writes a subscribe command. Caller must hold mu.
func (c *Client) sendSubscribe(tickers []string) error {
	c.subID++
	cmd := subscribeCmd{
		ID:  c.subID,
		Cmd: "subscribe",
		Params: subscribeParams{
			Channels:      []string{"ticker"},
			MarketTickers: tickers,
		},
	}
	telemetry.Debugf("kalshi_ws: subscribing to %d markets (sid=%d)", len(tickers), c.subID)
	return c.conn.WriteJSON(cmd)
}

type subscribeCmd struct {
	ID     int             `json:"id"`
	Cmd    string          `json:"cmd"`
	Params subscribeParams `json:"params"`
}

type subscribeParams struct {
	Channels      []string `json:"channels"`
	MarketTickers []string `json:"market_tickers,omitempty"`
}

func (c *Client) readLoop(ctx context.Context) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	defer conn.Close()

	// Kalshi pings every 10s; 30s tolerates 3 missed pings.
	const pingWait = 30 * time.Second

	conn.SetReadDeadline(time.Now().Add(pingWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pingWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			telemetry.Warnf("kalshi_ws: read error: %v", err)
			return
		}

		conn.SetReadDeadline(time.Now().Add(pingWait))
		for _, evt := range ParseMessage(msg) {
			c.bus.Publish(evt)
		}
	}
}
