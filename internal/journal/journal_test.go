package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotelab/kalshi-avellaneda/internal/core/market"
	"github.com/quotelab/kalshi-avellaneda/internal/events"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestJournalRecordsBusEvents(t *testing.T) {
	s := openTestStore(t)
	bus := events.NewBus()
	s.Subscribe(bus)

	now := time.Now()
	bus.Publish(events.Event{
		Type: events.EventQuoteComputed, Strategy: "s1", MarketID: "KXTEST-26", Timestamp: now,
		Payload: events.QuoteComputed{Side: market.SideYes, Mid: 0.50, Inventory: 3, Reservation: 0.51, Bid: 0.49, Ask: 0.52, BuySize: 10, SellSize: 100, Elapsed: 12.5},
	})
	bus.Publish(events.Event{
		Type: events.EventOrderPlaced, Strategy: "s1", MarketID: "KXTEST-26", Timestamp: now,
		Payload: events.OrderPlaced{OrderID: "o1", Side: market.SideYes, Action: market.ActionBuy, Price: 0.49, Size: 10, ExpiresAt: now.Add(5 * time.Minute)},
	})
	bus.Publish(events.Event{
		Type: events.EventOrderCancelled, Strategy: "s1", MarketID: "KXTEST-26", Timestamp: now,
		Payload: events.OrderCancelled{OrderID: "o0", Action: market.ActionSell, Price: 0.55},
	})
	bus.Publish(events.Event{
		Type: events.EventMarketTick, MarketID: "KXTEST-26", Timestamp: now,
		Payload: events.MarketTick{YesBid: 48, YesAsk: 52, Price: 50, Volume: 1200},
	})

	assert.Equal(t, 1, countRows(t, s, "quote_cycles"))
	assert.Equal(t, 2, countRows(t, s, "order_events"))
	assert.Equal(t, 1, countRows(t, s, "market_ticks"))

	var kind, orderID string
	err := s.db.QueryRow(`SELECT kind, order_id FROM order_events ORDER BY id LIMIT 1`).Scan(&kind, &orderID)
	require.NoError(t, err)
	assert.Equal(t, "placed", kind)
	assert.Equal(t, "o1", orderID)
}

func TestJournalIgnoresForeignPayloads(t *testing.T) {
	s := openTestStore(t)
	bus := events.NewBus()
	s.Subscribe(bus)

	bus.Publish(events.Event{Type: events.EventQuoteComputed, Payload: "not a quote"})

	assert.Equal(t, 0, countRows(t, s, "quote_cycles"))
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}
