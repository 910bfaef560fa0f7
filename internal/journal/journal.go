package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/quotelab/kalshi-avellaneda/internal/events"
)

// Store persists quote decisions, order mutations, and market ticks in
// a SQLite file so a run can be audited after the fact. It subscribes
// to the event bus and never feeds anything back into the strategy.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS quote_cycles (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			ts          TEXT    NOT NULL,
			strategy    TEXT    NOT NULL,
			market      TEXT    NOT NULL,
			side        TEXT,
			mid         REAL,
			inventory   INTEGER,
			reservation REAL,
			bid         REAL,
			ask         REAL,
			buy_size    INTEGER,
			sell_size   INTEGER,
			elapsed     REAL
		)`,
		`CREATE TABLE IF NOT EXISTS order_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			ts         TEXT    NOT NULL,
			strategy   TEXT,
			market     TEXT,
			kind       TEXT    NOT NULL,
			order_id   TEXT,
			side       TEXT,
			action     TEXT,
			price      REAL,
			size       INTEGER,
			expires_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS market_ticks (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			ts      TEXT NOT NULL,
			market  TEXT NOT NULL,
			yes_bid INTEGER,
			yes_ask INTEGER,
			price   INTEGER,
			volume  INTEGER
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create journal schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Subscribe attaches the store to the bus. Handlers run on the
// publisher's goroutine; at one cycle per second per strategy the
// writes are negligible.
func (s *Store) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventQuoteComputed, s.onQuote)
	bus.Subscribe(events.EventOrderPlaced, s.onOrderPlaced)
	bus.Subscribe(events.EventOrderCancelled, s.onOrderCancelled)
	bus.Subscribe(events.EventMarketTick, s.onTick)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) onQuote(e events.Event) error {
	q, ok := e.Payload.(events.QuoteComputed)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO quote_cycles (ts, strategy, market, side, mid, inventory, reservation, bid, ask, buy_size, sell_size, elapsed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UTC().Format(time.RFC3339Nano), e.Strategy, e.MarketID, string(q.Side),
		q.Mid, q.Inventory, q.Reservation, q.Bid, q.Ask, q.BuySize, q.SellSize, q.Elapsed,
	)
	if err != nil {
		return fmt.Errorf("journal quote: %w", err)
	}
	return nil
}

func (s *Store) onOrderPlaced(e events.Event) error {
	o, ok := e.Payload.(events.OrderPlaced)
	if !ok {
		return nil
	}
	return s.insertOrderEvent(e, "placed", o.OrderID, string(o.Side), string(o.Action), o.Price, o.Size,
		o.ExpiresAt.UTC().Format(time.RFC3339))
}

func (s *Store) onOrderCancelled(e events.Event) error {
	o, ok := e.Payload.(events.OrderCancelled)
	if !ok {
		return nil
	}
	return s.insertOrderEvent(e, "cancelled", o.OrderID, "", string(o.Action), o.Price, 0, "")
}

func (s *Store) insertOrderEvent(e events.Event, kind, orderID, side, action string, price float64, size int, expiresAt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO order_events (ts, strategy, market, kind, order_id, side, action, price, size, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UTC().Format(time.RFC3339Nano), e.Strategy, e.MarketID, kind, orderID, side, action, price, size, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("journal order %s: %w", kind, err)
	}
	return nil
}

func (s *Store) onTick(e events.Event) error {
	tk, ok := e.Payload.(events.MarketTick)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO market_ticks (ts, market, yes_bid, yes_ask, price, volume) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UTC().Format(time.RFC3339Nano), e.MarketID, tk.YesBid, tk.YesAsk, tk.Price, tk.Volume,
	)
	if err != nil {
		return fmt.Errorf("journal tick: %w", err)
	}
	return nil
}
