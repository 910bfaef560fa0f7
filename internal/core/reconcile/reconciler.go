package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/quotelab/kalshi-avellaneda/internal/core/market"
	"github.com/quotelab/kalshi-avellaneda/internal/core/quote"
	"github.com/quotelab/kalshi-avellaneda/internal/events"
	"github.com/quotelab/kalshi-avellaneda/internal/telemetry"
)

// priceTolerance is the absolute distance within which a resting order's
// price is considered to match the desired quote.
const priceTolerance = 0.01

// Config holds the per-strategy knobs the reconciler needs.
type Config struct {
	Strategy   string
	MarketID   string
	TradeSide  market.Side
	Expiration time.Duration // resting-order lifetime; the venue cleans up after us
}

// Reconciler diffs the quotes the model wants against the orders the
// venue reports and issues the minimal set of cancel/place calls. It
// holds no order state between cycles; resting orders are read fresh
// from the venue every time.
type Reconciler struct {
	gw  market.Gateway
	bus *events.Bus
	log *telemetry.StrategyLogger
	cfg Config

	// swapped by tests
	now      func() time.Time
	newToken func() string
}

func New(gw market.Gateway, bus *events.Bus, log *telemetry.StrategyLogger, cfg Config) *Reconciler {
	return &Reconciler{
		gw:       gw,
		bus:      bus,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
		newToken: func() string { return uuid.New().String() },
	}
}

// Apply runs one reconciliation pass against the desired quotes: buys
// first, then sells. Fetch failures propagate so the loop can skip the
// cycle; per-order rejections and cancel failures are logged and
// absorbed here.
func (r *Reconciler) Apply(ctx context.Context, desired quote.Desired) error {
	orders, err := r.gw.RestingOrders(ctx, r.cfg.MarketID)
	if err != nil {
		return fmt.Errorf("fetch resting orders: %w", err)
	}

	var buys, sells []market.RestingOrder
	for _, o := range orders {
		if o.Side != r.cfg.TradeSide {
			continue
		}
		switch o.Action {
		case market.ActionBuy:
			buys = append(buys, o)
		case market.ActionSell:
			sells = append(sells, o)
		}
	}
	r.log.Infof("resting orders: %d buy, %d sell (of %d total)", len(buys), len(sells), len(orders))

	if err := r.syncSide(ctx, market.ActionBuy, buys, desired.BidPrice, desired.BuySize); err != nil {
		return err
	}
	return r.syncSide(ctx, market.ActionSell, sells, desired.AskPrice, desired.SellSize)
}

// syncSide reconciles one action. At most one existing order is kept:
// the first whose price sits within priceTolerance of the desired price
// and whose remaining size matches exactly. Everything else is
// cancelled. If nothing was kept, the mid is re-fetched (cancels may
// have moved the book by the time the round-trips finish) and a new
// order is placed only when it still carries positive edge against
// that fresh mid.
func (r *Reconciler) syncSide(ctx context.Context, action market.Action, orders []market.RestingOrder, desiredPrice float64, desiredSize int) error {
	var kept *market.RestingOrder
	for i := range orders {
		o := orders[i]
		if kept == nil && math.Abs(o.Price-desiredPrice) < priceTolerance && o.RemainingSize == desiredSize {
			kept = &o
			r.log.Infof("keeping %s order id=%s price=%.4f size=%d", action, o.ID, o.Price, o.RemainingSize)
			continue
		}
		r.cancel(ctx, o)
	}

	if kept != nil {
		return nil
	}

	snap, err := r.gw.MarketSnapshot(ctx, r.cfg.MarketID)
	if err != nil {
		return fmt.Errorf("refresh mid: %w", err)
	}
	mid := snap.Mid(r.cfg.TradeSide)

	if !hasEdge(action, desiredPrice, mid) {
		telemetry.Metrics.PlacementsSkipped.Inc()
		r.log.Infof("skipped %s order: desired price %.4f does not improve on mid %.4f", action, desiredPrice, mid)
		return nil
	}

	r.place(ctx, action, desiredPrice, desiredSize)
	return nil
}

// cancel fires one cancellation. Failures are logged, counted, and not
// retried within the cycle; the next pass re-evaluates from scratch.
func (r *Reconciler) cancel(ctx context.Context, o market.RestingOrder) {
	r.log.Infof("cancelling extraneous %s order id=%s price=%.4f size=%d", o.Action, o.ID, o.Price, o.RemainingSize)
	if err := r.gw.CancelOrder(ctx, o.ID); err != nil {
		telemetry.Metrics.CancelFailures.Inc()
		r.log.Errorf("cancel order %s: %v", o.ID, err)
		return
	}
	telemetry.Metrics.OrdersCancelled.Inc()
	r.bus.Publish(events.Event{
		Type:      events.EventOrderCancelled,
		Strategy:  r.cfg.Strategy,
		MarketID:  r.cfg.MarketID,
		Timestamp: r.now(),
		Payload:   events.OrderCancelled{OrderID: o.ID, Action: o.Action, Price: o.Price},
	})
}

// place rests a new limit order with a fresh idempotency token and an
// absolute expiration. Rejections are absorbed: the order's outcome is
// "no change" and the next cycle may try again.
func (r *Reconciler) place(ctx context.Context, action market.Action, price float64, size int) {
	req := market.PlaceRequest{
		MarketID:  r.cfg.MarketID,
		Side:      r.cfg.TradeSide,
		Action:    action,
		Size:      size,
		Price:     price,
		ExpiresAt: r.now().Add(r.cfg.Expiration),
		Token:     r.newToken(),
	}

	orderID, err := r.gw.PlaceOrder(ctx, req)
	if err != nil {
		var rej *market.RejectedError
		if errors.As(err, &rej) {
			telemetry.Metrics.OrderRejections.Inc()
		}
		r.log.Errorf("place %s order price=%.4f size=%d: %v", action, price, size, err)
		return
	}

	telemetry.Metrics.OrdersPlaced.Inc()
	r.log.Infof("placed %s order id=%s price=%.4f size=%d", action, orderID, price, size)
	r.bus.Publish(events.Event{
		Type:      events.EventOrderPlaced,
		Strategy:  r.cfg.Strategy,
		MarketID:  r.cfg.MarketID,
		Timestamp: r.now(),
		Payload: events.OrderPlaced{
			OrderID:   orderID,
			Side:      r.cfg.TradeSide,
			Action:    action,
			Price:     price,
			Size:      size,
			ExpiresAt: req.ExpiresAt,
		},
	})
}

// hasEdge reports whether a new order at price would earn spread
// against the latest mid: buys must rest below it, sells above it.
func hasEdge(action market.Action, price, mid float64) bool {
	if action == market.ActionBuy {
		return price < mid
	}
	return price > mid
}
