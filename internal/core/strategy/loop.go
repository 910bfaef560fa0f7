package strategy

import (
	"context"
	"time"

	"github.com/quotelab/kalshi-avellaneda/internal/core/market"
	"github.com/quotelab/kalshi-avellaneda/internal/core/quote"
	"github.com/quotelab/kalshi-avellaneda/internal/events"
	"github.com/quotelab/kalshi-avellaneda/internal/telemetry"
)

// reconciler is what the loop needs from the order layer.
// Satisfied by *reconcile.Reconciler.
type reconciler interface {
	Apply(ctx context.Context, desired quote.Desired) error
}

// LoopConfig holds the per-instance runtime knobs.
type LoopConfig struct {
	Name     string
	MarketID string
	Interval time.Duration // dt, the cycle period
	Horizon  time.Duration // T, total run duration
}

// Loop drives one quoting instance: fetch state, evaluate the model,
// reconcile orders, sleep, repeat until the horizon or an interrupt.
// One Loop runs on one goroutine; many loops may share a Gateway.
type Loop struct {
	cfg    LoopConfig
	gw     market.Gateway
	engine *quote.Engine
	rec    reconciler
	bus    *events.Bus
	log    *telemetry.StrategyLogger
}

func NewLoop(cfg LoopConfig, gw market.Gateway, engine *quote.Engine, rec reconciler, bus *events.Bus, log *telemetry.StrategyLogger) *Loop {
	return &Loop{cfg: cfg, gw: gw, engine: engine, rec: rec, bus: bus, log: log}
}

// Run executes cycles until the horizon elapses or ctx is cancelled.
// The deadline is monotonic (time.Since on a start instant), and
// cancellation is only observed at cycle boundaries and during the
// end-of-cycle sleep, never inside an in-flight gateway call. No
// orders are cancelled on exit; their expiration timestamps clean up.
func (l *Loop) Run(ctx context.Context) error {
	start := time.Now()
	l.log.Infof("starting quoter market=%s side=%s horizon=%s dt=%s",
		l.cfg.MarketID, l.engine.Side(), l.cfg.Horizon, l.cfg.Interval)

	telemetry.Metrics.ActiveStrategies.Inc()
	defer telemetry.Metrics.ActiveStrategies.Dec()

	for {
		elapsed := time.Since(start)
		if elapsed >= l.cfg.Horizon {
			l.log.Infof("horizon reached after %s, quoter finished", elapsed.Round(time.Second))
			return nil
		}
		if ctx.Err() != nil {
			l.log.Infof("interrupted after %s, quoter finished (resting orders expire on their own)",
				elapsed.Round(time.Second))
			return nil
		}

		l.cycle(ctx, elapsed)

		if !l.sleep(ctx) {
			l.log.Infof("interrupted during sleep, quoter finished (resting orders expire on their own)")
			return nil
		}
	}
}

// cycle runs one fetch → evaluate → reconcile pass. Any gateway
// failure logs and skips the rest of the cycle; the next one starts
// from fresh venue state.
func (l *Loop) cycle(ctx context.Context, elapsed time.Duration) {
	t := elapsed.Seconds()
	l.log.Infof("running cycle at t=%.2fs", t)

	snap, err := l.gw.MarketSnapshot(ctx, l.cfg.MarketID)
	if err != nil {
		telemetry.Metrics.CycleErrors.Inc()
		l.log.Errorf("fetch snapshot: %v (skipping cycle)", err)
		return
	}
	mid := snap.Mid(l.engine.Side())

	inventory, err := l.gw.Position(ctx, l.cfg.MarketID)
	if err != nil {
		telemetry.Metrics.CycleErrors.Inc()
		l.log.Errorf("fetch position: %v (skipping cycle)", err)
		return
	}

	desired := l.engine.Evaluate(mid, inventory, t)
	reservation := l.engine.ReservationPrice(mid, inventory, t)
	l.log.Infof("mid=%.4f inventory=%d reservation=%.4f bid=%.4f ask=%.4f sizes=%d/%d",
		mid, inventory, reservation, desired.BidPrice, desired.AskPrice, desired.BuySize, desired.SellSize)

	telemetry.Metrics.QuoteCycles.Inc()
	l.bus.Publish(events.Event{
		Type:      events.EventQuoteComputed,
		Strategy:  l.cfg.Name,
		MarketID:  l.cfg.MarketID,
		Timestamp: time.Now(),
		Payload: events.QuoteComputed{
			Side:        l.engine.Side(),
			Mid:         mid,
			Inventory:   inventory,
			Reservation: reservation,
			Bid:         desired.BidPrice,
			Ask:         desired.AskPrice,
			BuySize:     desired.BuySize,
			SellSize:    desired.SellSize,
			Elapsed:     t,
		},
	})

	if err := l.rec.Apply(ctx, desired); err != nil {
		telemetry.Metrics.CycleErrors.Inc()
		l.log.Errorf("reconcile: %v (skipping cycle)", err)
	}
}

// sleep waits out the cycle interval. Returns false on cancellation.
func (l *Loop) sleep(ctx context.Context) bool {
	timer := time.NewTimer(l.cfg.Interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
