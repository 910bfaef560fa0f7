package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotelab/kalshi-avellaneda/internal/core/market"
	"github.com/quotelab/kalshi-avellaneda/internal/core/quote"
	"github.com/quotelab/kalshi-avellaneda/internal/telemetry"
)

type fakeGateway struct {
	orders    []market.RestingOrder
	ordersErr error

	snapshot      market.Snapshot
	snapshotErr   error
	snapshotCalls int

	cancelErr error
	cancelled []string

	placeErr error
	placed   []market.PlaceRequest
	placeID  string
}

func (f *fakeGateway) MarketSnapshot(context.Context, string) (market.Snapshot, error) {
	f.snapshotCalls++
	return f.snapshot, f.snapshotErr
}

func (f *fakeGateway) Position(context.Context, string) (int, error) { return 0, nil }

func (f *fakeGateway) RestingOrders(context.Context, string) ([]market.RestingOrder, error) {
	return f.orders, f.ordersErr
}

func (f *fakeGateway) PlaceOrder(_ context.Context, req market.PlaceRequest) (string, error) {
	if f.placeErr != nil {
		return "", f.placeErr
	}
	f.placed = append(f.placed, req)
	return f.placeID, nil
}

func (f *fakeGateway) CancelOrder(_ context.Context, orderID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func newTestReconciler(gw market.Gateway) *Reconciler {
	log := telemetry.NewStrategyLogger("test", io.Discard, slog.LevelError)
	r := New(gw, nil, log, Config{
		Strategy:   "test",
		MarketID:   "KXTEST-26",
		TradeSide:  market.SideYes,
		Expiration: 5 * time.Minute,
	})
	r.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return r
}

func buyOrder(id string, price float64, size int) market.RestingOrder {
	return market.RestingOrder{ID: id, Side: market.SideYes, Action: market.ActionBuy, Price: price, RemainingSize: size}
}

func sellOrder(id string, price float64, size int) market.RestingOrder {
	return market.RestingOrder{ID: id, Side: market.SideYes, Action: market.ActionSell, Price: price, RemainingSize: size}
}

// Matching orders on both sides: nothing is cancelled, nothing placed,
// and the mid is never re-fetched.
func TestApplyKeepsMatchingOrders(t *testing.T) {
	gw := &fakeGateway{
		orders: []market.RestingOrder{
			buyOrder("b1", 0.48, 10),
			sellOrder("s1", 0.52, 100),
		},
	}
	r := newTestReconciler(gw)

	err := r.Apply(context.Background(), quote.Desired{BidPrice: 0.481, AskPrice: 0.52, BuySize: 10, SellSize: 100})
	require.NoError(t, err)

	assert.Empty(t, gw.cancelled)
	assert.Empty(t, gw.placed)
	assert.Zero(t, gw.snapshotCalls)
}

func TestApplyCancelsStaleAndReplaces(t *testing.T) {
	gw := &fakeGateway{
		orders: []market.RestingOrder{
			buyOrder("b1", 0.40, 10), // price drifted
			buyOrder("b2", 0.48, 5),  // size mismatch
		},
		snapshot: market.Snapshot{YesMid: 0.50, NoMid: 0.50},
		placeID:  "new-1",
	}
	r := newTestReconciler(gw)

	err := r.Apply(context.Background(), quote.Desired{BidPrice: 0.481, AskPrice: 0.52, BuySize: 10, SellSize: 100})
	require.NoError(t, err)

	assert.Equal(t, []string{"b1", "b2"}, gw.cancelled)
	require.Len(t, gw.placed, 2) // replacement bid plus fresh ask

	bid := gw.placed[0]
	assert.Equal(t, market.ActionBuy, bid.Action)
	assert.Equal(t, market.SideYes, bid.Side)
	assert.Equal(t, 0.481, bid.Price)
	assert.Equal(t, 10, bid.Size)
	assert.Equal(t, time.Unix(1_700_000_000, 0).Add(5*time.Minute), bid.ExpiresAt)
	assert.NotEmpty(t, bid.Token)

	ask := gw.placed[1]
	assert.Equal(t, market.ActionSell, ask.Action)
	assert.NotEqual(t, bid.Token, ask.Token, "each placement gets a fresh token")
}

// Only the first price/size match is kept; duplicates at the same level
// are cancelled.
func TestApplyKeepsOnlyFirstMatch(t *testing.T) {
	gw := &fakeGateway{
		orders: []market.RestingOrder{
			buyOrder("b1", 0.48, 10),
			buyOrder("b2", 0.48, 10),
			sellOrder("s1", 0.52, 100),
		},
	}
	r := newTestReconciler(gw)

	err := r.Apply(context.Background(), quote.Desired{BidPrice: 0.48, AskPrice: 0.52, BuySize: 10, SellSize: 100})
	require.NoError(t, err)

	assert.Equal(t, []string{"b2"}, gw.cancelled)
	assert.Empty(t, gw.placed)
}

// Orders on the other contract side are invisible to reconciliation.
func TestApplyIgnoresOtherSide(t *testing.T) {
	gw := &fakeGateway{
		orders: []market.RestingOrder{
			{ID: "n1", Side: market.SideNo, Action: market.ActionBuy, Price: 0.10, RemainingSize: 3},
		},
		snapshot: market.Snapshot{YesMid: 0.50, NoMid: 0.50},
		placeID:  "new-1",
	}
	r := newTestReconciler(gw)

	err := r.Apply(context.Background(), quote.Desired{BidPrice: 0.48, AskPrice: 0.52, BuySize: 10, SellSize: 100})
	require.NoError(t, err)

	assert.Empty(t, gw.cancelled)
	assert.Len(t, gw.placed, 2)
}

// A desired bid at or above the refreshed mid is a skip, not an error,
// even when no order is resting.
func TestApplySkipsPlacementWithoutEdge(t *testing.T) {
	gw := &fakeGateway{
		snapshot: market.Snapshot{YesMid: 0.45, NoMid: 0.55},
	}
	r := newTestReconciler(gw)

	err := r.Apply(context.Background(), quote.Desired{BidPrice: 0.46, AskPrice: 0.44, BuySize: 10, SellSize: 100})
	require.NoError(t, err)

	assert.Empty(t, gw.placed)
	assert.Equal(t, 2, gw.snapshotCalls, "mid is refreshed once per side")
}

// The no side quotes against the no mid.
func TestApplyUsesTradeSideMid(t *testing.T) {
	gw := &fakeGateway{
		snapshot: market.Snapshot{YesMid: 0.70, NoMid: 0.30},
		placeID:  "new-1",
	}
	log := telemetry.NewStrategyLogger("test", io.Discard, slog.LevelError)
	r := New(gw, nil, log, Config{
		Strategy:   "test",
		MarketID:   "KXTEST-26",
		TradeSide:  market.SideNo,
		Expiration: time.Minute,
	})

	err := r.Apply(context.Background(), quote.Desired{BidPrice: 0.29, AskPrice: 0.31, BuySize: 1, SellSize: 1})
	require.NoError(t, err)

	require.Len(t, gw.placed, 2)
	assert.Equal(t, market.SideNo, gw.placed[0].Side)
}

func TestApplyCancelFailureDoesNotAbortCycle(t *testing.T) {
	gw := &fakeGateway{
		orders: []market.RestingOrder{
			buyOrder("b1", 0.30, 4),
		},
		snapshot:  market.Snapshot{YesMid: 0.50, NoMid: 0.50},
		cancelErr: &market.CancelError{OrderID: "b1", Status: 404},
		placeID:   "new-1",
	}
	r := newTestReconciler(gw)

	err := r.Apply(context.Background(), quote.Desired{BidPrice: 0.48, AskPrice: 0.52, BuySize: 10, SellSize: 100})
	require.NoError(t, err)

	// Replacement still goes out on both sides.
	assert.Len(t, gw.placed, 2)
}

func TestApplyRejectionIsAbsorbed(t *testing.T) {
	gw := &fakeGateway{
		snapshot: market.Snapshot{YesMid: 0.50, NoMid: 0.50},
		placeErr: &market.RejectedError{Status: 400, Body: "insufficient balance"},
	}
	r := newTestReconciler(gw)

	err := r.Apply(context.Background(), quote.Desired{BidPrice: 0.48, AskPrice: 0.52, BuySize: 10, SellSize: 100})
	assert.NoError(t, err)
}

func TestApplyPropagatesFetchFailures(t *testing.T) {
	gw := &fakeGateway{ordersErr: errors.New("connection reset")}
	r := newTestReconciler(gw)

	err := r.Apply(context.Background(), quote.Desired{BidPrice: 0.48, AskPrice: 0.52, BuySize: 10, SellSize: 100})
	assert.Error(t, err)

	gw = &fakeGateway{snapshotErr: errors.New("connection reset")}
	r = newTestReconciler(gw)

	err = r.Apply(context.Background(), quote.Desired{BidPrice: 0.48, AskPrice: 0.52, BuySize: 10, SellSize: 100})
	assert.Error(t, err)
}

func TestHasEdge(t *testing.T) {
	assert.True(t, hasEdge(market.ActionBuy, 0.49, 0.50))
	assert.False(t, hasEdge(market.ActionBuy, 0.50, 0.50))
	assert.False(t, hasEdge(market.ActionBuy, 0.51, 0.50))

	assert.True(t, hasEdge(market.ActionSell, 0.51, 0.50))
	assert.False(t, hasEdge(market.ActionSell, 0.50, 0.50))
	assert.False(t, hasEdge(market.ActionSell, 0.49, 0.50))
}
