package strategies

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantpods/backtester/src/backtester/models"
	"github.com/quantpods/backtester/src/eventmodels"
)

func newBoundCross(t *testing.T) (*MovingAverageCross, *eventmodels.EventQueue) {
	t.Helper()

	queue := eventmodels.NewEventQueue()
	strategy := NewMovingAverageCross("alpha", []eventmodels.Instrument{"AAPL"}, 2, 3, 100)
	strategy.Bind(queue, func() time.Time {
		return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	})
	strategy.Initialize(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	return strategy, queue
}

func feedPrice(strategy *MovingAverageCross, price float64) {
	strategy.OnMarketData(eventmodels.NewMarketDataEvent(
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "feed", "AAPL",
		map[string]float64{"close": price},
	))
}

func drainSignals(queue *eventmodels.EventQueue) []*eventmodels.SignalEvent {
	signals := make([]*eventmodels.SignalEvent, 0)
	for {
		event, found := queue.Dequeue()
		if !found {
			return signals
		}
		if signal, ok := event.(*eventmodels.SignalEvent); ok {
			signals = append(signals, signal)
		}
	}
}

func drainOrders(queue *eventmodels.EventQueue) []*eventmodels.OrderEvent {
	orders := make([]*eventmodels.OrderEvent, 0)
	for {
		event, found := queue.Dequeue()
		if !found {
			return orders
		}
		if order, ok := event.(*eventmodels.OrderEvent); ok {
			orders = append(orders, order)
		}
	}
}

func TestMovingAverageCrossSignals(t *testing.T) {
	strategy, queue := newBoundCross(t)

	// still warming up: no slow average at the previous sample yet
	for _, price := range []float64{10, 9, 8} {
		feedPrice(strategy, price)
	}
	assert.Empty(t, drainSignals(queue))

	feedPrice(strategy, 7)
	assert.Empty(t, drainSignals(queue))

	// fast average crosses above slow
	feedPrice(strategy, 12)
	signals := drainSignals(queue)
	require.Len(t, signals, 1)
	assert.Equal(t, SignalLong, signals[0].SignalType)
	assert.Equal(t, 0.8, signals[0].Strength)
	assert.Equal(t, 12.0, signals[0].Metadata["price"])

	last, found := strategy.LastSignal("AAPL")
	require.True(t, found)
	assert.Equal(t, SignalLong, last)

	// fast average crosses back below slow
	feedPrice(strategy, 5)
	assert.Empty(t, drainSignals(queue))

	feedPrice(strategy, 4)
	signals = drainSignals(queue)
	require.Len(t, signals, 1)
	assert.Equal(t, SignalShort, signals[0].SignalType)
	assert.Equal(t, -0.8, signals[0].Strength)
}

func TestMovingAverageCrossIgnoresOtherInstruments(t *testing.T) {
	strategy, queue := newBoundCross(t)

	for i := 0; i < 10; i++ {
		strategy.OnMarketData(eventmodels.NewMarketDataEvent(
			time.Now().UTC(), "feed", "TSLA", map[string]float64{"close": float64(i)},
		))
	}

	assert.Empty(t, drainSignals(queue))
}

func TestMovingAverageCrossExecution(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	t.Run("long signal from flat opens a long", func(t *testing.T) {
		strategy, queue := newBoundCross(t)

		strategy.OnSignal(eventmodels.NewSignalEvent(now, "alpha", "AAPL", SignalLong, 0.8, nil))

		orders := drainOrders(queue)
		require.Len(t, orders, 1)
		assert.Equal(t, eventmodels.OrderSideBuy, orders[0].Side)
		assert.Equal(t, 100.0, orders[0].Quantity)
		assert.Equal(t, eventmodels.Market, orders[0].OrderType)
	})

	t.Run("repeated long signal on an open long is a no-op", func(t *testing.T) {
		strategy, queue := newBoundCross(t)
		fillPosition(strategy, eventmodels.OrderSideBuy, 100, now)

		strategy.OnSignal(eventmodels.NewSignalEvent(now, "alpha", "AAPL", SignalLong, 0.8, nil))

		assert.Empty(t, drainOrders(queue))
	})

	t.Run("short signal on an open long closes then opens short", func(t *testing.T) {
		strategy, queue := newBoundCross(t)
		fillPosition(strategy, eventmodels.OrderSideBuy, 100, now)

		strategy.OnSignal(eventmodels.NewSignalEvent(now, "alpha", "AAPL", SignalShort, -0.8, nil))

		orders := drainOrders(queue)
		require.Len(t, orders, 2)
		assert.Equal(t, eventmodels.OrderSideSell, orders[0].Side)
		assert.Equal(t, 100.0, orders[0].Quantity)
		assert.Equal(t, eventmodels.OrderSideSell, orders[1].Side)
		assert.Equal(t, 100.0, orders[1].Quantity)
	})

	t.Run("long signal on an open short closes then opens long", func(t *testing.T) {
		strategy, queue := newBoundCross(t)
		fillPosition(strategy, eventmodels.OrderSideSell, 100, now)

		strategy.OnSignal(eventmodels.NewSignalEvent(now, "alpha", "AAPL", SignalLong, 0.8, nil))

		orders := drainOrders(queue)
		require.Len(t, orders, 2)
		assert.Equal(t, eventmodels.OrderSideBuy, orders[0].Side)
		assert.Equal(t, eventmodels.OrderSideBuy, orders[1].Side)
	})
}

func TestBaseStrategyUnbound(t *testing.T) {
	strategy := NewMovingAverageCross("alpha", []eventmodels.Instrument{"AAPL"}, 2, 3, 100)

	assert.Equal(t, uuid.Nil, strategy.SendOrder("AAPL", 100, eventmodels.OrderSideBuy, eventmodels.Market, nil, nil))
	assert.NotPanics(t, func() {
		strategy.SendSignal("AAPL", SignalLong, 0.8, nil)
	})
}

func fillPosition(strategy *MovingAverageCross, side eventmodels.OrderSide, quantity float64, now time.Time) {
	order := models.NewOrder(uuid.New(), "AAPL", quantity, side, eventmodels.Market, now, "alpha", nil, nil)
	strategy.OnOrderFill(order, 10, quantity)
}
