package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionUpdate(t *testing.T) {
	timestamp := time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC)

	t.Run("opening a long position", func(t *testing.T) {
		position := NewPosition("AAPL")

		realized := position.Update(100, 50, timestamp)

		assert.Equal(t, 0.0, realized)
		assert.Equal(t, 100.0, position.Quantity)
		assert.Equal(t, 5000.0, position.CostBasis)

		avgPrice, ok := position.AveragePrice()
		require.True(t, ok)
		assert.Equal(t, 50.0, avgPrice)
	})

	t.Run("adding to a long position accumulates cost basis", func(t *testing.T) {
		position := NewPosition("AAPL")
		position.Update(100, 50, timestamp)

		position.Update(50, 60, timestamp)

		assert.Equal(t, 150.0, position.Quantity)
		assert.Equal(t, 8000.0, position.CostBasis)
	})

	t.Run("full close resets cost basis and unrealized to zero", func(t *testing.T) {
		position := NewPosition("AAPL")
		position.Update(100, 50, timestamp)

		realized := position.Update(-100, 60, timestamp)

		assert.InDelta(t, 1000.0, realized, 1e-9)
		assert.Equal(t, 0.0, position.Quantity)
		assert.Equal(t, 0.0, position.CostBasis)
		assert.Equal(t, 0.0, position.UnrealizedPnL)
		assert.InDelta(t, 1000.0, position.RealizedPnL, 1e-9)
	})

	t.Run("partial close scales cost basis proportionally", func(t *testing.T) {
		position := NewPosition("AAPL")
		position.Update(100, 50, timestamp)

		realized := position.Update(-40, 60, timestamp)

		assert.InDelta(t, 400.0, realized, 1e-9)
		assert.Equal(t, 60.0, position.Quantity)
		assert.InDelta(t, 3000.0, position.CostBasis, 1e-9)
	})

	t.Run("reversal opens the new position at the reversal price", func(t *testing.T) {
		position := NewPosition("AAPL")
		position.Update(100, 50, timestamp)

		// sell 150: closes 100 long, opens 50 short at 60
		realized := position.Update(-150, 60, timestamp)

		assert.InDelta(t, 1000.0, realized, 1e-9)
		assert.Equal(t, -50.0, position.Quantity)
		// never a blend with the old basis
		assert.InDelta(t, -3000.0, position.CostBasis, 1e-9)

		avgPrice, ok := position.AveragePrice()
		require.True(t, ok)
		assert.InDelta(t, 60.0, avgPrice, 1e-9)
	})

	t.Run("closing a short realizes inverse profit", func(t *testing.T) {
		position := NewPosition("AAPL")
		position.Update(-100, 50, timestamp)

		realized := position.Update(100, 40, timestamp)

		assert.InDelta(t, 1000.0, realized, 1e-9)
		assert.Equal(t, 0.0, position.Quantity)
		assert.Equal(t, 0.0, position.CostBasis)
	})

	t.Run("short reversal to long", func(t *testing.T) {
		position := NewPosition("AAPL")
		position.Update(-100, 50, timestamp)

		realized := position.Update(150, 45, timestamp)

		assert.InDelta(t, 500.0, realized, 1e-9)
		assert.Equal(t, 50.0, position.Quantity)
		assert.InDelta(t, 2250.0, position.CostBasis, 1e-9)
	})

	t.Run("trade log is append only", func(t *testing.T) {
		position := NewPosition("AAPL")
		position.Update(100, 50, timestamp)
		position.Update(-100, 60, timestamp.Add(time.Hour))

		require.Len(t, position.Trades, 2)
		assert.Equal(t, 100.0, position.Trades[0].Quantity)
		assert.Equal(t, -100.0, position.Trades[1].Quantity)
	})
}

func TestPositionUpdateMarketPrice(t *testing.T) {
	timestamp := time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC)

	t.Run("long unrealized profit", func(t *testing.T) {
		position := NewPosition("AAPL")
		position.Update(100, 50, timestamp)

		position.UpdateMarketPrice(60)

		assert.InDelta(t, 1000.0, position.UnrealizedPnL, 1e-9)
		assert.InDelta(t, 6000.0, position.MarketValue(), 1e-9)
	})

	t.Run("short unrealized profit when price falls", func(t *testing.T) {
		position := NewPosition("AAPL")
		position.Update(-100, 50, timestamp)

		position.UpdateMarketPrice(40)

		assert.InDelta(t, 1000.0, position.UnrealizedPnL, 1e-9)
	})

	t.Run("flat position has zero unrealized", func(t *testing.T) {
		position := NewPosition("AAPL")
		position.UpdateMarketPrice(100)

		assert.Equal(t, 0.0, position.UnrealizedPnL)
		assert.Equal(t, 0.0, position.MarketValue())
	})
}
