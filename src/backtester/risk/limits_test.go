package risk

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantpods/backtester/src/backtester/models"
	"github.com/quantpods/backtester/src/eventmodels"
)

func newTestOrder(instrument eventmodels.Instrument, quantity float64, side eventmodels.OrderSide) *models.Order {
	return models.NewOrder(uuid.New(), instrument, quantity, side, eventmodels.Market, time.Now().UTC(), "alpha", nil, nil)
}

func newTestPortfolio(t *testing.T, cash float64, quantity, price float64) *models.Portfolio {
	t.Helper()

	portfolio := models.NewPortfolio("alpha", cash)
	portfolio.UpdatePosition("AAPL", quantity, price, time.Now().UTC(), 0)
	return portfolio
}

func TestPositionLimit(t *testing.T) {
	limit := NewPositionLimit(100, "", eventmodels.RiskSeverityCritical)

	t.Run("order within limit", func(t *testing.T) {
		portfolio := newTestPortfolio(t, 100000, 50, 10)
		order := newTestOrder("AAPL", 40, eventmodels.OrderSideBuy)

		assert.True(t, limit.ValidateOrder(order, portfolio))
	})

	t.Run("order pushing position over limit", func(t *testing.T) {
		portfolio := newTestPortfolio(t, 100000, 50, 10)
		order := newTestOrder("AAPL", 60, eventmodels.OrderSideBuy)

		assert.False(t, limit.ValidateOrder(order, portfolio))
	})

	t.Run("sell reduces projected position", func(t *testing.T) {
		portfolio := newTestPortfolio(t, 100000, 50, 10)
		order := newTestOrder("AAPL", 60, eventmodels.OrderSideSell)

		assert.True(t, limit.ValidateOrder(order, portfolio))
	})

	t.Run("short side counted by magnitude", func(t *testing.T) {
		portfolio := newTestPortfolio(t, 100000, -90, 10)
		order := newTestOrder("AAPL", 20, eventmodels.OrderSideSell)

		assert.False(t, limit.ValidateOrder(order, portfolio))
	})

	t.Run("instrument scoped limit ignores other instruments", func(t *testing.T) {
		scoped := NewPositionLimit(10, "TSLA", eventmodels.RiskSeverityCritical)
		portfolio := newTestPortfolio(t, 100000, 50, 10)
		order := newTestOrder("AAPL", 500, eventmodels.OrderSideBuy)

		assert.True(t, scoped.ValidateOrder(order, portfolio))
	})

	t.Run("portfolio breach", func(t *testing.T) {
		portfolio := newTestPortfolio(t, 100000, 150, 10)

		assert.False(t, limit.ValidatePortfolio(portfolio))
	})

	t.Run("portfolio within limit", func(t *testing.T) {
		portfolio := newTestPortfolio(t, 100000, 100, 10)

		assert.True(t, limit.ValidatePortfolio(portfolio))
	})
}

func TestPositionLimitBreachDetails(t *testing.T) {
	limit := NewPositionLimit(100, "", eventmodels.RiskSeverityCritical)
	portfolio := newTestPortfolio(t, 100000, 150, 10)

	details := limit.BreachDetails(portfolio)

	breached, ok := details["breached_instruments"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, breached, 1)
	assert.Equal(t, eventmodels.Instrument("AAPL"), breached[0]["instrument"])
	assert.Equal(t, 150.0, breached[0]["quantity"])

	// single offender is surfaced for the position-reduction response
	assert.Equal(t, eventmodels.Instrument("AAPL"), details["instrument"])
}

func TestExposureLimit(t *testing.T) {
	t.Run("order without position passes", func(t *testing.T) {
		limit := NewExposureLimit(1500, "", false, eventmodels.RiskSeverityWarning)
		portfolio := models.NewPortfolio("alpha", 100000)
		order := newTestOrder("AAPL", 1000, eventmodels.OrderSideBuy)

		assert.True(t, limit.ValidateOrder(order, portfolio))
	})

	t.Run("absolute order exposure", func(t *testing.T) {
		limit := NewExposureLimit(1500, "", false, eventmodels.RiskSeverityWarning)
		portfolio := newTestPortfolio(t, 100000, 100, 10)

		assert.True(t, limit.ValidateOrder(newTestOrder("AAPL", 40, eventmodels.OrderSideBuy), portfolio))
		assert.False(t, limit.ValidateOrder(newTestOrder("AAPL", 60, eventmodels.OrderSideBuy), portfolio))
	})

	t.Run("percent order exposure uses portfolio value base", func(t *testing.T) {
		// cash 99000 + market value 1000 = 100000, so 1.2% caps exposure
		// at 1200
		limit := NewExposureLimit(1.2, "", true, eventmodels.RiskSeverityWarning)
		portfolio := newTestPortfolio(t, 100000, 100, 10)

		assert.True(t, limit.ValidateOrder(newTestOrder("AAPL", 20, eventmodels.OrderSideBuy), portfolio))
		assert.False(t, limit.ValidateOrder(newTestOrder("AAPL", 30, eventmodels.OrderSideBuy), portfolio))
	})

	t.Run("portfolio gross exposure", func(t *testing.T) {
		limit := NewExposureLimit(900, "", false, eventmodels.RiskSeverityWarning)
		portfolio := newTestPortfolio(t, 100000, 100, 10)

		assert.False(t, limit.ValidatePortfolio(portfolio))
	})

	t.Run("instrument scoped portfolio exposure", func(t *testing.T) {
		limit := NewExposureLimit(900, "TSLA", false, eventmodels.RiskSeverityWarning)
		portfolio := newTestPortfolio(t, 100000, 100, 10)

		assert.True(t, limit.ValidatePortfolio(portfolio))
	})
}

func TestDrawdownLimit(t *testing.T) {
	portfolio := newTestPortfolio(t, 100000, 100, 10)
	portfolio.UpdateMarketPrices(map[eventmodels.Instrument]float64{"AAPL": 5})
	// cash 99000 + market value 500 = 99500, a 0.5% drawdown

	t.Run("within limit", func(t *testing.T) {
		limit := NewDrawdownLimit(1.0, eventmodels.RiskSeverityCritical)
		assert.True(t, limit.ValidatePortfolio(portfolio))
	})

	t.Run("breach", func(t *testing.T) {
		limit := NewDrawdownLimit(0.4, eventmodels.RiskSeverityCritical)
		assert.False(t, limit.ValidatePortfolio(portfolio))
	})

	t.Run("breach details", func(t *testing.T) {
		limit := NewDrawdownLimit(0.4, eventmodels.RiskSeverityCritical)
		details := limit.BreachDetails(portfolio)

		assert.Equal(t, 0.4, details["max_drawdown"])
		assert.InDelta(t, -0.5, details["current_drawdown"], 1e-9)
		assert.Equal(t, 99500.0, details["current_value"])
	})
}

func TestLeverageLimit(t *testing.T) {
	// cash -1000 + market value 2000 = 1000, gross 2000, leverage 2.0
	leveraged := newTestPortfolio(t, 1000, 200, 10)

	t.Run("portfolio at limit", func(t *testing.T) {
		limit := NewLeverageLimit(2.0, eventmodels.RiskSeverityCritical)
		assert.True(t, limit.ValidatePortfolio(leveraged))
	})

	t.Run("portfolio over limit", func(t *testing.T) {
		limit := NewLeverageLimit(1.5, eventmodels.RiskSeverityCritical)
		assert.False(t, limit.ValidatePortfolio(leveraged))
	})

	t.Run("buy order raises projected leverage", func(t *testing.T) {
		limit := NewLeverageLimit(2.0, eventmodels.RiskSeverityCritical)
		order := newTestOrder("AAPL", 50, eventmodels.OrderSideBuy)

		assert.False(t, limit.ValidateOrder(order, leveraged))
	})

	t.Run("reducing sell lowers projected leverage", func(t *testing.T) {
		limit := NewLeverageLimit(2.0, eventmodels.RiskSeverityCritical)
		order := newTestOrder("AAPL", 50, eventmodels.OrderSideSell)

		assert.True(t, limit.ValidateOrder(order, leveraged))
	})

	t.Run("breach details", func(t *testing.T) {
		limit := NewLeverageLimit(1.5, eventmodels.RiskSeverityCritical)
		details := limit.BreachDetails(leveraged)

		assert.Equal(t, 1.5, details["max_leverage"])
		assert.InDelta(t, 2.0, details["current_leverage"].(float64), 1e-9)
		assert.Equal(t, 2000.0, details["gross_exposure"])
	})
}

func TestLimitAlertType(t *testing.T) {
	assert.Equal(t, eventmodels.RiskAlertPositionLimit, NewPositionLimit(1, "", eventmodels.RiskSeverityCritical).AlertType())
	assert.Equal(t, eventmodels.RiskAlertExposureLimit, NewExposureLimit(1, "", false, eventmodels.RiskSeverityWarning).AlertType())
	assert.Equal(t, eventmodels.RiskAlertDrawdownLimit, NewDrawdownLimit(1, eventmodels.RiskSeverityCritical).AlertType())
	assert.Equal(t, eventmodels.RiskAlertLeverageLimit, NewLeverageLimit(1, eventmodels.RiskSeverityCritical).AlertType())
}
