package models

import (
	"fmt"
	"time"

	"github.com/quantpods/backtester/src/eventmodels"
)

// CombinedPortfolioID is the distinguished portfolio that aggregates every
// fill across all strategies to represent fund-level exposure.
const CombinedPortfolioID = "COMBINED"

// PortfolioManager owns one portfolio per strategy plus the combined
// fund-level portfolio. Fund exposure is always the sum of per-strategy
// exposure: every fill is applied to both, never computed independently.
type PortfolioManager struct {
	portfolios map[string]*Portfolio
	combined   *Portfolio
}

func NewPortfolioManager() *PortfolioManager {
	return &PortfolioManager{
		portfolios: make(map[string]*Portfolio),
		combined:   NewPortfolio(CombinedPortfolioID, 0),
	}
}

func (m *PortfolioManager) CreatePortfolio(strategyID string, initialCash float64) *Portfolio {
	portfolio := NewPortfolio(strategyID, initialCash)
	m.portfolios[strategyID] = portfolio
	return portfolio
}

func (m *PortfolioManager) GetPortfolio(strategyID string) (*Portfolio, bool) {
	portfolio, found := m.portfolios[strategyID]
	return portfolio, found
}

func (m *PortfolioManager) GetPortfolios() map[string]*Portfolio {
	return m.portfolios
}

func (m *PortfolioManager) Combined() *Portfolio {
	return m.combined
}

// ProcessFill converts the fill's unsigned quantity into the signed delta
// implied by the order side and applies it to both the owning strategy's
// portfolio and the combined portfolio.
func (m *PortfolioManager) ProcessFill(order *Order, fillPrice, fillQuantity float64, timestamp time.Time, commission float64) error {
	portfolio, found := m.portfolios[order.StrategyID]
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownStrategy, order.StrategyID)
	}

	signedQuantity := fillQuantity
	if order.Side == eventmodels.OrderSideSell {
		signedQuantity = -fillQuantity
	}

	portfolio.UpdatePosition(order.Instrument, signedQuantity, fillPrice, timestamp, commission)
	m.combined.UpdatePosition(order.Instrument, signedQuantity, fillPrice, timestamp, commission)

	return nil
}

// UpdateMarketPrices propagates new reference prices to every portfolio.
func (m *PortfolioManager) UpdateMarketPrices(prices map[eventmodels.Instrument]float64) {
	for _, portfolio := range m.portfolios {
		portfolio.UpdateMarketPrices(prices)
	}

	m.combined.UpdateMarketPrices(prices)
}

// GetTotalFundValue returns the combined portfolio's total value.
func (m *PortfolioManager) GetTotalFundValue() float64 {
	return m.combined.TotalValue()
}

// GetAllocations returns each strategy's share of the total fund value.
func (m *PortfolioManager) GetAllocations() map[string]float64 {
	allocations := make(map[string]float64)

	totalValue := m.GetTotalFundValue()
	if totalValue == 0 {
		for strategyID := range m.portfolios {
			allocations[strategyID] = 0
		}
		return allocations
	}

	for strategyID, portfolio := range m.portfolios {
		allocations[strategyID] = portfolio.TotalValue() / totalValue
	}

	return allocations
}

// GetExposuresByInstrument returns each instrument's exposure broken down by
// strategy.
func (m *PortfolioManager) GetExposuresByInstrument() map[eventmodels.Instrument]map[string]float64 {
	exposures := make(map[eventmodels.Instrument]map[string]float64)

	for strategyID, portfolio := range m.portfolios {
		for instrument, exposure := range portfolio.GetExposure() {
			if _, found := exposures[instrument]; !found {
				exposures[instrument] = make(map[string]float64)
			}
			exposures[instrument][strategyID] = exposure
		}
	}

	return exposures
}

// GetTotalExposureByInstrument returns fund-level exposure per instrument.
func (m *PortfolioManager) GetTotalExposureByInstrument() map[eventmodels.Instrument]float64 {
	return m.combined.GetExposure()
}
