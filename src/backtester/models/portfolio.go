package models

import (
	"math"
	"time"

	"github.com/quantpods/backtester/src/eventmodels"
)

// Transaction is one entry in a portfolio's append-only transaction log.
type Transaction struct {
	Timestamp  time.Time              `json:"timestamp" csv:"timestamp"`
	Instrument eventmodels.Instrument `json:"instrument" csv:"instrument"`
	Quantity   float64                `json:"quantity" csv:"quantity"`
	Price      float64                `json:"price" csv:"price"`
	Commission float64                `json:"commission" csv:"commission"`
	CashAfter  float64                `json:"cash_after" csv:"cash_after"`
}

// Portfolio holds one strategy's cash and positions. StartingCash is an
// immutable snapshot captured at creation and serves as the drawdown
// baseline.
type Portfolio struct {
	StrategyID   string
	Cash         float64
	StartingCash float64

	positions    map[eventmodels.Instrument]*Position
	transactions []Transaction
}

func NewPortfolio(strategyID string, initialCash float64) *Portfolio {
	return &Portfolio{
		StrategyID:   strategyID,
		Cash:         initialCash,
		StartingCash: initialCash,
		positions:    make(map[eventmodels.Instrument]*Position),
		transactions: make([]Transaction, 0),
	}
}

// UpdatePosition settles a signed trade into the portfolio: cash is debited
// by quantity*price plus commission, the transaction is logged, and the
// position is updated. Returns the realized profit for the trade.
func (p *Portfolio) UpdatePosition(instrument eventmodels.Instrument, quantity, price float64, timestamp time.Time, commission float64) float64 {
	position, found := p.positions[instrument]
	if !found {
		position = NewPosition(instrument)
		p.positions[instrument] = position
	}

	p.Cash -= quantity * price
	p.Cash -= commission

	p.transactions = append(p.transactions, Transaction{
		Timestamp:  timestamp,
		Instrument: instrument,
		Quantity:   quantity,
		Price:      price,
		Commission: commission,
		CashAfter:  p.Cash,
	})

	return position.Update(quantity, price, timestamp)
}

func (p *Portfolio) GetPosition(instrument eventmodels.Instrument) (*Position, bool) {
	position, found := p.positions[instrument]
	return position, found
}

func (p *Portfolio) GetPositions() map[eventmodels.Instrument]*Position {
	return p.positions
}

// UpdateMarketPrices refreshes unrealized profit on every held position.
func (p *Portfolio) UpdateMarketPrices(prices map[eventmodels.Instrument]float64) {
	for instrument, price := range prices {
		if position, found := p.positions[instrument]; found {
			position.UpdateMarketPrice(price)
		}
	}
}

// TotalValue returns cash plus the market value of every position.
func (p *Portfolio) TotalValue() float64 {
	positionsValue := 0.0
	for _, position := range p.positions {
		positionsValue += position.MarketValue()
	}

	return p.Cash + positionsValue
}

// TotalPnL returns the sum of realized and unrealized profit across
// positions.
func (p *Portfolio) TotalPnL() float64 {
	total := 0.0
	for _, position := range p.positions {
		total += position.RealizedPnL + position.UnrealizedPnL
	}

	return total
}

// GetExposure returns the market value per instrument for non-zero
// positions with a known price.
func (p *Portfolio) GetExposure() map[eventmodels.Instrument]float64 {
	exposure := make(map[eventmodels.Instrument]float64)
	for instrument, position := range p.positions {
		if _, hasPrice := position.CurrentPrice(); hasPrice && position.Quantity != 0 {
			exposure[instrument] = position.MarketValue()
		}
	}

	return exposure
}

// GrossExposure returns the sum of absolute market values across positions.
func (p *Portfolio) GrossExposure() float64 {
	gross := 0.0
	for _, exposure := range p.GetExposure() {
		gross += math.Abs(exposure)
	}

	return gross
}

func (p *Portfolio) GetTransactions() []Transaction {
	return p.transactions
}
