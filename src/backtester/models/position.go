package models

import (
	"math"
	"time"

	"github.com/quantpods/backtester/src/eventmodels"
)

// TradeRecord is one entry in a position's append-only trade log.
type TradeRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
}

// Position tracks per-instrument holdings for one strategy. Quantity is
// signed: positive for long, negative for short. CostBasis is the signed
// total currency amount paid to establish the current position, so the
// average price is CostBasis / Quantity. When Quantity is zero, CostBasis
// and UnrealizedPnL are exactly zero.
type Position struct {
	Instrument    eventmodels.Instrument `json:"instrument"`
	Quantity      float64                `json:"quantity"`
	CostBasis     float64                `json:"cost_basis"`
	RealizedPnL   float64                `json:"realized_pnl"`
	UnrealizedPnL float64                `json:"unrealized_pnl"`
	Trades        []TradeRecord          `json:"trades"`

	currentPrice float64
	hasPrice     bool
}

func NewPosition(instrument eventmodels.Instrument) *Position {
	return &Position{
		Instrument: instrument,
		Trades:     make([]TradeRecord, 0),
	}
}

// Update applies a signed trade to the position and returns the realized
// profit for the portion of the trade that closes existing exposure.
//
// Cost basis follows the exact-close convention: adding to a same-signed
// position accumulates quantity*price; fully closing resets to zero; closing
// and reversing resets to the excess quantity times the reversal price, never
// a blend with the old basis; partially closing scales the basis
// proportionally to the new quantity.
func (p *Position) Update(quantity, price float64, timestamp time.Time) float64 {
	realizedPnL := 0.0

	p.Trades = append(p.Trades, TradeRecord{Timestamp: timestamp, Quantity: quantity, Price: price})

	// realized profit on the closing portion, when the trade opposes the
	// current position's sign
	if (p.Quantity > 0 && quantity < 0) || (p.Quantity < 0 && quantity > 0) {
		avgPrice := p.CostBasis / p.Quantity
		closedQuantity := math.Min(math.Abs(quantity), math.Abs(p.Quantity))
		realizedPnL = (price - avgPrice) * closedQuantity
		if p.Quantity < 0 {
			realizedPnL = -realizedPnL
		}
	}

	oldQuantity := p.Quantity
	newQuantity := oldQuantity + quantity

	if newQuantity != 0 {
		if (oldQuantity > 0 && quantity > 0) || (oldQuantity < 0 && quantity < 0) {
			p.CostBasis += quantity * price
		} else if math.Abs(quantity) >= math.Abs(oldQuantity) {
			// close and reverse: the excess opens the new position
			p.CostBasis = newQuantity * price
		} else {
			p.CostBasis = (p.CostBasis / oldQuantity) * newQuantity
		}
	} else {
		p.CostBasis = 0
	}

	p.Quantity = newQuantity
	p.RealizedPnL += realizedPnL

	p.UpdateMarketPrice(price)

	return realizedPnL
}

// UpdateMarketPrice records the latest price and recomputes unrealized
// profit.
func (p *Position) UpdateMarketPrice(price float64) {
	p.currentPrice = price
	p.hasPrice = true

	if p.Quantity == 0 {
		p.UnrealizedPnL = 0
		return
	}

	avgCost := p.CostBasis / p.Quantity
	p.UnrealizedPnL = (price - avgCost) * p.Quantity
}

// MarketValue returns quantity times the last known price, zero before any
// price has been seen.
func (p *Position) MarketValue() float64 {
	if !p.hasPrice {
		return 0
	}

	return p.Quantity * p.currentPrice
}

// CurrentPrice returns the last known market price for the instrument.
func (p *Position) CurrentPrice() (float64, bool) {
	return p.currentPrice, p.hasPrice
}

// AveragePrice returns CostBasis / Quantity; the second return value is
// false for a flat position.
func (p *Position) AveragePrice() (float64, bool) {
	if p.Quantity == 0 {
		return 0, false
	}

	return p.CostBasis / p.Quantity, true
}
