package eventmodels

import (
	"time"

	"github.com/google/uuid"
)

// FillEvent is a confirmed (quantity, price) execution against an order.
type FillEvent struct {
	BaseEvent
	OrderID    uuid.UUID  `json:"order_id"`
	Instrument Instrument `json:"instrument"`
	Quantity   float64    `json:"quantity"`
	Price      float64    `json:"price"`
	Side       OrderSide  `json:"side"`
	Commission float64    `json:"commission"`
	Slippage   float64    `json:"slippage"`
	StrategyID string     `json:"strategy_id"`
}

func NewFillEvent(timestamp time.Time, source string, orderID uuid.UUID, instrument Instrument, quantity, price float64, side OrderSide, commission, slippage float64, strategyID string) *FillEvent {
	return &FillEvent{
		BaseEvent:  BaseEvent{Type: EventTypeFill, Timestamp: timestamp, Source: source},
		OrderID:    orderID,
		Instrument: instrument,
		Quantity:   quantity,
		Price:      price,
		Side:       side,
		Commission: commission,
		Slippage:   slippage,
		StrategyID: strategyID,
	}
}
