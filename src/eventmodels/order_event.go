package eventmodels

import (
	"time"

	"github.com/google/uuid"
)

// OrderEvent is a strategy's request to trade. The engine materializes it into
// an Order after risk validation.
type OrderEvent struct {
	BaseEvent
	OrderID    uuid.UUID  `json:"order_id"`
	Instrument Instrument `json:"instrument"`
	Quantity   float64    `json:"quantity"`
	Side       OrderSide  `json:"side"`
	OrderType  OrderType  `json:"order_type"`
	LimitPrice *float64   `json:"limit_price,omitempty"`
	StopPrice  *float64   `json:"stop_price,omitempty"`
	StrategyID string     `json:"strategy_id"`
}

func NewOrderEvent(timestamp time.Time, source string, instrument Instrument, quantity float64, side OrderSide, orderType OrderType, limitPrice, stopPrice *float64, strategyID string) *OrderEvent {
	return &OrderEvent{
		BaseEvent:  BaseEvent{Type: EventTypeOrder, Timestamp: timestamp, Source: source},
		OrderID:    uuid.New(),
		Instrument: instrument,
		Quantity:   quantity,
		Side:       side,
		OrderType:  orderType,
		LimitPrice: limitPrice,
		StopPrice:  stopPrice,
		StrategyID: strategyID,
	}
}
