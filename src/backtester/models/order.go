package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/quantpods/backtester/src/eventmodels"
)

// Order tracks a trade request through its lifecycle: created by a strategy,
// validated by the risk manager, submitted into the order book, then filled,
// cancelled or rejected. Terminal orders are retained for audit, never reused.
type Order struct {
	ID           uuid.UUID               `json:"id"`
	Instrument   eventmodels.Instrument  `json:"instrument"`
	Quantity     float64                 `json:"quantity"`
	Side         eventmodels.OrderSide   `json:"side"`
	Type         eventmodels.OrderType   `json:"type"`
	CreatedTime  time.Time               `json:"created_time"`
	StrategyID   string                  `json:"strategy_id"`
	Status       eventmodels.OrderStatus `json:"status"`
	FilledQty    float64                 `json:"filled_quantity"`
	AvgFillPrice float64                 `json:"avg_fill_price"`
	LimitPrice   *float64                `json:"limit_price,omitempty"`
	StopPrice    *float64                `json:"stop_price,omitempty"`
	RejectReason *string                 `json:"reject_reason,omitempty"`
}

func (o *Order) IsFilled() bool {
	return o.Status == eventmodels.OrderStatusFilled
}

func (o *Order) IsActive() bool {
	return o.Status.IsActive()
}

func (o *Order) RemainingQuantity() float64 {
	return o.Quantity - o.FilledQty
}

// GetSignedQuantity returns the requested quantity signed by order side,
// positive for buys and negative for sells.
func (o *Order) GetSignedQuantity() float64 {
	if o.Side == eventmodels.OrderSideSell {
		return -o.Quantity
	}

	return o.Quantity
}

func (o *Order) Cancel() {
	o.Status = eventmodels.OrderStatusCancelled
}

func (o *Order) Reject(reason string) {
	o.Status = eventmodels.OrderStatusRejected
	o.RejectReason = &reason
}

// RecordFill applies a fill to the order: it increments the filled quantity,
// recomputes the volume-weighted average fill price, and updates the status.
// Status is filled iff filled quantity equals requested quantity, partial iff
// strictly between zero and requested.
func (o *Order) RecordFill(price, quantity float64) error {
	if !o.IsActive() {
		return ErrOrderNotActive
	}

	if price <= 0 {
		return ErrInvalidFillPrice
	}

	if quantity <= 0 {
		return ErrInvalidFillQuantity
	}

	if o.FilledQty+quantity > o.Quantity {
		return ErrFillExceedsRequested
	}

	newFilled := o.FilledQty + quantity
	o.AvgFillPrice = (o.AvgFillPrice*o.FilledQty + price*quantity) / newFilled
	o.FilledQty = newFilled

	if o.FilledQty == o.Quantity {
		o.Status = eventmodels.OrderStatusFilled
	} else {
		o.Status = eventmodels.OrderStatusPartial
	}

	return nil
}

func NewOrder(id uuid.UUID, instrument eventmodels.Instrument, quantity float64, side eventmodels.OrderSide, orderType eventmodels.OrderType, createdTime time.Time, strategyID string, limitPrice, stopPrice *float64) *Order {
	return &Order{
		ID:          id,
		Instrument:  instrument,
		Quantity:    quantity,
		Side:        side,
		Type:        orderType,
		CreatedTime: createdTime,
		StrategyID:  strategyID,
		Status:      eventmodels.OrderStatusCreated,
		LimitPrice:  limitPrice,
		StopPrice:   stopPrice,
	}
}
