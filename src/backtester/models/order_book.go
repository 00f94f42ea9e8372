package models

import (
	"github.com/google/uuid"

	"github.com/quantpods/backtester/src/eventmodels"
)

// Fill is produced by the matching pass. The slice returned from
// UpdateMarketData is the sole channel by which fills reach the engine.
type Fill struct {
	Order    *Order
	Price    float64
	Quantity float64
}

// OrderBook owns the order lifecycle after submission: per-instrument order
// buckets, the latest known reference price, and the matching pass. There is
// no depth or liquidity model; one eligible order fills completely against
// the single reference price.
type OrderBook struct {
	orders     map[eventmodels.Instrument][]*Order
	ordersByID map[eventmodels.Instrument]map[uuid.UUID]*Order
	lastPrice  map[eventmodels.Instrument]float64
}

func NewOrderBook() *OrderBook {
	return &OrderBook{
		orders:     make(map[eventmodels.Instrument][]*Order),
		ordersByID: make(map[eventmodels.Instrument]map[uuid.UUID]*Order),
		lastPrice:  make(map[eventmodels.Instrument]float64),
	}
}

// AddOrder inserts the order into its instrument bucket and marks it
// submitted.
func (b *OrderBook) AddOrder(order *Order) error {
	if _, found := b.ordersByID[order.Instrument]; !found {
		b.ordersByID[order.Instrument] = make(map[uuid.UUID]*Order)
	}

	if _, found := b.ordersByID[order.Instrument][order.ID]; found {
		return ErrDuplicateOrder
	}

	b.orders[order.Instrument] = append(b.orders[order.Instrument], order)
	b.ordersByID[order.Instrument][order.ID] = order
	order.Status = eventmodels.OrderStatusSubmitted

	return nil
}

// CancelOrder cancels an active order. Returns false if the order is unknown
// or already terminal.
func (b *OrderBook) CancelOrder(orderID uuid.UUID, instrument eventmodels.Instrument) bool {
	order, found := b.GetOrder(orderID, instrument)
	if !found || !order.IsActive() {
		return false
	}

	order.Cancel()
	return true
}

func (b *OrderBook) GetOrder(orderID uuid.UUID, instrument eventmodels.Instrument) (*Order, bool) {
	bucket, found := b.ordersByID[instrument]
	if !found {
		return nil, false
	}

	order, found := bucket[orderID]
	return order, found
}

// GetActiveOrders returns active orders, scoped to one instrument when given,
// across all instruments otherwise.
func (b *OrderBook) GetActiveOrders(instruments ...eventmodels.Instrument) []*Order {
	if len(instruments) == 0 {
		for instrument := range b.orders {
			instruments = append(instruments, instrument)
		}
	}

	activeOrders := make([]*Order, 0)
	for _, instrument := range instruments {
		for _, order := range b.orders[instrument] {
			if order.IsActive() {
				activeOrders = append(activeOrders, order)
			}
		}
	}

	return activeOrders
}

// GetLastPrice returns the latest reference price seen for the instrument.
func (b *OrderBook) GetLastPrice(instrument eventmodels.Instrument) (float64, bool) {
	price, found := b.lastPrice[instrument]
	return price, found
}

// UpdateMarketData records a new reference price for the instrument and runs
// a matching pass over every active order in insertion order. Eligibility:
//   - market: always; fills at the reference price
//   - limit: buy iff price <= limit, sell iff price >= limit
//   - stop: buy iff price >= stop, sell iff price <= stop, then fills as market
//   - stop-limit: the stop condition and the limit condition must both hold at
//     this same price sample
//
// A matched order fills for its full remaining quantity in one pass.
func (b *OrderBook) UpdateMarketData(instrument eventmodels.Instrument, price float64) []Fill {
	b.lastPrice[instrument] = price

	fills := make([]Fill, 0)

	for _, order := range b.orders[instrument] {
		if !order.IsActive() {
			continue
		}

		if !b.isEligible(order, price) {
			continue
		}

		fillQuantity := order.RemainingQuantity()
		if fillQuantity <= 0 {
			continue
		}

		if err := order.RecordFill(price, fillQuantity); err != nil {
			// matching only selects active orders with remaining quantity, so
			// a failure here indicates a bookkeeping bug
			continue
		}

		fills = append(fills, Fill{Order: order, Price: price, Quantity: fillQuantity})
	}

	return fills
}

func (b *OrderBook) isEligible(order *Order, price float64) bool {
	switch order.Type {
	case eventmodels.Market:
		return true

	case eventmodels.Limit:
		return b.limitConditionMet(order, price)

	case eventmodels.Stop:
		return b.stopConditionMet(order, price)

	case eventmodels.StopLimit:
		return b.stopConditionMet(order, price) && b.limitConditionMet(order, price)

	default:
		return false
	}
}

func (b *OrderBook) limitConditionMet(order *Order, price float64) bool {
	if order.LimitPrice == nil {
		return false
	}

	if order.Side == eventmodels.OrderSideBuy {
		return price <= *order.LimitPrice
	}

	return price >= *order.LimitPrice
}

func (b *OrderBook) stopConditionMet(order *Order, price float64) bool {
	if order.StopPrice == nil {
		return false
	}

	if order.Side == eventmodels.OrderSideBuy {
		return price >= *order.StopPrice
	}

	return price <= *order.StopPrice
}
