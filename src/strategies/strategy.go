package strategies

import (
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/quantpods/backtester/src/backtester/models"
	"github.com/quantpods/backtester/src/eventmodels"
)

// Strategy is an independent trading unit with its own instruments and
// state. The engine calls the On* hooks as events are drained; a strategy
// reacts by emitting order and signal events through its bound queue.
type Strategy interface {
	ID() string
	Instruments() []eventmodels.Instrument
	Initialize(startDate time.Time)
	OnMarketData(event *eventmodels.MarketDataEvent)
	OnOrderStatus(order *models.Order)
	OnOrderFill(order *models.Order, fillPrice, fillQuantity float64)
	OnSignal(event *eventmodels.SignalEvent)
	OnRiskEvent(event *eventmodels.RiskEvent)
}

// BaseStrategy carries the identity and event plumbing shared by all
// strategies. Concrete strategies embed it and override the hooks they care
// about.
type BaseStrategy struct {
	id          string
	instruments []eventmodels.Instrument
	queue       *eventmodels.EventQueue
	now         func() time.Time
}

func NewBaseStrategy(id string, instruments []eventmodels.Instrument) BaseStrategy {
	return BaseStrategy{
		id:          id,
		instruments: instruments,
		now:         time.Now,
	}
}

func (s *BaseStrategy) ID() string {
	return s.id
}

func (s *BaseStrategy) Instruments() []eventmodels.Instrument {
	return s.instruments
}

// Bind attaches the strategy to the engine's queue and clock. The engine
// calls this when the strategy is registered.
func (s *BaseStrategy) Bind(queue *eventmodels.EventQueue, now func() time.Time) {
	s.queue = queue
	s.now = now
}

func (s *BaseStrategy) CoversInstrument(instrument eventmodels.Instrument) bool {
	for _, candidate := range s.instruments {
		if candidate == instrument {
			return true
		}
	}

	return false
}

// SendOrder enqueues an order event and returns its id. A strategy that is
// not bound to a queue cannot trade; the order is dropped with a log line
// and a nil id.
func (s *BaseStrategy) SendOrder(instrument eventmodels.Instrument, quantity float64, side eventmodels.OrderSide, orderType eventmodels.OrderType, limitPrice, stopPrice *float64) uuid.UUID {
	if s.queue == nil {
		log.Errorf("strategy %s cannot send order: no event queue bound", s.id)
		return uuid.Nil
	}

	event := eventmodels.NewOrderEvent(s.now(), s.id, instrument, quantity, side, orderType, limitPrice, stopPrice, s.id)
	s.queue.Enqueue(event)

	log.Infof("strategy %s sent %s order for %v %s", s.id, side, quantity, instrument)

	return event.OrderID
}

// SendSignal enqueues a signal event for the engine to route back.
func (s *BaseStrategy) SendSignal(instrument eventmodels.Instrument, signalType string, strength float64, metadata map[string]interface{}) {
	if s.queue == nil {
		log.Errorf("strategy %s cannot send signal: no event queue bound", s.id)
		return
	}

	s.queue.Enqueue(eventmodels.NewSignalEvent(s.now(), s.id, instrument, signalType, strength, metadata))

	log.Infof("strategy %s sent %s signal for %s (strength %v)", s.id, signalType, instrument, strength)
}

func (s *BaseStrategy) Initialize(startDate time.Time) {}

func (s *BaseStrategy) OnMarketData(event *eventmodels.MarketDataEvent) {}

func (s *BaseStrategy) OnOrderStatus(order *models.Order) {
	log.Infof("strategy %s: order %s status %s", s.id, order.ID, order.Status)
}

func (s *BaseStrategy) OnOrderFill(order *models.Order, fillPrice, fillQuantity float64) {
	log.Infof("strategy %s: order %s filled %v @ %v", s.id, order.ID, fillQuantity, fillPrice)
}

func (s *BaseStrategy) OnSignal(event *eventmodels.SignalEvent) {}

func (s *BaseStrategy) OnRiskEvent(event *eventmodels.RiskEvent) {
	log.Warnf("strategy %s: risk alert %s (%s)", s.id, event.AlertType, event.Severity)
}
