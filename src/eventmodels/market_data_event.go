package eventmodels

import "time"

// MarketDataEvent carries a new market data sample for a single instrument.
// Data holds named fields; the reference price lives under "close" or "price".
type MarketDataEvent struct {
	BaseEvent
	Instrument Instrument         `json:"instrument"`
	Data       map[string]float64 `json:"data"`
}

// Price returns the reference price for this sample, preferring "close".
func (e *MarketDataEvent) Price() (float64, bool) {
	if price, found := e.Data["close"]; found {
		return price, true
	}

	price, found := e.Data["price"]
	return price, found
}

func NewMarketDataEvent(timestamp time.Time, source string, instrument Instrument, data map[string]float64) *MarketDataEvent {
	return &MarketDataEvent{
		BaseEvent:  BaseEvent{Type: EventTypeMarketData, Timestamp: timestamp, Source: source},
		Instrument: instrument,
		Data:       data,
	}
}
