package strategies

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/quantpods/backtester/src/backtester/models"
	"github.com/quantpods/backtester/src/eventmodels"
)

const (
	SignalLong  = "LONG"
	SignalShort = "SHORT"

	defaultFastWindow   = 10
	defaultSlowWindow   = 30
	defaultPositionSize = 100
)

// MovingAverageCross trades simple moving average crossovers: a fast average
// crossing above the slow average opens a long, crossing below opens a
// short. An open position on the opposite side is closed first.
type MovingAverageCross struct {
	BaseStrategy

	fastWindow   int
	slowWindow   int
	positionSize float64

	prices       map[eventmodels.Instrument][]float64
	lastSignal   map[eventmodels.Instrument]string
	netPositions map[eventmodels.Instrument]float64
}

func NewMovingAverageCross(id string, instruments []eventmodels.Instrument, fastWindow, slowWindow int, positionSize float64) *MovingAverageCross {
	if fastWindow <= 0 {
		fastWindow = defaultFastWindow
	}
	if slowWindow <= 0 {
		slowWindow = defaultSlowWindow
	}
	if positionSize <= 0 {
		positionSize = defaultPositionSize
	}

	return &MovingAverageCross{
		BaseStrategy: NewBaseStrategy(id, instruments),
		fastWindow:   fastWindow,
		slowWindow:   slowWindow,
		positionSize: positionSize,
		prices:       make(map[eventmodels.Instrument][]float64),
		lastSignal:   make(map[eventmodels.Instrument]string),
		netPositions: make(map[eventmodels.Instrument]float64),
	}
}

func (s *MovingAverageCross) Initialize(startDate time.Time) {
	s.prices = make(map[eventmodels.Instrument][]float64)
	s.lastSignal = make(map[eventmodels.Instrument]string)
	s.netPositions = make(map[eventmodels.Instrument]float64)
}

func (s *MovingAverageCross) OnMarketData(event *eventmodels.MarketDataEvent) {
	if !s.CoversInstrument(event.Instrument) {
		return
	}

	price, found := event.Price()
	if !found {
		return
	}

	history := append(s.prices[event.Instrument], price)
	s.prices[event.Instrument] = history

	// a crossover needs the slow average at both the current and previous
	// sample
	if len(history) <= s.slowWindow {
		return
	}

	currentFast := trailingMean(history, s.fastWindow, 0)
	currentSlow := trailingMean(history, s.slowWindow, 0)
	prevFast := trailingMean(history, s.fastWindow, 1)
	prevSlow := trailingMean(history, s.slowWindow, 1)

	metadata := map[string]interface{}{
		"fast_ma": currentFast,
		"slow_ma": currentSlow,
		"price":   price,
	}

	if prevFast <= prevSlow && currentFast > currentSlow {
		s.SendSignal(event.Instrument, SignalLong, 0.8, metadata)
		s.lastSignal[event.Instrument] = SignalLong
	} else if prevFast >= prevSlow && currentFast < currentSlow {
		s.SendSignal(event.Instrument, SignalShort, -0.8, metadata)
		s.lastSignal[event.Instrument] = SignalShort
	}
}

// OnSignal turns a crossover signal into orders. Net positions are tracked
// from fills, so currentPosition is only advanced locally to decide whether
// the close order must precede the open.
func (s *MovingAverageCross) OnSignal(event *eventmodels.SignalEvent) {
	currentPosition := s.netPositions[event.Instrument]

	switch event.SignalType {
	case SignalLong:
		if currentPosition < 0 {
			s.SendOrder(event.Instrument, math.Abs(currentPosition), eventmodels.OrderSideBuy, eventmodels.Market, nil, nil)
			currentPosition = 0
		}

		if currentPosition == 0 {
			s.SendOrder(event.Instrument, s.positionSize, eventmodels.OrderSideBuy, eventmodels.Market, nil, nil)
		}

	case SignalShort:
		if currentPosition > 0 {
			s.SendOrder(event.Instrument, currentPosition, eventmodels.OrderSideSell, eventmodels.Market, nil, nil)
			currentPosition = 0
		}

		if currentPosition == 0 {
			s.SendOrder(event.Instrument, s.positionSize, eventmodels.OrderSideSell, eventmodels.Market, nil, nil)
		}
	}
}

func (s *MovingAverageCross) OnOrderFill(order *models.Order, fillPrice, fillQuantity float64) {
	s.BaseStrategy.OnOrderFill(order, fillPrice, fillQuantity)

	if order.Side == eventmodels.OrderSideBuy {
		s.netPositions[order.Instrument] += fillQuantity
	} else {
		s.netPositions[order.Instrument] -= fillQuantity
	}
}

func (s *MovingAverageCross) LastSignal(instrument eventmodels.Instrument) (string, bool) {
	signal, found := s.lastSignal[instrument]
	return signal, found
}

// trailingMean averages the window of samples ending offset steps before the
// last sample.
func trailingMean(history []float64, window, offset int) float64 {
	end := len(history) - offset
	mean, err := stats.Mean(stats.Float64Data(history[end-window : end]))
	if err != nil {
		return 0
	}

	return mean
}
