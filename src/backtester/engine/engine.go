package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/quantpods/backtester/src/backtester/models"
	"github.com/quantpods/backtester/src/backtester/risk"
	"github.com/quantpods/backtester/src/eventmodels"
	"github.com/quantpods/backtester/src/eventpubsub"
	"github.com/quantpods/backtester/src/strategies"
)

const (
	dataManagerSource = "data_manager"
	orderBookSource   = "order_book"
	riskManagerSource = "risk_manager"
)

// DataProvider serves per-instrument field maps keyed by timestamp. An empty
// result means no data is due at that timestamp.
type DataProvider interface {
	GetDataForTimestamp(timestamp time.Time) map[eventmodels.Instrument]map[string]float64
}

// RunStats accumulates counters over one simulation run.
type RunStats struct {
	TotalOrders     int           `json:"total_orders"`
	FilledOrders    int           `json:"filled_orders"`
	RejectedOrders  int           `json:"rejected_orders"`
	EventsProcessed int           `json:"events_processed"`
	SimulationTime  time.Duration `json:"simulation_time"`
}

// EquitySnapshot records every portfolio's total value at one timestamp.
type EquitySnapshot struct {
	Timestamp time.Time          `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
}

type queueBinder interface {
	Bind(queue *eventmodels.EventQueue, now func() time.Time)
}

// BacktestEngine drives the simulation: each step it pulls due market data,
// wraps it as events, drains the queue exhaustively (fills produced while
// draining settle in the same step), runs the risk monitoring pass, snapshots
// equity and advances the clock. The engine owns the queue, the order book
// and all portfolios; it is single threaded and deterministic for a fixed
// input sequence.
type BacktestEngine struct {
	config Config

	dataProvider DataProvider
	portfolios   *models.PortfolioManager
	riskManager  *risk.Manager
	queue        *eventmodels.EventQueue
	orderBook    *models.OrderBook
	clock        *models.Clock
	bus          *eventpubsub.Bus

	strategies    map[string]strategies.Strategy
	strategyOrder []string

	isRunning bool
	stats     RunStats
	history   []EquitySnapshot
}

func NewBacktestEngine(config Config, dataProvider DataProvider, riskManager *risk.Manager, bus *eventpubsub.Bus) (*BacktestEngine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	if dataProvider == nil {
		return nil, fmt.Errorf("data provider is required")
	}

	if riskManager == nil {
		riskManager = risk.NewManager()
	}

	return &BacktestEngine{
		config:       config,
		dataProvider: dataProvider,
		portfolios:   models.NewPortfolioManager(),
		riskManager:  riskManager,
		queue:        eventmodels.NewEventQueue(),
		orderBook:    models.NewOrderBook(),
		clock:        models.NewClock(config.StartDate, config.EndDate, config.Step),
		bus:          bus,
		strategies:   make(map[string]strategies.Strategy),
		history:      make([]EquitySnapshot, 0),
	}, nil
}

// RegisterStrategy adds a strategy to the run. Portfolios are created at the
// start of Run so the initial capital splits evenly across all registered
// strategies regardless of registration order.
func (e *BacktestEngine) RegisterStrategy(strategy strategies.Strategy) error {
	if _, found := e.strategies[strategy.ID()]; found {
		return fmt.Errorf("strategy %s is already registered", strategy.ID())
	}

	e.strategies[strategy.ID()] = strategy
	e.strategyOrder = append(e.strategyOrder, strategy.ID())

	if binder, ok := strategy.(queueBinder); ok {
		binder.Bind(e.queue, func() time.Time {
			return e.clock.CurrentTime
		})
	}

	log.Infof("registered strategy %s", strategy.ID())

	return nil
}

// Run executes the simulation loop. A fatal step error aborts the run; the
// stats accumulated up to the abort are still returned.
func (e *BacktestEngine) Run() (*RunStats, error) {
	if len(e.strategies) == 0 {
		return nil, fmt.Errorf("no strategies registered")
	}

	log.Infof("starting backtest from %s to %s", e.config.StartDate.Format(time.RFC3339), e.config.EndDate.Format(time.RFC3339))

	wallStart := time.Now()
	e.isRunning = true

	capitalPerStrategy := e.config.InitialCapital / float64(len(e.strategyOrder))
	for _, strategyID := range e.strategyOrder {
		e.portfolios.CreatePortfolio(strategyID, capitalPerStrategy)
	}

	for _, strategyID := range e.strategyOrder {
		strategy := e.strategies[strategyID]
		e.guardStrategy(strategyID, "initialize", func() {
			strategy.Initialize(e.config.StartDate)
		})
	}

	var fatal error
	for !e.clock.IsExpired() && e.isRunning {
		if err := e.step(); err != nil {
			log.Errorf("backtest aborted: %v", err)
			e.isRunning = false
			fatal = err
			break
		}

		e.clock.Advance()
	}

	e.isRunning = false
	e.stats.SimulationTime = time.Since(wallStart)

	log.Infof("backtest completed in %s: processed %d events, orders total %d filled %d rejected %d",
		e.stats.SimulationTime, e.stats.EventsProcessed, e.stats.TotalOrders, e.stats.FilledOrders, e.stats.RejectedOrders)

	stats := e.stats
	return &stats, fatal
}

// Stop requests a halt, honored at the top of the next step.
func (e *BacktestEngine) Stop() {
	e.isRunning = false
	log.Info("backtest stop requested")
}

func (e *BacktestEngine) PortfolioManager() *models.PortfolioManager {
	return e.portfolios
}

func (e *BacktestEngine) RiskManager() *risk.Manager {
	return e.riskManager
}

func (e *BacktestEngine) OrderBook() *models.OrderBook {
	return e.orderBook
}

func (e *BacktestEngine) Stats() RunStats {
	return e.stats
}

// EquityHistory returns the per-step portfolio value snapshots, one entry per
// step that carried market data.
func (e *BacktestEngine) EquityHistory() []EquitySnapshot {
	return e.history
}

func (e *BacktestEngine) step() error {
	marketData := e.dataProvider.GetDataForTimestamp(e.clock.CurrentTime)
	if len(marketData) == 0 {
		return nil
	}

	for _, instrument := range sortedInstruments(marketData) {
		e.queue.Enqueue(eventmodels.NewMarketDataEvent(e.clock.CurrentTime, dataManagerSource, instrument, marketData[instrument]))
	}

	if err := e.drainQueue(); err != nil {
		return err
	}

	// post-trade monitoring pass; breach responses are events, drained
	// before the step ends
	riskEvents := e.riskManager.MonitorAllPortfolios(e.portfolios.GetPortfolios(), e.clock.CurrentTime)
	for _, event := range riskEvents {
		e.queue.Enqueue(event)
	}

	if err := e.drainQueue(); err != nil {
		return err
	}

	e.recordEquitySnapshot()

	return nil
}

func (e *BacktestEngine) drainQueue() error {
	for {
		event, found := e.queue.Dequeue()
		if !found {
			return nil
		}

		e.stats.EventsProcessed++

		var err error
		switch typed := event.(type) {
		case *eventmodels.MarketDataEvent:
			e.handleMarketData(typed)
		case *eventmodels.OrderEvent:
			err = e.handleOrder(typed)
		case *eventmodels.FillEvent:
			err = e.handleFill(typed)
		case *eventmodels.SignalEvent:
			e.handleSignal(typed)
		case *eventmodels.RiskEvent:
			e.handleRisk(typed)
		default:
			log.Warnf("dropping event of unknown type %s", event.GetType())
		}

		if err != nil {
			return err
		}
	}
}

func (e *BacktestEngine) handleMarketData(event *eventmodels.MarketDataEvent) {
	price, hasPrice := event.Price()
	if hasPrice {
		fills := e.orderBook.UpdateMarketData(event.Instrument, price)
		for _, fill := range fills {
			e.enqueueFill(fill)
		}

		e.portfolios.UpdateMarketPrices(map[eventmodels.Instrument]float64{event.Instrument: price})
	} else {
		log.Warnf("market data for %s carries no price field", event.Instrument)
	}

	for _, strategyID := range e.strategyOrder {
		strategy := e.strategies[strategyID]
		e.guardStrategy(strategyID, "on market data", func() {
			strategy.OnMarketData(event)
		})
	}
}

func (e *BacktestEngine) handleOrder(event *eventmodels.OrderEvent) error {
	e.stats.TotalOrders++

	if err := event.Side.Validate(); err != nil {
		log.Errorf("dropping order %s: %v", event.OrderID, err)
		return nil
	}
	if err := event.OrderType.Validate(); err != nil {
		log.Errorf("dropping order %s: %v", event.OrderID, err)
		return nil
	}
	if err := validateOrderEvent(event); err != nil {
		log.Errorf("dropping order %s: %v", event.OrderID, err)
		return nil
	}

	order := models.NewOrder(event.OrderID, event.Instrument, event.Quantity, event.Side, event.OrderType, event.GetTimestamp(), event.StrategyID, event.LimitPrice, event.StopPrice)

	portfolio, found := e.portfolios.GetPortfolio(order.StrategyID)
	if !found {
		return fmt.Errorf("%w: order %s references strategy %s", models.ErrUnknownStrategy, order.ID, order.StrategyID)
	}

	// risk-response orders reduce exposure and must execute even when the
	// strategy is already halted, so they skip admission control
	if event.GetSource() != riskManagerSource {
		if err := e.riskManager.ValidateOrder(order, portfolio); err != nil {
			log.Warnf("order %s rejected: %v", order.ID, err)

			order.Reject(err.Error())
			e.stats.RejectedOrders++
			e.notifyOrderStatus(order)
			e.bus.Publish(eventpubsub.RejectedTopic, order)

			return nil
		}
	}

	if err := e.orderBook.AddOrder(order); err != nil {
		log.Errorf("failed to add order %s to book: %v", order.ID, err)
		return nil
	}

	e.notifyOrderStatus(order)

	// market orders match immediately against the last known reference
	// price
	if order.Type == eventmodels.Market {
		if lastPrice, ok := e.orderBook.GetLastPrice(order.Instrument); ok {
			for _, fill := range e.orderBook.UpdateMarketData(order.Instrument, lastPrice) {
				e.enqueueFill(fill)
			}
		} else {
			log.Warnf("order %s: %v, resting until the next sample", order.ID, models.ErrNoPriceAvailable)
		}
	}

	return nil
}

// validateOrderEvent rejects malformed order input before it reaches the
// book.
func validateOrderEvent(event *eventmodels.OrderEvent) error {
	if event.Quantity <= 0 {
		return models.ErrInvalidOrderQuantity
	}
	if (event.OrderType == eventmodels.Limit || event.OrderType == eventmodels.StopLimit) && event.LimitPrice == nil {
		return models.ErrMissingLimitPrice
	}
	if (event.OrderType == eventmodels.Stop || event.OrderType == eventmodels.StopLimit) && event.StopPrice == nil {
		return models.ErrMissingStopPrice
	}

	return nil
}

func (e *BacktestEngine) handleFill(event *eventmodels.FillEvent) error {
	order, found := e.orderBook.GetOrder(event.OrderID, event.Instrument)
	if !found {
		log.Warnf("dropping fill for unknown order %s", event.OrderID)
		return nil
	}

	if err := e.portfolios.ProcessFill(order, event.Price, event.Quantity, event.GetTimestamp(), event.Commission); err != nil {
		return fmt.Errorf("failed to settle fill for order %s: %w", order.ID, err)
	}

	e.stats.FilledOrders++

	if strategy, ok := e.strategies[order.StrategyID]; ok {
		e.guardStrategy(order.StrategyID, "on order fill", func() {
			strategy.OnOrderFill(order, event.Price, event.Quantity)
		})
	}

	e.bus.Publish(eventpubsub.FillTopic, event)

	return nil
}

// handleSignal routes a signal back to its source strategy only. Signals are
// point to point, not broadcast.
func (e *BacktestEngine) handleSignal(event *eventmodels.SignalEvent) {
	strategy, found := e.strategies[event.GetSource()]
	if !found {
		return
	}

	e.guardStrategy(event.GetSource(), "on signal", func() {
		strategy.OnSignal(event)
	})
}

func (e *BacktestEngine) handleRisk(event *eventmodels.RiskEvent) {
	e.bus.Publish(eventpubsub.RiskAlertTopic, event)

	strategy, scoped := e.strategies[event.StrategyID]
	if event.StrategyID != "" && scoped {
		e.guardStrategy(event.StrategyID, "on risk event", func() {
			strategy.OnRiskEvent(event)
		})

		if event.Severity == eventmodels.RiskSeverityCritical {
			switch event.AlertType {
			case eventmodels.RiskAlertDrawdownLimit:
				e.liquidateStrategy(event.StrategyID)
			case eventmodels.RiskAlertPositionLimit:
				if instrument, ok := event.Details["instrument"].(eventmodels.Instrument); ok {
					e.reducePosition(event.StrategyID, instrument)
				}
			}
		}

		return
	}

	for _, strategyID := range e.strategyOrder {
		target := e.strategies[strategyID]
		e.guardStrategy(strategyID, "on risk event", func() {
			target.OnRiskEvent(event)
		})
	}
}

// liquidateStrategy synthesizes closing market orders for every non-zero
// position a strategy holds.
func (e *BacktestEngine) liquidateStrategy(strategyID string) {
	log.Warnf("drawdown limit breached for strategy %s, closing all positions", strategyID)

	portfolio, found := e.portfolios.GetPortfolio(strategyID)
	if !found {
		return
	}

	positions := portfolio.GetPositions()
	for _, instrument := range sortedPositionInstruments(positions) {
		quantity := positions[instrument].Quantity
		if quantity == 0 {
			continue
		}

		e.enqueueClosingOrder(strategyID, instrument, math.Abs(quantity), quantity > 0)
	}
}

// reducePosition synthesizes a market order that halves the offending
// position.
func (e *BacktestEngine) reducePosition(strategyID string, instrument eventmodels.Instrument) {
	log.Warnf("position limit breached for strategy %s on %s, reducing by half", strategyID, instrument)

	portfolio, found := e.portfolios.GetPortfolio(strategyID)
	if !found {
		return
	}

	position, found := portfolio.GetPosition(instrument)
	if !found {
		return
	}

	reduction := position.Quantity * 0.5
	if math.Abs(reduction) < 1e-6 {
		return
	}

	e.enqueueClosingOrder(strategyID, instrument, math.Abs(reduction), position.Quantity > 0)
}

func (e *BacktestEngine) enqueueClosingOrder(strategyID string, instrument eventmodels.Instrument, quantity float64, long bool) {
	side := eventmodels.OrderSideBuy
	if long {
		side = eventmodels.OrderSideSell
	}

	e.queue.Enqueue(eventmodels.NewOrderEvent(e.clock.CurrentTime, riskManagerSource, instrument, quantity, side, eventmodels.Market, nil, nil, strategyID))
}

func (e *BacktestEngine) enqueueFill(fill models.Fill) {
	commission := fill.Price * fill.Quantity * e.config.CommissionRate
	slippage := fill.Price * e.config.SlippageRate

	adjustedPrice := fill.Price
	if fill.Order.Side == eventmodels.OrderSideBuy {
		adjustedPrice += slippage
	} else {
		adjustedPrice -= slippage
	}

	e.queue.Enqueue(eventmodels.NewFillEvent(e.clock.CurrentTime, orderBookSource, fill.Order.ID, fill.Order.Instrument, fill.Quantity, adjustedPrice, fill.Order.Side, commission, slippage, fill.Order.StrategyID))
}

func (e *BacktestEngine) notifyOrderStatus(order *models.Order) {
	strategy, found := e.strategies[order.StrategyID]
	if !found {
		return
	}

	e.guardStrategy(order.StrategyID, "on order status", func() {
		strategy.OnOrderStatus(order)
	})
}

// guardStrategy isolates strategies from each other: a panic inside one
// handler is recovered and logged without aborting the run.
func (e *BacktestEngine) guardStrategy(strategyID, hook string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("strategy %s panicked during %s: %v", strategyID, hook, r)
		}
	}()

	fn()
}

func (e *BacktestEngine) recordEquitySnapshot() {
	values := make(map[string]float64, len(e.strategyOrder)+1)
	for strategyID, portfolio := range e.portfolios.GetPortfolios() {
		values[strategyID] = portfolio.TotalValue()
	}
	values[models.CombinedPortfolioID] = e.portfolios.GetTotalFundValue()

	e.history = append(e.history, EquitySnapshot{
		Timestamp: e.clock.CurrentTime,
		Values:    values,
	})
}

func sortedInstruments(data map[eventmodels.Instrument]map[string]float64) []eventmodels.Instrument {
	instruments := make([]eventmodels.Instrument, 0, len(data))
	for instrument := range data {
		instruments = append(instruments, instrument)
	}

	sort.Slice(instruments, func(i, j int) bool {
		return instruments[i] < instruments[j]
	})

	return instruments
}

func sortedPositionInstruments(positions map[eventmodels.Instrument]*models.Position) []eventmodels.Instrument {
	instruments := make([]eventmodels.Instrument, 0, len(positions))
	for instrument := range positions {
		instruments = append(instruments, instrument)
	}

	sort.Slice(instruments, func(i, j int) bool {
		return instruments[i] < instruments[j]
	})

	return instruments
}
