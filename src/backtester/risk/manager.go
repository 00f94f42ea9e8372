package risk

import (
	"fmt"
	"math"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/quantpods/backtester/src/backtester/models"
	"github.com/quantpods/backtester/src/eventmodels"
)

type StrategyStatus string

const (
	StrategyStatusActive StrategyStatus = "active"
	StrategyStatusHalted StrategyStatus = "halted"
)

const riskEventSource = "risk_manager"

// Manager enforces risk constraints in two phases: pre-trade admission
// control via ValidateOrder and post-trade breach detection via
// MonitorPortfolio. A critical breach of a strategy-scoped limit halts the
// strategy; halted strategies stay halted until explicitly reset.
type Manager struct {
	strategyLimits  map[string][]Limit
	globalLimits    []Limit
	status          map[string]StrategyStatus
	drawdownHistory map[string][]float64
	riskEvents      []*eventmodels.RiskEvent
}

func NewManager() *Manager {
	return &Manager{
		strategyLimits:  make(map[string][]Limit),
		globalLimits:    make([]Limit, 0),
		status:          make(map[string]StrategyStatus),
		drawdownHistory: make(map[string][]float64),
		riskEvents:      make([]*eventmodels.RiskEvent, 0),
	}
}

func (m *Manager) AddStrategyLimit(strategyID string, limit Limit) {
	m.strategyLimits[strategyID] = append(m.strategyLimits[strategyID], limit)
	log.Infof("added %s limit for strategy %s", limit.Kind, strategyID)
}

func (m *Manager) AddGlobalLimit(limit Limit) {
	m.globalLimits = append(m.globalLimits, limit)
	log.Infof("added global %s limit", limit.Kind)
}

// ValidateOrder runs pre-trade admission control: a halted strategy is
// rejected outright, then every strategy-scoped limit and every global limit
// is evaluated in order. The first failing limit rejects the whole order and
// becomes the rejection reason.
func (m *Manager) ValidateOrder(order *models.Order, portfolio *models.Portfolio) error {
	if status := m.GetStrategyStatus(order.StrategyID); status != StrategyStatusActive {
		return fmt.Errorf("strategy %s is %s", order.StrategyID, status)
	}

	for _, limit := range m.strategyLimits[order.StrategyID] {
		if !limit.ValidateOrder(order, portfolio) {
			return fmt.Errorf("%s limit breached for strategy %s", limit.Kind, order.StrategyID)
		}
	}

	for _, limit := range m.globalLimits {
		if !limit.ValidateOrder(order, portfolio) {
			return fmt.Errorf("global %s limit breached", limit.Kind)
		}
	}

	return nil
}

// MonitorPortfolio runs the post-trade pass for one strategy: it appends to
// the drawdown history, then evaluates every scoped and global limit against
// the live portfolio. Each failing limit becomes a risk event. A critical
// strategy-scoped breach transitions the strategy to halted as a side
// effect; the transition is never reversed automatically.
func (m *Manager) MonitorPortfolio(strategyID string, portfolio *models.Portfolio, timestamp time.Time) []*eventmodels.RiskEvent {
	events := make([]*eventmodels.RiskEvent, 0)

	m.updateDrawdown(strategyID, portfolio)

	for _, limit := range m.strategyLimits[strategyID] {
		if limit.ValidatePortfolio(portfolio) {
			continue
		}

		event := m.newRiskEvent(strategyID, limit, portfolio, timestamp)
		events = append(events, event)

		log.Warnf("risk limit breach for strategy %s: %s", strategyID, limit.Kind)

		if limit.Severity == eventmodels.RiskSeverityCritical {
			m.status[strategyID] = StrategyStatusHalted
			log.Warnf("strategy %s halted due to critical risk breach", strategyID)
		}
	}

	for _, limit := range m.globalLimits {
		if limit.ValidatePortfolio(portfolio) {
			continue
		}

		event := m.newRiskEvent(strategyID, limit, portfolio, timestamp)
		events = append(events, event)

		log.Warnf("global risk limit breach for strategy %s: %s", strategyID, limit.Kind)
	}

	m.riskEvents = append(m.riskEvents, events...)

	return events
}

// MonitorAllPortfolios runs MonitorPortfolio over every registered strategy
// portfolio. Strategies are visited in sorted order so a run is
// deterministic.
func (m *Manager) MonitorAllPortfolios(portfolios map[string]*models.Portfolio, timestamp time.Time) []*eventmodels.RiskEvent {
	strategyIDs := make([]string, 0, len(portfolios))
	for strategyID := range portfolios {
		strategyIDs = append(strategyIDs, strategyID)
	}
	sort.Strings(strategyIDs)

	allEvents := make([]*eventmodels.RiskEvent, 0)
	for _, strategyID := range strategyIDs {
		allEvents = append(allEvents, m.MonitorPortfolio(strategyID, portfolios[strategyID], timestamp)...)
	}

	return allEvents
}

func (m *Manager) GetStrategyStatus(strategyID string) StrategyStatus {
	if status, found := m.status[strategyID]; found {
		return status
	}

	return StrategyStatusActive
}

func (m *Manager) SetStrategyStatus(strategyID string, status StrategyStatus) {
	m.status[strategyID] = status
	log.Infof("strategy %s status set to %s", strategyID, status)
}

// ResetStrategyStatus is the only way a halted strategy returns to active.
func (m *Manager) ResetStrategyStatus(strategyID string) {
	m.SetStrategyStatus(strategyID, StrategyStatusActive)
}

// GetCurrentDrawdown returns the most recent drawdown sample for a strategy.
func (m *Manager) GetCurrentDrawdown(strategyID string) float64 {
	history := m.drawdownHistory[strategyID]
	if len(history) == 0 {
		return 0
	}

	return history[len(history)-1]
}

// GetMaxDrawdown returns the deepest drawdown observed for a strategy.
func (m *Manager) GetMaxDrawdown(strategyID string) float64 {
	history := m.drawdownHistory[strategyID]
	if len(history) == 0 {
		return 0
	}

	maxDrawdown := history[0]
	for _, drawdown := range history[1:] {
		maxDrawdown = math.Min(maxDrawdown, drawdown)
	}

	return maxDrawdown
}

func (m *Manager) GetRiskEvents() []*eventmodels.RiskEvent {
	return m.riskEvents
}

// GetRiskMetrics computes exposure metrics for a portfolio: gross, net, long
// and short exposure, their percentages of portfolio value, and the largest
// single position's share.
func (m *Manager) GetRiskMetrics(portfolio *models.Portfolio) map[string]float64 {
	metrics := make(map[string]float64)

	exposures := portfolio.GetExposure()
	if len(exposures) == 0 {
		return metrics
	}

	var gross, net, long, short, maxPosition float64
	for _, exposure := range exposures {
		gross += math.Abs(exposure)
		net += exposure

		if exposure > 0 {
			long += exposure
		} else {
			short += math.Abs(exposure)
		}

		maxPosition = math.Max(maxPosition, math.Abs(exposure))
	}

	metrics["gross_exposure"] = gross
	metrics["net_exposure"] = net
	metrics["long_exposure"] = long
	metrics["short_exposure"] = short

	if portfolioValue := portfolio.TotalValue(); portfolioValue > 0 {
		metrics["gross_exposure_pct"] = gross / portfolioValue * 100
		metrics["net_exposure_pct"] = net / portfolioValue * 100
		metrics["long_exposure_pct"] = long / portfolioValue * 100
		metrics["short_exposure_pct"] = short / portfolioValue * 100
		metrics["max_position_pct"] = maxPosition / portfolioValue * 100
	}

	return metrics
}

func (m *Manager) updateDrawdown(strategyID string, portfolio *models.Portfolio) {
	if _, found := m.drawdownHistory[strategyID]; !found {
		m.drawdownHistory[strategyID] = []float64{0}
		return
	}

	drawdown := 0.0
	if portfolio.StartingCash > 0 {
		// drawdown is capped at zero: positive returns are not "negative
		// drawdowns"
		drawdown = math.Min(0, (portfolio.TotalValue()/portfolio.StartingCash-1)*100)
	}

	m.drawdownHistory[strategyID] = append(m.drawdownHistory[strategyID], drawdown)
}

// newRiskEvent converts a failing limit into a risk alert. The alert's
// severity follows the alert type: drawdown, position and leverage breaches
// are critical, exposure breaches are warnings.
func (m *Manager) newRiskEvent(strategyID string, limit Limit, portfolio *models.Portfolio, timestamp time.Time) *eventmodels.RiskEvent {
	severity := eventmodels.RiskSeverityWarning
	switch limit.Kind {
	case LimitKindDrawdown, LimitKindPosition, LimitKindLeverage:
		severity = eventmodels.RiskSeverityCritical
	}

	return eventmodels.NewRiskEvent(timestamp, riskEventSource, limit.AlertType(), severity, limit.BreachDetails(portfolio), strategyID)
}
