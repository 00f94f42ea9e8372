package risk

import (
	"math"

	"github.com/quantpods/backtester/src/backtester/models"
	"github.com/quantpods/backtester/src/eventmodels"
)

// LimitKind enumerates the closed set of risk constraints. Each kind is
// dispatched through a single evaluation function per operation rather than
// through virtual dispatch, so the compiler can check exhaustiveness.
type LimitKind string

const (
	LimitKindPosition LimitKind = "position"
	LimitKindExposure LimitKind = "exposure"
	LimitKindDrawdown LimitKind = "drawdown"
	LimitKindLeverage LimitKind = "leverage"
)

// Limit is a named constraint evaluated both as a pre-trade gate and as a
// post-trade monitor. Limits are stateless with respect to time: each call
// evaluates against the live portfolio and, for pre-trade checks, the
// candidate order.
type Limit struct {
	Kind       LimitKind                `json:"kind"`
	Max        float64                  `json:"max"`
	Instrument eventmodels.Instrument   `json:"instrument,omitempty"`
	IsPercent  bool                     `json:"is_percent,omitempty"`
	Severity   eventmodels.RiskSeverity `json:"severity"`
}

// NewPositionLimit caps the absolute position quantity. An empty instrument
// applies the limit to every instrument.
func NewPositionLimit(maxPosition float64, instrument eventmodels.Instrument, severity eventmodels.RiskSeverity) Limit {
	return Limit{Kind: LimitKindPosition, Max: maxPosition, Instrument: instrument, Severity: severity}
}

// NewExposureLimit caps the absolute market value of a position, either in
// currency units or, when isPercent is set, as a percentage of total
// portfolio value. The percentage base is recomputed live on every check.
func NewExposureLimit(maxExposure float64, instrument eventmodels.Instrument, isPercent bool, severity eventmodels.RiskSeverity) Limit {
	return Limit{Kind: LimitKindExposure, Max: maxExposure, Instrument: instrument, IsPercent: isPercent, Severity: severity}
}

// NewDrawdownLimit caps the decline from starting cash, expressed as a
// positive percentage (10 means a 10% drawdown).
func NewDrawdownLimit(maxDrawdownPct float64, severity eventmodels.RiskSeverity) Limit {
	return Limit{Kind: LimitKindDrawdown, Max: maxDrawdownPct, Severity: severity}
}

// NewLeverageLimit caps gross exposure divided by total portfolio value.
func NewLeverageLimit(maxLeverage float64, severity eventmodels.RiskSeverity) Limit {
	return Limit{Kind: LimitKindLeverage, Max: maxLeverage, Severity: severity}
}

// AlertType maps the limit kind to the alert vocabulary.
func (l Limit) AlertType() eventmodels.RiskAlertType {
	switch l.Kind {
	case LimitKindPosition:
		return eventmodels.RiskAlertPositionLimit
	case LimitKindExposure:
		return eventmodels.RiskAlertExposureLimit
	case LimitKindDrawdown:
		return eventmodels.RiskAlertDrawdownLimit
	default:
		return eventmodels.RiskAlertLeverageLimit
	}
}

// ValidateOrder reports whether the candidate order is allowed given the
// current portfolio. The check uses the would-be post-trade state.
func (l Limit) ValidateOrder(order *models.Order, portfolio *models.Portfolio) bool {
	switch l.Kind {
	case LimitKindPosition:
		return l.validateOrderPosition(order, portfolio)
	case LimitKindExposure:
		return l.validateOrderExposure(order, portfolio)
	case LimitKindDrawdown:
		// already breached drawdown blocks new orders
		return l.validatePortfolioDrawdown(portfolio)
	case LimitKindLeverage:
		return l.validateOrderLeverage(order, portfolio)
	default:
		return true
	}
}

// ValidatePortfolio reports whether the live portfolio is within the limit.
func (l Limit) ValidatePortfolio(portfolio *models.Portfolio) bool {
	switch l.Kind {
	case LimitKindPosition:
		return l.validatePortfolioPosition(portfolio)
	case LimitKindExposure:
		return l.validatePortfolioExposure(portfolio)
	case LimitKindDrawdown:
		return l.validatePortfolioDrawdown(portfolio)
	case LimitKindLeverage:
		return l.validatePortfolioLeverage(portfolio)
	default:
		return true
	}
}

func (l Limit) validateOrderPosition(order *models.Order, portfolio *models.Portfolio) bool {
	if l.Instrument != "" && order.Instrument != l.Instrument {
		return true
	}

	currentQuantity := 0.0
	if position, found := portfolio.GetPosition(order.Instrument); found {
		currentQuantity = position.Quantity
	}

	newQuantity := currentQuantity + order.GetSignedQuantity()
	return math.Abs(newQuantity) <= l.Max
}

func (l Limit) validatePortfolioPosition(portfolio *models.Portfolio) bool {
	for instrument, position := range portfolio.GetPositions() {
		if l.Instrument != "" && instrument != l.Instrument {
			continue
		}

		if math.Abs(position.Quantity) > l.Max {
			return false
		}
	}

	return true
}

func (l Limit) validateOrderExposure(order *models.Order, portfolio *models.Portfolio) bool {
	if l.Instrument != "" && order.Instrument != l.Instrument {
		return true
	}

	position, found := portfolio.GetPosition(order.Instrument)
	if !found {
		return true
	}

	price, hasPrice := position.CurrentPrice()
	if !hasPrice {
		return true
	}

	newExposure := position.MarketValue() + order.GetSignedQuantity()*price

	maxExposure := l.Max
	if l.IsPercent {
		portfolioValue := portfolio.TotalValue()
		if portfolioValue <= 0 {
			return false
		}
		maxExposure = portfolioValue * (l.Max / 100)
	}

	return math.Abs(newExposure) <= maxExposure
}

func (l Limit) validatePortfolioExposure(portfolio *models.Portfolio) bool {
	maxExposure := l.Max
	if l.IsPercent {
		portfolioValue := portfolio.TotalValue()
		if portfolioValue <= 0 {
			// cannot express a percentage of a non-positive base
			return true
		}
		maxExposure = portfolioValue * (l.Max / 100)
	}

	if l.Instrument != "" {
		if position, found := portfolio.GetPosition(l.Instrument); found {
			return math.Abs(position.MarketValue()) <= maxExposure
		}
		return true
	}

	return portfolio.GrossExposure() <= maxExposure
}

func (l Limit) validatePortfolioDrawdown(portfolio *models.Portfolio) bool {
	if portfolio.StartingCash <= 0 {
		// cannot evaluate, not a breach
		return true
	}

	drawdown := (portfolio.TotalValue()/portfolio.StartingCash - 1) * 100
	return drawdown >= -l.Max
}

func (l Limit) validateOrderLeverage(order *models.Order, portfolio *models.Portfolio) bool {
	portfolioValue := portfolio.TotalValue()
	if portfolioValue <= 0 {
		return false
	}

	position, found := portfolio.GetPosition(order.Instrument)
	if !found {
		return true
	}

	price, hasPrice := position.CurrentPrice()
	if !hasPrice {
		return true
	}

	exposureChange := order.Quantity * price
	if order.Side == eventmodels.OrderSideSell {
		if position.Quantity > order.Quantity {
			// reducing a long position
			exposureChange = -exposureChange
		} else {
			// opening or adding to a short position
			exposureChange = math.Abs(exposureChange)
		}
	}

	newLeverage := (portfolio.GrossExposure() + exposureChange) / portfolioValue
	return newLeverage <= l.Max
}

func (l Limit) validatePortfolioLeverage(portfolio *models.Portfolio) bool {
	portfolioValue := portfolio.TotalValue()
	if portfolioValue <= 0 {
		// zero or negative equity is infinite leverage
		return false
	}

	return portfolio.GrossExposure()/portfolioValue <= l.Max
}

// BreachDetails describes a breach of this limit against the portfolio,
// keyed for the engine's breach responses.
func (l Limit) BreachDetails(portfolio *models.Portfolio) map[string]interface{} {
	switch l.Kind {
	case LimitKindPosition:
		return l.positionBreachDetails(portfolio)
	case LimitKindExposure:
		return l.exposureBreachDetails(portfolio)
	case LimitKindDrawdown:
		return l.drawdownBreachDetails(portfolio)
	default:
		return l.leverageBreachDetails(portfolio)
	}
}

func (l Limit) positionBreachDetails(portfolio *models.Portfolio) map[string]interface{} {
	breached := make([]map[string]interface{}, 0)

	for instrument, position := range portfolio.GetPositions() {
		if l.Instrument != "" && instrument != l.Instrument {
			continue
		}

		if math.Abs(position.Quantity) > l.Max {
			breached = append(breached, map[string]interface{}{
				"instrument": instrument,
				"quantity":   position.Quantity,
				"limit":      l.Max,
			})
		}
	}

	details := map[string]interface{}{
		"breached_instruments": breached,
	}

	// single offending instrument: surface it for the engine's
	// position-reduction response
	if len(breached) == 1 {
		details["instrument"] = breached[0]["instrument"]
	}

	return details
}

func (l Limit) exposureBreachDetails(portfolio *models.Portfolio) map[string]interface{} {
	maxExposure := l.Max
	if l.IsPercent {
		portfolioValue := portfolio.TotalValue()
		if portfolioValue <= 0 {
			return map[string]interface{}{"breached_instruments": []map[string]interface{}{}}
		}
		maxExposure = portfolioValue * (l.Max / 100)
	}

	breached := make([]map[string]interface{}, 0)
	for instrument, exposure := range portfolio.GetExposure() {
		if l.Instrument != "" && instrument != l.Instrument {
			continue
		}

		if math.Abs(exposure) > maxExposure {
			breached = append(breached, map[string]interface{}{
				"instrument": instrument,
				"exposure":   exposure,
				"limit":      maxExposure,
			})
		}
	}

	if l.Instrument == "" {
		if gross := portfolio.GrossExposure(); gross > maxExposure {
			breached = append(breached, map[string]interface{}{
				"instrument": "TOTAL",
				"exposure":   gross,
				"limit":      maxExposure,
			})
		}
	}

	return map[string]interface{}{
		"is_percent":           l.IsPercent,
		"breached_instruments": breached,
	}
}

func (l Limit) drawdownBreachDetails(portfolio *models.Portfolio) map[string]interface{} {
	currentValue := portfolio.TotalValue()

	if portfolio.StartingCash <= 0 {
		return map[string]interface{}{
			"max_drawdown":     l.Max,
			"current_drawdown": 0.0,
			"current_value":    currentValue,
		}
	}

	return map[string]interface{}{
		"max_drawdown":     l.Max,
		"current_drawdown": (currentValue/portfolio.StartingCash - 1) * 100,
		"starting_value":   portfolio.StartingCash,
		"current_value":    currentValue,
	}
}

func (l Limit) leverageBreachDetails(portfolio *models.Portfolio) map[string]interface{} {
	portfolioValue := portfolio.TotalValue()

	if portfolioValue <= 0 {
		return map[string]interface{}{
			"max_leverage":     l.Max,
			"current_leverage": math.Inf(1),
			"portfolio_value":  portfolioValue,
		}
	}

	gross := portfolio.GrossExposure()
	return map[string]interface{}{
		"max_leverage":     l.Max,
		"current_leverage": gross / portfolioValue,
		"gross_exposure":   gross,
		"portfolio_value":  portfolioValue,
	}
}
