package eventmodels

import "time"

type RiskAlertType string

const (
	RiskAlertPositionLimit RiskAlertType = "position_limit"
	RiskAlertExposureLimit RiskAlertType = "exposure_limit"
	RiskAlertDrawdownLimit RiskAlertType = "drawdown_limit"
	RiskAlertLeverageLimit RiskAlertType = "leverage_limit"
)

type RiskSeverity string

const (
	RiskSeverityInfo     RiskSeverity = "info"
	RiskSeverityWarning  RiskSeverity = "warning"
	RiskSeverityCritical RiskSeverity = "critical"
)

// RiskEvent is an alert raised by the risk manager. StrategyID is empty for
// alerts that apply to every strategy.
type RiskEvent struct {
	BaseEvent
	AlertType  RiskAlertType          `json:"alert_type"`
	Severity   RiskSeverity           `json:"severity"`
	Details    map[string]interface{} `json:"details"`
	StrategyID string                 `json:"strategy_id,omitempty"`
}

func NewRiskEvent(timestamp time.Time, source string, alertType RiskAlertType, severity RiskSeverity, details map[string]interface{}, strategyID string) *RiskEvent {
	if details == nil {
		details = make(map[string]interface{})
	}

	return &RiskEvent{
		BaseEvent:  BaseEvent{Type: EventTypeRisk, Timestamp: timestamp, Source: source},
		AlertType:  alertType,
		Severity:   severity,
		Details:    details,
		StrategyID: strategyID,
	}
}
