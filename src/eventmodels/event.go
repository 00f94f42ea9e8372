package eventmodels

import "time"

type EventType string

const (
	EventTypeMarketData EventType = "market_data"
	EventTypeOrder      EventType = "order"
	EventTypeFill       EventType = "fill"
	EventTypeSignal     EventType = "signal"
	EventTypeRisk       EventType = "risk"
)

// Event is the vocabulary all simulation components communicate through.
// Events are immutable after creation and consumed exactly once by the
// engine's dispatch step.
type Event interface {
	GetType() EventType
	GetTimestamp() time.Time
	GetSource() string
}

type BaseEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

func (e BaseEvent) GetType() EventType {
	return e.Type
}

func (e BaseEvent) GetTimestamp() time.Time {
	return e.Timestamp
}

func (e BaseEvent) GetSource() string {
	return e.Source
}
