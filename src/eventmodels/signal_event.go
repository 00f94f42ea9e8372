package eventmodels

import "time"

// SignalEvent is a point-to-point message between a strategy's internal
// agents. Strength ranges from -1 (strong sell) to 1 (strong buy).
type SignalEvent struct {
	BaseEvent
	Instrument Instrument             `json:"instrument"`
	SignalType string                 `json:"signal_type"`
	Strength   float64                `json:"strength"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

func NewSignalEvent(timestamp time.Time, source string, instrument Instrument, signalType string, strength float64, metadata map[string]interface{}) *SignalEvent {
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &SignalEvent{
		BaseEvent:  BaseEvent{Type: EventTypeSignal, Timestamp: timestamp, Source: source},
		Instrument: instrument,
		SignalType: signalType,
		Strength:   strength,
		Metadata:   metadata,
	}
}
