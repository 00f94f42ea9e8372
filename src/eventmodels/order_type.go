package eventmodels

import "fmt"

type OrderType string

const (
	Market    OrderType = "market"
	Limit     OrderType = "limit"
	Stop      OrderType = "stop"
	StopLimit OrderType = "stop_limit"
)

func (t OrderType) Validate() error {
	switch t {
	case Market, Limit, Stop, StopLimit:
		return nil
	default:
		return fmt.Errorf("invalid order type: %s", t)
	}
}
