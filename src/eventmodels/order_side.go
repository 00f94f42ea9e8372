package eventmodels

import "fmt"

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

func (side OrderSide) Validate() error {
	switch side {
	case OrderSideBuy, OrderSideSell:
		return nil
	default:
		return fmt.Errorf("invalid order side: %s", side)
	}
}
