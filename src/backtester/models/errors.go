package models

import "errors"

var (
	ErrOrderNotActive       = errors.New("order is not active")
	ErrInvalidFillQuantity  = errors.New("fill quantity must be greater than 0")
	ErrInvalidFillPrice     = errors.New("fill price must be greater than 0")
	ErrFillExceedsRequested = errors.New("fill quantity exceeds requested quantity")
	ErrDuplicateOrder       = errors.New("order already exists in the book")
	ErrUnknownStrategy      = errors.New("no portfolio found for strategy")
	ErrNoPriceAvailable     = errors.New("no market data available for instrument")
	ErrInvalidOrderQuantity = errors.New("order quantity must be greater than 0")
	ErrMissingLimitPrice    = errors.New("limit price required for this order type")
	ErrMissingStopPrice     = errors.New("stop price required for this order type")
)
