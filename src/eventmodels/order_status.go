package eventmodels

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// IsActive reports whether the order still participates in matching.
func (status OrderStatus) IsActive() bool {
	return status == OrderStatusCreated || status == OrderStatusSubmitted || status == OrderStatusPartial
}

func (status OrderStatus) IsTerminal() bool {
	return !status.IsActive()
}
