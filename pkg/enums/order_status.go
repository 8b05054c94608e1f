package enums

import "fmt"

// OrderStatus tracks where an order request (or its parent supplier order)
// sits in the purchasing lifecycle. The literal values are part of the API
// contract: several call sites compare status by string equality.
type OrderStatus string

const (
	OrderStatusNotOrdered OrderStatus = "Not Ordered"
	OrderStatusInCart     OrderStatus = "In Cart"
	OrderStatusOrdered    OrderStatus = "Ordered"
	OrderStatusCompleted  OrderStatus = "Completed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusNotOrdered,
	OrderStatusInCart,
	OrderStatusOrdered,
	OrderStatusCompleted,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether a request with this status is still waiting to be
// grouped into a supplier order.
func (s OrderStatus) IsActive() bool {
	return s == OrderStatusNotOrdered || s == OrderStatusInCart
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
