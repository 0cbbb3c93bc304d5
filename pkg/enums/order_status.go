package enums

import "fmt"

// OrderStatus tracks the fulfillment lifecycle of an order.
type OrderStatus string

const (
	// OrderStatusDraft means the order is approved but not yet released to the floor.
	OrderStatusDraft OrderStatus = "draft"
	// OrderStatusPicking means the order is on the pick queue and accepting scans.
	OrderStatusPicking OrderStatus = "picking"
	// OrderStatusShipped means completion has run and the queue is cleared.
	OrderStatusShipped OrderStatus = "shipped"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusPicking,
	OrderStatusShipped,
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

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
