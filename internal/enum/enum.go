package enum

import "fmt"

// ── Table status (wire strings, shared by host and terminal) ──

// TableStatus is the displayable status of a physical table.
type TableStatus string

const (
	TableStatusIdle           TableStatus = "idle"
	TableStatusCooking        TableStatus = "cooking"
	TableStatusPrepared       TableStatus = "prepared"
	TableStatusBilling        TableStatus = "billing"
	TableStatusPaymentWaiting TableStatus = "payment"
)

// ── Order state (mirrored on the table record) ──

// OrderState is the lifecycle state of an order.
type OrderState string

const (
	OrderStateNone     OrderState = "none"
	OrderStatePending  OrderState = "pending"
	OrderStateAccepted OrderState = "accepted"
	OrderStateDeclined OrderState = "declined"
	OrderStatePrepared OrderState = "prepared"
)

// ── Payment methods offered on the terminal ──

const (
	PaymentMethodUPI  = "upi"
	PaymentMethodCash = "cash"
)

// ParseTableStatus validates a wire string.
func ParseTableStatus(s string) (TableStatus, error) {
	switch st := TableStatus(s); st {
	case TableStatusIdle, TableStatusCooking, TableStatusPrepared,
		TableStatusBilling, TableStatusPaymentWaiting:
		return st, nil
	}
	return "", fmt.Errorf("unknown table status %q", s)
}

// ParseOrderState validates a wire string.
func ParseOrderState(s string) (OrderState, error) {
	switch st := OrderState(s); st {
	case OrderStateNone, OrderStatePending, OrderStateAccepted,
		OrderStateDeclined, OrderStatePrepared:
		return st, nil
	}
	return "", fmt.Errorf("unknown order state %q", s)
}
