// Package api defines the JSON messages exchanged between table terminals,
// the chef console and the host. Field names are fixed by the deployed
// terminals and must not change.
package api

import (
	"encoding/json"
	"fmt"

	"github.com/autodine/autodine/internal/enum"
	"github.com/autodine/autodine/internal/menu"
)

// OrderItem is one line of an order submission.
type OrderItem struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Qty   int    `json:"qty"`
}

// OrderRequest is the body of POST /api/order.
type OrderRequest struct {
	TableID int         `json:"table_id"`
	Append  bool        `json:"append"`
	Items   []OrderItem `json:"items"`
	Total   int64       `json:"total"`
}

// NewOrderRequest builds a submission from a cart.
func NewOrderRequest(tableID int, cart menu.Cart, appendMode bool) OrderRequest {
	lines := cart.Lines()
	items := make([]OrderItem, len(lines))
	for i, l := range lines {
		items[i] = OrderItem{ID: l.ItemID, Name: l.Name, Price: l.UnitPrice, Qty: l.Quantity}
	}
	return OrderRequest{TableID: tableID, Append: appendMode, Items: items, Total: cart.Total()}
}

// Lines converts the submitted items into cart lines.
func (r OrderRequest) Lines() []menu.Line {
	out := make([]menu.Line, len(r.Items))
	for i, it := range r.Items {
		out[i] = menu.Line{ItemID: it.ID, Name: it.Name, UnitPrice: it.Price, Quantity: it.Qty}
	}
	return out
}

// TableRequest is the body of POST /api/request_bill and
// POST /api/chef/verify_payment.
type TableRequest struct {
	TableID int `json:"table_id"`
}

// PaymentRequest is the body of POST /api/payment.
type PaymentRequest struct {
	TableID int    `json:"table_id"`
	Method  string `json:"method"`
}

// OrderIDRequest is the body of the chef accept/decline/food_prepared calls.
type OrderIDRequest struct {
	OrderID int `json:"order_id"`
}

// Result is the acknowledgement returned by every mutating endpoint.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// TableStatus is the body of GET /api/table_status.
type TableStatus struct {
	TableID    int              `json:"table_id"`
	Status     enum.TableStatus `json:"status"`
	OrderState enum.OrderState  `json:"order_state"`
	BillData   *string          `json:"bill_data"`
}

// BillLine is one row of a bill.
type BillLine struct {
	Name     string `json:"name"`
	Qty      int    `json:"qty"`
	Price    int64  `json:"price"`
	Subtotal int64  `json:"subtotal"`
}

// Bill is the document stored in TableStatus.BillData as a JSON string.
type Bill struct {
	Items      []BillLine `json:"items"`
	Subtotal   int64      `json:"subtotal"`
	GST        int64      `json:"gst"`
	GrandTotal int64      `json:"grand_total"`
}

// ParseBill decodes a bill snapshot string.
func ParseBill(s string) (*Bill, error) {
	var b Bill
	if err := json.Unmarshal([]byte(s), &b); err != nil {
		return nil, fmt.Errorf("decode bill: %w", err)
	}
	return &b, nil
}

// DashboardItem is an order line as listed on the chef dashboard.
type DashboardItem struct {
	Name  string `json:"name"`
	Qty   int    `json:"qty"`
	Price int64  `json:"price"`
}

// DashboardTable is one entry of GET /api/dashboard/tables.
type DashboardTable struct {
	TableID       int              `json:"table_id"`
	Status        enum.TableStatus `json:"status"`
	OrderState    enum.OrderState  `json:"order_state"`
	OrderID       int              `json:"order_id"`
	Items         []DashboardItem  `json:"items,omitempty"`
	Total         *int64           `json:"total,omitempty"`
	PaymentMethod string           `json:"payment_method,omitempty"`
	BillData      *string          `json:"bill_data,omitempty"`
}

// TableUpdate is the payload of a "table.updated" dashboard feed event.
type TableUpdate struct {
	Change string         `json:"change"`
	Table  DashboardTable `json:"table"`
}
