package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/autodine/autodine/internal/enum"
	"github.com/autodine/autodine/internal/menu"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service. None of them leaves a partial
// mutation behind.
var (
	ErrTableNotFound = errors.New("table not found")
	ErrOrderNotFound = errors.New("order not found or inactive")
	ErrNoSlot        = errors.New("no free order slot")
	ErrNoActiveOrder = errors.New("no active order for table")
	ErrOrderPending  = errors.New("order has items awaiting accept or decline")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrInvalidMethod = errors.New("payment method is required")
)

// maxMethodLen matches the payment method buffer of the host firmware.
const maxMethodLen = 15

// Options configures the fixed-size store.
type Options struct {
	TableIDs      []int
	MaxOrders     int
	MaxOrderLines int
	TaxRate       decimal.Decimal
}

// DefaultOptions returns the two-table layout of the original deployment.
func DefaultOptions() Options {
	return Options{
		TableIDs:      []int{1, 2},
		MaxOrders:     10,
		MaxOrderLines: 20,
		TaxRate:       decimal.RequireFromString("0.18"),
	}
}

// Table is the host record of one physical table.
type Table struct {
	ID             int
	Status         enum.TableStatus
	OrderState     enum.OrderState
	CurrentOrderID int
	Bill           string
	PaymentMethod  string
}

// Order is a read-only copy of an order.
type Order struct {
	ID      int
	TableID int
	Lines   []menu.Line
	Total   int64
	State   enum.OrderState
	Active  bool
}

// TableView is a table together with its linked active order, if any.
type TableView struct {
	Table
	Order *Order
}

// orderSlot is a reusable backing record. batch holds what the submissions
// since the last decision added, so an append can be rolled back on its own.
type orderSlot struct {
	id           int
	tableID      int
	lines        menu.Cart
	batch        menu.Cart
	state        enum.OrderState
	resume       enum.OrderState
	resumeStatus enum.TableStatus
	active       bool
}

func (o *orderSlot) snapshot() Order {
	return Order{
		ID:      o.id,
		TableID: o.tableID,
		Lines:   o.lines.Lines(),
		Total:   o.lines.Total(),
		State:   o.state,
		Active:  o.active,
	}
}

// OrderService is the authoritative order and table store. Every operation
// runs under one mutex, and change notifications are delivered before it is
// released.
type OrderService struct {
	mu     sync.Mutex
	opts   Options
	slots  []orderSlot
	tables []Table
	index  map[int]int
	nextID int
	sinks  []ChangeSink
	now    func() time.Time
}

// NewOrderService creates a store with one idle record per table id.
func NewOrderService(opts Options, sinks ...ChangeSink) (*OrderService, error) {
	if len(opts.TableIDs) == 0 {
		return nil, errors.New("at least one table id is required")
	}
	if opts.MaxOrders <= 0 {
		return nil, errors.New("max orders must be > 0")
	}
	if opts.MaxOrderLines <= 0 {
		opts.MaxOrderLines = menu.MaxCartLines
	}
	if opts.TaxRate.IsNegative() {
		return nil, errors.New("tax rate must not be negative")
	}

	s := &OrderService{
		opts:   opts,
		slots:  make([]orderSlot, opts.MaxOrders),
		tables: make([]Table, len(opts.TableIDs)),
		index:  make(map[int]int, len(opts.TableIDs)),
		nextID: 1,
		sinks:  sinks,
		now:    time.Now,
	}
	for i, id := range opts.TableIDs {
		if id <= 0 {
			return nil, fmt.Errorf("invalid table id %d", id)
		}
		if _, dup := s.index[id]; dup {
			return nil, fmt.Errorf("duplicate table id %d", id)
		}
		s.index[id] = i
		s.tables[i] = Table{ID: id, Status: enum.TableStatusIdle, OrderState: enum.OrderStateNone}
	}
	log.Printf("order store initialized: %d tables, %d order slots", len(s.tables), len(s.slots))
	return s, nil
}

// Submit merges cart into the table's active order, or opens a new order
// when the table has none. The order goes back to pending either way.
func (s *OrderService) Submit(ctx context.Context, tableID int, cart menu.Cart) (int, error) {
	var orderID int
	err := s.mutate(ctx, "submit", func() (Change, error) {
		if cart.IsEmpty() {
			return Change{}, ErrEmptyCart
		}
		t, err := s.tableLocked(tableID)
		if err != nil {
			return Change{}, err
		}

		var o *orderSlot
		if t.CurrentOrderID > 0 {
			o = s.activeOrderLocked(t.CurrentOrderID)
		}
		extending := o != nil
		if o == nil {
			o = s.freeSlotLocked()
			if o == nil {
				return Change{}, ErrNoSlot
			}
			*o = orderSlot{
				id:      s.nextID,
				tableID: tableID,
				lines:   menu.NewCart(s.opts.MaxOrderLines),
				batch:   menu.NewCart(s.opts.MaxOrderLines),
				resume:  enum.OrderStateNone,
				active:  true,
			}
			s.nextID++
			t.CurrentOrderID = o.id
		} else if o.batch.IsEmpty() && o.state != enum.OrderStatePending {
			o.resume = o.state
			o.resumeStatus = t.Status
		}

		dropped := 0
		for _, l := range cart.Lines() {
			if o.lines.AddLine(l) {
				o.batch.AddLine(l)
			} else {
				dropped++
			}
		}
		if dropped > 0 {
			log.Printf("order %d: dropped %d lines over the %d line limit", o.id, dropped, s.opts.MaxOrderLines)
		}

		o.state = enum.OrderStatePending
		t.OrderState = enum.OrderStatePending
		t.Bill = ""
		orderID = o.id

		mode := "new"
		if extending {
			mode = "append"
		}
		ordersSubmitted.WithLabelValues(mode).Inc()
		log.Printf("order %d updated for table %d: %d items, total=%d",
			o.id, tableID, o.lines.Len(), o.lines.Total())
		return Change{Kind: ChangeOrderSubmitted, TableID: tableID, OrderID: o.id, Append: extending}, nil
	})
	if err != nil {
		return 0, err
	}
	return orderID, nil
}

// Accept confirms the pending items of an active order.
func (s *OrderService) Accept(ctx context.Context, orderID int) error {
	return s.mutate(ctx, "accept", func() (Change, error) {
		o := s.activeOrderLocked(orderID)
		if o == nil {
			return Change{}, ErrOrderNotFound
		}
		t, err := s.tableLocked(o.tableID)
		if err != nil {
			return Change{}, err
		}
		o.state = enum.OrderStateAccepted
		o.batch.Reset()
		o.resume = enum.OrderStateNone
		t.Status = enum.TableStatusCooking
		t.OrderState = enum.OrderStateAccepted

		orderDecisions.WithLabelValues("accepted").Inc()
		log.Printf("order %d accepted", orderID)
		return Change{Kind: ChangeOrderAccepted, TableID: o.tableID, OrderID: orderID}, nil
	})
}

// Decline rejects an order. A fresh order is discarded entirely and the
// table returns to idle. When the order already holds accepted items and
// the decline targets an appended batch, only that batch is rolled back and
// the order keeps its previous state.
func (s *OrderService) Decline(ctx context.Context, orderID int) error {
	return s.mutate(ctx, "decline", func() (Change, error) {
		o := s.activeOrderLocked(orderID)
		if o == nil {
			return Change{}, ErrOrderNotFound
		}
		t, err := s.tableLocked(o.tableID)
		if err != nil {
			return Change{}, err
		}

		if o.resume != enum.OrderStateNone && !o.batch.IsEmpty() {
			for _, l := range o.batch.Lines() {
				o.lines.Remove(l.ItemID, l.Quantity)
			}
			o.batch.Reset()
			o.state = o.resume
			o.resume = enum.OrderStateNone
			t.Status = o.resumeStatus
			t.OrderState = enum.OrderStateDeclined

			orderDecisions.WithLabelValues("append_declined").Inc()
			log.Printf("order %d: appended items declined, order kept as %s", orderID, o.state)
			return Change{Kind: ChangeOrderDeclined, TableID: o.tableID, OrderID: orderID, Append: true}, nil
		}

		o.state = enum.OrderStateDeclined
		o.active = false
		t.Status = enum.TableStatusIdle
		t.OrderState = enum.OrderStateDeclined
		t.CurrentOrderID = 0

		orderDecisions.WithLabelValues("declined").Inc()
		log.Printf("order %d declined", orderID)
		return Change{Kind: ChangeOrderDeclined, TableID: o.tableID, OrderID: orderID}, nil
	})
}

// MarkPrepared records that the kitchen finished an order.
func (s *OrderService) MarkPrepared(ctx context.Context, orderID int) error {
	return s.mutate(ctx, "mark_prepared", func() (Change, error) {
		o := s.activeOrderLocked(orderID)
		if o == nil {
			return Change{}, ErrOrderNotFound
		}
		if o.state == enum.OrderStatePending {
			return Change{}, ErrOrderPending
		}
		t, err := s.tableLocked(o.tableID)
		if err != nil {
			return Change{}, err
		}
		o.state = enum.OrderStatePrepared
		t.Status = enum.TableStatusPrepared
		t.OrderState = enum.OrderStatePrepared

		orderDecisions.WithLabelValues("prepared").Inc()
		log.Printf("order %d marked as prepared", orderID)
		return Change{Kind: ChangeFoodPrepared, TableID: o.tableID, OrderID: orderID}, nil
	})
}

// GenerateBill computes the bill of the table's active order and stores its
// serialized form on the table.
func (s *OrderService) GenerateBill(ctx context.Context, tableID int) error {
	return s.mutate(ctx, "generate_bill", func() (Change, error) {
		t, err := s.tableLocked(tableID)
		if err != nil {
			return Change{}, err
		}
		o := s.tableOrderLocked(tableID)
		if o == nil {
			return Change{}, ErrNoActiveOrder
		}
		bill := ComputeBill(o.lines.Lines(), o.lines.Total(), s.opts.TaxRate)
		data, err := EncodeBill(bill)
		if err != nil {
			return Change{}, err
		}
		t.Bill = data
		t.Status = enum.TableStatusBilling

		billsGenerated.Inc()
		log.Printf("bill generated for table %d: subtotal=%d, gst=%d, total=%d",
			tableID, bill.Subtotal, bill.GST, bill.GrandTotal)
		return Change{Kind: ChangeBillGenerated, TableID: tableID, OrderID: o.id}, nil
	})
}

// SetPaymentMethod records the customer's chosen payment method.
func (s *OrderService) SetPaymentMethod(ctx context.Context, tableID int, method string) error {
	return s.mutate(ctx, "set_payment_method", func() (Change, error) {
		if method == "" {
			return Change{}, ErrInvalidMethod
		}
		t, err := s.tableLocked(tableID)
		if err != nil {
			return Change{}, err
		}
		method = menu.Clip(method, maxMethodLen)
		t.PaymentMethod = method
		t.Status = enum.TableStatusPaymentWaiting

		log.Printf("payment method set for table %d: %s", tableID, method)
		return Change{Kind: ChangePaymentMethodSet, TableID: tableID, OrderID: t.CurrentOrderID}, nil
	})
}

// VerifyPayment settles the table: every active order of the table is
// deactivated and the record returns to idle.
func (s *OrderService) VerifyPayment(ctx context.Context, tableID int) error {
	return s.mutate(ctx, "verify_payment", func() (Change, error) {
		t, err := s.tableLocked(tableID)
		if err != nil {
			return Change{}, err
		}
		settled := &Settlement{
			TableID: tableID,
			Method:  t.PaymentMethod,
			Bill:    t.Bill,
		}
		for i := range s.slots {
			if s.slots[i].active && s.slots[i].tableID == tableID {
				s.slots[i].active = false
				settled.OrderIDs = append(settled.OrderIDs, s.slots[i].id)
			}
		}
		*t = Table{ID: tableID, Status: enum.TableStatusIdle, OrderState: enum.OrderStateNone}

		paymentsVerified.Inc()
		log.Printf("payment verified for table %d, table reset", tableID)
		return Change{Kind: ChangePaymentVerified, TableID: tableID, Settled: settled}, nil
	})
}

// Table returns a copy of a table record.
func (s *OrderService) Table(tableID int) (Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tableLocked(tableID)
	if err != nil {
		return Table{}, err
	}
	return *t, nil
}

// Order returns a copy of an active order.
func (s *OrderService) Order(orderID int) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.activeOrderLocked(orderID)
	if o == nil {
		return Order{}, ErrOrderNotFound
	}
	return o.snapshot(), nil
}

// Tables lists every table with its current order, in configuration order.
func (s *OrderService) Tables() []TableView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TableView, len(s.tables))
	for i := range s.tables {
		out[i] = s.viewLocked(&s.tables[i])
	}
	return out
}

// --- Helpers (caller holds s.mu) ---

// mutate runs fn as one critical section, stamps the resulting change with
// the table view it produced and hands it to the sinks before unlocking, so
// sinks see the changes of a table in the order they were applied.
func (s *OrderService) mutate(ctx context.Context, op string, fn func() (Change, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := fn()
	if err != nil {
		storeRejections.WithLabelValues(op, reasonOf(err)).Inc()
		log.Printf("WARN: %s rejected: %v", op, err)
		return err
	}
	if t, err := s.tableLocked(c.TableID); err == nil {
		c.Table = s.viewLocked(t)
	}
	c.At = s.now()
	activeOrders.Set(float64(s.activeCountLocked()))
	s.emitLocked(ctx, c)
	return nil
}

func (s *OrderService) tableLocked(tableID int) (*Table, error) {
	i, ok := s.index[tableID]
	if !ok {
		return nil, ErrTableNotFound
	}
	return &s.tables[i], nil
}

func (s *OrderService) activeOrderLocked(orderID int) *orderSlot {
	if orderID <= 0 {
		return nil
	}
	for i := range s.slots {
		if s.slots[i].active && s.slots[i].id == orderID {
			return &s.slots[i]
		}
	}
	return nil
}

func (s *OrderService) tableOrderLocked(tableID int) *orderSlot {
	for i := range s.slots {
		if s.slots[i].active && s.slots[i].tableID == tableID {
			return &s.slots[i]
		}
	}
	return nil
}

func (s *OrderService) freeSlotLocked() *orderSlot {
	for i := range s.slots {
		if !s.slots[i].active {
			return &s.slots[i]
		}
	}
	return nil
}

func (s *OrderService) activeCountLocked() int {
	n := 0
	for i := range s.slots {
		if s.slots[i].active {
			n++
		}
	}
	return n
}

func (s *OrderService) viewLocked(t *Table) TableView {
	v := TableView{Table: *t}
	if t.CurrentOrderID > 0 {
		if o := s.activeOrderLocked(t.CurrentOrderID); o != nil {
			snap := o.snapshot()
			v.Order = &snap
		}
	}
	return v
}

func reasonOf(err error) string {
	switch {
	case errors.Is(err, ErrTableNotFound):
		return "table_not_found"
	case errors.Is(err, ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, ErrNoSlot):
		return "no_slot"
	case errors.Is(err, ErrNoActiveOrder):
		return "no_active_order"
	case errors.Is(err, ErrOrderPending):
		return "order_pending"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrInvalidMethod):
		return "invalid_method"
	}
	return "internal"
}
