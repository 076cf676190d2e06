// Package terminal implements the table unit: the customer workflow state
// machine and the loop that feeds it buttons, host status and time.
package terminal

import (
	"log"
	"time"

	"github.com/autodine/autodine/internal/api"
	"github.com/autodine/autodine/internal/enum"
	"github.com/autodine/autodine/internal/menu"
)

// State is a screen of the table unit.
type State int

const (
	StateIdle State = iota
	StateMenuBrowse
	StateQuantitySelect
	StateWaitingOrderAccept
	StateOrderDeclined
	StateOrderDeclinedAppend
	StateCooking
	StateFoodPrepared
	StateWaitingBill
	StateBillDisplay
	StatePaymentMethodSelect
	StatePaymentPending
	StateThankYou
)

var stateNames = [...]string{
	"idle", "menu_browse", "quantity_select", "waiting_order_accept",
	"order_declined", "order_declined_append", "cooking", "food_prepared",
	"waiting_bill", "bill_display", "payment_method_select", "payment_pending",
	"thank_you",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Button is a debounced button press.
type Button int

const (
	ButtonUp Button = iota
	ButtonDown
	ButtonOK
	ButtonBack
	ButtonBackLong
)

// Quantity bounds of the quantity screen.
const (
	MaxQuantity     = 15
	initialQuantity = 1
)

// Time spent on self-dismissing screens.
const (
	DeclinedTimeout       = 4 * time.Second
	AppendDeclinedTimeout = 3 * time.Second
	ThankYouTimeout       = 4 * time.Second
)

// --- Events ---

// Event is anything the machine reacts to.
type Event interface{ event() }

// Press is a button press.
type Press struct{ Button Button }

// Snapshot is a successful poll response.
type Snapshot struct{ Status api.TableStatus }

// PollFailed reports that the host could not be reached for a poll.
type PollFailed struct{ Err error }

// Tick advances time-based transitions.
type Tick struct{}

// SubmitFailed reports that an order submission was not delivered.
type SubmitFailed struct{ Err error }

// BillRequestFailed reports that the bill request was not delivered.
type BillRequestFailed struct{ Err error }

// PaymentFailed reports that the payment method was not delivered.
type PaymentFailed struct{ Err error }

func (Press) event()             {}
func (Snapshot) event()          {}
func (PollFailed) event()        {}
func (Tick) event()              {}
func (SubmitFailed) event()      {}
func (BillRequestFailed) event() {}
func (PaymentFailed) event()     {}

// --- Effects ---

// Effect is a host call the machine asks its runner to make.
type Effect interface{ effect() }

// SubmitOrder sends Cart to the host.
type SubmitOrder struct {
	Cart   menu.Cart
	Append bool
}

// RequestBill asks the host for the bill.
type RequestBill struct{}

// SendPayment tells the host the chosen payment method.
type SendPayment struct{ Method string }

func (SubmitOrder) effect() {}
func (RequestBill) effect() {}
func (SendPayment) effect() {}

// View is what the screen shows.
type View struct {
	State           State
	Item            menu.Item
	Cursor          int
	MenuLen         int
	Quantity        int
	Pending         []menu.Line
	PendingTotal    int64
	Accepted        []menu.Line
	AcceptedTotal   int64
	Append          bool
	Bill            *api.Bill
	Method          string
	Notice          string
	HostUnreachable bool
}

// Machine is the customer workflow of one table unit. It is not safe for
// concurrent use; the runner owns it.
type Machine struct {
	catalog menu.Catalog

	state     State
	enteredAt time.Time

	cursor   int
	quantity int

	pending  menu.Cart
	accepted menu.Cart

	appendMode   bool
	appendOrigin State

	bill            *api.Bill
	method          string
	notice          string
	hostUnreachable bool
}

// NewMachine creates a machine in the idle state.
func NewMachine(catalog menu.Catalog, now time.Time) *Machine {
	return &Machine{
		catalog:   catalog,
		state:     StateIdle,
		enteredAt: now,
		quantity:  initialQuantity,
	}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// AppendMode reports whether the customer is adding to a placed order.
func (m *Machine) AppendMode() bool { return m.appendMode }

// Pending returns a copy of the cart awaiting host confirmation.
func (m *Machine) Pending() menu.Cart { return m.pending.Clone() }

// Accepted returns a copy of the confirmed cart.
func (m *Machine) Accepted() menu.Cart { return m.accepted.Clone() }

// NeedsPoll reports whether the host can change this table's fate while the
// machine waits in the current state.
func (m *Machine) NeedsPoll() bool {
	switch m.state {
	case StateWaitingOrderAccept, StateCooking, StateWaitingBill, StatePaymentPending:
		return true
	}
	return false
}

// View renders the current state for the screen.
func (m *Machine) View() View {
	v := View{
		State:           m.state,
		Cursor:          m.cursor,
		MenuLen:         m.catalog.Len(),
		Quantity:        m.quantity,
		Pending:         m.pending.Lines(),
		PendingTotal:    m.pending.Total(),
		Accepted:        m.accepted.Lines(),
		AcceptedTotal:   m.accepted.Total(),
		Append:          m.appendMode,
		Bill:            m.bill,
		Method:          m.method,
		Notice:          m.notice,
		HostUnreachable: m.hostUnreachable,
	}
	v.Item, _ = m.catalog.At(m.cursor)
	return v
}

// Handle applies one event at time now and returns the host calls to make.
func (m *Machine) Handle(ev Event, now time.Time) []Effect {
	switch ev := ev.(type) {
	case Press:
		return m.press(ev.Button, now)
	case Snapshot:
		m.hostUnreachable = false
		m.snapshot(ev.Status, now)
	case PollFailed:
		m.hostUnreachable = true
	case Tick:
		m.tick(now)
	case SubmitFailed:
		if m.state == StateWaitingOrderAccept {
			log.Printf("order submission failed: %v", ev.Err)
			m.decline(now)
		}
	case BillRequestFailed:
		if m.state == StateWaitingBill {
			log.Printf("bill request failed: %v", ev.Err)
			m.notice = "Bill request failed"
			m.enter(StateFoodPrepared, now)
		}
	case PaymentFailed:
		if m.state == StatePaymentPending {
			log.Printf("payment notification failed: %v", ev.Err)
			m.notice = "Payment not sent, try again"
			m.method = ""
			m.enter(StatePaymentMethodSelect, now)
		}
	}
	return nil
}

func (m *Machine) enter(s State, now time.Time) {
	m.state = s
	m.enteredAt = now
}

func (m *Machine) press(b Button, now time.Time) []Effect {
	switch m.state {
	case StateIdle:
		m.notice = ""
		m.cursor = 0
		m.appendMode = false
		m.enter(StateMenuBrowse, now)

	case StateMenuBrowse:
		return m.pressMenu(b, now)

	case StateQuantitySelect:
		switch b {
		case ButtonDown:
			if m.quantity < MaxQuantity {
				m.quantity++
			}
		case ButtonUp:
			if m.quantity > 0 {
				m.quantity--
			}
		case ButtonOK:
			if item, ok := m.catalog.At(m.cursor); ok && m.quantity > 0 {
				if !m.pending.Add(item, m.quantity) {
					m.notice = "Cart is full"
				}
			}
			m.enter(StateMenuBrowse, now)
		case ButtonBack:
			m.enter(StateMenuBrowse, now)
		}

	case StateCooking:
		if b == ButtonOK {
			m.startAppend(now)
		}

	case StateFoodPrepared:
		switch b {
		case ButtonOK:
			m.startAppend(now)
		case ButtonBack:
			m.notice = ""
			m.enter(StateWaitingBill, now)
			return []Effect{RequestBill{}}
		}

	case StateBillDisplay:
		if b != ButtonBackLong {
			m.enter(StatePaymentMethodSelect, now)
		}

	case StatePaymentMethodSelect:
		switch b {
		case ButtonUp:
			return m.choosePayment(enum.PaymentMethodUPI, now)
		case ButtonDown:
			return m.choosePayment(enum.PaymentMethodCash, now)
		}
	}
	return nil
}

func (m *Machine) pressMenu(b Button, now time.Time) []Effect {
	switch b {
	case ButtonUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case ButtonDown:
		if m.cursor < m.catalog.Len()-1 {
			m.cursor++
		}
	case ButtonOK:
		if m.catalog.Len() > 0 {
			m.quantity = initialQuantity
			m.enter(StateQuantitySelect, now)
		}
	case ButtonBack:
		if !m.pending.IsEmpty() {
			m.notice = ""
			m.enter(StateWaitingOrderAccept, now)
			return []Effect{SubmitOrder{Cart: m.pending.Clone(), Append: m.appendMode}}
		}
		if m.appendMode {
			m.cancelAppend(now)
			return nil
		}
		m.enter(StateIdle, now)
	case ButtonBackLong:
		if m.appendMode {
			m.cancelAppend(now)
		}
	}
	return nil
}

func (m *Machine) startAppend(now time.Time) {
	m.appendOrigin = m.state
	m.appendMode = true
	m.pending.Reset()
	m.cursor = 0
	m.notice = ""
	m.enter(StateMenuBrowse, now)
}

func (m *Machine) cancelAppend(now time.Time) {
	m.appendMode = false
	m.pending.Reset()
	m.enter(m.appendOrigin, now)
}

func (m *Machine) choosePayment(method string, now time.Time) []Effect {
	m.method = method
	m.notice = ""
	m.enter(StatePaymentPending, now)
	return []Effect{SendPayment{Method: method}}
}

// decline discards the pending cart. An append batch falls back to the
// placed order; a fresh order ends the session.
func (m *Machine) decline(now time.Time) {
	m.pending.Reset()
	if m.appendMode {
		m.appendMode = false
		m.enter(StateOrderDeclinedAppend, now)
		return
	}
	m.enter(StateOrderDeclined, now)
}

// snapshot applies a poll result. Anything that is not an expected
// transition for the current state is ignored.
func (m *Machine) snapshot(st api.TableStatus, now time.Time) {
	switch m.state {
	case StateWaitingOrderAccept:
		switch st.OrderState {
		case enum.OrderStateAccepted:
			if dropped := m.accepted.Merge(m.pending); dropped > 0 {
				log.Printf("accepted cart full, %d lines not shown", dropped)
			}
			m.pending.Reset()
			m.appendMode = false
			m.enter(StateCooking, now)
		case enum.OrderStateDeclined:
			m.decline(now)
		}

	case StateCooking:
		if st.OrderState == enum.OrderStatePrepared {
			m.enter(StateFoodPrepared, now)
		}

	case StateWaitingBill:
		if st.BillData == nil {
			return
		}
		bill, err := api.ParseBill(*st.BillData)
		if err != nil {
			log.Printf("ignoring unreadable bill: %v", err)
			return
		}
		m.bill = bill
		m.enter(StateBillDisplay, now)

	case StatePaymentPending:
		if st.Status == enum.TableStatusIdle {
			m.enter(StateThankYou, now)
		}
	}
}

func (m *Machine) tick(now time.Time) {
	elapsed := now.Sub(m.enteredAt)
	switch m.state {
	case StateOrderDeclined:
		if elapsed >= DeclinedTimeout {
			m.reset(now)
		}
	case StateOrderDeclinedAppend:
		if elapsed >= AppendDeclinedTimeout {
			m.enter(StateFoodPrepared, now)
		}
	case StateThankYou:
		if elapsed >= ThankYouTimeout {
			m.reset(now)
		}
	}
}

// reset returns to idle with a clean session.
func (m *Machine) reset(now time.Time) {
	m.pending.Reset()
	m.accepted.Reset()
	m.appendMode = false
	m.bill = nil
	m.method = ""
	m.notice = ""
	m.cursor = 0
	m.enter(StateIdle, now)
}
