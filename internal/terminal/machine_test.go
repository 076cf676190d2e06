package terminal

import (
	"testing"
	"time"

	"github.com/autodine/autodine/internal/api"
	"github.com/autodine/autodine/internal/enum"
	"github.com/autodine/autodine/internal/menu"
)

// --- Test helpers ---

var testCatalog = menu.Catalog{
	{ID: 1, Name: "Item A", Price: 100},
	{ID: 2, Name: "Item B", Price: 50},
	{ID: 3, Name: "Item C", Price: 30},
}

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	t   *testing.T
	m   *Machine
	now time.Time
}

func newHarness(t *testing.T) *harness {
	return &harness{t: t, m: NewMachine(testCatalog, t0), now: t0}
}

func (h *harness) press(buttons ...Button) []Effect {
	var out []Effect
	for _, b := range buttons {
		h.now = h.now.Add(10 * time.Millisecond)
		out = append(out, h.m.Handle(Press{Button: b}, h.now)...)
	}
	return out
}

func (h *harness) snapshot(status enum.TableStatus, state enum.OrderState, bill *string) {
	h.now = h.now.Add(time.Second)
	h.m.Handle(Snapshot{Status: api.TableStatus{TableID: 1, Status: status, OrderState: state, BillData: bill}}, h.now)
}

func (h *harness) wait(d time.Duration) {
	h.now = h.now.Add(d)
	h.m.Handle(Tick{}, h.now)
}

func (h *harness) expect(want State) {
	h.t.Helper()
	if got := h.m.State(); got != want {
		h.t.Fatalf("state: got %s, want %s", got, want)
	}
}

// addItem selects the item at index (cursor starts at 0) with qty units,
// leaving the cursor back at the top.
func (h *harness) addItem(index, qty int) {
	for i := 0; i < index; i++ {
		h.press(ButtonDown)
	}
	h.press(ButtonOK)
	for i := 1; i < qty; i++ {
		h.press(ButtonDown)
	}
	h.press(ButtonOK)
	for i := 0; i < index; i++ {
		h.press(ButtonUp)
	}
}

func submitEffect(t *testing.T, effects []Effect) SubmitOrder {
	t.Helper()
	if len(effects) != 1 {
		t.Fatalf("effects: got %d, want 1", len(effects))
	}
	s, ok := effects[0].(SubmitOrder)
	if !ok {
		t.Fatalf("effect: got %T, want SubmitOrder", effects[0])
	}
	return s
}

// placeAcceptedOrder brings the machine to Cooking with 2×A + 1×B accepted.
func (h *harness) placeAcceptedOrder() {
	h.press(ButtonOK) // wake
	h.addItem(0, 2)
	h.addItem(1, 1)
	submitEffect(h.t, h.press(ButtonBack))
	h.snapshot(enum.TableStatusIdle, enum.OrderStatePending, nil)
	h.expect(StateWaitingOrderAccept)
	h.snapshot(enum.TableStatusCooking, enum.OrderStateAccepted, nil)
	h.expect(StateCooking)
}

// =====================
// Menu and quantity
// =====================

func TestIdle_AnyInputOpensMenu(t *testing.T) {
	for _, b := range []Button{ButtonUp, ButtonDown, ButtonOK, ButtonBack} {
		h := newHarness(t)
		h.press(b)
		h.expect(StateMenuBrowse)
		if h.m.View().Cursor != 0 || h.m.AppendMode() {
			t.Errorf("button %d: unexpected view %+v", b, h.m.View())
		}
	}
}

func TestMenuBrowse_CursorClamps(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonOK, ButtonUp)
	if c := h.m.View().Cursor; c != 0 {
		t.Errorf("cursor after up at top: got %d", c)
	}
	h.press(ButtonDown, ButtonDown, ButtonDown, ButtonDown)
	if c := h.m.View().Cursor; c != 2 {
		t.Errorf("cursor after down past end: got %d, want 2", c)
	}
	if it := h.m.View().Item; it.ID != 3 {
		t.Errorf("item under cursor: got %+v", it)
	}
}

func TestQuantitySelect_Bounds(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonOK, ButtonOK)
	h.expect(StateQuantitySelect)
	if q := h.m.View().Quantity; q != 1 {
		t.Fatalf("initial quantity: got %d, want 1", q)
	}
	for i := 0; i < 20; i++ {
		h.press(ButtonDown)
	}
	if q := h.m.View().Quantity; q != MaxQuantity {
		t.Errorf("quantity: got %d, want %d", q, MaxQuantity)
	}
	for i := 0; i < 20; i++ {
		h.press(ButtonUp)
	}
	if q := h.m.View().Quantity; q != 0 {
		t.Errorf("quantity: got %d, want 0", q)
	}
	// confirming zero adds nothing
	h.press(ButtonOK)
	h.expect(StateMenuBrowse)
	if !h.m.Pending().IsEmpty() {
		t.Error("zero quantity should not add a line")
	}
}

func TestQuantitySelect_BackDiscards(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonOK, ButtonOK, ButtonDown, ButtonBack)
	h.expect(StateMenuBrowse)
	if !h.m.Pending().IsEmpty() {
		t.Error("cancelled quantity should not add a line")
	}
}

func TestMenuBrowse_EmptyConfirmReturnsIdle(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonOK)
	if eff := h.press(ButtonBack); len(eff) != 0 {
		t.Fatalf("effects: got %v, want none", eff)
	}
	h.expect(StateIdle)
}

func TestMenuBrowse_LongBackOutsideAppendIgnored(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonOK, ButtonBackLong)
	h.expect(StateMenuBrowse)
}

// =====================
// Ordering
// =====================

func TestOrderAccepted_MergesIntoAcceptedCart(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonOK)
	h.addItem(0, 2)
	h.addItem(1, 1)

	sub := submitEffect(t, h.press(ButtonBack))
	h.expect(StateWaitingOrderAccept)
	if sub.Append || sub.Cart.Total() != 250 || sub.Cart.Len() != 2 {
		t.Fatalf("submission: append=%v total=%d lines=%d", sub.Append, sub.Cart.Total(), sub.Cart.Len())
	}

	h.snapshot(enum.TableStatusCooking, enum.OrderStateAccepted, nil)
	h.expect(StateCooking)
	if got := h.m.Accepted().Total(); got != 250 {
		t.Errorf("accepted total: got %d, want 250", got)
	}
	if !h.m.Pending().IsEmpty() {
		t.Error("pending cart should be empty after acceptance")
	}
}

func TestOrderDeclined_ReturnsIdleAfterTimeout(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonOK)
	h.addItem(2, 1)
	h.press(ButtonBack)

	h.snapshot(enum.TableStatusIdle, enum.OrderStateDeclined, nil)
	h.expect(StateOrderDeclined)
	if !h.m.Pending().IsEmpty() {
		t.Error("pending cart should be cleared on decline")
	}
	if !h.m.Accepted().IsEmpty() {
		t.Error("accepted cart should be unchanged (empty)")
	}

	h.wait(DeclinedTimeout - time.Millisecond)
	h.expect(StateOrderDeclined)
	h.wait(time.Millisecond)
	h.expect(StateIdle)
}

func TestWaitingOrderAccept_IgnoresPending(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonOK)
	h.addItem(0, 1)
	h.press(ButtonBack)
	for i := 0; i < 3; i++ {
		h.snapshot(enum.TableStatusIdle, enum.OrderStatePending, nil)
	}
	h.expect(StateWaitingOrderAccept)
	if h.m.Pending().IsEmpty() {
		t.Error("pending cart must survive while waiting")
	}
}

func TestSubmitFailed_TakesDeclinedPath(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonOK)
	h.addItem(0, 1)
	h.press(ButtonBack)
	h.m.Handle(SubmitFailed{}, h.now)
	h.expect(StateOrderDeclined)
}

func TestCooking_PreparedSnapshot(t *testing.T) {
	h := newHarness(t)
	h.placeAcceptedOrder()
	h.snapshot(enum.TableStatusCooking, enum.OrderStateAccepted, nil)
	h.expect(StateCooking)
	h.snapshot(enum.TableStatusPrepared, enum.OrderStatePrepared, nil)
	h.expect(StateFoodPrepared)
}

// =====================
// Append mode
// =====================

func TestAppend_AcceptedMergesOntoExisting(t *testing.T) {
	h := newHarness(t)
	h.placeAcceptedOrder()

	h.press(ButtonOK)
	h.expect(StateMenuBrowse)
	if !h.m.AppendMode() || !h.m.Pending().IsEmpty() {
		t.Fatalf("append mode %v, pending %d lines", h.m.AppendMode(), h.m.Pending().Len())
	}
	h.addItem(0, 1)
	h.addItem(2, 1)
	sub := submitEffect(t, h.press(ButtonBack))
	if !sub.Append || sub.Cart.Total() != 130 {
		t.Fatalf("append submission: append=%v total=%d", sub.Append, sub.Cart.Total())
	}

	h.snapshot(enum.TableStatusCooking, enum.OrderStateAccepted, nil)
	h.expect(StateCooking)
	acc := h.m.Accepted()
	if acc.Total() != 380 || acc.Len() != 3 {
		t.Errorf("accepted: total %d lines %d, want 380/3", acc.Total(), acc.Len())
	}
	if h.m.AppendMode() {
		t.Error("append flag should clear on acceptance")
	}
}

func TestAppend_DeclineReturnsToFoodPrepared(t *testing.T) {
	h := newHarness(t)
	h.placeAcceptedOrder()

	h.press(ButtonOK) // append from Cooking
	h.addItem(2, 1)
	h.press(ButtonBack)
	h.expect(StateWaitingOrderAccept)

	h.snapshot(enum.TableStatusCooking, enum.OrderStateDeclined, nil)
	h.expect(StateOrderDeclinedAppend)
	if !h.m.Pending().IsEmpty() {
		t.Error("declined append items must be discarded")
	}

	h.wait(AppendDeclinedTimeout)
	h.expect(StateFoodPrepared)
	acc := h.m.Accepted()
	if acc.Total() != 250 || acc.Len() != 2 {
		t.Errorf("accepted cart changed: total %d lines %d", acc.Total(), acc.Len())
	}
	if h.m.AppendMode() {
		t.Error("append flag should be cleared")
	}
}

func TestAppend_SubmitFailureUsesAppendDeclinedPath(t *testing.T) {
	h := newHarness(t)
	h.placeAcceptedOrder()
	h.press(ButtonOK)
	h.addItem(1, 1)
	h.press(ButtonBack)
	h.m.Handle(SubmitFailed{}, h.now)
	h.expect(StateOrderDeclinedAppend)
}

func TestAppend_LongBackReturnsToOrigin(t *testing.T) {
	for _, origin := range []State{StateCooking, StateFoodPrepared} {
		h := newHarness(t)
		h.placeAcceptedOrder()
		if origin == StateFoodPrepared {
			h.snapshot(enum.TableStatusPrepared, enum.OrderStatePrepared, nil)
		}
		h.press(ButtonOK)
		h.addItem(0, 3)
		h.press(ButtonBackLong)
		h.expect(origin)
		if h.m.AppendMode() || !h.m.Pending().IsEmpty() {
			t.Errorf("%s: append=%v pending=%d", origin, h.m.AppendMode(), h.m.Pending().Len())
		}
		if h.m.Accepted().Total() != 250 {
			t.Errorf("%s: accepted total changed to %d", origin, h.m.Accepted().Total())
		}
	}
}

func TestAppend_EmptyConfirmReturnsToOrigin(t *testing.T) {
	h := newHarness(t)
	h.placeAcceptedOrder()
	h.press(ButtonOK)
	if eff := h.press(ButtonBack); len(eff) != 0 {
		t.Fatalf("effects: got %v", eff)
	}
	h.expect(StateCooking)
}

func TestFoodPrepared_IgnoresAcceptedSnapshot(t *testing.T) {
	h := newHarness(t)
	h.placeAcceptedOrder()
	h.snapshot(enum.TableStatusPrepared, enum.OrderStatePrepared, nil)
	h.expect(StateFoodPrepared)

	before := h.m.View()
	h.snapshot(enum.TableStatusCooking, enum.OrderStateAccepted, nil)
	h.expect(StateFoodPrepared)
	if after := h.m.View(); after.AcceptedTotal != before.AcceptedTotal || len(after.Pending) != 0 {
		t.Errorf("view changed: before %+v after %+v", before, after)
	}
}

func TestSnapshotsIgnoredInNonPollingStates(t *testing.T) {
	h := newHarness(t)
	states := []enum.OrderState{enum.OrderStateAccepted, enum.OrderStateDeclined, enum.OrderStatePrepared}
	for _, s := range states {
		h.snapshot(enum.TableStatusIdle, s, nil)
		h.expect(StateIdle)
	}
	h.press(ButtonOK)
	for _, s := range states {
		h.snapshot(enum.TableStatusIdle, s, nil)
		h.expect(StateMenuBrowse)
	}
}

// =====================
// Billing and payment
// =====================

func TestBillAndPayment_FullCycle(t *testing.T) {
	h := newHarness(t)
	h.placeAcceptedOrder()
	h.snapshot(enum.TableStatusPrepared, enum.OrderStatePrepared, nil)

	eff := h.press(ButtonBack)
	h.expect(StateWaitingBill)
	if len(eff) != 1 {
		t.Fatalf("effects: got %v", eff)
	}
	if _, ok := eff[0].(RequestBill); !ok {
		t.Fatalf("effect: got %T, want RequestBill", eff[0])
	}

	h.snapshot(enum.TableStatusPrepared, enum.OrderStatePrepared, nil)
	h.expect(StateWaitingBill)

	bill := `{"items":[{"name":"Item A","qty":2,"price":100,"subtotal":200}],"subtotal":250,"gst":45,"grand_total":295}`
	h.snapshot(enum.TableStatusBilling, enum.OrderStatePrepared, &bill)
	h.expect(StateBillDisplay)
	if b := h.m.View().Bill; b == nil || b.GrandTotal != 295 {
		t.Fatalf("bill: got %+v", b)
	}

	h.press(ButtonOK)
	h.expect(StatePaymentMethodSelect)
	h.press(ButtonOK)
	h.expect(StatePaymentMethodSelect)

	eff = h.press(ButtonDown)
	h.expect(StatePaymentPending)
	pay, ok := eff[0].(SendPayment)
	if !ok || pay.Method != enum.PaymentMethodCash {
		t.Fatalf("effect: got %+v", eff)
	}

	h.snapshot(enum.TableStatusPaymentWaiting, enum.OrderStatePrepared, &bill)
	h.expect(StatePaymentPending)
	h.snapshot(enum.TableStatusIdle, enum.OrderStateNone, nil)
	h.expect(StateThankYou)

	h.wait(ThankYouTimeout)
	h.expect(StateIdle)
	v := h.m.View()
	if v.Bill != nil || v.AcceptedTotal != 0 || v.Method != "" {
		t.Errorf("session not reset: %+v", v)
	}
}

func TestPaymentMethodSelect_UpChoosesUPI(t *testing.T) {
	h := newHarness(t)
	h.placeAcceptedOrder()
	h.snapshot(enum.TableStatusPrepared, enum.OrderStatePrepared, nil)
	h.press(ButtonBack)
	bill := `{"items":[],"subtotal":0,"gst":0,"grand_total":0}`
	h.snapshot(enum.TableStatusBilling, enum.OrderStatePrepared, &bill)
	h.press(ButtonBack)
	eff := h.press(ButtonUp)
	if pay, ok := eff[0].(SendPayment); !ok || pay.Method != enum.PaymentMethodUPI {
		t.Fatalf("effect: got %+v", eff)
	}
}

func TestBillRequestFailed_BackToFoodPrepared(t *testing.T) {
	h := newHarness(t)
	h.placeAcceptedOrder()
	h.snapshot(enum.TableStatusPrepared, enum.OrderStatePrepared, nil)
	h.press(ButtonBack)
	h.m.Handle(BillRequestFailed{}, h.now)
	h.expect(StateFoodPrepared)
	if h.m.View().Notice == "" {
		t.Error("expected a failure notice")
	}
}

func TestPaymentFailed_BackToMethodSelect(t *testing.T) {
	h := newHarness(t)
	h.placeAcceptedOrder()
	h.snapshot(enum.TableStatusPrepared, enum.OrderStatePrepared, nil)
	h.press(ButtonBack)
	bill := `{"items":[],"subtotal":0,"gst":0,"grand_total":0}`
	h.snapshot(enum.TableStatusBilling, enum.OrderStatePrepared, &bill)
	h.press(ButtonOK, ButtonUp)
	h.m.Handle(PaymentFailed{}, h.now)
	h.expect(StatePaymentMethodSelect)
	if v := h.m.View(); v.Notice == "" || v.Method != "" {
		t.Errorf("view: got %+v", v)
	}
}

func TestUnreadableBillIgnored(t *testing.T) {
	h := newHarness(t)
	h.placeAcceptedOrder()
	h.snapshot(enum.TableStatusPrepared, enum.OrderStatePrepared, nil)
	h.press(ButtonBack)
	junk := "not json"
	h.snapshot(enum.TableStatusBilling, enum.OrderStatePrepared, &junk)
	h.expect(StateWaitingBill)
}

func TestPollFailedFlag(t *testing.T) {
	h := newHarness(t)
	h.m.Handle(PollFailed{}, h.now)
	if !h.m.View().HostUnreachable {
		t.Fatal("expected host unreachable flag")
	}
	h.snapshot(enum.TableStatusIdle, enum.OrderStateNone, nil)
	if h.m.View().HostUnreachable {
		t.Error("flag should clear on a successful poll")
	}
}

func TestNeedsPoll(t *testing.T) {
	h := newHarness(t)
	if h.m.NeedsPoll() {
		t.Error("idle should not poll")
	}
	h.press(ButtonOK)
	h.addItem(0, 1)
	if h.m.NeedsPoll() {
		t.Error("menu should not poll")
	}
	h.press(ButtonBack)
	if !h.m.NeedsPoll() {
		t.Error("waiting for acceptance should poll")
	}
}
