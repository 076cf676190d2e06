package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/autodine/autodine/internal/menu"
	"github.com/autodine/autodine/internal/service"
	amqp "github.com/rabbitmq/amqp091-go"
)

// --- Mocks ---

type recordingNotifier struct {
	alerts []Alert
	err    error
}

func (r *recordingNotifier) Notify(ctx context.Context, a Alert) error {
	r.alerts = append(r.alerts, a)
	return r.err
}

type fakeChannel struct {
	published []amqp.Publishing
	exchange  string
	key       string
	acks      chan amqp.Confirmation
	ack       bool
	err       error
	// withhold leaves confirming to the test
	withhold  bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.exchange, f.key = exchange, key
	f.published = append(f.published, msg)
	if f.withhold {
		return nil
	}
	f.acks <- amqp.Confirmation{DeliveryTag: uint64(len(f.published)), Ack: f.ack}
	return nil
}

func newFakeNotifier(ack bool) (*AMQPNotifier, *fakeChannel) {
	ch := &fakeChannel{acks: make(chan amqp.Confirmation, 1), ack: ack}
	return &AMQPNotifier{ch: ch, acks: ch.acks}, ch
}

// =====================
// Change → alert mapping
// =====================

func TestSink_RaisesAlertsForSubmitAndBill(t *testing.T) {
	rec := &recordingNotifier{}
	svc, err := service.NewOrderService(service.DefaultOptions(), NewSink(rec, time.Second))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	var cart menu.Cart
	cart.Add(menu.Item{ID: 7, Name: "Masala Dosa", Price: 120}, 1)
	id, _ := svc.Submit(ctx, 1, cart)
	_ = svc.Accept(ctx, id)
	_, _ = svc.Submit(ctx, 1, cart)
	_ = svc.Accept(ctx, id)
	_ = svc.MarkPrepared(ctx, id)
	_ = svc.GenerateBill(ctx, 1)
	_ = svc.VerifyPayment(ctx, 1)

	want := []string{KindNewOrder, KindOrderAppended, KindBillRequested}
	if len(rec.alerts) != len(want) {
		t.Fatalf("alerts: got %d, want %d (%+v)", len(rec.alerts), len(want), rec.alerts)
	}
	for i, k := range want {
		if rec.alerts[i].Kind != k {
			t.Errorf("alert %d: got %s, want %s", i, rec.alerts[i].Kind, k)
		}
		if rec.alerts[i].TableID != 1 || rec.alerts[i].OrderID != id {
			t.Errorf("alert %d: got %+v", i, rec.alerts[i])
		}
	}
	if rec.alerts[1].Total != 240 {
		t.Errorf("appended total: got %d, want 240", rec.alerts[1].Total)
	}
}

func TestSink_NotifierErrorIsNotFatal(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("broker down")}
	sink := NewSink(rec, 0)
	sink.HandleChange(context.Background(), service.Change{Kind: service.ChangeOrderSubmitted, TableID: 2})
	if len(rec.alerts) != 1 {
		t.Fatalf("alerts: got %d, want 1", len(rec.alerts))
	}
}

func TestMulti_JoinsErrors(t *testing.T) {
	ok := &recordingNotifier{}
	bad := &recordingNotifier{err: errors.New("boom")}
	err := Multi{LogNotifier{}, ok, bad}.Notify(context.Background(), Alert{Kind: KindNewOrder})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(ok.alerts) != 1 || len(bad.alerts) != 1 {
		t.Error("every notifier should be called")
	}
}

// =====================
// AMQP publishing
// =====================

func TestAMQPNotifier_PublishesJSON(t *testing.T) {
	n, ch := newFakeNotifier(true)
	a, _ := AlertFor(service.Change{Kind: service.ChangeBillGenerated, TableID: 2, OrderID: 5, At: time.Now()})
	if err := n.Notify(context.Background(), a); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if ch.exchange != Exchange || ch.key != KindBillRequested {
		t.Errorf("routing: got %s/%s", ch.exchange, ch.key)
	}
	msg := ch.published[0]
	if msg.DeliveryMode != amqp.Persistent || msg.ContentType != "application/json" || msg.MessageId != a.ID.String() {
		t.Errorf("publishing: got %+v", msg)
	}
	var got Alert
	if err := json.Unmarshal(msg.Body, &got); err != nil {
		t.Fatal(err)
	}
	if got.TableID != 2 || got.OrderID != 5 || got.Kind != KindBillRequested {
		t.Errorf("body: got %+v", got)
	}
}

func TestAMQPNotifier_Nack(t *testing.T) {
	n, _ := newFakeNotifier(false)
	if err := n.Notify(context.Background(), Alert{Kind: KindNewOrder}); err == nil {
		t.Fatal("expected NACK error")
	}
}

func TestAMQPNotifier_PublishError(t *testing.T) {
	n, ch := newFakeNotifier(true)
	ch.err = errors.New("channel closed")
	if err := n.Notify(context.Background(), Alert{Kind: KindNewOrder}); err == nil {
		t.Fatal("expected publish error")
	}
}

func TestAMQPNotifier_LateConfirmDoesNotLeakIntoNextAlert(t *testing.T) {
	ch := &fakeChannel{acks: make(chan amqp.Confirmation, 4), ack: true, withhold: true}
	n := &AMQPNotifier{ch: ch, acks: ch.acks}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := n.Notify(ctx, Alert{Kind: KindNewOrder}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("first alert: got %v, want deadline exceeded", err)
	}

	// the broker rejects the first message after its caller gave up
	ch.acks <- amqp.Confirmation{DeliveryTag: 1, Ack: false}
	ch.withhold = false

	if err := n.Notify(context.Background(), Alert{Kind: KindBillRequested}); err != nil {
		t.Fatalf("second alert was acked but reported %v", err)
	}
	if len(ch.acks) != 0 {
		t.Errorf("unread confirms: got %d", len(ch.acks))
	}
}

func TestAMQPNotifier_PublishErrorKeepsTagsInStep(t *testing.T) {
	n, ch := newFakeNotifier(true)
	ch.err = errors.New("channel blocked")
	if err := n.Notify(context.Background(), Alert{Kind: KindNewOrder}); err == nil {
		t.Fatal("expected publish error")
	}
	ch.err = nil
	// the broker numbers only messages that were sent, so this is tag 1
	if err := n.Notify(context.Background(), Alert{Kind: KindNewOrder}); err != nil {
		t.Fatalf("Notify after publish error: %v", err)
	}
}
