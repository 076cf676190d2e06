package service

import (
	"context"
	"time"
)

// ChangeKind names a state transition of the store.
type ChangeKind string

const (
	ChangeOrderSubmitted   ChangeKind = "order_submitted"
	ChangeOrderAccepted    ChangeKind = "order_accepted"
	ChangeOrderDeclined    ChangeKind = "order_declined"
	ChangeFoodPrepared     ChangeKind = "food_prepared"
	ChangeBillGenerated    ChangeKind = "bill_generated"
	ChangePaymentMethodSet ChangeKind = "payment_method_set"
	ChangePaymentVerified  ChangeKind = "payment_verified"
)

// Change describes one successful mutation. Table is the state of the
// affected table right after the mutation.
type Change struct {
	Kind    ChangeKind
	TableID int
	OrderID int
	// Append is set when a submission extended an existing order, or when a
	// decline only rolled back the latest batch.
	Append  bool
	Table   TableView
	Settled *Settlement
	At      time.Time
}

// Settlement captures what was paid when a table is reset.
type Settlement struct {
	TableID  int
	OrderIDs []int
	Method   string
	Bill     string
}

// ChangeSink receives changes while the store lock is still held, one table
// change at a time and in the order they were applied. HandleChange must not
// block for long and must not call back into the store; slow sinks belong
// behind an AsyncSink.
type ChangeSink interface {
	HandleChange(ctx context.Context, c Change)
}

// ChangeSinkFunc adapts a function to ChangeSink.
type ChangeSinkFunc func(ctx context.Context, c Change)

func (f ChangeSinkFunc) HandleChange(ctx context.Context, c Change) { f(ctx, c) }

func (s *OrderService) emitLocked(ctx context.Context, c Change) {
	for _, sink := range s.sinks {
		sink.HandleChange(ctx, c)
	}
}
