// Package notify raises kitchen alerts when a table needs staff attention:
// a new or extended order waiting for a decision, or a bill request.
package notify

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/autodine/autodine/internal/service"
	"github.com/google/uuid"
)

// Alert kinds.
const (
	KindNewOrder      = "new_order"
	KindOrderAppended = "order_appended"
	KindBillRequested = "bill_requested"
)

// Alert is one kitchen notification.
type Alert struct {
	ID      uuid.UUID `json:"id"`
	Kind    string    `json:"kind"`
	TableID int       `json:"table_id"`
	OrderID int       `json:"order_id"`
	Total   int64     `json:"total"`
	At      time.Time `json:"at"`
}

// Notifier delivers alerts.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// LogNotifier writes alerts to the process log.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, a Alert) error {
	log.Printf("ALERT: %s table=%d order=%d total=%d", a.Kind, a.TableID, a.OrderID, a.Total)
	return nil
}

// Multi fans an alert out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, a Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sink turns store changes into alerts. Notify waits for the broker, so the
// server runs it behind a service.AsyncSink.
type Sink struct {
	n       Notifier
	timeout time.Duration
}

// NewSink creates a change sink that notifies through n, giving each
// delivery at most timeout.
func NewSink(n Notifier, timeout time.Duration) *Sink {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Sink{n: n, timeout: timeout}
}

// HandleChange implements service.ChangeSink.
func (s *Sink) HandleChange(ctx context.Context, c service.Change) {
	a, ok := AlertFor(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.n.Notify(ctx, a); err != nil {
		log.Printf("ERROR: kitchen alert %s for table %d: %v", a.Kind, a.TableID, err)
	}
}

// AlertFor maps a store change to the alert it raises, if any.
func AlertFor(c service.Change) (Alert, bool) {
	a := Alert{
		ID:      uuid.New(),
		TableID: c.TableID,
		OrderID: c.OrderID,
		At:      c.At,
	}
	if c.Table.Order != nil {
		a.Total = c.Table.Order.Total
	}
	switch c.Kind {
	case service.ChangeOrderSubmitted:
		a.Kind = KindNewOrder
		if c.Append {
			a.Kind = KindOrderAppended
		}
	case service.ChangeBillGenerated:
		a.Kind = KindBillRequested
	default:
		return Alert{}, false
	}
	return a, true
}
