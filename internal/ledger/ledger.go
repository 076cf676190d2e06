// Package ledger archives settled bills to Postgres. It is an audit trail
// only: the live order state never reads from it.
package ledger

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/autodine/autodine/internal/api"
	"github.com/autodine/autodine/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the subset of pgx used by the ledger. Satisfied by *pgxpool.Pool,
// *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS settlements (
	id             UUID PRIMARY KEY,
	table_id       INTEGER NOT NULL,
	order_ids      INTEGER[] NOT NULL,
	payment_method TEXT NOT NULL,
	subtotal       BIGINT NOT NULL,
	gst            BIGINT NOT NULL,
	grand_total    BIGINT NOT NULL,
	bill           JSONB,
	settled_at     TIMESTAMPTZ NOT NULL
)`

const insertSettlement = `
INSERT INTO settlements
	(id, table_id, order_ids, payment_method, subtotal, gst, grand_total, bill, settled_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Record is one archived settlement.
type Record struct {
	ID            uuid.UUID
	TableID       int
	OrderIDs      []int32
	PaymentMethod string
	Subtotal      int64
	GST           int64
	GrandTotal    int64
	Bill          *string
	SettledAt     time.Time
}

// RecordFor builds the archive row of a settlement. A missing or unreadable
// bill snapshot leaves the amounts at zero.
func RecordFor(s *service.Settlement, at time.Time) Record {
	r := Record{
		ID:            uuid.New(),
		TableID:       s.TableID,
		OrderIDs:      make([]int32, len(s.OrderIDs)),
		PaymentMethod: s.Method,
		SettledAt:     at.UTC(),
	}
	for i, id := range s.OrderIDs {
		r.OrderIDs[i] = int32(id)
	}
	if s.Bill == "" {
		return r
	}
	bill := s.Bill
	r.Bill = &bill
	if b, err := api.ParseBill(s.Bill); err == nil {
		r.Subtotal, r.GST, r.GrandTotal = b.Subtotal, b.GST, b.GrandTotal
	} else {
		log.Printf("WARN: settlement for table %d has unreadable bill: %v", s.TableID, err)
	}
	return r
}

// Ledger writes settlements.
type Ledger struct {
	db DBTX
}

// New creates a Ledger on top of db.
func New(db DBTX) *Ledger {
	return &Ledger{db: db}
}

// Connect opens a pool and verifies it is reachable.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the settlements table if it does not exist.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create settlements table: %w", err)
	}
	return nil
}

// Record inserts one settlement.
func (l *Ledger) Record(ctx context.Context, r Record) error {
	_, err := l.db.Exec(ctx, insertSettlement,
		r.ID, r.TableID, r.OrderIDs, r.PaymentMethod,
		r.Subtotal, r.GST, r.GrandTotal, r.Bill, r.SettledAt)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

// HandleChange archives verified payments. It waits on the database and is
// meant to run behind a service.AsyncSink. Failures are logged; the table
// has already been reset and stays reset.
func (l *Ledger) HandleChange(ctx context.Context, c service.Change) {
	if c.Kind != service.ChangePaymentVerified || c.Settled == nil {
		return
	}
	rec := RecordFor(c.Settled, c.At)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := l.Record(ctx, rec); err != nil {
		log.Printf("ERROR: archive settlement for table %d: %v", rec.TableID, err)
		return
	}
	log.Printf("settlement %s archived for table %d: total=%d", rec.ID, rec.TableID, rec.GrandTotal)
}
