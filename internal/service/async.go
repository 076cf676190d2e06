package service

import (
	"context"
	"log"
)

type queuedChange struct {
	ctx context.Context
	c   Change
}

// AsyncSink queues changes for a slow sink and delivers them from its own
// goroutine, so the store lock and the HTTP response never wait on a broker
// or a database. Changes are delivered in the order they were queued. When
// the queue is full the change is dropped and logged.
type AsyncSink struct {
	name  string
	next  ChangeSink
	queue chan queuedChange

	// Closed when Run returns
	done chan struct{}
}

// NewAsyncSink wraps next with a queue of size entries. name labels logs
// and metrics.
func NewAsyncSink(name string, next ChangeSink, size int) *AsyncSink {
	if size <= 0 {
		size = 64
	}
	return &AsyncSink{
		name:  name,
		next:  next,
		queue: make(chan queuedChange, size),
		done:  make(chan struct{}),
	}
}

// HandleChange implements ChangeSink. It never blocks.
func (a *AsyncSink) HandleChange(ctx context.Context, c Change) {
	select {
	case <-a.done:
		a.drop(c, "worker stopped")
		return
	default:
	}
	select {
	case a.queue <- queuedChange{ctx: context.WithoutCancel(ctx), c: c}:
		sinkQueueDepth.WithLabelValues(a.name).Set(float64(len(a.queue)))
	default:
		a.drop(c, "queue full")
	}
}

// Run delivers queued changes until ctx is cancelled, then flushes what is
// already queued and returns.
func (a *AsyncSink) Run(ctx context.Context) error {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case q := <-a.queue:
					a.deliver(q)
				default:
					return nil
				}
			}
		case q := <-a.queue:
			a.deliver(q)
		}
	}
}

func (a *AsyncSink) deliver(q queuedChange) {
	a.next.HandleChange(q.ctx, q.c)
	sinkQueueDepth.WithLabelValues(a.name).Set(float64(len(a.queue)))
}

func (a *AsyncSink) drop(c Change, reason string) {
	sinkDropped.WithLabelValues(a.name).Inc()
	log.Printf("ERROR: %s sink dropped %s for table %d: %s", a.name, c.Kind, c.TableID, reason)
}
