package terminal

import (
	"context"
	"log"
	"time"

	"github.com/autodine/autodine/internal/api"
)

// Host is the part of the host API a table unit uses. Satisfied by
// *hostclient.Client.
type Host interface {
	SubmitOrder(ctx context.Context, req api.OrderRequest) error
	TableStatus(ctx context.Context, tableID int) (api.TableStatus, error)
	RequestBill(ctx context.Context, tableID int) error
	SendPayment(ctx context.Context, tableID int, method string) error
}

// Screen displays machine views.
type Screen interface {
	Render(v View)
}

// ScreenFunc adapts a function to Screen.
type ScreenFunc func(v View)

func (f ScreenFunc) Render(v View) { f(v) }

// RunnerOptions configures the control loop.
type RunnerOptions struct {
	TableID      int
	PollInterval time.Duration
	TickInterval time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Runner is the control loop of one table unit: it feeds buttons, poll
// results and ticks to the machine and performs the host calls the machine
// asks for. Host calls block the loop, bounded by the client timeout.
type Runner struct {
	machine  *Machine
	host     Host
	screen   Screen
	opts     RunnerOptions
	lastPoll time.Time
}

// NewRunner creates a runner.
func NewRunner(m *Machine, host Host, screen Screen, opts RunnerOptions) *Runner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 50 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if screen == nil {
		screen = ScreenFunc(func(View) {})
	}
	return &Runner{machine: m, host: host, screen: screen, opts: opts}
}

// Run processes buttons until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, buttons <-chan Button) error {
	ticker := time.NewTicker(r.opts.TickInterval)
	defer ticker.Stop()

	r.screen.Render(r.machine.View())
	for {
		select {
		case <-ctx.Done():
			return nil
		case b, ok := <-buttons:
			if !ok {
				buttons = nil
				continue
			}
			r.Dispatch(ctx, Press{Button: b})
		case <-ticker.C:
			r.Step(ctx)
		}
	}
}

// Step runs one loop iteration without input: time-based transitions, then
// a poll if one is due.
func (r *Runner) Step(ctx context.Context) {
	r.Dispatch(ctx, Tick{})
	if r.machine.NeedsPoll() && r.opts.Clock().Sub(r.lastPoll) >= r.opts.PollInterval {
		r.Poll(ctx)
	}
}

// Poll fetches the table status and applies it.
func (r *Runner) Poll(ctx context.Context) {
	r.lastPoll = r.opts.Clock()
	st, err := r.host.TableStatus(ctx, r.opts.TableID)
	if err != nil {
		log.Printf("poll failed: %v", err)
		r.Dispatch(ctx, PollFailed{Err: err})
		return
	}
	if st.TableID != 0 && st.TableID != r.opts.TableID {
		log.Printf("ignoring status for table %d", st.TableID)
		return
	}
	r.Dispatch(ctx, Snapshot{Status: st})
}

// Dispatch applies ev, performs the resulting host calls and redraws the
// screen when something visible changed.
func (r *Runner) Dispatch(ctx context.Context, ev Event) {
	before := r.machine.View()
	effects := r.machine.Handle(ev, r.opts.Clock())
	after := r.machine.View()
	if _, isTick := ev.(Tick); !isTick || visiblyChanged(before, after) {
		r.screen.Render(after)
	}

	for _, eff := range effects {
		if follow := r.execute(ctx, eff); follow != nil {
			r.Dispatch(ctx, follow)
		}
	}
}

// execute performs one host call and returns the failure event, if any.
func (r *Runner) execute(ctx context.Context, eff Effect) Event {
	switch eff := eff.(type) {
	case SubmitOrder:
		req := api.NewOrderRequest(r.opts.TableID, eff.Cart, eff.Append)
		if err := r.host.SubmitOrder(ctx, req); err != nil {
			return SubmitFailed{Err: err}
		}
		log.Printf("order sent: %d lines, total=%d, append=%v", len(req.Items), req.Total, req.Append)
	case RequestBill:
		if err := r.host.RequestBill(ctx, r.opts.TableID); err != nil {
			return BillRequestFailed{Err: err}
		}
		log.Printf("bill requested")
	case SendPayment:
		if err := r.host.SendPayment(ctx, r.opts.TableID, eff.Method); err != nil {
			return PaymentFailed{Err: err}
		}
		log.Printf("payment method sent: %s", eff.Method)
	}
	return nil
}

func visiblyChanged(a, b View) bool {
	return a.State != b.State || a.Notice != b.Notice || a.HostUnreachable != b.HostUnreachable
}
