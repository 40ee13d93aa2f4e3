package synapse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonahkesoyan/bittensor/admission"
	"github.com/jonahkesoyan/bittensor/metrics"
	"github.com/jonahkesoyan/bittensor/protocol"
)

// Dispatcher drives the server-side pipeline for one node: blacklist,
// priority, bounded execution, outcome mapping and the rpc log entries
// around it. One dispatcher serves every synapse attached to an axon; the
// per-operation differences live in the Synapse and the task closure.
type Dispatcher struct {
	receiver string
	queue    *admission.Queue
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewDispatcher creates a dispatcher for the receiving address backed by
// the given admission queue. The metrics handle may be nil.
func NewDispatcher(receiver string, queue *admission.Queue, log *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		receiver: receiver,
		queue:    queue,
		log:      log,
		metrics:  m,
	}
}

// Receiver returns the address of the node this dispatcher serves.
func (d *Dispatcher) Receiver() string { return d.receiver }

// Apply runs one authenticated call through the pipeline, mutating the
// call's envelope with the outcome:
//
//	blacklist refusal        -> CodeBlacklisted
//	admission ceiling        -> CodeOverloaded
//	deadline elapsed         -> CodeTimeout
//	handler error or panic   -> CodeUnknownError
//	handler returned         -> CodeSuccess
//
// The envelope is always finalized and the inbound rpc log entry always
// written, whatever path exits. A handler still running after the deadline
// is abandoned, never killed: its worker resolves into a future nobody
// reads.
func (d *Dispatcher) Apply(ctx context.Context, syn Synapse, call Call, fn admission.TaskFunc) {
	e := call.Env()
	protocol.LogRPC(d.log, true, false, e, call.InputShapes(), nil)
	d.metrics.RequestStarted()
	defer func() {
		e.Finalize()
		protocol.LogRPC(d.log, true, true, e, call.InputShapes(), call.OutputShapes())
		d.metrics.RequestFinished()
		d.metrics.ObserveRPC(e.Code())
	}()

	if refused, reason := syn.Blacklist(call); refused {
		if reason == "" {
			reason = "blacklisted"
		}
		e.Resolve(protocol.CodeBlacklisted, reason)
		return
	}

	future, err := d.queue.Submit(syn.Priority(call), e.Deadline(), fn)
	if err != nil {
		if errors.Is(err, admission.ErrOverloaded) {
			e.Resolve(protocol.CodeOverloaded, "server overloaded, retry later")
			return
		}
		e.Resolve(protocol.CodeUnknownError, err.Error())
		return
	}

	timer := time.NewTimer(time.Until(e.Deadline()))
	defer timer.Stop()

	select {
	case err := <-future.Done():
		d.resolveResult(e, err)
	case <-timer.C:
		e.Resolve(protocol.CodeTimeout, fmt.Sprintf("timeout after %gs", e.Timeout().Seconds()))
	case <-ctx.Done():
		e.Resolve(protocol.CodeUnknownError, fmt.Sprintf("request aborted: %v", ctx.Err()))
	}
}

// resolveResult maps a task resolution onto the envelope. This is the
// explicit boundary where handler failures become return codes instead of
// escaping upward.
func (d *Dispatcher) resolveResult(e *protocol.Envelope, err error) {
	var panicErr *admission.PanicError
	switch {
	case err == nil:
		e.Resolve(protocol.CodeSuccess, "Success")
	case errors.As(err, &panicErr):
		e.Resolve(protocol.CodeUnknownError, panicErr.Error())
	case errors.Is(err, admission.ErrExpired):
		e.Resolve(protocol.CodeTimeout, fmt.Sprintf("timeout after %gs", e.Timeout().Seconds()))
	default:
		e.Resolve(protocol.CodeUnknownError, err.Error())
	}
}
