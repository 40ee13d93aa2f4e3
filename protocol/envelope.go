package protocol

import (
	"errors"
	"time"
)

// ErrInvalidTimeout is returned when an envelope is created with a
// non-positive timeout.
var ErrInvalidTimeout = errors.New("timeout must be greater than zero")

// DefaultReturnMessage is the placeholder carried by an envelope until some
// stage of the pipeline resolves it.
const DefaultReturnMessage = "NotFilled"

// Envelope tracks one request/response exchange: identity of both ends,
// deadline, timing instrumentation and the typed outcome. Exactly one
// envelope exists per exchange and it is owned by the side that created it;
// it is never shared between goroutines.
//
// The return code starts at CodeSuccess and can only be downgraded. Once
// Finalize has run, code, message and elapsed time are frozen.
type Envelope struct {
	name      string
	isForward bool
	sender    string
	receiver  string
	timeout   time.Duration

	startTime time.Time
	endTime   time.Time
	elapsed   time.Duration

	code      ReturnCode
	message   string
	completed bool
}

// NewEnvelope starts a new exchange. The timeout is the caller's budget for
// the whole round trip and must be positive. The start timestamp is taken
// here, so envelopes should be created at the moment the exchange begins.
func NewEnvelope(name string, isForward bool, sender, receiver string, timeout time.Duration) (*Envelope, error) {
	if timeout <= 0 {
		return nil, ErrInvalidTimeout
	}
	return &Envelope{
		name:      name,
		isForward: isForward,
		sender:    sender,
		receiver:  receiver,
		timeout:   timeout,
		startTime: time.Now(),
		code:      CodeSuccess,
		message:   DefaultReturnMessage,
	}, nil
}

// Name returns the operation name used for routing and logging.
func (e *Envelope) Name() string { return e.name }

// IsForward distinguishes a forward (inference) exchange from a backward
// (feedback) one.
func (e *Envelope) IsForward() bool { return e.isForward }

// Sender returns the caller's address.
func (e *Envelope) Sender() string { return e.sender }

// Receiver returns the callee's address.
func (e *Envelope) Receiver() string { return e.receiver }

// Timeout returns the caller-supplied budget for the exchange.
func (e *Envelope) Timeout() time.Duration { return e.timeout }

// Deadline returns the instant at which the exchange's budget runs out.
func (e *Envelope) Deadline() time.Time { return e.startTime.Add(e.timeout) }

// StartTime returns when the exchange began.
func (e *Envelope) StartTime() time.Time { return e.startTime }

// Code returns the current outcome classification.
func (e *Envelope) Code() ReturnCode { return e.code }

// Message returns the human-readable outcome detail.
func (e *Envelope) Message() string { return e.message }

// Completed reports whether Finalize has run.
func (e *Envelope) Completed() bool { return e.completed }

// Elapsed returns the frozen duration after finalization, or the live
// duration since the exchange started.
func (e *Envelope) Elapsed() time.Duration {
	if e.completed {
		return e.elapsed
	}
	return time.Since(e.startTime)
}

// Resolve records an outcome on the envelope. A CodeSuccess resolution only
// refreshes the message; a failure code downgrades the envelope once, after
// which later resolutions are ignored (first failure wins). Resolutions
// after finalization are ignored entirely.
func (e *Envelope) Resolve(code ReturnCode, message string) {
	if e.completed {
		return
	}
	if code == CodeSuccess {
		if e.code == CodeSuccess {
			e.message = message
		}
		return
	}
	if e.code == CodeSuccess {
		e.code = code
		e.message = message
	}
}

// Finalize freezes timing and outcome. It is idempotent; only the first
// call records the end timestamp.
func (e *Envelope) Finalize() {
	if e.completed {
		return
	}
	e.endTime = time.Now()
	e.elapsed = e.endTime.Sub(e.startTime)
	e.completed = true
}
