package synapse

import (
	"time"

	"github.com/jonahkesoyan/bittensor/protocol"
)

// DefaultTimeout is applied when a request body omits its timeout field.
// Twelve seconds is the network's historical block time and the default
// budget peers expect.
const DefaultTimeout = 12 * time.Second

// Call is the server-side view of one in-flight exchange: its envelope plus
// coarse payload-shape descriptors for the rpc log. Shapes are element
// counts only; payload contents never leave the call.
type Call interface {
	Env() *protocol.Envelope
	InputShapes() []int
	OutputShapes() []int
}

// Synapse is the capability set a served operation exposes to the
// dispatcher. Name routes and labels it; Blacklist and Priority are the
// operator-supplied gating hooks evaluated before admission.
type Synapse interface {
	Name() string
	Blacklist(call Call) (bool, string)
	Priority(call Call) float64
}

// BlacklistFunc decides whether a call is refused before execution,
// independent of authentication. The string is the operator-facing reason.
type BlacklistFunc func(call Call) (bool, string)

// PriorityFunc assigns the admission priority of a call; higher runs first.
type PriorityFunc func(call Call) float64

// base carries the hooks shared by every synapse implementation.
type base struct {
	name      string
	blacklist BlacklistFunc
	priority  PriorityFunc
}

// Option configures a synapse at construction time.
type Option func(*base)

// WithBlacklist installs the operator's blacklist predicate.
func WithBlacklist(fn BlacklistFunc) Option {
	return func(b *base) { b.blacklist = fn }
}

// WithPriority installs the operator's priority function.
func WithPriority(fn PriorityFunc) Option {
	return func(b *base) { b.priority = fn }
}

func newBase(name string, opts ...Option) base {
	b := base{name: name}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Name returns the operation name used for routing and logging.
func (b *base) Name() string { return b.name }

// Blacklist runs the installed predicate; without one, nothing is refused.
func (b *base) Blacklist(call Call) (bool, string) {
	if b.blacklist == nil {
		return false, ""
	}
	return b.blacklist(call)
}

// Priority runs the installed function; without one, every call is equal.
func (b *base) Priority(call Call) float64 {
	if b.priority == nil {
		return 0
	}
	return b.priority(call)
}

// CallBody is embedded in every operation's wire body. Requests set
// timeout; responses carry the outcome back to the caller.
type CallBody struct {
	Timeout       int                 `json:"timeout"`
	ReturnCode    protocol.ReturnCode `json:"return_code"`
	ReturnMessage string              `json:"return_message"`
}

// TimeoutDuration converts the wire timeout (integer seconds) into a
// duration, substituting DefaultTimeout when the field was omitted.
func (b *CallBody) TimeoutDuration() time.Duration {
	if b.Timeout == 0 {
		return DefaultTimeout
	}
	return time.Duration(b.Timeout) * time.Second
}

// FillFrom copies the envelope's outcome into the wire body before the
// response is written.
func (b *CallBody) FillFrom(e *protocol.Envelope) {
	b.ReturnCode = e.Code()
	b.ReturnMessage = e.Message()
}
