package synapse

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jonahkesoyan/bittensor/protocol"
)

// Routes of the text completion family. Trailing slashes are part of the
// protocol; peers post to these paths verbatim.
const (
	RouteTextCompletionForward  = "/TextToCompletion/Forward/"
	RouteTextCompletionBackward = "/TextToCompletion/Backward/"
)

// TextCompletionName labels the family in envelopes and rpc logs.
const TextCompletionName = "text_to_completion"

// ForwardTextBody is the wire body of a forward text completion exchange.
// The caller fills roles and messages; the receiver fills completion.
type ForwardTextBody struct {
	CallBody
	Roles      []string `json:"roles"`
	Messages   []string `json:"messages"`
	Completion string   `json:"completion"`
}

// BackwardTextBody is the wire body of a backward (reward feedback)
// exchange: the original prompt, the completion being scored and one
// reward per message.
type BackwardTextBody struct {
	CallBody
	Roles      []string  `json:"roles"`
	Messages   []string  `json:"messages"`
	Completion string    `json:"completion"`
	Rewards    []float64 `json:"rewards"`
}

// TextCompletionHandler is the application behind the routes: Forward
// produces a completion for a prompt, Backward consumes reward feedback
// for an earlier completion.
type TextCompletionHandler interface {
	Forward(ctx context.Context, roles, messages []string) (string, error)
	Backward(ctx context.Context, roles, messages []string, completion string, rewards []float64) error
}

// TextCompletion serves the text completion family.
type TextCompletion struct {
	base
	handler TextCompletionHandler
}

// NewTextCompletion wraps a handler with optional blacklist and priority
// hooks.
func NewTextCompletion(handler TextCompletionHandler, opts ...Option) *TextCompletion {
	return &TextCompletion{
		base:    newBase(TextCompletionName, opts...),
		handler: handler,
	}
}

// RegisterRoutes mounts the forward and backward routes.
func (s *TextCompletion) RegisterRoutes(r chi.Router, d *Dispatcher) {
	r.Post(RouteTextCompletionForward, s.handleForward(d))
	r.Post(RouteTextCompletionBackward, s.handleBackward(d))
}

// forwardTextCall carries one forward exchange through the dispatcher. The
// completion cell is written by the worker and read back only after a
// success resolution, so an abandoned worker can never race the response.
type forwardTextCall struct {
	env        *protocol.Envelope
	roles      []string
	messages   []string
	completion string
}

func (c *forwardTextCall) Env() *protocol.Envelope { return c.env }

func (c *forwardTextCall) InputShapes() []int {
	return []int{len(c.roles), len(c.messages)}
}

func (c *forwardTextCall) OutputShapes() []int {
	if c.env.Code() != protocol.CodeSuccess {
		return nil
	}
	return []int{len(c.completion)}
}

func (s *TextCompletion) handleForward(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body ForwardTextBody
		if !decodeBody(w, r, &body) {
			return
		}
		env, err := protocol.NewEnvelope(s.Name(), true, senderAddress(r), d.Receiver(), body.TimeoutDuration())
		if err != nil {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		call := &forwardTextCall{env: env, roles: body.Roles, messages: body.Messages}
		d.Apply(r.Context(), s, call, func(ctx context.Context) error {
			completion, err := s.handler.Forward(ctx, call.roles, call.messages)
			if err != nil {
				return err
			}
			call.completion = completion
			return nil
		})
		if env.Code() == protocol.CodeSuccess {
			body.Completion = call.completion
		}
		body.FillFrom(env)
		writeJSON(w, http.StatusOK, &body)
	}
}

// backwardTextCall carries one reward feedback exchange. It produces no
// output payload; shapes describe the prompt and reward vector.
type backwardTextCall struct {
	env      *protocol.Envelope
	messages []string
	rewards  []float64
}

func (c *backwardTextCall) Env() *protocol.Envelope { return c.env }

func (c *backwardTextCall) InputShapes() []int {
	return []int{len(c.messages), len(c.rewards)}
}

func (c *backwardTextCall) OutputShapes() []int { return nil }

func (s *TextCompletion) handleBackward(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body BackwardTextBody
		if !decodeBody(w, r, &body) {
			return
		}
		env, err := protocol.NewEnvelope(s.Name(), false, senderAddress(r), d.Receiver(), body.TimeoutDuration())
		if err != nil {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		call := &backwardTextCall{env: env, messages: body.Messages, rewards: body.Rewards}
		d.Apply(r.Context(), s, call, func(ctx context.Context) error {
			return s.handler.Backward(ctx, body.Roles, call.messages, body.Completion, call.rewards)
		})
		body.FillFrom(env)
		writeJSON(w, http.StatusOK, &body)
	}
}
